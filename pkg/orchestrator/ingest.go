package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/harun/mnemo/internal/observability"
)

const (
	// maxIngestChars caps stored auto-ingest content; longer text is cut to
	// truncateChars plus an ellipsis.
	maxIngestChars = 600
	truncateChars  = 550
)

// HandleMessage runs the ingest gate over one inbound message. The decision
// and any write happen on a background goroutine so the host's delivery path
// never blocks on memory I/O; failures are logged and dropped.
func (o *Orchestrator) HandleMessage(ctx context.Context, msg Message, receivedAt time.Time) {
	o.ingests.Add(1)
	go func() {
		defer o.ingests.Done()
		if err := o.ingestMessage(ctx, msg, receivedAt); err != nil {
			o.logger.Warn().Err(err).Msg("Auto-ingest failed")
		}
	}()
}

func (o *Orchestrator) ingestMessage(ctx context.Context, msg Message, receivedAt time.Time) error {
	store, predicate, identity, ok := o.active()
	if !ok {
		return nil
	}
	if msg.Role != "user" {
		return nil
	}

	content := normalizeContent(msg.Content)
	if content == "" {
		return nil
	}
	content = truncateContent(content)

	start := time.Now()
	keep, err := predicate(ctx, content)
	if err != nil {
		observability.RecordIngestDecision("error", time.Since(start))
		return fmt.Errorf("ingest predicate failed: %w", err)
	}
	if !keep {
		observability.RecordIngestDecision("rejected", time.Since(start))
		o.logger.Debug().Str("store", identity).Msg("Message rejected by ingest gate")
		return nil
	}

	if receivedAt.IsZero() {
		receivedAt = o.nowFn()
	}

	id, err := store.Add(ctx, content, map[string]string{
		"type":    "auto-ingest",
		"source":  "message-event",
		"store":   identity,
		"session": fmt.Sprintf("session-%d", receivedAt.Unix()),
	})
	if err != nil {
		observability.RecordIngestDecision("error", time.Since(start))
		return fmt.Errorf("failed to persist ingested message: %w", err)
	}

	observability.RecordIngestDecision("stored", time.Since(start))
	o.logger.Debug().Str("store", identity).Str("memory_id", id).Msg("Message auto-ingested")
	return nil
}

// normalizeContent flattens a message body to text: strings pass through,
// structured bodies are JSON-serialized.
func normalizeContent(content interface{}) string {
	switch v := content.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return strings.TrimSpace(fmt.Sprintf("%v", v))
		}
		return strings.TrimSpace(string(data))
	}
}

func truncateContent(content string) string {
	runes := []rune(content)
	if len(runes) <= maxIngestChars {
		return content
	}
	return string(runes[:truncateChars]) + "..."
}
