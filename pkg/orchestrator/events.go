package orchestrator

import (
	"context"

	"github.com/harun/mnemo/pkg/events"
)

// Message is one inbound conversation message as delivered by the host
// runtime. Content is either a plain string or a structured body.
type Message struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

// CompactionRequest is the host's view of the conversation at compaction
// time. Prompt is an optional topical hint; Messages is the transcript being
// compacted.
type CompactionRequest struct {
	Prompt   string    `json:"prompt,omitempty"`
	Messages []Message `json:"messages,omitempty"`
}

// CompactionOutput collects context fragments to carry across the
// compaction boundary. The recall path appends to Context and never
// replaces entries contributed by others.
type CompactionOutput struct {
	Context []string `json:"context,omitempty"`
}

// Attach subscribes the ingest gate to the hub's message stream. The
// returned function cancels the subscription.
func (o *Orchestrator) Attach(hub *events.Hub) func() {
	ch, cancel := hub.Subscribe(events.TypeMessageReceived, 64)
	go func() {
		for evt := range ch {
			msg, ok := evt.Payload.(Message)
			if !ok {
				o.logger.Warn().Str("event", string(evt.Type)).Msg("Dropping event with unexpected payload type")
				continue
			}
			o.HandleMessage(context.Background(), msg, evt.Timestamp)
		}
	}()
	return cancel
}
