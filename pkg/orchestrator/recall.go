package orchestrator

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/harun/mnemo/internal/observability"
	"github.com/harun/mnemo/pkg/memstore"
)

const (
	// defaultRecallHint keeps recall useful when the compaction request
	// carries no prompt and no usable message text.
	defaultRecallHint = "recent conversation context"

	// overfetchMargin widens the candidate pool past MaxMemories so the
	// recency re-rank has older, decayed records to choose from.
	overfetchMargin = 10
)

type rankedMemory struct {
	record memstore.Record
	score  float64
}

// HandleCompaction searches the active store with a hint derived from the
// request, re-ranks candidates by relevance and recency, and appends a
// rendered memory block to out.Context. Any failure is logged and skipped;
// compaction itself never fails because of recall.
func (o *Orchestrator) HandleCompaction(ctx context.Context, in CompactionRequest, out *CompactionOutput) {
	if out == nil {
		return
	}
	store, _, identity, ok := o.active()
	if !ok {
		return
	}

	start := time.Now()
	hint := recallHint(in)

	records, err := store.SearchHybrid(ctx, EscapeQuery(hint), o.opts.MaxMemories+overfetchMargin)
	if err != nil {
		observability.RecordRecallError()
		o.logger.Warn().Err(err).Str("store", identity).Msg("Memory recall failed, compacting without injected context")
		return
	}

	ranked := rerank(records, o.nowFn(), o.opts.DecayTimeConstantHours, o.opts.DecayFloor)
	if len(ranked) > o.opts.MaxMemories {
		ranked = ranked[:o.opts.MaxMemories]
	}

	observability.RecordRecall(len(records), len(ranked) > 0, time.Since(start))
	if len(ranked) == 0 {
		return
	}

	out.Context = append(out.Context, renderMemoryBlock(identity, ranked))
	o.logger.Debug().Str("store", identity).Int("memories", len(ranked)).Msg("Injected memory context")
}

// recallHint picks the query text: explicit prompt first, then the newest
// message with usable content, then a fixed fallback.
func recallHint(in CompactionRequest) string {
	if hint := strings.TrimSpace(in.Prompt); hint != "" {
		return hint
	}
	if len(in.Messages) > 0 {
		if content := normalizeContent(in.Messages[len(in.Messages)-1].Content); content != "" {
			return content
		}
	}
	return defaultRecallHint
}

// rerank multiplies each record's retrieval score by a recency boost
// exp(-age/tau) clamped to floor, then orders by the product. The sort is
// stable so records with equal final scores keep their retrieval order.
func rerank(records []memstore.Record, now time.Time, tauHours, floor float64) []rankedMemory {
	ranked := make([]rankedMemory, 0, len(records))
	for _, r := range records {
		ageHours := now.Sub(r.CreatedAt).Hours()
		if ageHours < 0 {
			ageHours = 0
		}
		boost := math.Exp(-ageHours / tauHours)
		if boost < floor {
			boost = floor
		}
		ranked = append(ranked, rankedMemory{record: r, score: r.Score * boost})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})
	return ranked
}

func renderMemoryBlock(identity string, ranked []rankedMemory) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<memory store=%q>\n", identity)
	b.WriteString("The following long-term memories are relevant to the current conversation. Treat them as established context that survives compaction:\n")
	for i, m := range ranked {
		fmt.Fprintf(&b, "\n%d. [%s] %s\n", i+1, m.record.CreatedAt.Format("2006-01-02"), m.record.Content)
	}
	b.WriteString("</memory>")
	return b.String()
}
