package orchestrator

import (
	"context"
	"fmt"

	"github.com/harun/mnemo/internal/observability"
)

// Verdict classifies candidate content for the save-worthiness judge.
type Verdict string

const (
	VerdictTooShort     Verdict = "too_short"
	VerdictTooLong      Verdict = "too_long"
	VerdictUnjudgeable  Verdict = "unjudgeable"
	VerdictDuplicate    Verdict = "duplicate"
	VerdictWorthy       Verdict = "worthy"
	VerdictNotImportant Verdict = "not_important"
)

const (
	judgeMinChars = 20
	judgeMaxChars = 800
)

// Judgment is the judge's advisory answer. Conflict carries the existing
// memory's content when the verdict is VerdictDuplicate.
type Judgment struct {
	Verdict  Verdict `json:"verdict"`
	Reason   string  `json:"reason"`
	Conflict string  `json:"conflict,omitempty"`
}

// Judge evaluates whether content is worth saving, checking in strict order:
// length bounds, store availability, duplication against existing memories,
// then the ingest predicate. It is advisory only and never writes.
func (o *Orchestrator) Judge(ctx context.Context, content string) Judgment {
	j := o.judge(ctx, content)
	observability.RecordJudgeVerdict(string(j.Verdict))
	return j
}

func (o *Orchestrator) judge(ctx context.Context, content string) Judgment {
	n := len([]rune(content))
	if n < judgeMinChars {
		return Judgment{
			Verdict: VerdictTooShort,
			Reason:  fmt.Sprintf("content is %d characters, below the %d-character minimum for a useful memory", n, judgeMinChars),
		}
	}
	if n > judgeMaxChars {
		return Judgment{
			Verdict: VerdictTooLong,
			Reason:  fmt.Sprintf("content is %d characters, above the %d-character maximum; split it into smaller memories", n, judgeMaxChars),
		}
	}

	store, predicate, _, ok := o.active()
	if !ok {
		return Judgment{
			Verdict: VerdictUnjudgeable,
			Reason:  "no memory store is active; as a rule of thumb, save durable facts, preferences, and standing instructions, skip transient chatter",
		}
	}

	hits, err := store.SearchHybrid(ctx, EscapeQuery(content), 5)
	if err != nil {
		return Judgment{
			Verdict: VerdictUnjudgeable,
			Reason:  fmt.Sprintf("duplicate check failed: %v", err),
		}
	}
	if len(hits) > 0 && hits[0].Score > o.opts.DuplicateCutoff {
		return Judgment{
			Verdict:  VerdictDuplicate,
			Reason:   fmt.Sprintf("an existing memory already covers this (similarity %.2f)", hits[0].Score),
			Conflict: hits[0].Content,
		}
	}

	keep, err := predicate(ctx, content)
	if err != nil {
		return Judgment{
			Verdict: VerdictUnjudgeable,
			Reason:  fmt.Sprintf("importance check failed: %v", err),
		}
	}
	if keep {
		return Judgment{
			Verdict: VerdictWorthy,
			Reason:  "content looks like durable, novel information",
		}
	}
	return Judgment{
		Verdict: VerdictNotImportant,
		Reason:  "content does not look important enough to keep long term",
	}
}
