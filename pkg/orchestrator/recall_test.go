package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harun/mnemo/pkg/memstore"
)

func TestRerank_RecentBeatsSlightlyStrongerOld(t *testing.T) {
	now := time.Now()
	records := []memstore.Record{
		{ID: "old", Score: 0.9, CreatedAt: now.Add(-200 * time.Hour)},
		{ID: "new", Score: 0.89, CreatedAt: now},
	}

	ranked := rerank(records, now, 72, 0.55)

	// 200h-old record decays to the floor: 0.9*0.55=0.495 < 0.89*1.0
	require.Len(t, ranked, 2)
	assert.Equal(t, "new", ranked[0].record.ID)
	assert.Equal(t, "old", ranked[1].record.ID)
}

func TestRerank_LargeRelevanceGapSurvivesDecay(t *testing.T) {
	now := time.Now()
	records := []memstore.Record{
		{ID: "strong-old", Score: 1.0, CreatedAt: now.Add(-200 * time.Hour)},
		{ID: "weak-new", Score: 0.4, CreatedAt: now},
	}

	ranked := rerank(records, now, 72, 0.55)

	// 1.0*0.55=0.55 still beats 0.4*1.0
	assert.Equal(t, "strong-old", ranked[0].record.ID)
}

func TestRerank_FloorBoundsDecay(t *testing.T) {
	now := time.Now()
	records := []memstore.Record{
		{ID: "ancient", Score: 1.0, CreatedAt: now.Add(-10000 * time.Hour)},
	}

	ranked := rerank(records, now, 72, 0.55)
	assert.InDelta(t, 0.55, ranked[0].score, 1e-9)
}

func TestRerank_FreshRecordKeepsFullScore(t *testing.T) {
	now := time.Now()
	ranked := rerank([]memstore.Record{{ID: "a", Score: 0.8, CreatedAt: now}}, now, 72, 0.55)
	assert.InDelta(t, 0.8, ranked[0].score, 1e-9)
}

func TestRerank_StableForEqualScores(t *testing.T) {
	now := time.Now()
	records := []memstore.Record{
		{ID: "first", Score: 0.7, CreatedAt: now},
		{ID: "second", Score: 0.7, CreatedAt: now},
		{ID: "third", Score: 0.7, CreatedAt: now},
	}

	ranked := rerank(records, now, 72, 0.55)

	assert.Equal(t, "first", ranked[0].record.ID)
	assert.Equal(t, "second", ranked[1].record.ID)
	assert.Equal(t, "third", ranked[2].record.ID)
}

func TestRerank_FutureTimestampClampedToNoDecay(t *testing.T) {
	now := time.Now()
	ranked := rerank([]memstore.Record{{ID: "a", Score: 0.8, CreatedAt: now.Add(time.Hour)}}, now, 72, 0.55)
	assert.InDelta(t, 0.8, ranked[0].score, 1e-9)
}

func TestHandleCompaction_InjectsMemoryBlock(t *testing.T) {
	created := time.Date(2026, 2, 14, 9, 0, 0, 0, time.UTC)
	store := &fakeStore{
		predicateResult: true,
		searchResults: []memstore.Record{
			{ID: "1", Content: "Prefers 2-space indentation", Score: 0.9, CreatedAt: created},
		},
	}
	o := activateFake(t, store)

	out := &CompactionOutput{}
	o.HandleCompaction(context.Background(), CompactionRequest{Prompt: "indentation"}, out)

	require.Len(t, out.Context, 1)
	block := out.Context[0]
	assert.Contains(t, block, `<memory store="work">`)
	assert.Contains(t, block, "1. [2026-02-14] Prefers 2-space indentation")
	assert.True(t, strings.HasSuffix(block, "</memory>"))
}

func TestHandleCompaction_AppendsWithoutReplacing(t *testing.T) {
	store := &fakeStore{
		predicateResult: true,
		searchResults:   []memstore.Record{{ID: "1", Content: "a fact", Score: 0.9, CreatedAt: time.Now()}},
	}
	o := activateFake(t, store)

	out := &CompactionOutput{Context: []string{"existing fragment"}}
	o.HandleCompaction(context.Background(), CompactionRequest{Prompt: "facts"}, out)

	require.Len(t, out.Context, 2)
	assert.Equal(t, "existing fragment", out.Context[0])
}

func TestHandleCompaction_BoundsInjectedMemories(t *testing.T) {
	now := time.Now()
	var results []memstore.Record
	for i := 0; i < 17; i++ {
		results = append(results, memstore.Record{
			ID:        fmt.Sprintf("m%d", i),
			Content:   fmt.Sprintf("fact number %d", i),
			Score:     0.9,
			CreatedAt: now,
		})
	}
	store := &fakeStore{predicateResult: true, searchResults: results}
	o := activateFake(t, store)

	out := &CompactionOutput{}
	o.HandleCompaction(context.Background(), CompactionRequest{Prompt: "facts"}, out)

	require.Len(t, out.Context, 1)
	assert.Contains(t, out.Context[0], "7. [")
	assert.NotContains(t, out.Context[0], "8. [")
}

func TestHandleCompaction_NoCandidatesLeavesOutputUntouched(t *testing.T) {
	store := &fakeStore{predicateResult: true}
	o := activateFake(t, store)

	out := &CompactionOutput{}
	o.HandleCompaction(context.Background(), CompactionRequest{Prompt: "anything"}, out)

	assert.Empty(t, out.Context)
}

func TestHandleCompaction_SearchFailureIsSilent(t *testing.T) {
	store := &fakeStore{predicateResult: true, searchErr: errors.New("index corrupted")}
	o := activateFake(t, store)

	out := &CompactionOutput{}
	o.HandleCompaction(context.Background(), CompactionRequest{Prompt: "anything"}, out)

	assert.Empty(t, out.Context)
}

func TestHandleCompaction_NoActiveStore(t *testing.T) {
	o := newTestOrchestrator(t, &fakeFactory{})

	out := &CompactionOutput{}
	o.HandleCompaction(context.Background(), CompactionRequest{Prompt: "anything"}, out)

	assert.Empty(t, out.Context)
}

func TestHandleCompaction_EscapesHintBeforeSearch(t *testing.T) {
	store := &fakeStore{predicateResult: true}
	o := activateFake(t, store)

	o.HandleCompaction(context.Background(), CompactionRequest{Prompt: "O'Brien"}, &CompactionOutput{})

	assert.Equal(t, `"O''Brien"`, store.lastQuery)
	assert.Equal(t, 17, store.lastLimit)
}

func TestRecallHint(t *testing.T) {
	t.Run("prompt wins", func(t *testing.T) {
		in := CompactionRequest{
			Prompt:   "deployment",
			Messages: []Message{{Role: "user", Content: "unrelated"}},
		}
		assert.Equal(t, "deployment", recallHint(in))
	})

	t.Run("falls back to last message", func(t *testing.T) {
		in := CompactionRequest{
			Messages: []Message{
				{Role: "user", Content: "first"},
				{Role: "user", Content: "last"},
			},
		}
		assert.Equal(t, "last", recallHint(in))
	})

	t.Run("default when nothing usable", func(t *testing.T) {
		assert.Equal(t, defaultRecallHint, recallHint(CompactionRequest{}))
		assert.Equal(t, defaultRecallHint, recallHint(CompactionRequest{Prompt: "  "}))
	})
}
