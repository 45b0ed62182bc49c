package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/harun/mnemo/pkg/memstore"
)

func TestJudge_TooShort(t *testing.T) {
	o := newTestOrchestrator(t, &fakeFactory{})

	j := o.Judge(context.Background(), strings.Repeat("x", 19))
	assert.Equal(t, VerdictTooShort, j.Verdict)
}

func TestJudge_MinimumLengthPasses(t *testing.T) {
	store := &fakeStore{predicateResult: true}
	o := activateFake(t, store)

	j := o.Judge(context.Background(), strings.Repeat("x", 21))
	assert.NotEqual(t, VerdictTooShort, j.Verdict)
}

func TestJudge_TooLong(t *testing.T) {
	o := newTestOrchestrator(t, &fakeFactory{})

	j := o.Judge(context.Background(), strings.Repeat("x", 801))
	assert.Equal(t, VerdictTooLong, j.Verdict)
}

func TestJudge_LengthCountsRunesNotBytes(t *testing.T) {
	store := &fakeStore{predicateResult: true}
	o := activateFake(t, store)

	// 21 multi-byte runes: over 20 characters even though each is 3 bytes
	j := o.Judge(context.Background(), strings.Repeat("語", 21))
	assert.NotEqual(t, VerdictTooShort, j.Verdict)
}

func TestJudge_NoActiveStore(t *testing.T) {
	o := newTestOrchestrator(t, &fakeFactory{})

	j := o.Judge(context.Background(), "I always prefer tabs over spaces")
	assert.Equal(t, VerdictUnjudgeable, j.Verdict)
	assert.Contains(t, j.Reason, "durable facts")
}

func TestJudge_Duplicate(t *testing.T) {
	store := &fakeStore{
		predicateResult: true,
		searchResults: []memstore.Record{
			{ID: "1", Content: "Prefers tabs over spaces", Score: 0.95, CreatedAt: time.Now()},
		},
	}
	o := activateFake(t, store)

	j := o.Judge(context.Background(), "I always prefer tabs over spaces")
	assert.Equal(t, VerdictDuplicate, j.Verdict)
	assert.Equal(t, "Prefers tabs over spaces", j.Conflict)
}

func TestJudge_BelowCutoffNotDuplicate(t *testing.T) {
	store := &fakeStore{
		predicateResult: true,
		searchResults: []memstore.Record{
			{ID: "1", Content: "Something vaguely related", Score: 0.5, CreatedAt: time.Now()},
		},
	}
	o := activateFake(t, store)

	j := o.Judge(context.Background(), "I always prefer tabs over spaces")
	assert.Equal(t, VerdictWorthy, j.Verdict)
}

func TestJudge_NotImportant(t *testing.T) {
	store := &fakeStore{predicateResult: false}
	o := activateFake(t, store)

	j := o.Judge(context.Background(), "just some idle chatter here")
	assert.Equal(t, VerdictNotImportant, j.Verdict)
}

func TestJudge_SearchFailureIsUnjudgeable(t *testing.T) {
	store := &fakeStore{predicateResult: true, searchErr: errors.New("index corrupted")}
	o := activateFake(t, store)

	j := o.Judge(context.Background(), "I always prefer tabs over spaces")
	assert.Equal(t, VerdictUnjudgeable, j.Verdict)
}

func TestJudge_PredicateFailureIsUnjudgeable(t *testing.T) {
	store := &fakeStore{predicateErr: errors.New("embedding service down")}
	o := activateFake(t, store)

	j := o.Judge(context.Background(), "I always prefer tabs over spaces")
	assert.Equal(t, VerdictUnjudgeable, j.Verdict)
}

func TestJudge_NeverWrites(t *testing.T) {
	store := &fakeStore{predicateResult: true}
	o := activateFake(t, store)

	o.Judge(context.Background(), "I always prefer tabs over spaces")
	assert.Empty(t, store.addedContents())
}
