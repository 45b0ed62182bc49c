// Package memstore defines the memory store contract the orchestration core
// depends on, and provides a SQLite-backed implementation with hybrid
// keyword/vector retrieval.
package memstore

import (
	"context"
	"time"
)

// Record is a stored memory. Records are immutable once created; Score is a
// query-time artifact and is zero outside of search results.
type Record struct {
	ID        string            `json:"id"`
	Content   string            `json:"content"`
	CreatedAt time.Time         `json:"created_at"`
	Score     float64           `json:"score,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Stats describes a store's contents.
type Stats struct {
	Total int `json:"total"`
}

// Predicate decides whether candidate text should be persisted. It is bound
// to the thresholds and index state of the store that produced it and must be
// re-derived when the active store changes.
type Predicate func(ctx context.Context, text string) (bool, error)

// Store is one open memory collection.
//
// Implementations must be safe for interleaved calls on a single handle; the
// orchestration layer issues concurrent searches and background adds against
// the same store without external locking.
type Store interface {
	// ShouldCreate derives an importance/novelty predicate bound to the
	// given thresholds and the store's current index state.
	ShouldCreate(ctx context.Context, importanceThreshold, noveltyThreshold float64) (Predicate, error)

	// Add persists content with free-form metadata and returns the record ID.
	Add(ctx context.Context, content string, metadata map[string]string) (string, error)

	// SearchHybrid retrieves up to limit records ranked by combined keyword
	// and vector relevance. The query must already be escaped for the
	// store's query syntax.
	SearchHybrid(ctx context.Context, query string, limit int) ([]Record, error)

	// Stats reports the store's record count.
	Stats(ctx context.Context) (Stats, error)

	Close() error
}

// Factory opens stores by storage path.
type Factory interface {
	Open(ctx context.Context, storagePath string) (Store, error)
}
