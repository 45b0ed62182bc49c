package memstore

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	"github.com/google/uuid"
	"github.com/harun/mnemo/internal/observability"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

func init() {
	// Auto-register sqlite-vec extension
	sqlite_vec.Auto()
}

const (
	vectorWeight  = 0.7
	keywordWeight = 0.3

	// candidateLimit bounds each retrieval arm before merging.
	candidateLimit = 200
)

// SQLiteFactory opens SQLite-backed stores.
type SQLiteFactory struct {
	Logger   zerolog.Logger
	Embedder EmbeddingProvider // optional, nil disables vector search
}

// Open opens or creates the store file at storagePath.
func (f *SQLiteFactory) Open(ctx context.Context, storagePath string) (Store, error) {
	return OpenSQLite(ctx, storagePath, f.Embedder, f.Logger)
}

// SQLiteStore implements Store over SQLite with FTS5 keyword search and
// sqlite-vec vector search.
type SQLiteStore struct {
	db       *sql.DB
	logger   zerolog.Logger
	embedder EmbeddingProvider
}

// OpenSQLite opens a store file, creating it and its schema if needed.
func OpenSQLite(ctx context.Context, storagePath string, embedder EmbeddingProvider, logger zerolog.Logger) (*SQLiteStore, error) {
	observability.EnsureRegistered()

	if storagePath == "" {
		return nil, errors.New("storage path is required")
	}

	db, err := sql.Open("sqlite3", storagePath+"?_fts5=1")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &SQLiteStore{
		db:       db,
		logger:   logger.With().Str("component", "memstore").Logger(),
		embedder: embedder,
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	s.logger.Debug().Str("path", storagePath).Msg("Store opened")
	return s, nil
}

// initSchema creates database tables
func (s *SQLiteStore) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS memories (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			metadata TEXT NOT NULL DEFAULT '{}'
		);
		CREATE INDEX IF NOT EXISTS idx_memories_created ON memories(created_at);

		CREATE VIRTUAL TABLE IF NOT EXISTS memories_fts USING fts5(
			memory_id UNINDEXED,
			content,
			tokenize='porter unicode61'
		);

		CREATE TABLE IF NOT EXISTS embedding_cache (
			content_hash TEXT PRIMARY KEY,
			embedding BLOB NOT NULL,
			dimension INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// Create vector table if an embedding provider is available
	if s.embedder != nil {
		vectorSchema := fmt.Sprintf(`
			CREATE VIRTUAL TABLE IF NOT EXISTS embeddings USING vec0(
				memory_id TEXT PRIMARY KEY,
				embedding float[%d] distance_metric=cosine
			);
		`, s.embedder.Dimension())

		if _, err := s.db.Exec(vectorSchema); err != nil {
			return fmt.Errorf("failed to create vector table: %w", err)
		}
	}

	return nil
}

// Add persists a record and indexes it for keyword and vector retrieval.
func (s *SQLiteStore) Add(ctx context.Context, content string, metadata map[string]string) (string, error) {
	start := time.Now()
	defer func() { observability.RecordAdd(time.Since(start)) }()

	if strings.TrimSpace(content) == "" {
		return "", errors.New("content is required")
	}
	if metadata == nil {
		metadata = map[string]string{}
	}

	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("failed to marshal metadata: %w", err)
	}

	id := uuid.New().String()
	createdAt := time.Now().UnixMilli()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO memories (id, content, created_at, metadata) VALUES (?, ?, ?, ?)",
		id, content, createdAt, string(metaJSON),
	); err != nil {
		return "", err
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO memories_fts (memory_id, content) VALUES (?, ?)",
		id, content,
	); err != nil {
		return "", err
	}

	if s.embedder != nil {
		if err := s.storeEmbedding(ctx, tx, id, content); err != nil {
			// Keyword retrieval still works without the vector
			s.logger.Warn().Err(err).Str("id", id).Msg("Failed to store embedding")
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}

	return id, nil
}

// storeEmbedding generates and stores an embedding for a record
func (s *SQLiteStore) storeEmbedding(ctx context.Context, tx *sql.Tx, id, content string) error {
	contentHashBytes := sha256.Sum256([]byte(content))
	contentHash := hex.EncodeToString(contentHashBytes[:])

	// The cache stores the serialized vector; a hit skips the provider call
	// and the re-encode entirely.
	var embeddingJSON []byte
	err := tx.QueryRowContext(ctx,
		"SELECT embedding FROM embedding_cache WHERE content_hash = ?", contentHash,
	).Scan(&embeddingJSON)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to read embedding cache: %w", err)
		}

		embedding, err := s.embedder.GenerateEmbedding(ctx, content)
		if err != nil {
			return fmt.Errorf("failed to generate embedding: %w", err)
		}

		embeddingJSON, err = json.Marshal(embedding)
		if err != nil {
			return fmt.Errorf("failed to marshal embedding: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO embedding_cache (content_hash, embedding, dimension, created_at) VALUES (?, ?, ?, ?)",
			contentHash, embeddingJSON, len(embedding), time.Now().Unix(),
		); err != nil {
			return fmt.Errorf("failed to cache embedding: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO embeddings (memory_id, embedding) VALUES (?, ?)",
		id, string(embeddingJSON),
	); err != nil {
		return fmt.Errorf("failed to store embedding in vector table: %w", err)
	}

	return nil
}

type vectorSearchResult struct {
	memoryID   string
	similarity float64
}

type keywordSearchResult struct {
	memoryID  string
	bm25Score float64
}

// SearchHybrid performs combined keyword and vector retrieval.
func (s *SQLiteStore) SearchHybrid(ctx context.Context, query string, limit int) ([]Record, error) {
	start := time.Now()
	defer func() { observability.RecordSearch(time.Since(start)) }()

	if strings.TrimSpace(query) == "" {
		return []Record{}, nil
	}
	if limit <= 0 {
		limit = 10
	}

	var vectorResults []vectorSearchResult
	var keywordResults []keywordSearchResult
	var vectorErr, keywordErr error

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		if s.embedder != nil {
			vectorResults, vectorErr = s.vectorSearch(ctx, query, candidateLimit)
		}
	}()

	go func() {
		defer wg.Done()
		keywordResults, keywordErr = s.keywordSearch(ctx, query, candidateLimit)
	}()

	wg.Wait()

	// Graceful degradation: one failing arm downgrades to the other
	if vectorErr != nil {
		s.logger.Warn().Err(vectorErr).Msg("Vector search failed, using keyword only")
	}
	if keywordErr != nil {
		s.logger.Warn().Err(keywordErr).Msg("Keyword search failed, using vector only")
	}
	if vectorErr != nil && keywordErr != nil {
		return nil, errors.New("both search methods failed")
	}

	results := s.mergeResults(ctx, vectorResults, keywordResults)
	if len(results) > limit {
		results = results[:limit]
	}

	s.logger.Debug().
		Str("query", query).
		Int("results", len(results)).
		Msg("Search completed")

	return results, nil
}

// vectorSearch performs vector similarity search
func (s *SQLiteStore) vectorSearch(ctx context.Context, query string, limit int) ([]vectorSearchResult, error) {
	embedding, err := s.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}

	embeddingJSON, err := json.Marshal(embedding)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT
			memory_id,
			vec_distance_cosine(embedding, ?) as distance
		FROM embeddings
		ORDER BY distance ASC
		LIMIT ?
	`, string(embeddingJSON), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []vectorSearchResult
	for rows.Next() {
		var memoryID string
		var distance float64
		if err := rows.Scan(&memoryID, &distance); err != nil {
			return nil, err
		}

		// Cosine distance is in [0, 2]; similarity in [-1, 1]
		results = append(results, vectorSearchResult{
			memoryID:   memoryID,
			similarity: 1.0 - distance,
		})
	}

	return results, rows.Err()
}

// keywordSearch performs FTS5 keyword search
func (s *SQLiteStore) keywordSearch(ctx context.Context, query string, limit int) ([]keywordSearchResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT memory_id, bm25(memories_fts) as score
		FROM memories_fts
		WHERE memories_fts MATCH ?
		ORDER BY score
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []keywordSearchResult
	for rows.Next() {
		var memoryID string
		var score float64
		if err := rows.Scan(&memoryID, &score); err != nil {
			return nil, err
		}

		// BM25 scores are negative, convert to positive
		results = append(results, keywordSearchResult{
			memoryID:  memoryID,
			bm25Score: -score,
		})
	}

	return results, rows.Err()
}

// mergeResults combines both retrieval arms into one ranked record list
func (s *SQLiteStore) mergeResults(ctx context.Context, vectorResults []vectorSearchResult, keywordResults []keywordSearchResult) []Record {
	vectorMap := make(map[string]float64)
	keywordMap := make(map[string]float64)

	var maxKeyword float64
	for _, r := range vectorResults {
		vectorMap[r.memoryID] = r.similarity
	}
	for _, r := range keywordResults {
		keywordMap[r.memoryID] = r.bm25Score
		if r.bm25Score > maxKeyword {
			maxKeyword = r.bm25Score
		}
	}

	memoryIDs := make(map[string]bool)
	for id := range vectorMap {
		memoryIDs[id] = true
	}
	for id := range keywordMap {
		memoryIDs[id] = true
	}

	type scoredResult struct {
		memoryID string
		score    float64
	}

	var scored []scoredResult
	for id := range memoryIDs {
		var normalizedVector, normalizedKeyword float64

		// Map similarity [-1, 1] to [0, 1]
		if similarity, ok := vectorMap[id]; ok {
			normalizedVector = (similarity + 1) / 2
		}

		if bm25, ok := keywordMap[id]; ok && maxKeyword > 0 {
			normalizedKeyword = bm25 / maxKeyword
		}

		scored = append(scored, scoredResult{
			memoryID: id,
			score:    normalizedVector*vectorWeight + normalizedKeyword*keywordWeight,
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	results := make([]Record, 0, len(scored))
	for _, sc := range scored {
		var content, metaJSON string
		var createdAt int64
		err := s.db.QueryRowContext(ctx, `
			SELECT content, created_at, metadata
			FROM memories
			WHERE id = ?
		`, sc.memoryID).Scan(&content, &createdAt, &metaJSON)
		if err != nil {
			s.logger.Warn().Err(err).Str("id", sc.memoryID).Msg("Failed to fetch record")
			continue
		}

		var metadata map[string]string
		if err := json.Unmarshal([]byte(metaJSON), &metadata); err != nil {
			metadata = nil
		}

		results = append(results, Record{
			ID:        sc.memoryID,
			Content:   content,
			CreatedAt: time.UnixMilli(createdAt),
			Score:     sc.score,
			Metadata:  metadata,
		})
	}

	return results
}

// ShouldCreate derives an ingest predicate bound to the given thresholds.
func (s *SQLiteStore) ShouldCreate(ctx context.Context, importanceThreshold, noveltyThreshold float64) (Predicate, error) {
	if err := s.db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("store unavailable: %w", err)
	}

	return func(ctx context.Context, text string) (bool, error) {
		text = strings.TrimSpace(text)
		if text == "" {
			return false, nil
		}

		if estimateImportance(text) < importanceThreshold {
			return false, nil
		}

		// Novelty: a near match already in the index means nothing new
		hits, err := s.SearchHybrid(ctx, escapePhrase(text), 1)
		if err != nil {
			return false, fmt.Errorf("novelty check failed: %w", err)
		}
		if len(hits) > 0 && hits[0].Score >= noveltyThreshold {
			return false, nil
		}

		return true, nil
	}, nil
}

// Stats reports the record count.
func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM memories").Scan(&stats.Total); err != nil {
		return Stats{}, fmt.Errorf("failed to count records: %w", err)
	}
	observability.SetRecordsTotal(stats.Total)
	return stats, nil
}

// Close closes the store.
func (s *SQLiteStore) Close() error {
	s.logger.Debug().Msg("Closing store")
	return s.db.Close()
}

// estimateImportance scores text by durable-fact signals. Declarative
// statements about preferences, identity, and standing instructions score
// high; questions and filler score low.
func estimateImportance(text string) float64 {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return 0
	}

	score := 0.3

	words := len(strings.Fields(t))
	if words >= 4 {
		score += 0.2
	}
	if words >= 12 {
		score += 0.1
	}

	markers := []string{
		"prefer", "always", "never", "remember", "remind",
		"my name", "i am", "i use", "i work", "don't", "do not", "important",
	}
	for _, marker := range markers {
		if strings.Contains(t, marker) {
			score += 0.25
			break
		}
	}

	if strings.HasSuffix(t, "?") {
		score -= 0.2
	}

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// escapePhrase makes raw text safe as a single FTS5 phrase term.
func escapePhrase(text string) string {
	text = strings.ReplaceAll(text, "'", "''")
	text = strings.ReplaceAll(text, `"`, `""`)
	return `"` + text + `"`
}
