package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/harun/mnemo/internal/observability"
	"github.com/harun/mnemo/pkg/memstore"
)

// storeFilePrefix names store files on disk: named-memory-<token>.db
const storeFilePrefix = "named-memory-"

// PathResolver reports the base directory that holds store files. Implemented
// by HomeDirResolver for standalone use and by host adapters that read the
// directory from host configuration.
type PathResolver interface {
	Resolve(ctx context.Context) (string, error)
}

// HomeDirResolver places store files under ~/.mnemo/memory.
type HomeDirResolver struct{}

func (HomeDirResolver) Resolve(ctx context.Context) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".mnemo", "memory"), nil
}

// Options carries the tunable policy constants. Zero values fall back to the
// defaults from DefaultOptions.
type Options struct {
	// ImportanceThreshold gates auto-ingest: content scoring below it is
	// dropped.
	ImportanceThreshold float64
	// NoveltyThreshold gates auto-ingest: content whose best existing match
	// scores at or above it is dropped as redundant.
	NoveltyThreshold float64
	// MaxMemories bounds how many memories one compaction injects.
	MaxMemories int
	// DecayTimeConstantHours is the e-folding time of the recency boost.
	DecayTimeConstantHours float64
	// DecayFloor is the minimum recency boost; old memories are discounted,
	// never erased.
	DecayFloor float64
	// DuplicateCutoff is the similarity above which the judge calls content
	// a duplicate of an existing memory.
	DuplicateCutoff float64
}

// DefaultOptions returns the stock ingest and recall policy.
func DefaultOptions() Options {
	return Options{
		ImportanceThreshold:    0.6,
		NoveltyThreshold:       0.85,
		MaxMemories:            7,
		DecayTimeConstantHours: 72,
		DecayFloor:             0.55,
		DuplicateCutoff:        0.92,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.ImportanceThreshold <= 0 {
		o.ImportanceThreshold = def.ImportanceThreshold
	}
	if o.NoveltyThreshold <= 0 {
		o.NoveltyThreshold = def.NoveltyThreshold
	}
	if o.MaxMemories <= 0 {
		o.MaxMemories = def.MaxMemories
	}
	if o.DecayTimeConstantHours <= 0 {
		o.DecayTimeConstantHours = def.DecayTimeConstantHours
	}
	if o.DecayFloor <= 0 {
		o.DecayFloor = def.DecayFloor
	}
	if o.DuplicateCutoff <= 0 {
		o.DuplicateCutoff = def.DuplicateCutoff
	}
	return o
}

// Config configures an Orchestrator.
type Config struct {
	// Factory opens stores by path. Required.
	Factory memstore.Factory
	// Resolver locates the base directory for store files. Defaults to
	// HomeDirResolver.
	Resolver PathResolver
	// Options is the ingest/recall policy. Zero fields use defaults.
	Options Options
	// Logger for orchestration events.
	Logger zerolog.Logger
}

// Orchestrator is the memory orchestration core: a registry holding at most
// one active store, the auto-ingest gate, the compaction-time recall ranker,
// and the save-worthiness judge.
type Orchestrator struct {
	factory  memstore.Factory
	resolver PathResolver
	opts     Options
	logger   zerolog.Logger

	mu        sync.Mutex
	baseDir   string // cached after first successful resolution
	store     memstore.Store
	identity  string
	predicate memstore.Predicate

	ingests sync.WaitGroup
	nowFn   func() time.Time
}

// New creates an Orchestrator with no active store. Call Activate before
// using the memory operations; until then they report "no active store".
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Factory == nil {
		return nil, errors.New("store factory is required")
	}

	resolver := cfg.Resolver
	if resolver == nil {
		resolver = HomeDirResolver{}
	}

	observability.EnsureRegistered()

	return &Orchestrator{
		factory:  cfg.Factory,
		resolver: resolver,
		opts:     cfg.Options.withDefaults(),
		logger:   cfg.Logger.With().Str("component", "orchestrator").Logger(),
		nowFn:    time.Now,
	}, nil
}

// Activate opens the store named by rawName and makes it the active one,
// closing the previously active store. The name is sanitized first; the
// canonical token is returned. Re-activating the token that is already
// active is a no-op. On failure the previously active store stays active
// and usable.
func (o *Orchestrator) Activate(ctx context.Context, rawName string) (string, error) {
	token := SanitizeStoreName(rawName)

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.store != nil && o.identity == token {
		observability.RecordStoreActivation("reused")
		return token, nil
	}

	baseDir := o.resolveBaseDirLocked(ctx)
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		observability.RecordStoreActivation("failed")
		return "", fmt.Errorf("failed to create store directory %s: %w", baseDir, err)
	}

	path := filepath.Join(baseDir, storeFilePrefix+token+".db")
	store, err := o.factory.Open(ctx, path)
	if err != nil {
		observability.RecordStoreOpenError()
		observability.RecordStoreActivation("failed")
		return "", fmt.Errorf("failed to open store %q: %w", token, err)
	}

	predicate, err := store.ShouldCreate(ctx, o.opts.ImportanceThreshold, o.opts.NoveltyThreshold)
	if err != nil {
		if cerr := store.Close(); cerr != nil {
			o.logger.Warn().Err(cerr).Str("store", token).Msg("Failed to close store after predicate derivation failed")
		}
		observability.RecordStoreActivation("failed")
		return "", fmt.Errorf("failed to derive ingest predicate for store %q: %w", token, err)
	}

	if o.store != nil {
		if cerr := o.store.Close(); cerr != nil {
			o.logger.Warn().Err(cerr).Str("store", o.identity).Msg("Failed to close previous store")
		}
	}

	o.store = store
	o.identity = token
	o.predicate = predicate

	observability.RecordStoreActivation("opened")
	o.logger.Info().Str("store", token).Str("path", path).Msg("Memory store activated")
	return token, nil
}

// Current reports the identity of the active store, if any.
func (o *Orchestrator) Current() (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.store == nil {
		return "", false
	}
	return o.identity, true
}

// Teardown waits for in-flight background ingests, closes the active store,
// and clears the registry. Safe to call with no active store and safe to
// call repeatedly.
func (o *Orchestrator) Teardown() error {
	o.ingests.Wait()

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.store == nil {
		return nil
	}

	err := o.store.Close()
	o.logger.Info().Str("store", o.identity).Msg("Memory store closed")

	o.store = nil
	o.identity = ""
	o.predicate = nil

	if err != nil {
		return fmt.Errorf("failed to close store: %w", err)
	}
	return nil
}

// active snapshots the registry state so callers can work without holding
// the lock across store I/O.
func (o *Orchestrator) active() (memstore.Store, memstore.Predicate, string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.store, o.predicate, o.identity, o.store != nil
}

func (o *Orchestrator) resolveBaseDirLocked(ctx context.Context) string {
	if o.baseDir != "" {
		return o.baseDir
	}

	dir, err := o.resolver.Resolve(ctx)
	if err != nil || dir == "" {
		// Fall back without caching so a transient resolver failure does
		// not pin the fallback for the process lifetime.
		fallback := fallbackBaseDir()
		o.logger.Warn().Err(err).Str("fallback", fallback).Msg("Store path resolution failed, using fallback directory")
		return fallback
	}

	o.baseDir = dir
	return dir
}

func fallbackBaseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".mnemo", "memory")
	}
	return filepath.Join(home, ".mnemo", "memory")
}
