package cli

import (
	"context"
	"fmt"

	"github.com/harun/mnemo/internal/config"
	"github.com/harun/mnemo/internal/logger"
	"github.com/harun/mnemo/pkg/memstore"
	"github.com/harun/mnemo/pkg/orchestrator"
)

// app bundles the wired components a command needs.
type app struct {
	cfg  *config.Config
	log  *logger.Logger
	orch *orchestrator.Orchestrator
}

// staticResolver pins the store directory to the configured base dir.
type staticResolver struct {
	dir string
}

func (r staticResolver) Resolve(ctx context.Context) (string, error) {
	return r.dir, nil
}

// buildApp loads configuration and wires the orchestrator. Callers must
// invoke close when done.
func buildApp() (*app, func(), error) {
	cfg, err := config.NewLoader(cfgFile).Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logCfg := logger.Config{
		Level:   cfg.Logging.Level,
		File:    cfg.Logging.File,
		Console: false, // command output stays clean, logs go to file
	}
	if logLevel != "" {
		logCfg.Level = logLevel
	}
	log, err := logger.New(logCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	var embedder memstore.EmbeddingProvider
	if cfg.Embedding.Provider == "openai" {
		embedder = memstore.NewOpenAIProvider(cfg.Embedding.APIKey, cfg.Embedding.Model)
	}

	orch, err := orchestrator.New(orchestrator.Config{
		Factory: &memstore.SQLiteFactory{
			Logger:   log.GetZerolog(),
			Embedder: embedder,
		},
		Resolver: staticResolver{dir: cfg.Memory.BaseDir},
		Options: orchestrator.Options{
			ImportanceThreshold:    cfg.Memory.ImportanceThreshold,
			NoveltyThreshold:       cfg.Memory.NoveltyThreshold,
			MaxMemories:            cfg.Memory.MaxMemories,
			DecayTimeConstantHours: cfg.Memory.DecayTimeConstantHours,
			DecayFloor:             cfg.Memory.DecayFloor,
			DuplicateCutoff:        cfg.Memory.DuplicateCutoff,
		},
		Logger: log.GetZerolog(),
	})
	if err != nil {
		log.Close()
		return nil, nil, fmt.Errorf("failed to build orchestrator: %w", err)
	}

	cleanup := func() {
		if err := orch.Teardown(); err != nil {
			zl := log.GetZerolog()
			zl.Warn().Err(err).Msg("Teardown failed")
		}
		log.Close()
	}

	return &app{cfg: cfg, log: log, orch: orch}, cleanup, nil
}

// activate opens the store named by the --store flag.
func (a *app) activate(ctx context.Context) error {
	if _, err := a.orch.Activate(ctx, storeName); err != nil {
		return fmt.Errorf("failed to activate store: %w", err)
	}
	return nil
}
