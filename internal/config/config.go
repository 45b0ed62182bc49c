package config

import (
	"fmt"
)

// Config represents the main Mnemo configuration
type Config struct {
	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`

	// Memory policy
	Memory MemoryConfig `json:"memory" mapstructure:"memory"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Embedding provider
	Embedding EmbeddingConfig `json:"embedding" mapstructure:"embedding"`
}

// MemoryConfig holds the policy constants for the orchestration core.
// The similarity cutoff and decay floor have no derivation beyond observed
// behavior, so they are configuration rather than constants.
type MemoryConfig struct {
	BaseDir                string  `json:"base_dir" mapstructure:"base_dir"` // store file directory, defaults to <data_dir>/memory
	ImportanceThreshold    float64 `json:"importance_threshold" mapstructure:"importance_threshold"`
	NoveltyThreshold       float64 `json:"novelty_threshold" mapstructure:"novelty_threshold"`
	MaxMemories            int     `json:"max_memories" mapstructure:"max_memories"`
	DecayTimeConstantHours float64 `json:"decay_time_constant_hours" mapstructure:"decay_time_constant_hours"`
	DecayFloor             float64 `json:"decay_floor" mapstructure:"decay_floor"`
	DuplicateCutoff        float64 `json:"duplicate_cutoff" mapstructure:"duplicate_cutoff"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level   string `json:"level" mapstructure:"level"`
	File    string `json:"file" mapstructure:"file"`
	Console bool   `json:"console" mapstructure:"console"`
	Pretty  bool   `json:"pretty" mapstructure:"pretty"`
}

// EmbeddingConfig holds embedding provider configuration
type EmbeddingConfig struct {
	Provider string `json:"provider" mapstructure:"provider"` // openai, none
	APIKey   string `json:"api_key" mapstructure:"api_key"`
	Model    string `json:"model" mapstructure:"model"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Memory: MemoryConfig{
			ImportanceThreshold:    0.6,
			NoveltyThreshold:       0.85,
			MaxMemories:            7,
			DecayTimeConstantHours: 72,
			DecayFloor:             0.55,
			DuplicateCutoff:        0.92,
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
			Pretty:  true,
		},
		Embedding: EmbeddingConfig{
			Provider: "none",
			Model:    "text-embedding-3-small",
		},
	}
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	if c.Memory.MaxMemories <= 0 {
		return fmt.Errorf("memory.max_memories must be positive, got %d", c.Memory.MaxMemories)
	}
	if c.Memory.DecayTimeConstantHours <= 0 {
		return fmt.Errorf("memory.decay_time_constant_hours must be positive, got %v", c.Memory.DecayTimeConstantHours)
	}
	if c.Memory.DecayFloor < 0 || c.Memory.DecayFloor > 1 {
		return fmt.Errorf("memory.decay_floor must be in [0,1], got %v", c.Memory.DecayFloor)
	}
	if c.Memory.DuplicateCutoff <= 0 || c.Memory.DuplicateCutoff > 1 {
		return fmt.Errorf("memory.duplicate_cutoff must be in (0,1], got %v", c.Memory.DuplicateCutoff)
	}
	switch c.Embedding.Provider {
	case "", "none", "openai":
	default:
		return fmt.Errorf("embedding.provider must be one of none, openai; got %q", c.Embedding.Provider)
	}
	if c.Embedding.Provider == "openai" && c.Embedding.APIKey == "" {
		return fmt.Errorf("embedding.api_key is required when embedding.provider is openai")
	}
	return nil
}
