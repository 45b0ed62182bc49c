package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 7, cfg.Memory.MaxMemories)
	assert.Equal(t, 72.0, cfg.Memory.DecayTimeConstantHours)
	assert.Equal(t, 0.55, cfg.Memory.DecayFloor)
	assert.Equal(t, 0.92, cfg.Memory.DuplicateCutoff)
	assert.Equal(t, "none", cfg.Embedding.Provider)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "zero max memories",
			mutate:  func(c *Config) { c.Memory.MaxMemories = 0 },
			wantErr: "max_memories",
		},
		{
			name:    "negative decay constant",
			mutate:  func(c *Config) { c.Memory.DecayTimeConstantHours = -1 },
			wantErr: "decay_time_constant_hours",
		},
		{
			name:    "decay floor above one",
			mutate:  func(c *Config) { c.Memory.DecayFloor = 1.5 },
			wantErr: "decay_floor",
		},
		{
			name:    "duplicate cutoff zero",
			mutate:  func(c *Config) { c.Memory.DuplicateCutoff = 0 },
			wantErr: "duplicate_cutoff",
		},
		{
			name:    "unknown embedding provider",
			mutate:  func(c *Config) { c.Embedding.Provider = "cohere" },
			wantErr: "embedding.provider",
		},
		{
			name: "openai without key",
			mutate: func(c *Config) {
				c.Embedding.Provider = "openai"
				c.Embedding.APIKey = ""
			},
			wantErr: "api_key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
