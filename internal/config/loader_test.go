package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	loader := NewLoader(filepath.Join(t.TempDir(), "does-not-exist.json"))

	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Memory.MaxMemories)
	assert.NotEmpty(t, cfg.DataDir)
	assert.NotEmpty(t, cfg.Memory.BaseDir)
	assert.NotEmpty(t, cfg.Logging.File)
}

func TestLoad_FileOverrides(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "mnemo.json")
	content := `{
		"data_dir": "` + dir + `",
		"memory": {
			"max_memories": 3,
			"decay_floor": 0.4
		}
	}`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	cfg, err := NewLoader(configPath).Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Memory.MaxMemories)
	assert.Equal(t, 0.4, cfg.Memory.DecayFloor)
	// Untouched fields keep their defaults
	assert.Equal(t, 0.92, cfg.Memory.DuplicateCutoff)
	assert.Equal(t, filepath.Join(dir, "memory"), cfg.Memory.BaseDir)
}

func TestLoad_InvalidConfigRejected(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "mnemo.json")
	content := `{"memory": {"max_memories": -2}}`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	_, err := NewLoader(configPath).Load()
	assert.ErrorContains(t, err, "invalid configuration")
}

func TestLoad_MalformedJSON(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "mnemo.json")
	require.NoError(t, os.WriteFile(configPath, []byte("{not json"), 0644))

	_, err := NewLoader(configPath).Load()
	assert.Error(t, err)
}
