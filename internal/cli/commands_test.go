package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTestConfig points the CLI at a throwaway data directory.
func writeTestConfig(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	cfg := map[string]interface{}{
		"data_dir": dir,
		"logging":  map[string]interface{}{"level": "error", "console": false},
	}
	data, err := json.Marshal(cfg)
	require.NoError(t, err)

	path := filepath.Join(dir, "mnemo.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func runCommand(t *testing.T, args ...string) string {
	t.Helper()

	cmd := GetRootCmd()
	cmd.SetArgs(args)

	output := &bytes.Buffer{}
	cmd.SetOut(output)
	cmd.SetErr(output)

	require.NoError(t, cmd.Execute())
	return output.String()
}

func TestUseCommand(t *testing.T) {
	cfgPath := writeTestConfig(t)

	out := runCommand(t, "use", "Richard's Work!!", "--config", cfgPath)
	assert.Contains(t, out, `"richard-s-work"`)
	assert.Contains(t, out, "named-memory-richard-s-work.db")
}

func TestAddSearchStatsRoundTrip(t *testing.T) {
	cfgPath := writeTestConfig(t)

	out := runCommand(t, "add", "The deployment pipeline runs nightly builds",
		"--config", cfgPath, "--store", "work")
	assert.Contains(t, out, "Saved memory")

	out = runCommand(t, "search", "deployment", "--config", cfgPath, "--store", "work")
	assert.Contains(t, out, "nightly builds")

	out = runCommand(t, "stats", "--config", cfgPath, "--store", "work")
	assert.Contains(t, out, `Store "work" holds 1 memories.`)

	// Other stores stay empty
	out = runCommand(t, "stats", "--config", cfgPath, "--store", "personal")
	assert.Contains(t, out, `Store "personal" holds 0 memories.`)
}

func TestJudgeCommand(t *testing.T) {
	cfgPath := writeTestConfig(t)

	out := runCommand(t, "judge", "hi", "--config", cfgPath, "--store", "work")
	assert.Contains(t, out, "Not worth saving")
}
