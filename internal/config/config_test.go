package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "backlog.yaml", cfg.BacklogPath)
	assert.Equal(t, 10, cfg.MaxIterations)
	assert.Equal(t, 3, cfg.StuckThreshold)
	assert.Equal(t, 6, cfg.Budget)
	assert.Equal(t, "claude", cfg.AgentCommand)
	assert.Equal(t, 30*time.Minute, cfg.AgentTimeout)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grind.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
backlog: plan/tasks.yaml
max_iterations: 25
budget: 8
agent_timeout: 10m
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "plan/tasks.yaml", cfg.BacklogPath)
	assert.Equal(t, 25, cfg.MaxIterations)
	assert.Equal(t, 8, cfg.Budget)
	assert.Equal(t, 10*time.Minute, cfg.AgentTimeout)
	assert.Equal(t, 3, cfg.StuckThreshold, "unspecified keys keep defaults")
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grind.yaml")
	require.NoError(t, os.WriteFile(path, []byte("budget: 4\n"), 0644))
	t.Setenv("GRIND_BUDGET", "9")
	t.Setenv("GRIND_AGENT_COMMAND", "claude-next")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Budget)
	assert.Equal(t, "claude-next", cfg.AgentCommand)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grind.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_iterations: -1\n"), 0644))
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_iterations")
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grind.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backlog: [unclosed\n"), 0644))
	_, err := Load(path)
	require.Error(t, err)
}
