// Package config loads runner configuration from grind.yaml with
// environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the runner's configuration.
type Config struct {
	// BacklogPath is the persisted task backlog file.
	BacklogPath string `yaml:"backlog"`
	// WorkDir is the directory the agent works in.
	WorkDir string `yaml:"work_dir"`
	// MaxIterations bounds the loop.
	MaxIterations int `yaml:"max_iterations"`
	// StuckThreshold is the number of consecutive no-progress iterations
	// before the loop gives up.
	StuckThreshold int `yaml:"stuck_threshold"`
	// Budget is the task-point budget attempted per iteration (S=1, M=2, L=4).
	Budget int `yaml:"budget"`
	// AgentCommand is the coding agent binary.
	AgentCommand string `yaml:"agent_command"`
	// AgentModel overrides the agent's default model when set.
	AgentModel string `yaml:"agent_model"`
	// AgentTimeout bounds a single invocation, e.g. "30m".
	AgentTimeout time.Duration `yaml:"agent_timeout"`
	// HistoryPath is the SQLite run-history database ("" disables history).
	HistoryPath string `yaml:"history"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		BacklogPath:    "backlog.yaml",
		WorkDir:        ".",
		MaxIterations:  10,
		StuckThreshold: 3,
		Budget:         6,
		AgentCommand:   "claude",
		AgentTimeout:   30 * time.Minute,
		HistoryPath:    ".grind/history.db",
	}
}

// Load reads configuration from path, layered over defaults. A missing file
// is not an error: defaults (plus env overrides) apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays GRIND_* environment variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("GRIND_BACKLOG"); v != "" {
		c.BacklogPath = v
	}
	if v := os.Getenv("GRIND_AGENT_COMMAND"); v != "" {
		c.AgentCommand = v
	}
	if v := os.Getenv("GRIND_AGENT_MODEL"); v != "" {
		c.AgentModel = v
	}
	if v := os.Getenv("GRIND_MAX_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxIterations = n
		}
	}
	if v := os.Getenv("GRIND_STUCK_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.StuckThreshold = n
		}
	}
	if v := os.Getenv("GRIND_BUDGET"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Budget = n
		}
	}
}

func (c *Config) validate() error {
	if c.MaxIterations <= 0 {
		return fmt.Errorf("max_iterations must be positive, got %d", c.MaxIterations)
	}
	if c.StuckThreshold <= 0 {
		return fmt.Errorf("stuck_threshold must be positive, got %d", c.StuckThreshold)
	}
	if c.Budget <= 0 {
		return fmt.Errorf("budget must be positive, got %d", c.Budget)
	}
	return nil
}
