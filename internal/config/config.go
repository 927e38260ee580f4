// Package config loads the Millrun daemon configuration from a YAML file
// with environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all daemon settings.
type Config struct {
	// ListenAddr is the address the control-plane API binds to.
	ListenAddr string `yaml:"listen_addr"`
	// DBPath is the SQLite database location.
	DBPath string `yaml:"db_path"`

	Scheduler SchedulerConfig `yaml:"scheduler"`
	Evaluator EvaluatorConfig `yaml:"evaluator"`
}

// SchedulerConfig controls the execution scheduler.
type SchedulerConfig struct {
	// MaxConcurrentExecutions caps simultaneously running subtasks.
	MaxConcurrentExecutions int `yaml:"max_concurrent_executions"`
	// TickInterval is the cadence of the dequeue loop.
	TickInterval time.Duration `yaml:"tick_interval"`
}

// EvaluatorConfig controls the evaluation engine.
type EvaluatorConfig struct {
	// HistoryLimit bounds the in-memory evaluation history.
	HistoryLimit int `yaml:"history_limit"`
	// QueueTickInterval is the cadence of the pending-evaluation loop.
	QueueTickInterval time.Duration `yaml:"queue_tick_interval"`
}

// Default returns the built-in configuration.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		ListenAddr: "127.0.0.1:7511",
		DBPath:     filepath.Join(homeDir, ".millrun", "millrun.db"),
		Scheduler: SchedulerConfig{
			MaxConcurrentExecutions: 3,
			TickInterval:            10 * time.Second,
		},
		Evaluator: EvaluatorConfig{
			HistoryLimit:      1000,
			QueueTickInterval: 30 * time.Second,
		},
	}
}

// Load reads the config file at path (missing file means defaults), applies
// environment overrides, and validates the result. A .env file in the
// working directory is loaded first if present.
func Load(path string) (*Config, error) {
	// Best effort; absence of a .env file is the normal case.
	_ = godotenv.Load(".env")

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides settings from MILLRUN_* environment variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("MILLRUN_LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("MILLRUN_DB_PATH"); v != "" {
		c.DBPath = v
	}
	if v := envInt("MILLRUN_MAX_CONCURRENT"); v > 0 {
		c.Scheduler.MaxConcurrentExecutions = v
	}
	if v := envDuration("MILLRUN_SCHEDULER_TICK"); v > 0 {
		c.Scheduler.TickInterval = v
	}
	if v := envInt("MILLRUN_HISTORY_LIMIT"); v > 0 {
		c.Evaluator.HistoryLimit = v
	}
	if v := envDuration("MILLRUN_EVAL_TICK"); v > 0 {
		c.Evaluator.QueueTickInterval = v
	}
}

// Validate rejects configurations the daemon cannot run with.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("config: listen_addr is required")
	}
	if c.DBPath == "" {
		return fmt.Errorf("config: db_path is required")
	}
	if c.Scheduler.MaxConcurrentExecutions < 1 {
		return fmt.Errorf("config: max_concurrent_executions must be at least 1")
	}
	if c.Scheduler.TickInterval <= 0 {
		return fmt.Errorf("config: scheduler tick_interval must be positive")
	}
	if c.Evaluator.HistoryLimit < 1 {
		return fmt.Errorf("config: history_limit must be at least 1")
	}
	if c.Evaluator.QueueTickInterval <= 0 {
		return fmt.Errorf("config: evaluator queue_tick_interval must be positive")
	}
	return nil
}

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func envDuration(key string) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}
