package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.ListenAddr != "127.0.0.1:7511" {
		t.Errorf("listen addr = %q", cfg.ListenAddr)
	}
	if cfg.Scheduler.MaxConcurrentExecutions != 3 {
		t.Errorf("max concurrent = %d, want 3", cfg.Scheduler.MaxConcurrentExecutions)
	}
	if cfg.Scheduler.TickInterval != 10*time.Second {
		t.Errorf("scheduler tick = %v, want 10s", cfg.Scheduler.TickInterval)
	}
	if cfg.Evaluator.HistoryLimit != 1000 {
		t.Errorf("history limit = %d, want 1000", cfg.Evaluator.HistoryLimit)
	}
	if cfg.Evaluator.QueueTickInterval != 30*time.Second {
		t.Errorf("evaluator tick = %v, want 30s", cfg.Evaluator.QueueTickInterval)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "millrun.yaml")

	data := []byte(`
listen_addr: "0.0.0.0:9000"
scheduler:
  max_concurrent_executions: 5
  tick_interval: 2s
evaluator:
  history_limit: 50
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.ListenAddr != "0.0.0.0:9000" {
		t.Errorf("listen addr = %q", cfg.ListenAddr)
	}
	if cfg.Scheduler.MaxConcurrentExecutions != 5 {
		t.Errorf("max concurrent = %d, want 5", cfg.Scheduler.MaxConcurrentExecutions)
	}
	if cfg.Scheduler.TickInterval != 2*time.Second {
		t.Errorf("scheduler tick = %v, want 2s", cfg.Scheduler.TickInterval)
	}
	if cfg.Evaluator.HistoryLimit != 50 {
		t.Errorf("history limit = %d, want 50", cfg.Evaluator.HistoryLimit)
	}
	// Unset fields keep their defaults.
	if cfg.Evaluator.QueueTickInterval != 30*time.Second {
		t.Errorf("evaluator tick = %v, want default 30s", cfg.Evaluator.QueueTickInterval)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Scheduler.MaxConcurrentExecutions != 3 {
		t.Errorf("max concurrent = %d, want default 3", cfg.Scheduler.MaxConcurrentExecutions)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MILLRUN_LISTEN_ADDR", "127.0.0.1:9100")
	t.Setenv("MILLRUN_MAX_CONCURRENT", "7")
	t.Setenv("MILLRUN_SCHEDULER_TICK", "500ms")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.ListenAddr != "127.0.0.1:9100" {
		t.Errorf("listen addr = %q", cfg.ListenAddr)
	}
	if cfg.Scheduler.MaxConcurrentExecutions != 7 {
		t.Errorf("max concurrent = %d, want 7", cfg.Scheduler.MaxConcurrentExecutions)
	}
	if cfg.Scheduler.TickInterval != 500*time.Millisecond {
		t.Errorf("scheduler tick = %v, want 500ms", cfg.Scheduler.TickInterval)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty listen addr", func(c *Config) { c.ListenAddr = "" }},
		{"empty db path", func(c *Config) { c.DBPath = "" }},
		{"zero max concurrent", func(c *Config) { c.Scheduler.MaxConcurrentExecutions = 0 }},
		{"negative tick", func(c *Config) { c.Scheduler.TickInterval = -time.Second }},
		{"zero history limit", func(c *Config) { c.Evaluator.HistoryLimit = 0 }},
		{"zero eval tick", func(c *Config) { c.Evaluator.QueueTickInterval = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}
