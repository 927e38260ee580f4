// Package scheduler runs subtasks under a bounded concurrency budget.
package scheduler

import "time"

// Config defines the scheduler configuration.
type Config struct {
	// MaxConcurrentExecutions caps simultaneously running subtasks. The cap
	// is checked only at dequeue time.
	MaxConcurrentExecutions int
	// TickInterval is the cadence of the dequeue loop. One subtask is
	// dequeued per tick at most.
	TickInterval time.Duration
}

// DefaultConfig returns the default scheduler configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxConcurrentExecutions: 3,
		TickInterval:            10 * time.Second,
	}
}
