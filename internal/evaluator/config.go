// Package evaluator scores artifact sets along four weighted dimensions.
package evaluator

import "time"

// Config defines the evaluation engine configuration.
type Config struct {
	// HistoryLimit bounds the in-memory evaluation history; the oldest
	// entry is evicted once the limit is exceeded.
	HistoryLimit int
	// QueueTickInterval is the cadence of the pending-evaluation loop.
	// Exactly one queued entry is processed per tick.
	QueueTickInterval time.Duration
	// ResourceScore is the resource-efficiency sub-score averaged into the
	// efficiency dimension. Placeholder until a real resource collaborator
	// exists.
	ResourceScore float64
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() *Config {
	return &Config{
		HistoryLimit:      1000,
		QueueTickInterval: 30 * time.Second,
		ResourceScore:     75,
	}
}
