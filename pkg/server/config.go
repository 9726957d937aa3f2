package server

import "time"

// Config holds the referee's tunables. Zero fields other than NotifyWorkers
// take their defaults.
type Config struct {
	// MaxOpenContracts is the number of live contracts an owner may already
	// hold when creating another one.
	MaxOpenContracts int
	// DefaultTimeout applies to tables that leave tableInfo.timeout at 0.
	DefaultTimeout time.Duration
	// NotifyWorkers is the number of notification workers. 0 delivers
	// notifications synchronously.
	NotifyWorkers   int
	NotifyQueueSize int
	// SweepParallelism bounds the contracts checked at once by
	// SweepTimeouts.
	SweepParallelism int
	Now              func() time.Time
}

// DefaultConfig returns the production configuration.
func DefaultConfig() Config {
	return Config{
		MaxOpenContracts: 10,
		DefaultTimeout:   30 * time.Second,
		NotifyWorkers:    3,
		NotifyQueueSize:  1000,
		SweepParallelism: 8,
		Now:              time.Now,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxOpenContracts <= 0 {
		c.MaxOpenContracts = def.MaxOpenContracts
	}
	if c.DefaultTimeout <= 0 {
		c.DefaultTimeout = def.DefaultTimeout
	}
	if c.NotifyWorkers < 0 {
		c.NotifyWorkers = 0
	}
	if c.NotifyQueueSize <= 0 {
		c.NotifyQueueSize = def.NotifyQueueSize
	}
	if c.SweepParallelism <= 0 {
		c.SweepParallelism = def.SweepParallelism
	}
	if c.Now == nil {
		c.Now = def.Now
	}
	return c
}
