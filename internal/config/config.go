// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(...) initializer to build a Config with defaults.
// - All loading functions accept context.Context as the first parameter.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"runtime"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory recompute task queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of recompute workers.
	WorkerCount int `koanf:"worker_count"`

	// DemoSeed loads a demo contest fixture on startup when true.
	DemoSeed bool `koanf:"demo_seed"`

	// ShutdownGraceSeconds bounds how long shutdown waits for in-flight work.
	ShutdownGraceSeconds int `koanf:"shutdown_grace_seconds"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		Addr:                 ":9080",
		QueueSize:            10_000,
		WorkerCount:          runtime.NumCPU() * 2,
		DemoSeed:             false,
		ShutdownGraceSeconds: 10,
	}
}
