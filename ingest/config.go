package ingest

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds configuration for an ingestion run.
type Config struct {
	// Workers is the number of recognition workers. Each worker owns
	// exactly one recognition engine for the lifetime of the run.
	Workers int

	// BatchSize is the number of documents embedded and committed per batch.
	BatchSize int

	// PrefetchDepth bounds the task queue: at most Workers*PrefetchDepth
	// tasks are queued ahead of the workers.
	PrefetchDepth int

	// FlushTimeout flushes a partial embedding batch that has been
	// waiting longer than this duration.
	FlushTimeout time.Duration

	// MaxAttempts is the per-document attempt budget. A document that has
	// failed this many times across runs is skipped permanently.
	MaxAttempts int

	// MaxRetries is the maximum number of retry attempts for embedding
	// and store operations within a run.
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff.
	RetryDelay time.Duration

	// WorkerRestartBudget is the number of worker crashes tolerated
	// before the run aborts. Each crash reduces pool concurrency by one.
	WorkerRestartBudget int

	// ShutdownGrace is how long a cancelled run waits for in-flight
	// recognition tasks before abandoning them.
	ShutdownGrace time.Duration

	// ReportInterval is how often to report progress (number of documents).
	ReportInterval int
}

// DefaultConfig returns a Config with sensible defaults.
// The default worker count is runtime.NumCPU() / 2, with a minimum of 1.
func DefaultConfig() *Config {
	workers := runtime.NumCPU() / 2
	if workers < 1 {
		workers = 1
	}

	return &Config{
		Workers:             workers,
		BatchSize:           32,
		PrefetchDepth:       2,
		FlushTimeout:        2 * time.Second,
		MaxAttempts:         3,
		MaxRetries:          3,
		RetryDelay:          1 * time.Second,
		WorkerRestartBudget: 2,
		ShutdownGrace:       5 * time.Second,
		ReportInterval:      25,
	}
}

// configFile mirrors Config for YAML decoding. Durations are strings
// ("500ms", "2s") because yaml.v3 has no native time.Duration support.
type configFile struct {
	Workers             int    `yaml:"workers"`
	BatchSize           int    `yaml:"batch_size"`
	PrefetchDepth       int    `yaml:"prefetch_depth"`
	FlushTimeout        string `yaml:"flush_timeout"`
	MaxAttempts         int    `yaml:"max_attempts"`
	MaxRetries          int    `yaml:"max_retries"`
	RetryDelay          string `yaml:"retry_delay"`
	WorkerRestartBudget int    `yaml:"worker_restart_budget"`
	ShutdownGrace       string `yaml:"shutdown_grace"`
	ReportInterval      int    `yaml:"report_interval"`
}

// LoadConfig reads a YAML config file and merges it over the defaults.
// Zero-valued fields in the file keep their default.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var file configFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	loaded := Config{
		Workers:             file.Workers,
		BatchSize:           file.BatchSize,
		PrefetchDepth:       file.PrefetchDepth,
		MaxAttempts:         file.MaxAttempts,
		MaxRetries:          file.MaxRetries,
		WorkerRestartBudget: file.WorkerRestartBudget,
		ReportInterval:      file.ReportInterval,
	}

	if loaded.FlushTimeout, err = parseDuration(file.FlushTimeout, "flush_timeout"); err != nil {
		return nil, err
	}
	if loaded.RetryDelay, err = parseDuration(file.RetryDelay, "retry_delay"); err != nil {
		return nil, err
	}
	if loaded.ShutdownGrace, err = parseDuration(file.ShutdownGrace, "shutdown_grace"); err != nil {
		return nil, err
	}

	config := DefaultConfig()
	if loaded.Workers > 0 {
		config.Workers = loaded.Workers
	}
	if loaded.BatchSize > 0 {
		config.BatchSize = loaded.BatchSize
	}
	if loaded.PrefetchDepth > 0 {
		config.PrefetchDepth = loaded.PrefetchDepth
	}
	if loaded.FlushTimeout > 0 {
		config.FlushTimeout = loaded.FlushTimeout
	}
	if loaded.MaxAttempts > 0 {
		config.MaxAttempts = loaded.MaxAttempts
	}
	if loaded.MaxRetries > 0 {
		config.MaxRetries = loaded.MaxRetries
	}
	if loaded.RetryDelay > 0 {
		config.RetryDelay = loaded.RetryDelay
	}
	if loaded.WorkerRestartBudget > 0 {
		config.WorkerRestartBudget = loaded.WorkerRestartBudget
	}
	if loaded.ShutdownGrace > 0 {
		config.ShutdownGrace = loaded.ShutdownGrace
	}
	if loaded.ReportInterval > 0 {
		config.ReportInterval = loaded.ReportInterval
	}

	return config, nil
}

// parseDuration parses an optional duration string from the config file.
func parseDuration(value, field string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", field, err)
	}
	return d, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("batch size must be at least 1, got %d", c.BatchSize)
	}
	if c.PrefetchDepth < 1 {
		return fmt.Errorf("prefetch depth must be at least 1, got %d", c.PrefetchDepth)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1, got %d", c.MaxAttempts)
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("max retries must be at least 1, got %d", c.MaxRetries)
	}
	return nil
}

// QueueDepth returns the task queue capacity: Workers * PrefetchDepth.
func (c *Config) QueueDepth() int {
	return c.Workers * c.PrefetchDepth
}
