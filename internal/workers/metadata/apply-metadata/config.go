package applymetadata

import (
	"fmt"
	"time"
)

const (
	minFileTimeout = 10 * time.Second
	maxFileTimeout = 300 * time.Second
)

type Config struct {
	Enabled       bool          `mapstructure:"enabled"`
	MaxJobsActive int           `mapstructure:"max_jobs_active"`
	Timeout       time.Duration `mapstructure:"timeout"`
	// FileTimeout bounds each file's apply call inside a job.
	FileTimeout        time.Duration `mapstructure:"file_timeout"`
	NormalizeKeys      bool          `mapstructure:"normalize_keys"`
	FilterPlaceholders bool          `mapstructure:"filter_placeholders"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       5 * time.Minute,
		FileTimeout:   60 * time.Second,
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxJobsActive <= 0 {
		return fmt.Errorf("max_jobs_active must be positive")
	}
	if c.FileTimeout < minFileTimeout || c.FileTimeout > maxFileTimeout {
		return fmt.Errorf("file_timeout must be between %s and %s", minFileTimeout, maxFileTimeout)
	}
	return nil
}
