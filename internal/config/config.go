// Package config loads the daemon's JSON configuration file. Fields omitted
// from the file keep their defaults, so partial configs are safe; flags on
// the binary override the file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Defaults applied by the Get* accessors when the file leaves a field unset.
const (
	DefaultListen         = ":8080"
	DefaultDatabasePath   = "pose_data.db"
	DefaultRecordingDir   = "recordings"
	DefaultSampleInterval = 50 * time.Millisecond
)

// Config is the root configuration. Pointer fields distinguish "unset" from
// zero values.
type Config struct {
	// BindHost is the UDP bind address for glove listeners; empty means all
	// interfaces.
	BindHost *string `json:"bind_host,omitempty"`
	// Ports overrides the default glove port set.
	Ports []int `json:"ports,omitempty"`
	// Listen is the HTTP listen address.
	Listen *string `json:"listen,omitempty"`
	// DatabasePath is the sqlite file for recording metadata.
	DatabasePath *string `json:"database_path,omitempty"`
	// RecordingDir is where frame logs are written.
	RecordingDir *string `json:"recording_dir,omitempty"`
	// SampleInterval is the recording sampler cadence, a duration string
	// like "50ms".
	SampleInterval *string `json:"sample_interval,omitempty"`
}

// Empty returns a Config with all fields unset.
func Empty() *Config {
	return &Config{}
}

// Load reads a Config from a JSON file. The path must have a .json extension
// and the file must be under 1MB.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Empty()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate rejects values the daemon cannot start with.
func (c *Config) Validate() error {
	for _, port := range c.Ports {
		if port < 0 || port > 65535 {
			return fmt.Errorf("port %d out of range", port)
		}
	}
	if c.SampleInterval != nil {
		d, err := time.ParseDuration(*c.SampleInterval)
		if err != nil {
			return fmt.Errorf("bad sample_interval: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("sample_interval must be positive, got %s", d)
		}
	}
	return nil
}

// GetBindHost returns the UDP bind host, defaulting to all interfaces.
func (c *Config) GetBindHost() string {
	if c.BindHost != nil {
		return *c.BindHost
	}
	return ""
}

// GetPorts returns the configured ports, or nil when unset so the caller can
// fall back to the transport's defaults.
func (c *Config) GetPorts() []int {
	return c.Ports
}

// GetListen returns the HTTP listen address.
func (c *Config) GetListen() string {
	if c.Listen != nil {
		return *c.Listen
	}
	return DefaultListen
}

// GetDatabasePath returns the sqlite path.
func (c *Config) GetDatabasePath() string {
	if c.DatabasePath != nil {
		return *c.DatabasePath
	}
	return DefaultDatabasePath
}

// GetRecordingDir returns the frame log directory.
func (c *Config) GetRecordingDir() string {
	if c.RecordingDir != nil {
		return *c.RecordingDir
	}
	return DefaultRecordingDir
}

// GetSampleInterval returns the sampler cadence. Validate has already
// guaranteed the duration parses.
func (c *Config) GetSampleInterval() time.Duration {
	if c.SampleInterval != nil {
		if d, err := time.ParseDuration(*c.SampleInterval); err == nil {
			return d
		}
	}
	return DefaultSampleInterval
}
