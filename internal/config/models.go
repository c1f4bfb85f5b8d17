package config

import (
	"fmt"
	"net/url"
	"time"

	"gopkg.in/yaml.v3"
)

// Built-in defaults
const (
	CurrentVersion        = 1
	DefaultServer         = "http://mgmt.foundries.io:8080"
	DefaultPollInterval   = 5 * time.Second
	DefaultRequestTimeout = 10 * time.Second
	DefaultDeviceTimeout  = 30 * time.Minute
	DefaultMaxWorkers     = 1
	DefaultLogLevel       = "info"

	// ServerAuto asks for the management server to be located through mDNS
	ServerAuto = "auto"
)

// Duration is a time.Duration written as "5s" in YAML
type Duration time.Duration

// Std returns the value as a time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("line %d: duration must be a string like \"5s\": %w", node.Line, err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// Profile is the content of the configuration file
type Profile struct {
	Version         int      `yaml:"version"`
	Server          string   `yaml:"server"`                      // REST base URL, or "auto"
	PollInterval    Duration `yaml:"poll_interval"`               // Sleep between status reads
	RequestTimeout  Duration `yaml:"request_timeout"`             // Bound on each REST call
	DeviceTimeout   Duration `yaml:"device_timeout"`              // Per device and phase, 0 disables
	MaxWorkers      int      `yaml:"max_workers"`                 // Download (or single-phase) workers
	MaxApplyWorkers int      `yaml:"max_apply_workers,omitempty"` // Apply workers, 0 follows max_workers
	DeviceType      string   `yaml:"device_type,omitempty"`       // Default device-type filter
	LogLevel        string   `yaml:"log_level"`                   // debug, info, warn, error, off
}

// Default returns a profile holding the built-in defaults
func Default() *Profile {
	return &Profile{
		Version:        CurrentVersion,
		Server:         DefaultServer,
		PollInterval:   Duration(DefaultPollInterval),
		RequestTimeout: Duration(DefaultRequestTimeout),
		DeviceTimeout:  Duration(DefaultDeviceTimeout),
		MaxWorkers:     DefaultMaxWorkers,
		LogLevel:       DefaultLogLevel,
	}
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
	"off":   true,
}

// Validate checks that every setting is usable
func (p *Profile) Validate() error {
	if p.Server != ServerAuto {
		u, err := url.Parse(p.Server)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid server %q: want an http(s) URL or %q", p.Server, ServerAuto)
		}
	}
	if p.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", p.PollInterval.Std())
	}
	if p.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %s", p.RequestTimeout.Std())
	}
	if p.DeviceTimeout < 0 {
		return fmt.Errorf("device_timeout must not be negative, got %s", p.DeviceTimeout.Std())
	}
	if p.MaxWorkers < 1 {
		return fmt.Errorf("max_workers must be at least 1, got %d", p.MaxWorkers)
	}
	if p.MaxApplyWorkers < 0 {
		return fmt.Errorf("max_apply_workers must not be negative, got %d", p.MaxApplyWorkers)
	}
	if p.LogLevel != "" && !validLogLevels[p.LogLevel] {
		return fmt.Errorf("invalid log_level %q", p.LogLevel)
	}
	return nil
}

// ApplyWorkers returns the apply-phase worker limit
func (p *Profile) ApplyWorkers() int {
	if p.MaxApplyWorkers > 0 {
		return p.MaxApplyWorkers
	}
	return p.MaxWorkers
}
