// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package config provides HCL configuration handling for the daemon,
// with a JSON fallback for machine-generated configs.
package config

import (
	"path/filepath"
	"time"

	"grimm.is/airqos/internal/brand"
	"grimm.is/airqos/internal/errors"
)

// Config is the top-level structure for the daemon configuration.
type Config struct {
	// API endpoint for application sessions and diagnostics.
	API *APIConfig `hcl:"api,block" json:"api,omitempty"`

	// QoS dispatch engine settings.
	QoS *QoSConfig `hcl:"qos,block" json:"qos,omitempty"`

	// Link eligibility selection.
	Links *LinkConfig `hcl:"links,block" json:"links,omitempty"`

	Logging *LoggingConfig `hcl:"logging,block" json:"logging,omitempty"`

	// Runtime directory for the pidfile (overrides default).
	RunDir string `hcl:"run_dir,optional" json:"run_dir,omitempty"`
}

// APIConfig defines the HTTP listener.
type APIConfig struct {
	// @default: "127.0.0.1:9380"
	ListenAddr string `hcl:"listen_addr,optional" json:"listen_addr,omitempty"`

	ReadTimeoutSec  int `hcl:"read_timeout_sec,optional" json:"read_timeout_sec,omitempty"`
	WriteTimeoutSec int `hcl:"write_timeout_sec,optional" json:"write_timeout_sec,omitempty"`
}

// QoSConfig defines the dispatch engine and its control channel.
type QoSConfig struct {
	// Path to the wpa_supplicant-style control socket.
	// @default: "/var/run/wpa_supplicant/global"
	ControlSocket string `hcl:"control_socket,optional" json:"control_socket,omitempty"`

	// Watchdog for the asynchronous confirmation event, in milliseconds.
	// @default: 1500
	ConfirmationTimeoutMS int `hcl:"confirmation_timeout_ms,optional" json:"confirmation_timeout_ms,omitempty"`
}

// LinkConfig selects the links eligible to carry QoS policies.
type LinkConfig struct {
	// Glob patterns matched against kernel link names.
	// @default: ["wlan*"]
	Patterns []string `hcl:"patterns,optional" json:"patterns,omitempty"`
}

// LoggingConfig controls the structured log output.
type LoggingConfig struct {
	// @enum: debug, info, warn, error
	Level string `hcl:"level,optional" json:"level,omitempty"`

	// Human-readable console output instead of JSON.
	Console bool `hcl:"console,optional" json:"console,omitempty"`
}

// Default returns a fully populated configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills in every unset field.
func (c *Config) ApplyDefaults() {
	if c.API == nil {
		c.API = &APIConfig{}
	}
	if c.API.ListenAddr == "" {
		c.API.ListenAddr = "127.0.0.1:9380"
	}
	if c.API.ReadTimeoutSec <= 0 {
		c.API.ReadTimeoutSec = 15
	}
	if c.API.WriteTimeoutSec <= 0 {
		c.API.WriteTimeoutSec = 15
	}
	if c.QoS == nil {
		c.QoS = &QoSConfig{}
	}
	if c.QoS.ControlSocket == "" {
		c.QoS.ControlSocket = "/var/run/wpa_supplicant/global"
	}
	if c.QoS.ConfirmationTimeoutMS <= 0 {
		c.QoS.ConfirmationTimeoutMS = 1500
	}
	if c.Links == nil {
		c.Links = &LinkConfig{}
	}
	if len(c.Links.Patterns) == 0 {
		c.Links.Patterns = []string{"wlan*"}
	}
	if c.Logging == nil {
		c.Logging = &LoggingConfig{}
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.RunDir == "" {
		c.RunDir = brand.DefaultRunDir
	}
}

// Validate checks field values after defaults were applied.
func (c *Config) Validate() error {
	if c.API == nil || c.QoS == nil || c.Links == nil || c.Logging == nil {
		return errors.New(errors.KindValidation, "configuration defaults were not applied")
	}
	if c.API.ListenAddr == "" {
		return errors.New(errors.KindValidation, "api.listen_addr must not be empty")
	}
	if c.QoS.ConfirmationTimeoutMS < 100 || c.QoS.ConfirmationTimeoutMS > 60000 {
		return errors.Errorf(errors.KindValidation,
			"qos.confirmation_timeout_ms %d out of range [100, 60000]", c.QoS.ConfirmationTimeoutMS)
	}
	if !filepath.IsAbs(c.QoS.ControlSocket) {
		return errors.Errorf(errors.KindValidation,
			"qos.control_socket %q must be an absolute path", c.QoS.ControlSocket)
	}
	for _, pattern := range c.Links.Patterns {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return errors.Errorf(errors.KindValidation, "links.patterns entry %q is not a valid glob", pattern)
		}
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.Errorf(errors.KindValidation, "logging.level %q unknown", c.Logging.Level)
	}
	return nil
}

// ConfirmationTimeout returns the watchdog duration.
func (c *Config) ConfirmationTimeout() time.Duration {
	return time.Duration(c.QoS.ConfirmationTimeoutMS) * time.Millisecond
}

// PidfilePath returns the daemon pidfile location.
func (c *Config) PidfilePath() string {
	return filepath.Join(c.RunDir, brand.LowerName+".pid")
}
