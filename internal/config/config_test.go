// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleHCL = `
api {
  listen_addr = "127.0.0.1:9999"
}

qos {
  control_socket          = "/run/wpa/global"
  confirmation_timeout_ms = 2000
}

links {
  patterns = ["wlan*", "ap*"]
}

logging {
  level   = "debug"
  console = true
}
`

func writeTempConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadHCLFile(t *testing.T) {
	cfg, err := LoadFile(writeTempConfig(t, "airqos.hcl", sampleHCL))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9999", cfg.API.ListenAddr)
	assert.Equal(t, "/run/wpa/global", cfg.QoS.ControlSocket)
	assert.Equal(t, 2*time.Second, cfg.ConfirmationTimeout())
	assert.Equal(t, []string{"wlan*", "ap*"}, cfg.Links.Patterns)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Defaults fill in the rest.
	assert.Equal(t, 15, cfg.API.ReadTimeoutSec)
	assert.NotEmpty(t, cfg.RunDir)
}

func TestLoadJSONFile(t *testing.T) {
	cfg, err := LoadFile(writeTempConfig(t, "airqos.json",
		`{"qos": {"confirmation_timeout_ms": 500}}`))
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.QoS.ConfirmationTimeoutMS)
	assert.Equal(t, "127.0.0.1:9380", cfg.API.ListenAddr)
}

func TestLoadUnknownExtensionFallsBackToJSON(t *testing.T) {
	cfg, err := LoadFile(writeTempConfig(t, "airqos.conf",
		`{"logging": {"level": "warn"}}`))
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadBadHCL(t *testing.T) {
	_, err := LoadFile(writeTempConfig(t, "airqos.hcl", "api {"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"timeout too small", func(c *Config) { c.QoS.ConfirmationTimeoutMS = 50 }, false},
		{"timeout too large", func(c *Config) { c.QoS.ConfirmationTimeoutMS = 120000 }, false},
		{"relative socket", func(c *Config) { c.QoS.ControlSocket = "wpa/global" }, false},
		{"bad glob", func(c *Config) { c.Links.Patterns = []string{"["} }, false},
		{"bad level", func(c *Config) { c.Logging.Level = "trace" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestGenerateHCLRoundTrip(t *testing.T) {
	generated := GenerateHCL(Default())
	cfg, err := LoadHCL(generated, "generated.hcl")
	require.NoError(t, err)
	cfg.ApplyDefaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, Default(), cfg)
}

func TestWriteDefaultRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "airqos.hcl")
	require.NoError(t, WriteDefault(path))

	_, err := LoadFile(path)
	require.NoError(t, err)

	assert.Error(t, WriteDefault(path))
}
