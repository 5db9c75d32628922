// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package cmd

import (
	"os"
	"path/filepath"

	"grimm.is/airqos/internal/brand"
)

// GetLogDir returns the log directory, checking env vars first.
// Priority: AIRQOS_LOG_DIR > AIRQOS_PREFIX/log > brand.DefaultLogDir
func GetLogDir() string {
	if dir := os.Getenv(brand.ConfigEnvPrefix + "_LOG_DIR"); dir != "" {
		return dir
	}
	if prefix := os.Getenv(brand.ConfigEnvPrefix + "_PREFIX"); prefix != "" {
		return filepath.Join(prefix, "log")
	}
	return brand.DefaultLogDir
}

// GetRunDir returns the runtime directory, checking env vars first.
// Priority: AIRQOS_RUN_DIR > AIRQOS_PREFIX/run > brand.DefaultRunDir
func GetRunDir() string {
	if dir := os.Getenv(brand.ConfigEnvPrefix + "_RUN_DIR"); dir != "" {
		return dir
	}
	if prefix := os.Getenv(brand.ConfigEnvPrefix + "_PREFIX"); prefix != "" {
		return filepath.Join(prefix, "run")
	}
	return brand.DefaultRunDir
}

// DefaultConfigPath returns the config file location, checking env vars first.
func DefaultConfigPath() string {
	if path := os.Getenv(brand.ConfigEnvPrefix + "_CONFIG"); path != "" {
		return path
	}
	return filepath.Join(brand.DefaultConfigDir, brand.ConfigFileName)
}
