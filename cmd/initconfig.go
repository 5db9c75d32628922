// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package cmd

import (
	"fmt"

	"grimm.is/airqos/internal/config"
)

// RunInitConfig writes a config file with default values
func RunInitConfig(path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}
	if err := config.WriteDefault(path); err != nil {
		return err
	}
	fmt.Printf("Wrote default configuration to %s\n", path)
	return nil
}
