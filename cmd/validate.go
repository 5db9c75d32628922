// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package cmd

import (
	"fmt"

	"grimm.is/airqos/internal/config"
)

// RunValidate loads and validates a config file without starting anything
func RunValidate(configFile string) error {
	if configFile == "" {
		configFile = DefaultConfigPath()
	}
	cfg, err := config.LoadFile(configFile)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	fmt.Printf("Configuration OK: %s\n", configFile)
	fmt.Printf("  API listen:      %s\n", cfg.API.ListenAddr)
	fmt.Printf("  Control socket:  %s\n", cfg.QoS.ControlSocket)
	fmt.Printf("  Link patterns:   %v\n", cfg.Links.Patterns)
	fmt.Printf("  Confirm timeout: %s\n", cfg.ConfirmationTimeout())
	return nil
}
