// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package cmd

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"grimm.is/airqos/internal/config"
)

// RunDump fetches the running daemon's state dump over its API
func RunDump(configFile string) error {
	if configFile == "" {
		configFile = DefaultConfigPath()
	}
	cfg, err := config.LoadFile(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	url := fmt.Sprintf("http://%s/api/v1/qos/dump", cfg.API.ListenAddr)
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("failed to reach daemon at %s (is it running?): %w", cfg.API.ListenAddr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("daemon returned %s: %s", resp.Status, string(body))
	}
	_, err = io.Copy(os.Stdout, resp.Body)
	return err
}
