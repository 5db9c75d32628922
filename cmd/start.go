// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"grimm.is/airqos/internal/brand"
	"grimm.is/airqos/internal/config"
)

// RunStart starts the dispatch daemon in the background
func RunStart(configFile string) error {
	// Pre-flight check: verify config file exists before forking
	// This gives immediate feedback rather than failing in background
	if configFile == "" {
		configFile = DefaultConfigPath()
	}
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return fmt.Errorf("configuration file not found: %s\n\n"+
			"To create one with default values, run:\n"+
			"  %s init-config %s",
			configFile, brand.BinaryName, configFile)
	}

	// Pre-flight: validate config before forking so errors reach the user
	cfg, err := config.LoadFile(configFile)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Check for existing PID file
	pidFile := cfg.PidfilePath()
	if _, err := os.Stat(pidFile); err == nil {
		// File exists, check if process is actually running
		data, err := os.ReadFile(pidFile)
		if err == nil {
			pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
			if err == nil {
				// Check if process exists by sending signal 0
				process, err := os.FindProcess(pid)
				if err == nil {
					if err := process.Signal(syscall.Signal(0)); err == nil {
						return fmt.Errorf("process already running (PID: %d)", pid)
					}
				}
			}
		}
		// If we get here, PID file exists but process is dead. Warn and cleanup.
		fmt.Printf("Warning: Removing stale PID file %s\n", pidFile)
		os.Remove(pidFile)
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	cmd := exec.Command(exe, "run", configFile)

	logDir := GetLogDir()
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	logFile := filepath.Join(logDir, brand.LowerName+".log")

	logF, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logF.Close()

	cmd.Stdout = logF
	cmd.Stderr = logF

	// Detach process
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true,
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	pid := cmd.Process.Pid
	fmt.Printf("Started %s (PID: %d)\n", brand.Name, pid)
	fmt.Printf("Logs: %s\n", logFile)

	// Wait briefly to detect immediate failures
	// Use a channel to detect if the process exits quickly
	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case err := <-done:
		// Process exited quickly - this is a startup failure
		fmt.Fprintf(os.Stderr, "\nError: Daemon exited immediately.\n")
		// Try to show recent log lines for context
		if lines := tailLogFile(logFile, 10); len(lines) > 0 {
			fmt.Fprintf(os.Stderr, "Log output:\n")
			for _, line := range lines {
				if line != "" {
					fmt.Fprintf(os.Stderr, "  %s\n", line)
				}
			}
		}
		if err != nil {
			return fmt.Errorf("daemon failed to start: %w", err)
		}
		return fmt.Errorf("daemon exited unexpectedly")

	case <-time.After(500 * time.Millisecond):
		// Process is still running after 500ms - likely successful
		// Verify it's still alive
		if err := cmd.Process.Signal(syscall.Signal(0)); err != nil {
			return fmt.Errorf("daemon died during startup (check logs: %s)", logFile)
		}
		return nil
	}
}

// tailLogFile returns the last n lines of a log file
func tailLogFile(path string, n int) []string {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	lines := strings.Split(string(content), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}
