// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"grimm.is/airqos/internal/api"
	"grimm.is/airqos/internal/brand"
	"grimm.is/airqos/internal/config"
	"grimm.is/airqos/internal/links"
	"grimm.is/airqos/internal/logging"
	"grimm.is/airqos/internal/metrics"
	"grimm.is/airqos/internal/qos"
	"grimm.is/airqos/internal/transport"
)

// RunDaemon runs the dispatch daemon in the foreground. This is what
// `start` forks; it can also be invoked directly for supervised setups.
func RunDaemon(configFile string) error {
	if configFile == "" {
		configFile = DefaultConfigPath()
	}
	cfg, err := config.LoadFile(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logging.New(logging.Config{
		Level:   logging.ParseLevel(cfg.Logging.Level),
		Console: cfg.Logging.Console,
	})
	log.Info("Starting daemon", "name", brand.Name, "version", brand.Version, "config", configFile)

	if err := SetProcessName(brand.BinaryName); err != nil {
		log.Warn("Failed to set process name", "error", err)
	}

	collector := metrics.NewCollector()
	registry := prometheus.NewRegistry()
	if err := collector.Register(registry); err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	monitor, err := links.NewMonitor(log, cfg.Links.Patterns)
	if err != nil {
		return fmt.Errorf("failed to start link monitor: %w", err)
	}
	defer monitor.Close()

	supplicant, err := transport.DialSupplicant(log, cfg.QoS.ControlSocket)
	if err != nil {
		return fmt.Errorf("failed to attach to control socket %s: %w", cfg.QoS.ControlSocket, err)
	}
	defer supplicant.Close()

	handler := qos.NewRequestHandler(qos.Options{
		Logger:              log,
		Links:               monitor,
		Transport:           supplicant,
		Metrics:             collector,
		ConfirmationTimeout: cfg.ConfirmationTimeout(),
	})
	defer handler.Close()
	monitor.OnAdded(handler.OnLinkAdded)

	server := api.NewServer(api.Options{
		Logger:   log,
		Config:   cfg.API,
		Handler:  handler,
		Links:    monitor,
		Registry: registry,
	})
	server.Start()

	pidFile := cfg.PidfilePath()
	if err := writePidfile(pidFile); err != nil {
		log.Warn("Failed to write pidfile", "path", pidFile, "error", err)
	} else {
		defer os.Remove(pidFile)
	}

	log.Info("Daemon ready", "links", monitor.ActiveLinks(), "listen", cfg.API.ListenAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigCh
	log.Info("Shutting down", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		log.Warn("API server shutdown error", "error", err)
	}
	return nil
}

func writePidfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(fmt.Sprintf("%d", os.Getpid())), 0644)
}
