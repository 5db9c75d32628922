// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Command airqos-sim runs the dispatch engine against a simulated
// access point. Every accepted policy is confirmed automatically after
// a short delay, so clients can be developed and demoed without
// wireless hardware or a control socket.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"grimm.is/airqos/internal/api"
	"grimm.is/airqos/internal/config"
	"grimm.is/airqos/internal/links"
	"grimm.is/airqos/internal/logging"
	"grimm.is/airqos/internal/metrics"
	"grimm.is/airqos/internal/qos"
	"grimm.is/airqos/internal/transport"
)

func main() {
	listen := flag.String("listen", "127.0.0.1:9380", "API listen address")
	linkList := flag.String("links", "wlan0", "Comma-separated simulated link names")
	confirmDelay := flag.Duration("confirm-delay", transport.DefaultSimConfirmDelay, "Delay before the simulated AP confirms a policy")
	maxPolicies := flag.Int("max-policies", transport.DefaultSimMaxPolicies, "Per-request policy limit of the simulated AP")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	level := logging.LevelInfo
	if *debug {
		level = logging.LevelDebug
	}
	logger := logging.New(logging.Config{Level: level, Console: true})

	var names []string
	for _, name := range strings.Split(*linkList, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		log.Fatal("at least one simulated link is required")
	}
	registry := links.NewStatic(names...)

	sim := transport.NewSimulator(transport.SimOptions{
		Logger:       logger,
		MaxPolicies:  *maxPolicies,
		ConfirmDelay: *confirmDelay,
	})

	collector := metrics.NewCollector()
	promReg := prometheus.NewRegistry()
	if err := collector.Register(promReg); err != nil {
		log.Fatalf("Failed to register metrics: %v", err)
	}

	handler := qos.NewRequestHandler(qos.Options{
		Logger:    logger,
		Links:     registry,
		Transport: sim,
		Metrics:   collector,
	})
	defer handler.Close()
	registry.OnAdded(handler.OnLinkAdded)

	apiCfg := &config.APIConfig{ListenAddr: *listen}
	server := api.NewServer(api.Options{
		Logger:   logger,
		Config:   apiCfg,
		Handler:  handler,
		Links:    registry,
		Registry: promReg,
	})
	server.Start()

	logger.Info("Simulator ready", "listen", *listen, "links", names, "confirm_delay", confirmDelay.String())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	<-sigCh

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		logger.Warn("Shutdown error", "error", err)
	}
}
