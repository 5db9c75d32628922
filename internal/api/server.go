// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package api exposes the daemon's caller surface: a websocket session
// endpoint for applications and REST endpoints for diagnostics.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"grimm.is/airqos/internal/config"
	"grimm.is/airqos/internal/links"
	"grimm.is/airqos/internal/logging"
	"grimm.is/airqos/internal/qos"
)

// Options holds dependencies for the API server.
type Options struct {
	Logger   *logging.Logger
	Config   *config.APIConfig
	Handler  *qos.RequestHandler
	Links    links.Registry
	Registry *prometheus.Registry
}

// Server handles API requests.
type Server struct {
	log     *logging.Logger
	cfg     *config.APIConfig
	handler *qos.RequestHandler
	links   links.Registry
	router  *mux.Router
	http    *http.Server

	sessions *sessionRegistry
}

// NewServer creates the API server and its routes.
func NewServer(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = logging.New(logging.DefaultConfig())
	}
	s := &Server{
		log:      log.WithComponent("api"),
		cfg:      opts.Config,
		handler:  opts.Handler,
		links:    opts.Links,
		router:   mux.NewRouter(),
		sessions: newSessionRegistry(),
	}

	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	if opts.Registry != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{}))
	}

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/qos/dump", s.handleDump).Methods("GET")
	api.HandleFunc("/qos/session", s.handleSession).Methods("GET")
	api.HandleFunc("/links", s.handleLinks).Methods("GET")
	api.HandleFunc("/links/{name}", s.handleLinkDetails).Methods("GET")

	return s
}

// Router returns the configured router, for embedding in tests.
func (s *Server) Router() http.Handler { return s.router }

// Start begins serving in the background.
func (s *Server) Start() {
	s.http = &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeoutSec) * time.Second,
	}
	go func() {
		s.log.Info("API server listening", "addr", s.cfg.ListenAddr)
		if err := s.http.ListenAndServe(); err != http.ErrServerClosed {
			s.log.Error("API server failed", "error", err)
		}
	}()
}

// Stop shuts the server down, closing open sessions.
func (s *Server) Stop(ctx context.Context) error {
	s.sessions.closeAll()
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDump(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	s.handler.Dump(w)
}

func (s *Server) handleLinks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"links": s.links.ActiveLinks()})
}

func (s *Server) handleLinkDetails(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	details, err := links.LinkDetails(name)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
