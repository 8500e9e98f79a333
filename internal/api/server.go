// Package api exposes the daemon's HTTP surface: the read-only status
// endpoint, a health probe, and the link endpoint companions attach to.
package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"

	"go.uber.org/zap"

	"keybridge/internal/controller"
	"keybridge/internal/network"
)

// StatusSource yields point-in-time state for the status endpoint.
type StatusSource interface {
	Snapshot() controller.Snapshot
}

// LinkHandler upgrades requests on the link endpoint.
type LinkHandler interface {
	Handle(w http.ResponseWriter, r *http.Request)
}

// Server provides the HTTP API. It never mutates controller state; the only
// write path into the daemon is the link endpoint itself.
type Server struct {
	status  StatusSource
	link    LinkHandler
	token   string
	version string
	log     *zap.SugaredLogger

	httpSrv *http.Server
}

// NewServer creates an API server. An empty token disables authentication.
func NewServer(status StatusSource, link LinkHandler, token, version string, log *zap.SugaredLogger) *Server {
	return &Server{
		status:  status,
		link:    link,
		token:   token,
		version: version,
		log:     log,
	}
}

// Handler builds the routed, middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/link", s.link.Handle)
	mux.HandleFunc("/health", s.handleHealth)
	return s.authMiddleware(s.recoverMiddleware(mux))
}

// Start serves the API until Shutdown. Blocking.
func (s *Server) Start(addr string) error {
	// Explicit tcp4 to avoid IPv6-only binding issues on some hosts.
	ln, err := net.Listen("tcp4", addr)
	if err != nil {
		s.log.Errorw("api listen failed", "addr", addr, "error", err)
		return err
	}

	s.log.Infow("api server listening", "addr", addr)
	if ips := reachableIPs(addr); len(ips) > 0 {
		s.log.Infow("api reachable at", "addrs", ips)
	}
	s.httpSrv = &http.Server{Handler: s.Handler()}
	if err := s.httpSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
		s.log.Errorw("api server stopped", "error", err)
		return err
	}
	return nil
}

// reachableIPs lists the host's IPv4 addresses when addr is a wildcard bind.
// For a concrete bind address there is nothing to enumerate.
func reachableIPs(addr string) []string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil || (host != "" && host != "0.0.0.0") {
		return nil
	}
	ips, err := network.GetLocalIPs()
	if err != nil {
		return nil
	}
	return ips
}

// Shutdown stops the HTTP server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// recoverMiddleware prevents panics from crashing the whole server
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.log.Errorw("handler panic", "path", r.URL.Path, "panic", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// authMiddleware checks the API token if one is configured
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.log.Debugw("api request", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)

		// Skip auth for health check
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		if s.token != "" {
			if r.Header.Get("Authorization") != "Bearer "+s.token {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// handleStatus handles GET /api/status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snap := s.status.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct {
		controller.Snapshot
		Version string `json:"version"`
	}{Snapshot: snap, Version: s.version})
}

// handleHealth handles GET /health (for monitoring)
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
