// Package api exposes a small status surface for health checks and
// dashboards. It reports state only; the pipeline is not controllable over
// HTTP.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/themewire/themewire/internal/pipeline"
	"github.com/themewire/themewire/internal/themerrdb"
	"github.com/themewire/themewire/internal/version"
)

type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type Server struct {
	pipeline *pipeline.Pipeline
	cache    *themerrdb.Cache
	version  version.Info
	router   *http.ServeMux
}

func NewServer(p *pipeline.Pipeline, cache *themerrdb.Cache, ver version.Info) *Server {
	s := &Server{
		pipeline: p,
		cache:    cache,
		version:  ver,
		router:   http.NewServeMux(),
	}
	s.router.HandleFunc("GET /api/health", s.handleHealth)
	s.router.HandleFunc("GET /api/status", s.handleStatus)
	s.router.HandleFunc("GET /api/version", s.handleVersion)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, Response{Success: true, Data: "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	pending, inFlight := s.pipeline.QueueStats()
	writeJSON(w, http.StatusOK, Response{Success: true, Data: map[string]interface{}{
		"queue": map[string]int{
			"pending":   pending,
			"in_flight": inFlight,
			"workers":   s.pipeline.Workers(),
		},
		"cache": s.cache.Stats(),
	}})
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, Response{Success: true, Data: s.version})
}

func writeJSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}
