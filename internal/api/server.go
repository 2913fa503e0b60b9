// File path: internal/api/server.go
package api

import (
	"encoding/json"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"

	"github.com/nicodishanthj/copybase/internal/catalog"
	"github.com/nicodishanthj/copybase/internal/common"
	"github.com/nicodishanthj/copybase/internal/common/telemetry"
)

// Server hosts the parsing service over HTTP. The engine itself is
// stateless; the optional catalog records run metadata.
type Server struct {
	router     chi.Router
	catalog    *catalog.Store
	maxUpload  int64
	maxRecords int
}

// Config controls request limits and the optional run catalog.
type Config struct {
	Catalog    *catalog.Store
	MaxUpload  int64 // multipart memory ceiling in bytes
	MaxRecords int   // decoded records returned per request; 0 for unlimited
}

// DefaultConfig returns the standard configuration used when no overrides
// are provided.
func DefaultConfig() Config {
	return Config{
		MaxUpload: 64 << 20,
	}
}

func NewServer(cfg Config) *Server {
	logger := common.Logger()
	if cfg.MaxUpload <= 0 {
		cfg.MaxUpload = 64 << 20
	}
	srv := &Server{
		router:     chi.NewRouter(),
		catalog:    cfg.Catalog,
		maxUpload:  cfg.MaxUpload,
		maxRecords: cfg.MaxRecords,
	}
	srv.routes()
	logger.Info("api: server ready", "catalog", cfg.Catalog != nil)
	return srv
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	logger := common.Logger()
	logger.Info("api: configuring routes")
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			telemetry.RecordRequest(r.URL.Path)
			logger.Debug("request", "method", r.Method, "path", r.URL.Path, "dur", time.Since(start), "remote", r.RemoteAddr)
		})
	})

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.router.Post("/v1/parse", s.handleParse)
	s.router.Post("/v1/parse/upload", s.handleParseUpload)
	s.router.Post("/v1/schema", s.handleSchema)
	s.router.Post("/v1/rules", s.handleRules)
	s.router.Get("/v1/runs", s.handleRuns)
	s.router.Get("/v1/runs/{id}/fields", s.handleRunFields)
	s.router.Get("/v1/logs", s.handleLogs)
	s.router.Get("/v1/metrics", s.handleMetrics)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"logs": common.LogEntries()})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, telemetry.Snapshot())
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	logger := common.Logger()
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "error", err)
	} else {
		logger.Warn("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
