// File path: internal/api/schema_handler.go
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	chi "github.com/go-chi/chi/v5"

	"github.com/nicodishanthj/copybase/internal/common"
	"github.com/nicodishanthj/copybase/internal/copybook"
	"github.com/nicodishanthj/copybase/internal/service"
)

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	schema, ok := s.buildSchemaFromRequest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, schemaResponse{
		RecordLength: schema.Root.RecordLength(),
		FieldCount:   schema.Root.FieldCount(),
		Root:         schema.Root,
	})
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	schema, ok := s.buildSchemaFromRequest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rulesResponse{
		Count:  schema.Rules.Count,
		Values: schema.Rules.Values,
		Names:  schema.Rules.Names,
	})
}

func (s *Server) buildSchemaFromRequest(w http.ResponseWriter, r *http.Request) (*copybook.Schema, bool) {
	logger := common.Logger()
	var req schemaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("api: schema decode failed", "error", err)
		writeError(w, http.StatusBadRequest, err)
		return nil, false
	}
	if strings.TrimSpace(req.Copybook) == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("copybook is required"))
		return nil, false
	}
	schema, err := service.BuildSchema(r.Context(), req.Copybook)
	if err != nil {
		var cerr *copybook.Error
		if errors.As(err, &cerr) {
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: cerr})
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, err)
		return nil, false
	}
	return schema, true
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("catalog not configured"))
		return
	}
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}
	runs, err := s.catalog.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"runs": runs})
}

func (s *Server) handleRunFields(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("catalog not configured"))
		return
	}
	runID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid run id: %w", err))
		return
	}
	fields, err := s.catalog.FieldsForRun(r.Context(), runID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"fields": fields})
}
