// File path: internal/api/parse_handler.go
package api

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/nicodishanthj/copybase/internal/common"
	"github.com/nicodishanthj/copybase/internal/copybook"
	"github.com/nicodishanthj/copybase/internal/decoder"
	"github.com/nicodishanthj/copybase/internal/service"
)

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	var req parseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("api: parse decode failed", "error", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Copybook) == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("copybook is required"))
		return
	}
	var data []byte
	switch {
	case req.Data != "":
		decoded, err := base64.StdEncoding.DecodeString(req.Data)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("decode data: %w", err))
			return
		}
		data = decoded
	case req.DataText != "":
		data = []byte(req.DataText)
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("data is required"))
		return
	}
	s.runParse(w, r, req.Name, req.Copybook, data, service.Options{
		Encoding: decoder.Encoding(strings.ToLower(strings.TrimSpace(req.Encoding))),
		Workers:  req.Workers,
	})
}

func (s *Server) handleParseUpload(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		logger.Warn("api: parse upload form parse failed", "error", err)
		writeError(w, http.StatusBadRequest, fmt.Errorf("failed to parse upload form: %w", err))
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	copybookText, name, err := formPart(r, "copybook")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	data, dataName, err := formPart(r, "data")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if trimmed := strings.TrimSpace(r.FormValue("name")); trimmed != "" {
		name = trimmed
	} else if name == "" {
		name = dataName
	}
	workers := 0
	if raw := strings.TrimSpace(r.FormValue("workers")); raw != "" {
		if parsed, perr := strconv.Atoi(raw); perr == nil {
			workers = parsed
		}
	}
	s.runParse(w, r, name, string(copybookText), data, service.Options{
		Encoding: decoder.Encoding(strings.ToLower(strings.TrimSpace(r.FormValue("encoding")))),
		Workers:  workers,
	})
}

// formPart reads one multipart file part, falling back to the plain form
// value of the same name.
func formPart(r *http.Request, field string) ([]byte, string, error) {
	file, header, err := r.FormFile(field)
	if err == nil {
		defer file.Close()
		data, rerr := io.ReadAll(file)
		if rerr != nil {
			return nil, "", fmt.Errorf("read %s part: %w", field, rerr)
		}
		return data, header.Filename, nil
	}
	if value := r.FormValue(field); value != "" {
		return []byte(value), "", nil
	}
	return nil, "", fmt.Errorf("%s is required", field)
}

func (s *Server) runParse(w http.ResponseWriter, r *http.Request, name, copybookText string, data []byte, opts service.Options) {
	logger := common.Logger()
	ctx := r.Context()
	result, err := service.Parse(ctx, copybookText, data, opts)
	if err != nil {
		var cerr *copybook.Error
		if errors.As(err, &cerr) {
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: cerr})
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if s.maxRecords > 0 && len(result.Records) > s.maxRecords {
		result.Records = result.Records[:s.maxRecords]
	}

	resp := parseResponse{Result: result}
	if s.catalog != nil {
		sum := sha256.Sum256([]byte(copybookText))
		runID, rerr := s.catalog.RecordRun(ctx, runName(name), hex.EncodeToString(sum[:]), result.Schema, result.Metadata)
		if rerr != nil {
			logger.Warn("api: catalog record failed", "error", rerr)
		} else {
			resp.RunID = runID
		}
	}
	logger.Info("api: parse succeeded",
		"name", runName(name),
		"records", result.Metadata.RecordsDecoded,
		"errors", result.Metadata.ErrorsEncountered)
	writeJSON(w, http.StatusOK, resp)
}

func runName(name string) string {
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		return trimmed
	}
	return "adhoc"
}
