// File path: internal/api/types.go
package api

import (
	"github.com/nicodishanthj/copybase/internal/copybook"
	"github.com/nicodishanthj/copybase/internal/service"
)

type parseRequest struct {
	Copybook string `json:"copybook"`
	// Data carries the raw extract bytes, base64-encoded. DataText is an
	// alternative for plain-text extracts.
	Data     string `json:"data,omitempty"`
	DataText string `json:"data_text,omitempty"`
	Name     string `json:"name,omitempty"`
	Encoding string `json:"encoding,omitempty"`
	Workers  int    `json:"workers,omitempty"`
}

type parseResponse struct {
	*service.Result
	RunID int64 `json:"run_id,omitempty"`
}

type schemaRequest struct {
	Copybook string `json:"copybook"`
}

type schemaResponse struct {
	RecordLength int             `json:"record_length"`
	FieldCount   int             `json:"field_count"`
	Root         *copybook.Field `json:"schema"`
}

type rulesResponse struct {
	Count  int                          `json:"count"`
	Values map[string][]string          `json:"values"`
	Names  map[string]map[string]string `json:"names"`
}

type errorResponse struct {
	Error *copybook.Error `json:"error"`
}
