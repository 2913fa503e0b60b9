// File path: internal/api/server_test.go
package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/nicodishanthj/copybase/internal/catalog"
)

const statusCopybook = `01 CUSTOMER-REC.
   05 CUST-ID PIC 9(5).
   05 STATUS-CD PIC X.
      88 ACTIVE VALUE 'A'.
      88 CLOSED VALUE 'C' 'X'.
`

func newTestServer(t *testing.T, store *catalog.Store) *httptest.Server {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Catalog = store
	ts := httptest.NewServer(NewServer(cfg))
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, payload interface{}) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, nil)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("get healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestParseEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)
	resp := postJSON(t, ts.URL+"/v1/parse", map[string]interface{}{
		"copybook":  statusCopybook,
		"data_text": "00042A00043C",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body struct {
		Success  bool `json:"success"`
		Records  []struct {
			Fields []struct {
				Path   string `json:"path"`
				Value  string `json:"value"`
				Symbol string `json:"symbol"`
			} `json:"fields"`
		} `json:"records"`
		Metadata struct {
			RecordLength   int `json:"record_length"`
			RecordsDecoded int `json:"records_decoded"`
		} `json:"metadata"`
	}
	decodeBody(t, resp, &body)
	if !body.Success {
		t.Fatalf("expected success: %+v", body)
	}
	if body.Metadata.RecordLength != 6 || body.Metadata.RecordsDecoded != 2 {
		t.Fatalf("unexpected metadata: %+v", body.Metadata)
	}
	if body.Records[0].Fields[1].Symbol != "ACTIVE" {
		t.Fatalf("expected ACTIVE annotation, got %+v", body.Records[0].Fields[1])
	}
	if body.Records[1].Fields[1].Symbol != "CLOSED" {
		t.Fatalf("expected CLOSED annotation, got %+v", body.Records[1].Fields[1])
	}
}

func TestParseEndpointBase64Data(t *testing.T) {
	ts := newTestServer(t, nil)
	resp := postJSON(t, ts.URL+"/v1/parse", map[string]interface{}{
		"copybook": statusCopybook,
		"data":     base64.StdEncoding.EncodeToString([]byte("00042A")),
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestParseEndpointRejectsMissingData(t *testing.T) {
	ts := newTestServer(t, nil)
	resp := postJSON(t, ts.URL+"/v1/parse", map[string]interface{}{"copybook": statusCopybook})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestParseEndpointStructuredCopybookError(t *testing.T) {
	ts := newTestServer(t, nil)
	resp := postJSON(t, ts.URL+"/v1/parse", map[string]interface{}{
		"copybook":  "01 R.\n05 F PIC Q(4).\n",
		"data_text": "abcd",
	})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	var body struct {
		Error struct {
			Kind string `json:"kind"`
			Line int    `json:"line"`
		} `json:"error"`
	}
	decodeBody(t, resp, &body)
	if body.Error.Kind != "unsupported_field_type" {
		t.Fatalf("expected unsupported_field_type, got %+v", body.Error)
	}
	if body.Error.Line != 2 {
		t.Fatalf("expected line 2, got %d", body.Error.Line)
	}
}

func TestSchemaEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)
	resp := postJSON(t, ts.URL+"/v1/schema", map[string]string{"copybook": statusCopybook})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body struct {
		RecordLength int `json:"record_length"`
		FieldCount   int `json:"field_count"`
	}
	decodeBody(t, resp, &body)
	if body.RecordLength != 6 {
		t.Fatalf("expected record length 6, got %d", body.RecordLength)
	}
}

func TestRulesEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)
	resp := postJSON(t, ts.URL+"/v1/rules", map[string]string{"copybook": statusCopybook})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body struct {
		Count int                          `json:"count"`
		Names map[string]map[string]string `json:"names"`
	}
	decodeBody(t, resp, &body)
	if body.Count != 2 {
		t.Fatalf("expected 2 rules, got %d", body.Count)
	}
	names := body.Names["STATUS-CD"]
	if names["A"] != "ACTIVE" || names["C"] != "CLOSED" || names["X"] != "CLOSED" {
		t.Fatalf("unexpected rule map: %v", names)
	}
}

func TestParseUploadEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("copybook", "customer.cpy")
	if err != nil {
		t.Fatalf("create copybook part: %v", err)
	}
	fmt.Fprint(part, statusCopybook)
	part, err = mw.CreateFormFile("data", "customer.dat")
	if err != nil {
		t.Fatalf("create data part: %v", err)
	}
	fmt.Fprint(part, "00042A")
	if err := mw.WriteField("name", "customer-extract"); err != nil {
		t.Fatalf("write name field: %v", err)
	}
	mw.Close()

	resp, err := http.Post(ts.URL+"/v1/parse/upload", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("post upload: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body struct {
		Success bool `json:"success"`
	}
	decodeBody(t, resp, &body)
	if !body.Success {
		t.Fatalf("expected success")
	}
}

func TestCatalogRoundTrip(t *testing.T) {
	store, err := catalog.OpenWithConfig(catalog.Config{Path: filepath.Join(t.TempDir(), "catalog.db")})
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	ts := newTestServer(t, store)

	resp := postJSON(t, ts.URL+"/v1/parse", map[string]interface{}{
		"copybook":  statusCopybook,
		"data_text": "00042A",
		"name":      "customers",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var parsed struct {
		RunID int64 `json:"run_id"`
	}
	decodeBody(t, resp, &parsed)
	if parsed.RunID == 0 {
		t.Fatalf("expected run id from catalog")
	}

	resp, err = http.Get(ts.URL + "/v1/runs")
	if err != nil {
		t.Fatalf("get runs: %v", err)
	}
	var runs struct {
		Runs []struct {
			ID       int64  `json:"id"`
			Copybook string `json:"copybook"`
		} `json:"runs"`
	}
	decodeBody(t, resp, &runs)
	if len(runs.Runs) != 1 || runs.Runs[0].Copybook != "customers" {
		t.Fatalf("unexpected runs: %+v", runs.Runs)
	}

	resp, err = http.Get(fmt.Sprintf("%s/v1/runs/%d/fields", ts.URL, parsed.RunID))
	if err != nil {
		t.Fatalf("get run fields: %v", err)
	}
	var fields struct {
		Fields []struct {
			Name string `json:"name"`
		} `json:"fields"`
	}
	decodeBody(t, resp, &fields)
	if len(fields.Fields) != 3 {
		t.Fatalf("expected 3 field rows, got %d", len(fields.Fields))
	}
}

func TestRunsWithoutCatalog(t *testing.T) {
	ts := newTestServer(t, nil)
	resp, err := http.Get(ts.URL + "/v1/runs")
	if err != nil {
		t.Fatalf("get runs: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestMaxRecordsTruncatesResponse(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRecords = 1
	ts := httptest.NewServer(NewServer(cfg))
	t.Cleanup(ts.Close)

	resp := postJSON(t, ts.URL+"/v1/parse", map[string]interface{}{
		"copybook":  statusCopybook,
		"data_text": "00042A00043C",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body struct {
		Records  []json.RawMessage `json:"records"`
		Metadata struct {
			RecordsDecoded int `json:"records_decoded"`
		} `json:"metadata"`
	}
	decodeBody(t, resp, &body)
	if len(body.Records) != 1 {
		t.Fatalf("expected truncated records, got %d", len(body.Records))
	}
	if body.Metadata.RecordsDecoded != 2 {
		t.Fatalf("metadata must keep the full count, got %d", body.Metadata.RecordsDecoded)
	}
}
