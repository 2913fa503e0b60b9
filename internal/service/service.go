// File path: internal/service/service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nicodishanthj/copybase/internal/common"
	"github.com/nicodishanthj/copybase/internal/common/telemetry"
	"github.com/nicodishanthj/copybase/internal/copybook"
	"github.com/nicodishanthj/copybase/internal/decoder"
)

const defaultWorkers = 4

// Options control one parse request.
type Options struct {
	Encoding decoder.Encoding `json:"encoding,omitempty"`
	Workers  int              `json:"workers,omitempty"`
}

// Metadata summarizes a parse run for the response envelope and the catalog.
type Metadata struct {
	FieldsParsed      int `json:"fields_parsed"`
	RulesExtracted    int `json:"rules_extracted"`
	RecordLength      int `json:"record_length"`
	RecordsDecoded    int `json:"records_decoded"`
	ErrorsEncountered int `json:"errors_encountered"`
}

// Result is the adapter contract: decoded records, aggregated OCCURS tables,
// run metadata, and the per-record errors that did not abort the batch.
type Result struct {
	Success  bool              `json:"success"`
	Records  []*decoder.Record `json:"records"`
	Tables   []*decoder.Table  `json:"tables,omitempty"`
	Metadata Metadata          `json:"metadata"`
	Errors   []*copybook.Error `json:"errors,omitempty"`

	// Schema is the parsed copybook behind the run, for callers that
	// persist or inspect the layout. Not part of the wire envelope.
	Schema *copybook.Schema `json:"-"`
}

// BuildSchema parses copybook text into a schema, recording telemetry.
// Structural failures surface immediately; no partial schema is usable.
func BuildSchema(ctx context.Context, source string) (*copybook.Schema, error) {
	_, done := telemetry.StartSpan(ctx, "service.build_schema")
	start := time.Now()
	schema, err := copybook.Parse(source)
	if err != nil {
		telemetry.RecordParse(0, 0, time.Since(start), true)
		done("error", err)
		return nil, err
	}
	telemetry.RecordParse(schema.Root.FieldCount(), schema.Rules.Count, time.Since(start), false)
	done("fields", schema.Root.FieldCount(), "rules", schema.Rules.Count)
	return schema, nil
}

// Parse runs the full pipeline: copybook text to schema, extract bytes framed
// into fixed-length records, each decoded against the shared immutable
// schema. Record decoding is fanned out over a bounded worker pool; decode
// failures are collected per record and never abort the batch.
func Parse(ctx context.Context, source string, data []byte, opts Options) (*Result, error) {
	logger := common.Logger()
	schema, err := BuildSchema(ctx, source)
	if err != nil {
		logger.Warn("service: schema build failed", "error", err)
		return nil, err
	}
	recordLength := schema.Root.RecordLength()
	if recordLength <= 0 {
		return nil, fmt.Errorf("service: copybook declares no record storage")
	}

	frames := frameRecords(data, recordLength)
	logger.Info("service: decoding extract",
		"record_length", recordLength,
		"records", len(frames),
		"fields", schema.Root.FieldCount(),
		"rules", schema.Rules.Count)

	start := time.Now()
	records, decodeErrs := decodeAll(ctx, schema, frames, opts)
	telemetry.RecordDecode(len(records), len(decodeErrs), time.Since(start))

	result := &Result{
		Schema:  schema,
		Records: records,
		Tables:  mergeTables(records),
		Errors:  decodeErrs,
		Metadata: Metadata{
			FieldsParsed:      schema.Root.FieldCount(),
			RulesExtracted:    schema.Rules.Count,
			RecordLength:      recordLength,
			RecordsDecoded:    len(records),
			ErrorsEncountered: len(decodeErrs),
		},
	}
	result.Success = len(decodeErrs) == 0
	if !result.Success {
		logger.Warn("service: decode completed with errors", "decoded", len(records), "errors", len(decodeErrs))
	}
	return result, nil
}

// frameRecords slices the extract into fixed-length records. A trailing
// partial chunk is kept so its decode reports a truncated-record error for
// that record alone.
func frameRecords(data []byte, recordLength int) [][]byte {
	var frames [][]byte
	for off := 0; off < len(data); off += recordLength {
		end := off + recordLength
		if end > len(data) {
			end = len(data)
		}
		frames = append(frames, data[off:end])
	}
	return frames
}

func decodeAll(ctx context.Context, schema *copybook.Schema, frames [][]byte, opts Options) ([]*decoder.Record, []*copybook.Error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	if workers > len(frames) {
		workers = len(frames)
	}
	decOpts := decoder.Options{Encoding: opts.Encoding}

	type slot struct {
		record *decoder.Record
		err    *copybook.Error
	}
	slots := make([]slot, len(frames))
	if workers <= 1 {
		for i, frame := range frames {
			slots[i].record, slots[i].err = decodeOne(schema, frame, decOpts)
			if ctx.Err() != nil {
				break
			}
		}
	} else {
		indexes := make(chan int)
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range indexes {
					slots[i].record, slots[i].err = decodeOne(schema, frames[i], decOpts)
				}
			}()
		}
		for i := range frames {
			if ctx.Err() != nil {
				break
			}
			indexes <- i
		}
		close(indexes)
		wg.Wait()
	}

	var (
		records []*decoder.Record
		errs    []*copybook.Error
	)
	for _, s := range slots {
		if s.err != nil {
			errs = append(errs, s.err)
			continue
		}
		if s.record != nil {
			records = append(records, s.record)
		}
	}
	return records, errs
}

func decodeOne(schema *copybook.Schema, frame []byte, opts decoder.Options) (*decoder.Record, *copybook.Error) {
	record, err := decoder.Decode(schema, frame, opts)
	if err != nil {
		var cerr *copybook.Error
		if errors.As(err, &cerr) {
			return nil, cerr
		}
		return nil, &copybook.Error{Kind: copybook.KindMalformedField, Message: err.Error()}
	}
	return record, nil
}

// mergeTables aggregates each record's OCCURS tables into one table per
// field path, preserving first-appearance order.
func mergeTables(records []*decoder.Record) []*decoder.Table {
	var (
		order  []string
		byPath = make(map[string]*decoder.Table)
	)
	for _, record := range records {
		for _, table := range record.Tables {
			merged, ok := byPath[table.Path]
			if !ok {
				merged = &decoder.Table{Path: table.Path}
				byPath[table.Path] = merged
				order = append(order, table.Path)
			}
			merged.Rows = append(merged.Rows, table.Rows...)
		}
	}
	out := make([]*decoder.Table, 0, len(order))
	for _, path := range order {
		out = append(out, byPath[path])
	}
	return out
}
