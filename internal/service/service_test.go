// File path: internal/service/service_test.go
package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/nicodishanthj/copybase/internal/copybook"
	"github.com/nicodishanthj/copybase/internal/decoder"
)

const orderCopybook = `01 ORDER-REC.
   05 ORDER-ID PIC 9(4).
   05 LINE-TABLE OCCURS 2 TIMES.
      10 LINE-AMT PIC 9(3)V99.
`

func orderRecord(id, amt1, amt2 string) []byte {
	return []byte(id + amt1 + amt2)
}

func TestParseMultiRecordExtract(t *testing.T) {
	data := bytes.Join([][]byte{
		orderRecord("0001", "01000", "00250"),
		orderRecord("0002", "09999", "00005"),
		orderRecord("0003", "00100", "00000"),
	}, nil)

	result, err := Parse(context.Background(), orderCopybook, data, Options{})
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got errors %v", result.Errors)
	}
	if result.Metadata.RecordLength != 14 {
		t.Fatalf("expected record length 14, got %d", result.Metadata.RecordLength)
	}
	if result.Metadata.RecordsDecoded != 3 || len(result.Records) != 3 {
		t.Fatalf("expected 3 decoded records, got %d", len(result.Records))
	}
	if got := result.Records[1].Values[0].Value; got != "2" {
		t.Fatalf("second record ORDER-ID: %s", got)
	}
	if result.Schema == nil || result.Schema.Root.RecordLength() != 14 {
		t.Fatalf("result should carry the parsed schema")
	}
}

func TestParseTrailingPartialRecord(t *testing.T) {
	data := append(orderRecord("0001", "01000", "00250"), []byte("0002010")...)

	result, err := Parse(context.Background(), orderCopybook, data, Options{})
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if result.Success {
		t.Fatalf("partial trailing record must fail the batch")
	}
	if len(result.Records) != 1 {
		t.Fatalf("expected 1 complete record, got %d", len(result.Records))
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected 1 error, got %v", result.Errors)
	}
	if result.Errors[0].Kind != copybook.KindTruncatedRecord {
		t.Fatalf("expected truncated_record, got %s", result.Errors[0].Kind)
	}
	if result.Metadata.ErrorsEncountered != 1 {
		t.Fatalf("metadata errors count: %d", result.Metadata.ErrorsEncountered)
	}
}

func TestParseMergesOccursTables(t *testing.T) {
	data := bytes.Join([][]byte{
		orderRecord("0001", "01000", "00250"),
		orderRecord("0002", "09999", "00005"),
	}, nil)

	result, err := Parse(context.Background(), orderCopybook, data, Options{})
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(result.Tables) != 1 {
		t.Fatalf("expected one merged table, got %d", len(result.Tables))
	}
	table := result.Tables[0]
	if table.Path != "ORDER-REC.LINE-TABLE" {
		t.Fatalf("unexpected table path %s", table.Path)
	}
	if len(table.Rows) != 4 {
		t.Fatalf("expected rows from both records, got %d", len(table.Rows))
	}
	if table.Rows[2]["LINE-AMT"] != "99.99" {
		t.Fatalf("rows must keep record order, got %v", table.Rows[2])
	}
}

func TestParseWorkerPoolPreservesOrder(t *testing.T) {
	var data []byte
	ids := []string{"0001", "0002", "0003", "0004", "0005", "0006", "0007", "0008"}
	for _, id := range ids {
		data = append(data, orderRecord(id, "00100", "00200")...)
	}

	result, err := Parse(context.Background(), orderCopybook, data, Options{Workers: 4})
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(result.Records) != len(ids) {
		t.Fatalf("expected %d records, got %d", len(ids), len(result.Records))
	}
	want := []string{"1", "2", "3", "4", "5", "6", "7", "8"}
	for i, record := range result.Records {
		if record.Values[0].Value != want[i] {
			t.Fatalf("record %d out of order: got %s", i, record.Values[0].Value)
		}
	}
}

func TestParseRejectsStorageFreeCopybook(t *testing.T) {
	src := "01 EMPTY-REC.\n"
	if _, err := Parse(context.Background(), src, []byte("abc"), Options{}); err == nil {
		t.Fatalf("expected error for copybook without storage")
	}
}

func TestParseEBCDICOption(t *testing.T) {
	src := "01 R.\n05 NAME PIC X(3).\n"
	data := []byte{0xC1, 0xC2, 0xC3}
	result, err := Parse(context.Background(), src, data, Options{Encoding: decoder.EncodingEBCDIC})
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if got := result.Records[0].Values[0].Value; got != "ABC" {
		t.Fatalf("expected ABC, got %q", got)
	}
}
