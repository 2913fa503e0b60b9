// File path: internal/decoder/decoder.go
package decoder

import (
	"fmt"
	"strings"

	"github.com/nicodishanthj/copybase/internal/copybook"
)

// Encoding selects the character codec for DISPLAY data.
type Encoding string

const (
	EncodingASCII  Encoding = "ascii"
	EncodingEBCDIC Encoding = "ebcdic"
)

// Options control how raw record bytes are interpreted.
type Options struct {
	Encoding Encoding `json:"encoding,omitempty"`
}

// Value is one decoded elementary field. Symbol carries the matching
// 88-level conditional name(s) when a validation rule covers the value;
// an unmatched value simply has no symbol.
type Value struct {
	Path   string `json:"path"`
	Name   string `json:"name"`
	Value  string `json:"value"`
	Symbol string `json:"symbol,omitempty"`
}

// Table collects the per-iteration rows of one OCCURS group, keyed by the
// field paths relative to the group element.
type Table struct {
	Path string              `json:"path"`
	Rows []map[string]string `json:"rows"`
}

// Record is the decoded form of one fixed-format record. Values are ordered
// by schema declaration; REDEFINES overlays all appear, leaving the choice of
// interpretation to the consumer.
type Record struct {
	Values []Value  `json:"fields"`
	Tables []*Table `json:"tables,omitempty"`
}

// Decode walks the schema tree against one record buffer. The schema is
// never mutated, so a single schema may serve any number of concurrent
// Decode calls. Errors are per-record: truncated buffers and malformed
// encodings name the failing field and offset.
func Decode(schema *copybook.Schema, buf []byte, opts Options) (*Record, error) {
	if schema == nil || schema.Root == nil {
		return nil, fmt.Errorf("decoder: schema required")
	}
	d := &walker{
		schema:   schema,
		buf:      buf,
		opts:     opts,
		record:   &Record{},
		ordinals: make(map[string]int),
	}
	if err := d.children(schema.Root, 0, "", nil, ""); err != nil {
		return nil, err
	}
	return d.record, nil
}

type walker struct {
	schema   *copybook.Schema
	buf      []byte
	opts     Options
	record   *Record
	ordinals map[string]int
}

func (d *walker) children(parent *copybook.Field, shift int, prefix string, row map[string]string, rowPrefix string) error {
	for _, field := range parent.Children {
		if err := d.field(field, shift, prefix, row, rowPrefix); err != nil {
			return err
		}
	}
	return nil
}

func (d *walker) field(f *copybook.Field, shift int, prefix string, row map[string]string, rowPrefix string) error {
	if f.Count() > 1 {
		table := &Table{Path: prefix + f.Name}
		for i := 0; i < f.Count(); i++ {
			iterRow := make(map[string]string)
			iterShift := shift + i*f.ByteLen
			iterPath := fmt.Sprintf("%s%s(%d)", prefix, f.Name, i+1)
			var err error
			if f.Group() {
				err = d.children(f, iterShift, iterPath+".", iterRow, "")
			} else {
				err = d.leaf(f, iterShift, iterPath, iterRow, f.Name)
			}
			if err != nil {
				return err
			}
			table.Rows = append(table.Rows, iterRow)
		}
		d.record.Tables = append(d.record.Tables, table)
		return nil
	}
	if f.Group() {
		return d.children(f, shift, prefix+f.Name+".", row, joinRel(rowPrefix, f.Name))
	}
	return d.leaf(f, shift, prefix+f.Name, row, joinRel(rowPrefix, f.Name))
}

func (d *walker) leaf(f *copybook.Field, shift int, path string, row map[string]string, rowKey string) error {
	offset := f.ByteOff + shift
	if f.ByteLen == 0 {
		return nil
	}
	if offset+f.ByteLen > len(d.buf) {
		return copybook.TruncatedError(f.Name, offset, "record is %d bytes, field needs %d..%d", len(d.buf), offset, offset+f.ByteLen)
	}
	raw := d.buf[offset : offset+f.ByteLen]

	var (
		value string
		derr  *copybook.Error
	)
	switch f.Usage {
	case copybook.UsageComp3:
		value, derr = decodePacked(f, raw, offset)
	case copybook.UsageComp:
		value, derr = decodeBinary(f, raw, offset)
	default:
		if f.Numeric {
			value, derr = d.opts.decodeZoned(f, raw, offset)
		} else {
			value = d.text(raw)
		}
	}
	if derr != nil {
		return derr
	}

	d.ordinals[f.Name]++
	symbol := d.schema.Rules.Symbol(f.Name, d.ordinals[f.Name], value)

	d.record.Values = append(d.record.Values, Value{Path: path, Name: f.Name, Value: value, Symbol: symbol})
	if row != nil {
		row[rowKey] = value
	}
	return nil
}

// text decodes DISPLAY character data and trims trailing padding.
func (d *walker) text(raw []byte) string {
	out := make([]byte, len(raw))
	for i, b := range raw {
		out[i] = d.opts.toASCII(b)
	}
	return strings.TrimRight(string(out), " ")
}

func joinRel(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
