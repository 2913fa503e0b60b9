// File path: internal/copybook/normalizer_test.go
package copybook

import (
	"strings"
	"testing"
)

// fixedLine builds one fixed-format source line: sequence area, indicator,
// code text padded to column 72, then an identification-area tag.
func fixedLine(seq, indicator, code string) string {
	line := seq + indicator + code
	if len(line) < 72 {
		line += strings.Repeat(" ", 72-len(line))
	}
	return line + "IDAREA01"
}

func TestNormalizeFixedFormat(t *testing.T) {
	src := strings.Join([]string{
		fixedLine("000100", " ", "01  CUSTOMER-REC."),
		fixedLine("000200", "*", "THIS IS A COMMENT LINE"),
		fixedLine("000300", " ", "    05  CUST-NAME      PIC X(10)."),
		fixedLine("000400", " ", "    05  ORDER-TABLE    OCCURS"),
		fixedLine("000500", "-", "        3 TIMES PIC 9(3)."),
		"",
	}, "\n")

	lines := Normalize(src)
	if len(lines) != 3 {
		t.Fatalf("expected 3 logical lines, got %d: %v", len(lines), lines)
	}
	if lines[0].Text != "01  CUSTOMER-REC." {
		t.Fatalf("unexpected first line: %q", lines[0].Text)
	}
	if lines[0].Number != 1 {
		t.Fatalf("expected line number 1, got %d", lines[0].Number)
	}
	if lines[2].Text != "05  ORDER-TABLE    OCCURS 3 TIMES PIC 9(3)." {
		t.Fatalf("continuation not joined into one clause: %q", lines[2].Text)
	}
	if lines[2].Number != 4 {
		t.Fatalf("joined line should keep the first physical number, got %d", lines[2].Number)
	}
}

func TestNormalizeFreeFormat(t *testing.T) {
	src := "01 REC.\n* comment\n   05 FLD PIC X.\n\n"
	lines := Normalize(src)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[1].Text != "05 FLD PIC X." {
		t.Fatalf("unexpected line: %q", lines[1].Text)
	}
}

func TestNormalizeDropsIdentificationArea(t *testing.T) {
	src := fixedLine("000100", " ", "    05  AMOUNT         PIC 9(5)V99.")
	lines := Normalize(src)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if lines[0].Text != "05  AMOUNT         PIC 9(5)V99." {
		t.Fatalf("identification area leaked: %q", lines[0].Text)
	}
}
