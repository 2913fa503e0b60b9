// File path: internal/copybook/normalizer.go
package copybook

import "strings"

// Line is one logical copybook statement after column stripping, comment
// removal, and continuation joining. Number is the physical line number of
// the first physical line that contributed to the statement.
type Line struct {
	Number int
	Text   string
}

// Normalize splits raw copybook text into logical statements. Fixed-format
// sources carry a sequence area in columns 1-6, an indicator in column 7, and
// program text in columns 8-72; anything past column 72 is identification
// area and dropped. Sources without the fixed columns pass through as-is.
func Normalize(source string) []Line {
	raw := strings.Split(strings.ReplaceAll(source, "\r\n", "\n"), "\n")
	fixed := looksFixedFormat(raw)

	var (
		lines   []Line
		current Line
	)
	flush := func() {
		current.Text = strings.TrimSpace(current.Text)
		if current.Text != "" {
			lines = append(lines, current)
		}
		current = Line{}
	}
	for i, physical := range raw {
		text, continuation, comment := splitColumns(physical, fixed)
		if comment {
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if continuation && current.Text != "" {
			current.Text += " " + text
			continue
		}
		flush()
		current = Line{Number: i + 1, Text: text}
	}
	flush()
	return lines
}

// splitColumns extracts the program-text window of one physical line and
// reports whether the line is a continuation or a comment.
func splitColumns(physical string, fixed bool) (text string, continuation, comment bool) {
	if !fixed {
		trimmed := strings.TrimSpace(physical)
		if strings.HasPrefix(trimmed, "*") || strings.HasPrefix(trimmed, "/") {
			return "", false, true
		}
		return physical, false, false
	}
	if len(physical) < 7 {
		return "", false, false
	}
	switch physical[6] {
	case '*', '/':
		return "", false, true
	case '-':
		continuation = true
	}
	text = physical[7:]
	if len(text) > 65 {
		text = text[:65] // columns 8-72
	}
	return text, continuation, false
}

func looksFixedFormat(raw []string) bool {
	for _, line := range raw {
		trimmed := strings.TrimRight(line, " \t")
		if trimmed == "" {
			continue
		}
		if len(trimmed) < 7 {
			return false
		}
		for _, r := range trimmed[:6] {
			if r != ' ' && (r < '0' || r > '9') {
				return false
			}
		}
		switch trimmed[6] {
		case ' ', '*', '/', '-', 'D', 'd':
		default:
			return false
		}
		return true
	}
	return false
}
