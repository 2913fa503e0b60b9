// File path: internal/copybook/parser.go
package copybook

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/nicodishanthj/copybase/internal/common"
)

var (
	entryRe     = regexp.MustCompile(`^(\d{1,2})\s+([A-Za-z0-9-]+)\s*(.*)$`)
	picRe       = regexp.MustCompile(`(?i)\bPIC(?:TURE)?\s+(?:IS\s+)?([^\s.]+)`)
	occursRe    = regexp.MustCompile(`(?i)\bOCCURS\s+(\d+)(?:\s+TIMES)?`)
	redefinesRe = regexp.MustCompile(`(?i)\bREDEFINES\s+([A-Za-z0-9-]+)`)
	comp3Re     = regexp.MustCompile(`(?i)\b(?:COMP-3|COMPUTATIONAL-3|PACKED-DECIMAL)\b`)
	compRe      = regexp.MustCompile(`(?i)\b(?:COMP-4|COMPUTATIONAL-4|COMP|COMPUTATIONAL|BINARY)\b`)
	directiveRe = regexp.MustCompile(`(?i)^(SKIP[1-3]?|EJECT|COPY\b.*|TITLE\b.*)\.?$`)
)

// Schema is the parsed copybook: the field tree plus the 88-level rules
// extracted from the same normalized lines.
type Schema struct {
	Root  *Field
	Rules *RuleSet
}

// Parse normalizes copybook source and builds the schema tree and validation
// rules. Structural failures (malformed PIC, bad level sequencing, missing
// REDEFINES targets) abort the build; no partial schema is returned.
func Parse(source string) (*Schema, error) {
	lines := Normalize(source)
	root, err := buildTree(lines)
	if err != nil {
		return nil, err
	}
	if _, lerr := root.layout(0); lerr != nil {
		return nil, lerr
	}
	rules := extractRules(lines)
	return &Schema{Root: root, Rules: rules}, nil
}

// buildTree runs the level-number stack over the normalized lines. The stack
// holds the current root-to-leaf path; a new entry pops every node whose
// level is greater than or equal to its own and attaches to whatever remains.
func buildTree(lines []Line) (*Field, *Error) {
	logger := common.Logger()
	root := &Field{Level: 0, Name: "RECORD"}
	stack := []*Field{root}

	for _, line := range lines {
		text := strings.TrimSuffix(strings.TrimSpace(line.Text), ".")
		if text == "" || directiveRe.MatchString(text) {
			continue
		}
		match := entryRe.FindStringSubmatch(text)
		if match == nil {
			return nil, structureErrorf(line.Number, "unrecognized copybook entry: %s", line.Text)
		}
		level, _ := strconv.Atoi(match[1])
		name := strings.ToUpper(match[2])
		clause := match[3]
		if level == 88 {
			continue // conditional names are handled by the rule extractor
		}
		if level < 1 || level > 49 {
			return nil, structureErrorf(line.Number, "level %02d outside the supported 01-49 range", level)
		}

		field := &Field{Level: level, Name: name, Line: line.Number}
		if m := occursRe.FindStringSubmatch(clause); m != nil {
			field.Occurs, _ = strconv.Atoi(m[1])
			if field.Occurs < 1 {
				return nil, structureErrorf(line.Number, "OCCURS count must be at least 1 for %s", name)
			}
		}
		if m := redefinesRe.FindStringSubmatch(clause); m != nil {
			field.Redefines = strings.ToUpper(m[1])
		}
		if comp3Re.MatchString(clause) {
			field.Usage = UsageComp3
		} else if compRe.MatchString(clause) {
			field.Usage = UsageComp
		}
		if m := picRe.FindStringSubmatch(clause); m != nil {
			field.Pic = strings.ToUpper(m[1])
			pic, ok := parsePicture(field.Pic)
			if !ok {
				return nil, unsupportedErrorf(line.Number, "unsupported PIC pattern %q in: %s", field.Pic, line.Text)
			}
			length, ok := byteLength(pic, field.Usage)
			if !ok {
				return nil, unsupportedErrorf(line.Number, "usage %s incompatible with PIC %s for %s", field.Usage, field.Pic, name)
			}
			if field.Usage == "" {
				field.Usage = UsageDisplay
			}
			field.ByteLen = length
			field.Signed = pic.signed
			field.Digits = pic.digits
			field.Scale = pic.scale
			field.Numeric = pic.numeric
		} else if field.Usage != "" {
			return nil, unsupportedErrorf(line.Number, "usage %s requires a PIC clause for %s", field.Usage, name)
		}

		for len(stack) > 1 && stack[len(stack)-1].Level >= level {
			stack = stack[:len(stack)-1]
		}
		parent := stack[len(stack)-1]
		if parent.Pic != "" {
			logger.Warn("copybook: group parent carries a PIC clause", "parent", parent.Name, "child", name, "line", line.Number)
		}
		parent.Children = append(parent.Children, field)
		stack = append(stack, field)
	}
	return root, nil
}
