// File path: internal/copybook/rules.go
package copybook

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/nicodishanthj/copybase/internal/common"
)

var (
	valueClauseRe = regexp.MustCompile(`(?i)\bVALUES?\b(?:\s+(?:IS|ARE)\b)?\s*(.*)$`)
	quotedRe      = regexp.MustCompile(`'([^']*)'|"([^"]*)"`)
)

// RuleSet maps owning field names to their 88-level conditional values.
// Fields replicated by OCCURS carry one key per instance (NAME_1..NAME_N);
// the un-numbered base key is present only when the owner is not itself
// nested inside an OCCURS block.
type RuleSet struct {
	Values map[string][]string          `json:"values"`
	Names  map[string]map[string]string `json:"names"`
	Count  int                          `json:"count"`
}

// Symbol resolves the symbolic 88-level name(s) for a decoded value, trying
// the OCCURS-expanded key for the given 1-based occurrence ordinal before the
// base key. Empty when no rule matches; an unmatched value is not an error.
func (r *RuleSet) Symbol(field string, ordinal int, value string) string {
	if r == nil {
		return ""
	}
	if m, ok := r.Names[fmt.Sprintf("%s_%d", field, ordinal)]; ok {
		return m[value]
	}
	if m, ok := r.Names[field]; ok {
		return m[value]
	}
	return ""
}

type occursBlock struct {
	level int
	count int
}

// extractRules makes a single forward pass over the normalized lines,
// maintaining the same level discipline as the tree builder. The stack of
// open OCCURS blocks at the moment a field is declared fixes how its 88
// entries replicate; an 88 line always follows its owner, so ownership never
// needs a backward scan.
func extractRules(lines []Line) *RuleSet {
	logger := common.Logger()
	rules := &RuleSet{
		Values: make(map[string][]string),
		Names:  make(map[string]map[string]string),
	}

	var (
		stack     []occursBlock
		ownerKeys []string
	)
	for _, line := range lines {
		text := strings.TrimSuffix(strings.TrimSpace(line.Text), ".")
		match := entryRe.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		level, _ := strconv.Atoi(match[1])
		name := strings.ToUpper(match[2])
		clause := match[3]

		if level == 88 {
			if len(ownerKeys) == 0 {
				logger.Warn("copybook: 88-level entry has no owning field, dropped", "name", name, "line", line.Number)
				continue
			}
			values := parseConditionValues(clause)
			if len(values) == 0 {
				logger.Warn("copybook: 88-level entry carries no values", "name", name, "line", line.Number)
				continue
			}
			for _, key := range ownerKeys {
				names := rules.Names[key]
				if names == nil {
					names = make(map[string]string)
					rules.Names[key] = names
				}
				for _, value := range values {
					if _, seen := names[value]; !seen {
						rules.Values[key] = append(rules.Values[key], value)
						names[value] = name
					} else {
						// later 88 names for the same value append, never overwrite
						names[value] = names[value] + "," + name
					}
				}
			}
			rules.Count++
			continue
		}

		for len(stack) > 0 && stack[len(stack)-1].level >= level {
			stack = stack[:len(stack)-1]
		}
		nested := len(stack) > 0
		multiplier := 1
		for _, block := range stack {
			multiplier *= block.count
		}
		occurs := 1
		if m := occursRe.FindStringSubmatch(clause); m != nil {
			occurs, _ = strconv.Atoi(m[1])
			if occurs < 1 {
				occurs = 1
			}
			stack = append(stack, occursBlock{level: level, count: occurs})
		}
		ownerKeys = expandKeys(name, multiplier*occurs, nested)
	}
	return rules
}

// expandKeys produces the rule keys for a field with the given total instance
// count. Fields inside an OCCURS block emit only numbered instances; a field
// whose repetition comes solely from its own OCCURS clause also keeps the
// base key.
func expandKeys(name string, instances int, nested bool) []string {
	if instances <= 1 {
		return []string{name}
	}
	keys := make([]string, 0, instances+1)
	if !nested {
		keys = append(keys, name)
	}
	for i := 1; i <= instances; i++ {
		keys = append(keys, fmt.Sprintf("%s_%d", name, i))
	}
	return keys
}

// parseConditionValues extracts the literal list following VALUE/VALUES.
// Quoted strings are the primary grammar; when none are present the clause
// falls back to bare word and number tokens, a best-effort path for literals
// like figurative constants or unquoted numerics.
func parseConditionValues(clause string) []string {
	match := valueClauseRe.FindStringSubmatch(clause)
	if match == nil {
		return nil
	}
	remainder := strings.TrimSpace(match[1])
	if quoted := quotedRe.FindAllStringSubmatch(remainder, -1); len(quoted) > 0 {
		values := make([]string, 0, len(quoted))
		for _, q := range quoted {
			if q[1] != "" || strings.HasPrefix(q[0], "'") {
				values = append(values, q[1])
			} else {
				values = append(values, q[2])
			}
		}
		return values
	}
	var values []string
	for _, token := range strings.Fields(remainder) {
		token = strings.TrimSuffix(token, ".")
		switch strings.ToUpper(token) {
		case "", "THRU", "THROUGH", "IS", "ARE":
			continue
		}
		values = append(values, token)
	}
	return values
}
