// Package detection extracts structured detection logic from the raw YAML
// text of a rule. It is deliberately a line-oriented scanner, not a YAML
// parser: rule documents in the wild carry formatting a strict parser would
// choke on, and the only consumers are the flowchart compiler and the
// summary view, both of which degrade gracefully on partial results.
package detection

import (
	"regexp"
	"strings"
)

// Field is one field predicate inside a selection group: a field name
// (possibly carrying a match-operator suffix like "Image|endswith") and the
// expected values.
type Field struct {
	Name   string
	Values []string
}

// Group is a named selection block with its field predicates and the
// 1-based line number of its heading in the original document.
type Group struct {
	Name   string
	Fields []Field
	Line   int
}

// Result is the parsed detection logic of one rule. Found is false when the
// document has no detection block at all; an empty Groups slice with Found
// true means the block exists but nothing usable was recognized.
type Result struct {
	Found         bool
	Groups        []Group
	Condition     string
	ConditionLine int
}

var (
	detectionKeyRe = regexp.MustCompile(`^detection:\s*$`)
	topLevelKeyRe  = regexp.MustCompile(`^\w+:`)
	groupHeadRe    = regexp.MustCompile(`^\s{4}(\w+):\s*$`)
	fieldRe        = regexp.MustCompile(`^\s{8,}([^#\s-][^:]*?):\s*(.*)$`)
	listItemRe     = regexp.MustCompile(`^\s{12,}-\s+['"]?(.+?)['"]?\s*$`)
	fieldStartRe   = regexp.MustCompile(`^\s{8,}[^#\s-]`)
	conditionRe    = regexp.MustCompile(`^\s{4}condition:\s*(.*)$`)
)

// reserved keys at group-heading depth that never start a selection.
func isReservedKey(name string) bool {
	return name == "condition" || name == "timeframe"
}

// Parse scans the raw document for its detection block and extracts the
// selection groups, field predicates and condition expression. It never
// fails: malformed input yields partial or empty results.
func Parse(doc string) Result {
	lines := strings.Split(doc, "\n")

	detectionIdx := -1
	for i, line := range lines {
		if detectionKeyRe.MatchString(line) {
			detectionIdx = i
			break
		}
	}
	if detectionIdx == -1 {
		return Result{Found: false}
	}

	// The block runs from the line after the key to the next top-level key
	// or end of document.
	end := len(lines)
	for i := detectionIdx + 1; i < len(lines); i++ {
		if topLevelKeyRe.MatchString(lines[i]) {
			end = i
			break
		}
	}
	block := lines[detectionIdx+1 : end]

	result := Result{Found: true, Condition: "unknown"}

	var current *Group
	closeGroup := func() {
		if current != nil && len(current.Fields) > 0 {
			result.Groups = append(result.Groups, *current)
		}
		current = nil
	}

	for i, line := range block {
		if m := groupHeadRe.FindStringSubmatch(line); m != nil && !isReservedKey(m[1]) {
			closeGroup()
			current = &Group{
				Name: m[1],
				// +2: one for 0-based to 1-based, one for the detection
				// key line itself sitting above the block.
				Line: detectionIdx + i + 2,
			}
			continue
		}

		if m := conditionRe.FindStringSubmatch(line); m != nil {
			// First condition wins: value and line number must always
			// refer to the same line.
			if result.ConditionLine == 0 {
				if trimmed := strings.TrimSpace(m[1]); trimmed != "" {
					result.Condition = trimmed
				}
				result.ConditionLine = detectionIdx + i + 2
			}
			continue
		}

		if current == nil {
			continue
		}

		if m := fieldRe.FindStringSubmatch(line); m != nil {
			name := strings.TrimSpace(m[1])
			value := strings.TrimSpace(m[2])
			if value != "" {
				current.Fields = append(current.Fields, Field{
					Name:   name,
					Values: []string{stripQuotes(value)},
				})
				continue
			}
			// Empty inline value: collect the dash-item list below.
			values := collectListValues(block, i+1)
			if len(values) > 0 {
				current.Fields = append(current.Fields, Field{Name: name, Values: values})
			}
		}
	}
	closeGroup()

	return result
}

// collectListValues gathers dash-prefixed items starting at line index
// start, stopping at the next field boundary or end of block. Lines that
// are neither items nor boundaries (comments, blanks) are skipped.
func collectListValues(block []string, start int) []string {
	var values []string
	for j := start; j < len(block); j++ {
		line := block[j]
		if m := listItemRe.FindStringSubmatch(line); m != nil {
			values = append(values, strings.TrimSpace(m[1]))
			continue
		}
		if fieldStartRe.MatchString(line) {
			break
		}
	}
	return values
}

// stripQuotes removes one layer of matching surrounding quotes.
func stripQuotes(value string) string {
	if len(value) >= 2 {
		first, last := value[0], value[len(value)-1]
		if (first == '\'' && last == '\'') || (first == '"' && last == '"') {
			return value[1 : len(value)-1]
		}
	}
	return value
}
