package detection

import (
	"regexp"
	"strings"
)

// RuleFields holds the descriptive metadata shown in the summary view,
// extracted by the same kind of line scanning as the detection parser.
type RuleFields struct {
	Description    string
	Author         string
	References     []string
	Tags           []string
	FalsePositives []string
}

var (
	descriptionRe = regexp.MustCompile(`(?i)^description:\s*['"]?(.+?)['"]?\s*$`)
	authorRe      = regexp.MustCompile(`(?i)^author:\s*['"]?(.+?)['"]?\s*$`)
	listKeyRe     = regexp.MustCompile(`(?i)^(references|tags|falsepositives):\s*$`)
	anyTopKeyRe   = regexp.MustCompile(`(?i)^[a-z]+:`)
	indentItemRe  = regexp.MustCompile(`^\s+-\s+['"]?(.+?)['"]?\s*$`)
)

// ParseFields scans a rule document for its summary metadata. Single-line
// fields win on first occurrence; list fields collect indented dash items
// until the next top-level key.
func ParseFields(doc string) RuleFields {
	var fields RuleFields
	if doc == "" {
		return fields
	}

	lines := strings.Split(doc, "\n")

	for _, line := range lines {
		if fields.Description == "" {
			if m := descriptionRe.FindStringSubmatch(line); m != nil {
				fields.Description = strings.TrimSpace(m[1])
			}
		}
		if fields.Author == "" {
			if m := authorRe.FindStringSubmatch(line); m != nil {
				fields.Author = strings.TrimSpace(m[1])
			}
		}
	}

	currentList := ""
	for _, line := range lines {
		if m := listKeyRe.FindStringSubmatch(line); m != nil {
			currentList = strings.ToLower(m[1])
			continue
		}
		if anyTopKeyRe.MatchString(line) && !strings.HasPrefix(line, " ") {
			currentList = ""
			continue
		}
		if currentList == "" {
			continue
		}
		m := indentItemRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		item := strings.TrimSpace(m[1])
		switch currentList {
		case "references":
			fields.References = append(fields.References, item)
		case "tags":
			fields.Tags = append(fields.Tags, item)
		case "falsepositives":
			fields.FalsePositives = append(fields.FalsePositives, item)
		}
	}

	return fields
}
