// Package flowchart compiles parsed detection logic into a Mermaid
// flowchart description. Layout and SVG drawing belong to the rendering
// library in the browser; this package owns only the translation and the
// click-target table that maps diagram nodes back to source lines.
package flowchart

import (
	"fmt"
	"regexp"
	"strings"

	"rulescope/detection"
)

// maxFieldValues caps how many values a node label lists per field.
const maxFieldValues = 3

// maxConditionLabel caps the condition label length in runes.
const maxConditionLabel = 120

// Target binds a diagram node to the 1-based source line its heading
// occupies, enabling flowchart-to-raw-view navigation.
type Target struct {
	NodeID string `json:"node_id"`
	Line   int    `json:"line"`
}

// Diagram is the compiled output: Mermaid source plus click targets.
type Diagram struct {
	Source  string   `json:"source"`
	Targets []Target `json:"targets"`
}

// mermaidEscaper rewrites characters that would break node or edge syntax.
// This is Mermaid escaping, not HTML escaping - the two must not be mixed.
var mermaidEscaper = strings.NewReplacer(
	`"`, "#quot;",
	"\n", "<br/>",
	"*", "#42;",
	"_", "#95;",
	"~", "#126;",
)

func escapeLabel(text string) string {
	return mermaidEscaper.Replace(text)
}

var (
	andRe = regexp.MustCompile(`(?i)\s+(and)\s+`)
	orRe  = regexp.MustCompile(`(?i)\s+(or)\s+`)
	ofRe  = regexp.MustCompile(`(?i)\s+(of)\s+`)
)

// conditionLabel escapes the condition and inserts line breaks around the
// logical operators so long expressions wrap readably.
func conditionLabel(condition string) string {
	label := escapeLabel(condition)
	label = andRe.ReplaceAllString(label, "<br/>$1 ")
	label = orRe.ReplaceAllString(label, "<br/>$1 ")
	label = ofRe.ReplaceAllString(label, " $1<br/>")
	if runes := []rune(label); len(runes) > maxConditionLabel {
		label = string(runes[:maxConditionLabel]) + "..."
	}
	return label
}

// fieldLabel renders one field predicate for a node label, listing at most
// maxFieldValues values before summarizing the rest.
func fieldLabel(field detection.Field) string {
	name := escapeLabel(field.Name)
	if len(field.Values) == 1 {
		return fmt.Sprintf("%s: %s", name, escapeLabel(field.Values[0]))
	}

	shown := field.Values
	if len(shown) > maxFieldValues {
		shown = shown[:maxFieldValues]
	}
	escaped := make([]string, 0, len(shown))
	for _, v := range shown {
		escaped = append(escaped, escapeLabel(v))
	}
	label := fmt.Sprintf("%s:<br/> - %s", name, strings.Join(escaped, "<br/> - "))
	if remaining := len(field.Values) - maxFieldValues; remaining > 0 {
		label += fmt.Sprintf("<br/> - (and %d more)", remaining)
	}
	return label
}

// Compile translates a parse result into a Mermaid flowchart. For k groups
// the diagram has k start edges, k group-to-condition edges and two
// condition branches; with no groups it collapses to a single start-to-
// alert edge and no condition node.
func Compile(result detection.Result) Diagram {
	var b strings.Builder
	b.WriteString("flowchart TD\n")
	b.WriteString("    Start([Detection Start])\n")

	var targets []Target

	if len(result.Groups) > 0 {
		for i, group := range result.Groups {
			nodeID := fmt.Sprintf("Sel%d", i)

			label := "<b>" + escapeLabel(group.Name) + "</b>"
			for _, field := range group.Fields {
				label += "<br/>" + fieldLabel(field)
			}
			fmt.Fprintf(&b, "    Start --> %s[\"%s\"]\n", nodeID, label)

			targets = append(targets, Target{NodeID: nodeID, Line: group.Line})
		}
		for i := range result.Groups {
			fmt.Fprintf(&b, "    Sel%d --> Condition\n", i)
		}

		fmt.Fprintf(&b, "    Condition{\"%s\"} -->|Match| Alert[Alert]\n", conditionLabel(result.Condition))
		b.WriteString("    Condition -->|No Match| NoMatch[No Match]\n")

		if result.ConditionLine > 0 {
			targets = append(targets, Target{NodeID: "Condition", Line: result.ConditionLine})
		}
	} else {
		b.WriteString("    Start --> Alert[Alert]\n")
	}

	b.WriteString("    style Start fill:#fffdfa,stroke:#d29a61,stroke-width:2px\n")
	b.WriteString("    style Alert fill:#d29a61,stroke:#a46b33,stroke-width:3px\n")
	if len(result.Groups) > 0 {
		b.WriteString("    style NoMatch fill:#f7efe5,stroke:#c5b7a8,stroke-width:1px\n")
		b.WriteString("    style Condition fill:#fff2e3,stroke:#a46b33,stroke-width:2px\n")
		for i := range result.Groups {
			fmt.Fprintf(&b, "    style Sel%d fill:#ffffff,stroke:#d29a61,stroke-width:2px\n", i)
		}
	}

	return Diagram{Source: b.String(), Targets: targets}
}
