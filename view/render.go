package view

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"rulescope/core"
	"rulescope/detection"
	"rulescope/flowchart"
)

// StatusLine builds the result-count line above the list.
func StatusLine(s Snapshot) string {
	showing := len(s.Visible)
	if strings.TrimSpace(s.Query) != "" {
		return fmt.Sprintf("Found %d matching rules. Showing %d. (%s)", s.Total, showing, s.Mode.Label())
	}
	return fmt.Sprintf("Showing %d of %d rules. (%s)", showing, s.Total, s.Mode.Label())
}

// HasMore reports whether the load-more control should stay enabled.
func HasMore(s Snapshot) bool {
	return len(s.Visible) < s.Total
}

// RenderCard renders one rule summary card.
func RenderCard(rule *core.Rule, index int, active bool) string {
	var b strings.Builder

	class := "card"
	if active {
		class += " active"
	}
	fmt.Fprintf(&b, `<div class="%s" data-index="%d">`, class, index)

	title := rule.Title
	if title == "" {
		title = rule.Path
	}
	fmt.Fprintf(&b, "<h3 title=\"%s\">%s</h3>", html.EscapeString(title), html.EscapeString(title))
	fmt.Fprintf(&b, `<p class="card-path card-meta" title="%s">%s</p>`, html.EscapeString(rule.Path), html.EscapeString(rule.Path))
	fmt.Fprintf(&b, `<p class="card-meta">%s</p>`, html.EscapeString(rule.DisplayDate()))

	var tags []string
	if rule.Status != "" {
		tags = append(tags, rule.Status)
	}
	if rule.Level != "" {
		tags = append(tags, rule.Level)
	}
	if rule.Logsource.Product != "" {
		tags = append(tags, "product:"+rule.Logsource.Product)
	}
	if rule.Logsource.Category != "" {
		tags = append(tags, "category:"+rule.Logsource.Category)
	}
	if rule.Logsource.Service != "" {
		tags = append(tags, "service:"+rule.Logsource.Service)
	}
	if len(tags) > 0 {
		b.WriteString(`<div class="tag-row">`)
		for _, tag := range tags {
			fmt.Fprintf(&b, `<span class="tag">%s</span>`, html.EscapeString(tag))
		}
		b.WriteString("</div>")
	}

	b.WriteString("</div>")
	return b.String()
}

// RenderList renders the visible cards for the current snapshot.
func RenderList(s Snapshot) string {
	var b strings.Builder
	for i, rule := range s.Visible {
		b.WriteString(RenderCard(rule, i, i == s.Selected))
	}
	return b.String()
}

// RenderRaw renders the annotated raw-text view of a rule: HTML-escaped
// YAML with every query token marked and the transient highlight line
// wrapped, inside a pre element, plus the clipboard control.
func RenderRaw(rule *core.Rule, s Snapshot) string {
	return "<pre>" + HighlightYAML(rule.YAML, s.Query, s.HighlightLine) + "</pre>" +
		`<button type="button" class="copy-btn">Copy YAML</button>`
}

// RenderSummary renders the structured summary view from parsed fields.
func RenderSummary(rule *core.Rule, fields detection.RuleFields) string {
	var b strings.Builder
	b.WriteString(`<div class="summary-view">`)

	section := func(title, body string) {
		fmt.Fprintf(&b, `<div class="summary-section"><h4>%s</h4>%s</div>`, title, body)
	}

	if fields.Description != "" {
		section("Description", "<p>"+html.EscapeString(fields.Description)+"</p>")
	}
	if fields.Author != "" {
		section("Author", "<p>"+html.EscapeString(fields.Author)+"</p>")
	}
	if len(fields.References) > 0 {
		var list strings.Builder
		list.WriteString(`<ul class="summary-list">`)
		for _, ref := range fields.References {
			escaped := html.EscapeString(ref)
			fmt.Fprintf(&list, `<li><a href="%s" target="_blank" rel="noopener noreferrer">%s</a></li>`, escaped, escaped)
		}
		list.WriteString("</ul>")
		section("References", list.String())
	}
	if len(fields.Tags) > 0 {
		var tags strings.Builder
		tags.WriteString(`<div class="summary-tags">`)
		for _, tag := range fields.Tags {
			fmt.Fprintf(&tags, `<span class="tag">%s</span>`, html.EscapeString(tag))
		}
		tags.WriteString("</div>")
		section("Tags", tags.String())
	}
	if ls := rule.Logsource; ls.Product != "" || ls.Category != "" || ls.Service != "" {
		var body strings.Builder
		body.WriteString(`<div class="summary-logsource">`)
		if ls.Product != "" {
			fmt.Fprintf(&body, "<p><strong>Product:</strong> %s</p>", html.EscapeString(ls.Product))
		}
		if ls.Category != "" {
			fmt.Fprintf(&body, "<p><strong>Category:</strong> %s</p>", html.EscapeString(ls.Category))
		}
		if ls.Service != "" {
			fmt.Fprintf(&body, "<p><strong>Service:</strong> %s</p>", html.EscapeString(ls.Service))
		}
		body.WriteString("</div>")
		section("Logsource", body.String())
	}
	if len(fields.FalsePositives) > 0 {
		var list strings.Builder
		list.WriteString(`<ul class="summary-list">`)
		for _, fp := range fields.FalsePositives {
			fmt.Fprintf(&list, "<li>%s</li>", html.EscapeString(fp))
		}
		list.WriteString("</ul>")
		section("False Positives", list.String())
	}

	b.WriteString(`<button type="button" class="detection-btn" data-view="flowchart">View Detection Logic</button>`)
	b.WriteString("</div>")
	return b.String()
}

// RenderFlowchart renders the flowchart container. The Mermaid source is
// carried in a pre element the browser-side library picks up; when the
// parse found no detection logic, an explicit placeholder appears instead.
func RenderFlowchart(result detection.Result, diagram flowchart.Diagram) string {
	if !result.Found {
		return `<p class="flowchart-missing">No detection logic found in this rule.</p>`
	}
	var b strings.Builder
	b.WriteString(`<div class="flowchart">`)
	fmt.Fprintf(&b, `<pre class="mermaid">%s</pre>`, html.EscapeString(diagram.Source))
	b.WriteString("</div>")
	b.WriteString(`<button type="button" class="open-modal-btn" data-action="open-modal">Open Flowchart</button>`)
	return b.String()
}

// RenderFlowchartModal renders the modal overlay: the same diagram in a
// larger zoomable surface with its own zoom and close controls.
func RenderFlowchartModal(diagram flowchart.Diagram, zoom float64) string {
	var b strings.Builder
	b.WriteString(`<div class="flowchart-modal open">`)
	b.WriteString(`<div class="flowchart-modal-content">`)
	b.WriteString(`<div class="flowchart-modal-toolbar">`)
	b.WriteString(`<button type="button" data-zoom="out">&minus;</button>`)
	b.WriteString(`<button type="button" data-zoom="reset">Reset</button>`)
	b.WriteString(`<button type="button" data-zoom="in">&plus;</button>`)
	b.WriteString(`<button type="button" class="flowchart-modal-close" data-action="close-modal">&times;</button>`)
	b.WriteString("</div>")
	fmt.Fprintf(&b, `<div class="flowchart" data-zoom="%.1f">`, zoom)
	fmt.Fprintf(&b, `<pre class="mermaid">%s</pre>`, html.EscapeString(diagram.Source))
	b.WriteString("</div></div></div>")
	return b.String()
}

// HighlightYAML escapes the raw text for HTML and layers two annotations:
// every query token wrapped in mark elements, and the transient highlight
// line wrapped in a span. Token marking runs first so the token regex can
// never match inside markup this function added itself.
func HighlightYAML(text, query string, highlightLine int) string {
	escaped := html.EscapeString(text)
	escaped = markTokens(escaped, query)

	if highlightLine <= 0 {
		return escaped
	}

	lines := strings.Split(escaped, "\n")
	if highlightLine <= len(lines) {
		idx := highlightLine - 1
		lines[idx] = `<span class="highlight-line">` + lines[idx] + "</span>"
	}
	return strings.Join(lines, "\n")
}

// markTokens wraps case-insensitive occurrences of each query token in
// mark elements. Tokens are HTML-escaped before matching because the text
// they run against is already escaped.
func markTokens(escaped, query string) string {
	fields := strings.Fields(strings.ToLower(query))
	if len(fields) == 0 {
		return escaped
	}

	patterns := make([]string, 0, len(fields))
	for _, token := range fields {
		patterns = append(patterns, regexp.QuoteMeta(html.EscapeString(token)))
	}
	re, err := regexp.Compile("(?i)(" + strings.Join(patterns, "|") + ")")
	if err != nil {
		return escaped
	}
	return re.ReplaceAllString(escaped, "<mark>$1</mark>")
}
