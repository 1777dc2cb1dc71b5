// Package core defines the rule catalog data model shared by all components.
package core

import (
	"sort"
	"strings"
	"time"
)

// Logsource identifies where a rule's events come from.
type Logsource struct {
	Raw      string `json:"raw,omitempty"`
	Product  string `json:"product,omitempty"`
	Category string `json:"category,omitempty"`
	Service  string `json:"service,omitempty"`
}

// Rule is one detection rule document loaded from the prebuilt index.
// Path is the unique identifier; YAML carries the full raw document.
// Rules are immutable once loaded - derived search text lives in a side
// table, never on the rule itself.
type Rule struct {
	Path      string    `json:"path"`
	ID        string    `json:"id,omitempty"`
	Title     string    `json:"title"`
	YAML      string    `json:"yaml"`
	Status    string    `json:"status,omitempty"`
	Level     string    `json:"level,omitempty"`
	Date      string    `json:"date,omitempty"`
	Modified  string    `json:"modified,omitempty"`
	Logsource Logsource `json:"logsource,omitempty"`
}

// Index is the payload shape of data/rules.json.
type Index struct {
	Count             int     `json:"count"`
	BuildTime         string  `json:"build_time,omitempty"`
	GitLastCommit     string  `json:"git_last_commit,omitempty"`
	GitLastCommitDate string  `json:"git_last_commit_date,omitempty"`
	GeneratedFrom     string  `json:"generated_from,omitempty"`
	Rules             []*Rule `json:"rules"`
}

// dateLayouts covers the date formats seen in rule metadata.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ParseRuleDate parses a rule date string leniently. Unparsable or empty
// values return the zero time.
func ParseRuleDate(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}

// EffectiveDate returns the rule's modification date, falling back to its
// creation date, then the zero time.
func (r *Rule) EffectiveDate() time.Time {
	if t := ParseRuleDate(r.Modified); !t.IsZero() {
		return t
	}
	return ParseRuleDate(r.Date)
}

// DisplayDate returns the date string shown on summary cards.
func (r *Rule) DisplayDate() string {
	if r.Modified != "" {
		return r.Modified
	}
	if r.Date != "" {
		return r.Date
	}
	return "date: unknown"
}

// SortRules orders rules by descending effective date, breaking ties by
// ascending title. Rules without a resolvable date sort as if dated at the
// epoch. The sort is stable so equal entries keep their load order.
func SortRules(rules []*Rule) {
	sort.SliceStable(rules, func(i, j int) bool {
		di, dj := rules[i].EffectiveDate(), rules[j].EffectiveDate()
		if !di.Equal(dj) {
			return di.After(dj)
		}
		return strings.Compare(rules[i].Title, rules[j].Title) < 0
	})
}
