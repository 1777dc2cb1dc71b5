// Package search implements the catalog search engine: a per-rule text
// cache and a tokenized AND-matching query filter.
package search

import (
	"regexp"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"rulescope/core"
)

// Mode selects which rule fields participate in a search.
type Mode string

const (
	// ModeTitle searches title, path and logsource fields only.
	ModeTitle Mode = "title"
	// ModeYAML searches the full raw document plus path and logsource.
	ModeYAML Mode = "yaml"
)

// Valid reports whether m is a known search mode.
func (m Mode) Valid() bool {
	return m == ModeTitle || m == ModeYAML
}

// Label returns the human-readable scope name used in the status line.
func (m Mode) Label() string {
	if m == ModeTitle {
		return "titles"
	}
	return "full YAML"
}

// Entry holds the three searchable representations of a rule's text:
// the case-folded original, a symbol-normalized form where separator and
// punctuation runs collapse to single spaces, and a whitespace-free
// variant of the normalized form.
type Entry struct {
	Lower      string
	Normalized string
	Compact    string
}

var (
	separatorRe  = regexp.MustCompile(`[-_/]+`)
	symbolRe     = regexp.MustCompile(`[^a-z0-9 ]+`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Normalize lowercases a string, folds separator runs (-, _, /) to single
// spaces, strips remaining symbols to spaces, and collapses whitespace.
// This makes "win-update", "win_update" and "win update" interchangeable.
func Normalize(value string) string {
	s := strings.ToLower(value)
	s = separatorRe.ReplaceAllString(s, " ")
	s = symbolRe.ReplaceAllString(s, " ")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// buildEntry derives all three representations from the raw search text.
func buildEntry(value string) *Entry {
	normalized := Normalize(value)
	return &Entry{
		Lower:      strings.ToLower(value),
		Normalized: normalized,
		Compact:    strings.ReplaceAll(normalized, " ", ""),
	}
}

// Cache memoizes search entries per rule per mode. It is a side table keyed
// by rule path so rules themselves stay immutable. Entries are never
// explicitly invalidated: rule content is fixed for the lifetime of the
// corpus, so eviction (capacity pressure) is the only way out.
type Cache struct {
	entries *lru.Cache[string, *Entry]
}

// NewCache creates a cache bounded to size entries across both modes.
func NewCache(size int) (*Cache, error) {
	entries, err := lru.New[string, *Entry](size)
	if err != nil {
		return nil, err
	}
	return &Cache{entries: entries}, nil
}

// Entry returns the cached representations for a rule under the given mode,
// building them on first use.
func (c *Cache) Entry(rule *core.Rule, mode Mode) *Entry {
	key := string(mode) + "\x00" + rule.Path
	if entry, ok := c.entries.Get(key); ok {
		return entry
	}
	entry := buildEntry(searchText(rule, mode))
	c.entries.Add(key, entry)
	return entry
}

// Len returns the number of cached entries, for metrics and tests.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// searchText concatenates the mode's constituent fields.
func searchText(rule *core.Rule, mode Mode) string {
	base := rule.YAML
	if mode == ModeTitle {
		base = rule.Title
	}
	parts := []string{
		base,
		rule.Path,
		rule.Logsource.Product,
		rule.Logsource.Category,
		rule.Logsource.Service,
	}
	return strings.Join(parts, " ")
}
