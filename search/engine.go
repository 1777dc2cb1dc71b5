package search

import (
	"strings"

	ac "github.com/petar-dambovaliev/aho-corasick"

	"rulescope/core"
)

// Engine filters a rule corpus by free-text queries. Matching is substring
// based with AND semantics across tokens: a rule qualifies only when every
// token appears either verbatim in the rule's case-folded text or, in
// symbol-normalized form, in the rule's normalized text.
type Engine struct {
	cache *Cache
}

// NewEngine creates an engine backed by the given entry cache.
func NewEngine(cache *Cache) *Engine {
	return &Engine{cache: cache}
}

// token carries both representations a query token can match under.
type token struct {
	raw        string
	normalized string
}

// Filter returns the rules matching query under mode, preserving corpus
// order. An empty or whitespace-only query returns the whole corpus.
func (e *Engine) Filter(rules []*core.Rule, query string, mode Mode) []*core.Rule {
	tokens := tokenize(query)
	if len(tokens) == 0 {
		out := make([]*core.Rule, len(rules))
		copy(out, rules)
		return out
	}

	// A single automaton over every token representation serves as a cheap
	// prefilter: a rule containing none of the patterns anywhere cannot
	// satisfy AND semantics, so the per-token verification is skipped.
	prefilter := buildPrefilter(tokens)

	out := make([]*core.Rule, 0, len(rules))
	for _, rule := range rules {
		entry := e.cache.Entry(rule, mode)
		if prefilter != nil {
			haystack := entry.Lower + "\x00" + entry.Normalized
			if len(prefilter.FindAll(haystack)) == 0 {
				continue
			}
		}
		if matchesAll(entry, tokens) {
			out = append(out, rule)
		}
	}
	return out
}

// tokenize splits a query into lowercase whitespace-separated tokens,
// precomputing each token's normalized form.
func tokenize(query string) []token {
	fields := strings.Fields(strings.ToLower(query))
	tokens := make([]token, 0, len(fields))
	for _, f := range fields {
		tokens = append(tokens, token{raw: f, normalized: Normalize(f)})
	}
	return tokens
}

// matchesAll applies the dual-representation check to every token.
func matchesAll(entry *Entry, tokens []token) bool {
	for _, t := range tokens {
		if strings.Contains(entry.Lower, t.raw) {
			continue
		}
		if t.normalized != "" && strings.Contains(entry.Normalized, t.normalized) {
			continue
		}
		return false
	}
	return true
}

// buildPrefilter assembles the literal automaton for multi-token queries.
// Single-token queries skip it: one strings.Contains beats automaton setup.
func buildPrefilter(tokens []token) *ac.AhoCorasick {
	if len(tokens) < 2 {
		return nil
	}
	seen := make(map[string]struct{}, len(tokens)*2)
	patterns := make([]string, 0, len(tokens)*2)
	for _, t := range tokens {
		for _, p := range []string{t.raw, t.normalized} {
			if p == "" {
				continue
			}
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			patterns = append(patterns, p)
		}
	}
	if len(patterns) == 0 {
		return nil
	}
	builder := ac.NewAhoCorasickBuilder(ac.Opts{
		MatchKind: ac.LeftMostLongestMatch,
	})
	automaton := builder.Build(patterns)
	return &automaton
}
