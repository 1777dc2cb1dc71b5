package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rulescope/core"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	cache, err := NewCache(128)
	require.NoError(t, err)
	return NewEngine(cache)
}

func testCorpus() []*core.Rule {
	return []*core.Rule{
		{Path: "a.yml", Title: "Windows Update Tampering", YAML: "title: Windows Update Tampering\ndescription: Detects win-update.exe abuse"},
		{Path: "b.yml", Title: "Linux Cron Persistence", YAML: "title: Linux Cron Persistence\ndescription: crontab manipulation"},
		{Path: "c.yml", Title: "PowerShell Download", YAML: "title: PowerShell Download\ndescription: Invoke-WebRequest usage"},
	}
}

func TestFilter_EmptyQueryReturnsWholeCorpus(t *testing.T) {
	engine := newTestEngine(t)
	rules := testCorpus()

	for _, query := range []string{"", "   ", "\t\n"} {
		got := engine.Filter(rules, query, ModeYAML)
		require.Len(t, got, 3, "query %q", query)
		// Corpus order preserved, and the result is a copy.
		assert.Equal(t, rules[0], got[0])
		assert.Equal(t, rules[2], got[2])
	}
}

func TestFilter_ANDSemantics(t *testing.T) {
	engine := newTestEngine(t)
	rules := testCorpus()

	// Both tokens present -> match.
	got := engine.Filter(rules, "windows update", ModeYAML)
	require.Len(t, got, 1)
	assert.Equal(t, "a.yml", got[0].Path)

	// One token missing -> no match.
	got = engine.Filter(rules, "windows xyz", ModeYAML)
	assert.Empty(t, got)
}

func TestFilter_NormalizedBridgesSeparators(t *testing.T) {
	engine := newTestEngine(t)
	rules := testCorpus()

	// "win update" must match "win-update.exe" through normalization.
	got := engine.Filter(rules, "win update", ModeYAML)
	require.NotEmpty(t, got)
	assert.Equal(t, "a.yml", got[0].Path)

	// Query with separators matches separated text too.
	got = engine.Filter(rules, "invoke-webrequest", ModeYAML)
	require.Len(t, got, 1)
	assert.Equal(t, "c.yml", got[0].Path)
}

func TestFilter_ModeScopesFields(t *testing.T) {
	engine := newTestEngine(t)
	rules := testCorpus()

	// "crontab" only appears in the body, not the title.
	assert.Len(t, engine.Filter(rules, "crontab", ModeYAML), 1)
	assert.Empty(t, engine.Filter(rules, "crontab", ModeTitle))

	// Titles are searchable in both modes.
	assert.Len(t, engine.Filter(rules, "powershell", ModeTitle), 1)
}

func TestFilter_Idempotent(t *testing.T) {
	engine := newTestEngine(t)
	rules := testCorpus()

	first := engine.Filter(rules, "windows update", ModeYAML)
	second := engine.Filter(rules, "windows update", ModeYAML)
	assert.Equal(t, first, second)
}

func TestFilter_PreservesCorpusOrder(t *testing.T) {
	engine := newTestEngine(t)
	rules := []*core.Rule{
		{Path: "1.yml", Title: "alpha target", YAML: "target one"},
		{Path: "2.yml", Title: "beta other", YAML: "nothing"},
		{Path: "3.yml", Title: "gamma target", YAML: "target three"},
	}

	got := engine.Filter(rules, "target", ModeYAML)
	require.Len(t, got, 2)
	assert.Equal(t, "1.yml", got[0].Path)
	assert.Equal(t, "3.yml", got[1].Path)
}

func TestFilter_SymbolOnlyToken(t *testing.T) {
	engine := newTestEngine(t)
	rules := []*core.Rule{
		{Path: "1.yml", Title: "Has ** stars", YAML: "body with ** stars"},
		{Path: "2.yml", Title: "No stars", YAML: "plain"},
	}

	// "**" normalizes to empty, so only the verbatim lower check applies.
	got := engine.Filter(rules, "**", ModeYAML)
	require.Len(t, got, 1)
	assert.Equal(t, "1.yml", got[0].Path)
}

func TestTokenize(t *testing.T) {
	tokens := tokenize("  Win-Update   EXE  ")
	require.Len(t, tokens, 2)
	assert.Equal(t, "win-update", tokens[0].raw)
	assert.Equal(t, "win update", tokens[0].normalized)
	assert.Equal(t, "exe", tokens[1].raw)

	assert.Empty(t, tokenize("   "))
}
