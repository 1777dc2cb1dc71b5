package detection

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const basicRule = `title: Suspicious Cmd
status: test
detection:
    selection:
        Image|endswith: '\cmd.exe'
    condition: selection
level: high
`

func TestParse_BasicRoundTrip(t *testing.T) {
	result := Parse(basicRule)

	require.True(t, result.Found)
	require.Len(t, result.Groups, 1)

	group := result.Groups[0]
	assert.Equal(t, "selection", group.Name)
	require.Len(t, group.Fields, 1)
	assert.Equal(t, "Image|endswith", group.Fields[0].Name)
	assert.Equal(t, []string{`\cmd.exe`}, group.Fields[0].Values)

	assert.Equal(t, "selection", result.Condition)

	// Line numbers are 1-based into the original document.
	lines := strings.Split(basicRule, "\n")
	assert.Equal(t, "    selection:", lines[group.Line-1])
	assert.Equal(t, "    condition: selection", lines[result.ConditionLine-1])
}

func TestParse_NoDetectionBlock(t *testing.T) {
	result := Parse("title: Nothing here\nlevel: low\n")
	assert.False(t, result.Found)
	assert.Empty(t, result.Groups)
}

func TestParse_ListValues(t *testing.T) {
	doc := `title: Multi Value
detection:
    selection:
        CommandLine|contains:
            - 'whoami'
            - "net user"
            - ipconfig
    condition: selection
`
	result := Parse(doc)
	require.True(t, result.Found)
	require.Len(t, result.Groups, 1)
	require.Len(t, result.Groups[0].Fields, 1)
	assert.Equal(t, []string{"whoami", "net user", "ipconfig"}, result.Groups[0].Fields[0].Values)
}

func TestParse_MultipleGroups(t *testing.T) {
	doc := `detection:
    selection_img:
        Image|endswith: '\powershell.exe'
    selection_cli:
        CommandLine|contains: '-enc'
    filter:
        User: 'SYSTEM'
    condition: all of selection_* and not filter
`
	result := Parse(doc)
	require.Len(t, result.Groups, 3)
	assert.Equal(t, "selection_img", result.Groups[0].Name)
	assert.Equal(t, "selection_cli", result.Groups[1].Name)
	assert.Equal(t, "filter", result.Groups[2].Name)
	assert.Equal(t, "all of selection_* and not filter", result.Condition)

	// Encounter order and monotonically increasing line numbers.
	assert.Less(t, result.Groups[0].Line, result.Groups[1].Line)
	assert.Less(t, result.Groups[1].Line, result.Groups[2].Line)
}

func TestParse_EmptyGroupDropped(t *testing.T) {
	doc := `detection:
    empty_one:
    selection:
        Image: 'cmd.exe'
    condition: selection
`
	result := Parse(doc)
	require.Len(t, result.Groups, 1)
	assert.Equal(t, "selection", result.Groups[0].Name)
}

func TestParse_TimeframeAndConditionNotGroups(t *testing.T) {
	doc := `detection:
    selection:
        EventID: 4625
    timeframe: 5m
    condition: selection | count() > 10
`
	result := Parse(doc)
	require.Len(t, result.Groups, 1)
	assert.Equal(t, "selection", result.Groups[0].Name)
	assert.Equal(t, "selection | count() > 10", result.Condition)
}

func TestParse_MissingConditionDefaultsUnknown(t *testing.T) {
	doc := `detection:
    selection:
        Image: 'cmd.exe'
`
	result := Parse(doc)
	assert.Equal(t, "unknown", result.Condition)
	assert.Zero(t, result.ConditionLine)
}

func TestParse_FirstConditionWins(t *testing.T) {
	doc := `detection:
    selection:
        Image: 'cmd.exe'
    condition: selection
    condition: selection and filter
`
	result := Parse(doc)
	assert.Equal(t, "selection", result.Condition)
	assert.Equal(t, 4, result.ConditionLine)
}

func TestParse_BlockEndsAtNextTopLevelKey(t *testing.T) {
	doc := `detection:
    selection:
        Image: 'cmd.exe'
    condition: selection
falsepositives:
    unrelated:
        NotAField: value
`
	result := Parse(doc)
	require.Len(t, result.Groups, 1)
	assert.Equal(t, "selection", result.Groups[0].Name)
}

func TestParse_ListTerminatedByNextField(t *testing.T) {
	doc := `detection:
    selection:
        CommandLine|contains:
            - 'first'
            - 'second'
        Image|endswith: '\cmd.exe'
    condition: selection
`
	result := Parse(doc)
	require.Len(t, result.Groups, 1)
	fields := result.Groups[0].Fields
	require.Len(t, fields, 2)
	assert.Equal(t, []string{"first", "second"}, fields[0].Values)
	assert.Equal(t, []string{`\cmd.exe`}, fields[1].Values)
}

func TestParse_MalformedInputDegradesQuietly(t *testing.T) {
	// Weird indentation produces partial or empty results, never a panic.
	docs := []string{
		"detection:\n",
		"detection:\n  two_space_indent:\n      Field: v\n",
		"detection:\n    selection:\n",
		"detection:\ngarbage without structure\n",
	}
	for _, doc := range docs {
		result := Parse(doc)
		assert.True(t, result.Found)
		assert.Empty(t, result.Groups, "doc: %q", doc)
	}
}

func TestParseFields(t *testing.T) {
	doc := `title: Example
description: Detects something suspicious
author: Jane Analyst
references:
    - https://example.com/writeup
    - https://example.com/advisory
tags:
    - attack.execution
    - attack.t1059
falsepositives:
    - Admin scripts
detection:
    selection:
        Image: 'cmd.exe'
    condition: selection
`
	fields := ParseFields(doc)
	assert.Equal(t, "Detects something suspicious", fields.Description)
	assert.Equal(t, "Jane Analyst", fields.Author)
	assert.Equal(t, []string{"https://example.com/writeup", "https://example.com/advisory"}, fields.References)
	assert.Equal(t, []string{"attack.execution", "attack.t1059"}, fields.Tags)
	assert.Equal(t, []string{"Admin scripts"}, fields.FalsePositives)
}

func TestParseFields_Empty(t *testing.T) {
	fields := ParseFields("")
	assert.Empty(t, fields.Description)
	assert.Empty(t, fields.References)
}

func TestParseFields_ListStopsAtNextTopLevelKey(t *testing.T) {
	doc := `references:
    - https://one.example.com
tags:
    - attack.discovery
`
	fields := ParseFields(doc)
	assert.Equal(t, []string{"https://one.example.com"}, fields.References)
	assert.Equal(t, []string{"attack.discovery"}, fields.Tags)
}
