package flowchart

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rulescope/detection"
)

func parsed(groups int) detection.Result {
	result := detection.Result{Found: true, Condition: "selection", ConditionLine: 10}
	for i := 0; i < groups; i++ {
		result.Groups = append(result.Groups, detection.Group{
			Name:   "selection",
			Fields: []detection.Field{{Name: "Image", Values: []string{"cmd.exe"}}},
			Line:   4 + i*2,
		})
	}
	return result
}

func TestCompile_EdgeTopology(t *testing.T) {
	for _, k := range []int{1, 2, 5} {
		diagram := Compile(parsed(k))

		startEdges := strings.Count(diagram.Source, "Start --> Sel")
		condEdges := strings.Count(diagram.Source, " --> Condition\n")
		assert.Equal(t, k, startEdges, "k=%d", k)
		assert.Equal(t, k, condEdges, "k=%d", k)
		assert.Equal(t, 1, strings.Count(diagram.Source, "-->|Match|"), "k=%d", k)
		assert.Equal(t, 1, strings.Count(diagram.Source, "-->|No Match|"), "k=%d", k)
	}
}

func TestCompile_ZeroGroups(t *testing.T) {
	diagram := Compile(detection.Result{Found: true, Condition: "unknown"})

	assert.Contains(t, diagram.Source, "Start --> Alert")
	assert.NotContains(t, diagram.Source, "Condition")
	assert.NotContains(t, diagram.Source, "NoMatch")
	assert.Empty(t, diagram.Targets)
}

func TestCompile_ClickTargets(t *testing.T) {
	diagram := Compile(parsed(2))

	require.Len(t, diagram.Targets, 3)
	assert.Equal(t, Target{NodeID: "Sel0", Line: 4}, diagram.Targets[0])
	assert.Equal(t, Target{NodeID: "Sel1", Line: 6}, diagram.Targets[1])
	assert.Equal(t, Target{NodeID: "Condition", Line: 10}, diagram.Targets[2])
}

func TestCompile_NoConditionLineNoConditionTarget(t *testing.T) {
	result := parsed(1)
	result.ConditionLine = 0
	diagram := Compile(result)

	require.Len(t, diagram.Targets, 1)
	assert.Equal(t, "Sel0", diagram.Targets[0].NodeID)
}

func TestEscapeLabel(t *testing.T) {
	assert.Equal(t, "#quot;x#quot;", escapeLabel(`"x"`))
	assert.Equal(t, "a<br/>b", escapeLabel("a\nb"))
	assert.Equal(t, "#42;#95;#126;", escapeLabel("*_~"))
}

func TestFieldLabel(t *testing.T) {
	single := detection.Field{Name: "Image|endswith", Values: []string{`\cmd.exe`}}
	assert.Equal(t, `Image|endswith: \cmd.exe`, fieldLabel(single))

	multi := detection.Field{Name: "CommandLine", Values: []string{"a", "b"}}
	assert.Equal(t, "CommandLine:<br/> - a<br/> - b", fieldLabel(multi))

	many := detection.Field{Name: "CommandLine", Values: []string{"a", "b", "c", "d", "e"}}
	label := fieldLabel(many)
	assert.Contains(t, label, "(and 2 more)")
	assert.NotContains(t, label, " - d")
}

func TestConditionLabel_OperatorBreaksAndTruncation(t *testing.T) {
	label := conditionLabel("selection and not filter or fallback")
	assert.Contains(t, label, "<br/>and ")
	assert.Contains(t, label, "<br/>or ")

	long := strings.Repeat("x", 300)
	truncated := conditionLabel(long)
	assert.True(t, strings.HasSuffix(truncated, "..."))
	assert.LessOrEqual(t, len([]rune(truncated)), maxConditionLabel+3)
}

func TestCompile_LabelsEscaped(t *testing.T) {
	result := detection.Result{
		Found:     true,
		Condition: `sel_1 and "quoted"`,
		Groups: []detection.Group{{
			Name:   "sel_main",
			Fields: []detection.Field{{Name: "Path", Values: []string{`C:\*\test_"x"`}}},
			Line:   4,
		}},
	}
	diagram := Compile(result)

	assert.NotContains(t, diagram.Source, `test_"x"`)
	assert.Contains(t, diagram.Source, "sel#95;main")
	assert.Contains(t, diagram.Source, "#quot;")
	assert.Contains(t, diagram.Source, "#42;")
}
