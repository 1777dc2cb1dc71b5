package view

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rulescope/core"
	"rulescope/search"
)

func testController(t *testing.T, rules []*core.Rule, opts Options) *Controller {
	t.Helper()
	cache, err := search.NewCache(256)
	require.NoError(t, err)
	return NewController(search.NewEngine(cache), rules, opts)
}

func corpus() []*core.Rule {
	return []*core.Rule{
		{Path: "a.yml", Title: "Windows Update Tamper", YAML: "detects win-update.exe"},
		{Path: "b.yml", Title: "Linux Persistence", YAML: "crontab abuse"},
		{Path: "c.yml", Title: "Windows Service Stop", YAML: "sc stop on windows"},
	}
}

func TestNewState_Defaults(t *testing.T) {
	c := testController(t, corpus(), DefaultOptions())
	st := c.NewState()
	s := c.Snapshot(st)

	assert.Equal(t, 3, s.Total)
	assert.Equal(t, -1, s.Selected)
	assert.Equal(t, search.ModeYAML, s.Mode)
	assert.Equal(t, ViewYAML, s.Detail)
	assert.Equal(t, 1.0, s.Zoom)
}

func TestSearch_ResetsSelection(t *testing.T) {
	c := testController(t, corpus(), DefaultOptions())
	st := c.NewState()

	c.Select(st, 1)
	require.NotNil(t, c.SelectedRule(st))

	c.Search(st, "windows")
	s := c.Snapshot(st)
	assert.Equal(t, 2, s.Total)
	assert.Equal(t, -1, s.Selected)
	assert.Nil(t, c.SelectedRule(st))

	// Re-running the identical query resets selection again and yields an
	// identical filtered sequence.
	c.Select(st, 0)
	c.Search(st, "windows")
	s2 := c.Snapshot(st)
	assert.Equal(t, s.Visible, s2.Visible)
	assert.Equal(t, -1, s2.Selected)
}

func TestSetMode_Refilters(t *testing.T) {
	c := testController(t, corpus(), DefaultOptions())
	st := c.NewState()

	// "crontab" only matches in full-document mode.
	c.Search(st, "crontab")
	assert.Equal(t, 1, c.Snapshot(st).Total)

	c.SetMode(st, search.ModeTitle)
	assert.Equal(t, 0, c.Snapshot(st).Total)

	// Invalid modes are ignored.
	c.SetMode(st, search.Mode("bogus"))
	assert.Equal(t, search.ModeTitle, c.Snapshot(st).Mode)
}

func TestLoadMore_RaisesCap(t *testing.T) {
	opts := DefaultOptions()
	opts.PageSize = 2
	opts.PageIncrement = 2
	c := testController(t, corpus(), opts)
	st := c.NewState()

	s := c.Snapshot(st)
	assert.Len(t, s.Visible, 2)
	assert.True(t, HasMore(s))

	c.LoadMore(st)
	s = c.Snapshot(st)
	assert.Len(t, s.Visible, 3)
	assert.False(t, HasMore(s))
}

func TestSelect_OutOfRangeIgnored(t *testing.T) {
	c := testController(t, corpus(), DefaultOptions())
	st := c.NewState()

	c.Select(st, 99)
	assert.Nil(t, c.SelectedRule(st))

	c.Select(st, -1)
	assert.Nil(t, c.SelectedRule(st))

	c.Select(st, 0)
	require.NotNil(t, c.SelectedRule(st))
	assert.Equal(t, "a.yml", c.SelectedRule(st).Path)
}

func TestHighlight_TransientAutoClear(t *testing.T) {
	opts := DefaultOptions()
	opts.HighlightTTL = 20 * time.Millisecond
	c := testController(t, corpus(), opts)
	st := c.NewState()
	c.Select(st, 0)

	c.Highlight(st, 5)
	s := c.Snapshot(st)
	assert.Equal(t, ViewYAML, s.Detail)
	assert.Equal(t, 5, s.HighlightLine)

	assert.Eventually(t, func() bool {
		return c.Snapshot(st).HighlightLine == 0
	}, time.Second, 5*time.Millisecond)
}

func TestHighlight_SupersededTimerDoesNotClobber(t *testing.T) {
	opts := DefaultOptions()
	opts.HighlightTTL = 30 * time.Millisecond
	c := testController(t, corpus(), opts)
	st := c.NewState()

	c.Highlight(st, 5)
	time.Sleep(10 * time.Millisecond)
	c.Highlight(st, 9)

	// The first timer fires around t=30ms but its generation is stale, so
	// the second highlight must survive it.
	time.Sleep(25 * time.Millisecond)
	assert.Equal(t, 9, c.Snapshot(st).HighlightLine)

	assert.Eventually(t, func() bool {
		return c.Snapshot(st).HighlightLine == 0
	}, time.Second, 5*time.Millisecond)
}

func TestSwitchView_ClearsHighlight(t *testing.T) {
	opts := DefaultOptions()
	opts.HighlightTTL = time.Hour
	c := testController(t, corpus(), opts)
	st := c.NewState()

	c.Highlight(st, 3)
	require.Equal(t, 3, c.Snapshot(st).HighlightLine)

	c.SwitchView(st, ViewFlowchart)
	s := c.Snapshot(st)
	assert.Equal(t, ViewFlowchart, s.Detail)
	assert.Zero(t, s.HighlightLine)
}

func TestOpenModal_RequiresFlowchartSelection(t *testing.T) {
	c := testController(t, corpus(), DefaultOptions())
	st := c.NewState()

	// No selection yet: nothing to show.
	c.SwitchView(st, ViewFlowchart)
	c.OpenModal(st)
	assert.False(t, c.Snapshot(st).ModalOpen)

	// Selected but not on the flowchart view.
	c.Select(st, 0)
	c.SwitchView(st, ViewYAML)
	c.OpenModal(st)
	assert.False(t, c.Snapshot(st).ModalOpen)

	c.SwitchView(st, ViewFlowchart)
	c.OpenModal(st)
	assert.True(t, c.Snapshot(st).ModalOpen)

	c.CloseModal(st)
	assert.False(t, c.Snapshot(st).ModalOpen)
}

func TestModal_ClosedByNavigation(t *testing.T) {
	c := testController(t, corpus(), DefaultOptions())
	st := c.NewState()

	openModal := func() {
		c.Select(st, 0)
		c.SwitchView(st, ViewFlowchart)
		c.OpenModal(st)
		require.True(t, c.Snapshot(st).ModalOpen)
	}

	openModal()
	c.Select(st, 1)
	assert.False(t, c.Snapshot(st).ModalOpen)

	openModal()
	c.SwitchView(st, ViewSummary)
	assert.False(t, c.Snapshot(st).ModalOpen)

	openModal()
	c.Search(st, "windows")
	assert.False(t, c.Snapshot(st).ModalOpen)

	openModal()
	c.Highlight(st, 2)
	assert.False(t, c.Snapshot(st).ModalOpen)
}

func TestModal_ZoomSurvivesClose(t *testing.T) {
	c := testController(t, corpus(), DefaultOptions())
	st := c.NewState()
	c.Select(st, 0)
	c.SwitchView(st, ViewFlowchart)

	c.OpenModal(st)
	c.ZoomIn(st)
	c.ZoomIn(st)
	require.InDelta(t, 1.4, c.Snapshot(st).Zoom, 1e-9)

	c.CloseModal(st)
	c.OpenModal(st)
	s := c.Snapshot(st)
	assert.True(t, s.ModalOpen)
	assert.InDelta(t, 1.4, s.Zoom, 1e-9)
}

func TestZoom_Bounds(t *testing.T) {
	c := testController(t, corpus(), DefaultOptions())
	st := c.NewState()

	for i := 0; i < 20; i++ {
		c.ZoomIn(st)
	}
	assert.InDelta(t, 3.0, c.Snapshot(st).Zoom, 1e-9)

	for i := 0; i < 40; i++ {
		c.ZoomOut(st)
	}
	assert.InDelta(t, 0.4, c.Snapshot(st).Zoom, 1e-9)

	c.ZoomReset(st)
	assert.Equal(t, 1.0, c.Snapshot(st).Zoom)
}
