// Package view owns the per-session UI state and renders HTML fragments
// for it. All state lives in an explicit State struct - nothing is package
// global - and every mutation re-renders the affected region on the next
// fragment request.
package view

import (
	"sync"
	"time"

	"rulescope/core"
	"rulescope/search"
)

// DetailView selects which sub-view the detail pane shows.
type DetailView string

const (
	ViewSummary   DetailView = "summary"
	ViewYAML      DetailView = "yaml"
	ViewFlowchart DetailView = "flowchart"
)

// Valid reports whether v is a known detail view.
func (v DetailView) Valid() bool {
	return v == ViewSummary || v == ViewYAML || v == ViewFlowchart
}

// Options carries the UI tunables from configuration.
type Options struct {
	PageSize      int
	PageIncrement int
	HighlightTTL  time.Duration
	ZoomMin       float64
	ZoomMax       float64
	ZoomStep      float64
}

// DefaultOptions mirror the original UI constants.
func DefaultOptions() Options {
	return Options{
		PageSize:      120,
		PageIncrement: 120,
		HighlightTTL:  3 * time.Second,
		ZoomMin:       0.4,
		ZoomMax:       3.0,
		ZoomStep:      0.2,
	}
}

// State is one session's view of the catalog. The selected index points
// into the filtered sequence, not at a rule identity, so every refilter
// invalidates it and resets the selection to none (-1).
type State struct {
	mu sync.Mutex

	query     string
	mode      search.Mode
	filtered  []*core.Rule
	selected  int
	limit     int
	detail    DetailView
	zoom      float64
	modalOpen bool

	// highlightLine is a transient marker in the raw view; highlightGen
	// guards the scheduled clear so a superseding highlight or view
	// switch invalidates any pending timer instead of racing it.
	highlightLine int
	highlightGen  uint64
}

// Snapshot is an immutable copy of the renderable state.
type Snapshot struct {
	Query         string
	Mode          search.Mode
	Total         int
	Visible       []*core.Rule
	Selected      int
	Limit         int
	Detail        DetailView
	Zoom          float64
	ModalOpen     bool
	HighlightLine int
}

// Controller applies state transitions for all sessions against one shared
// corpus and search engine.
type Controller struct {
	engine *search.Engine
	rules  []*core.Rule
	opts   Options
}

// NewController creates a controller over the loaded corpus.
func NewController(engine *search.Engine, rules []*core.Rule, opts Options) *Controller {
	return &Controller{engine: engine, rules: rules, opts: opts}
}

// NewState creates a fresh session showing the unfiltered corpus.
func (c *Controller) NewState() *State {
	st := &State{
		mode:     search.ModeYAML,
		selected: -1,
		limit:    c.opts.PageSize,
		detail:   ViewYAML,
		zoom:     1.0,
	}
	st.filtered = c.engine.Filter(c.rules, "", st.mode)
	return st
}

// refilterLocked recomputes the filtered sequence and drops any state that
// indexed into the old one. Callers hold st.mu.
func (c *Controller) refilterLocked(st *State) {
	st.filtered = c.engine.Filter(c.rules, st.query, st.mode)
	st.selected = -1
	st.modalOpen = false
	st.highlightLine = 0
	st.highlightGen++
}

// Search sets the query and refilters.
func (c *Controller) Search(st *State, query string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.query = query
	c.refilterLocked(st)
}

// SetMode switches the search scope and refilters. Unknown modes are
// ignored.
func (c *Controller) SetMode(st *State, mode search.Mode) {
	if !mode.Valid() {
		return
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	st.mode = mode
	c.refilterLocked(st)
}

// Clear empties the query and refilters.
func (c *Controller) Clear(st *State) {
	c.Search(st, "")
}

// LoadMore raises the display cap by one page increment.
func (c *Controller) LoadMore(st *State) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.limit += c.opts.PageIncrement
}

// Select picks a rule by its index into the filtered sequence. Out-of-range
// indices are ignored.
func (c *Controller) Select(st *State, index int) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if index < 0 || index >= len(st.filtered) {
		return
	}
	st.selected = index
	st.modalOpen = false
}

// SwitchView changes the detail sub-view. Leaving or re-entering the raw
// view drops any transient line highlight.
func (c *Controller) SwitchView(st *State, v DetailView) {
	if !v.Valid() {
		return
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	st.detail = v
	st.modalOpen = false
	st.highlightLine = 0
	st.highlightGen++
}

// Highlight switches to the raw view with a temporary highlight on the
// given 1-based line. The highlight clears itself after the configured TTL
// unless a newer highlight, refilter or view switch supersedes it first.
func (c *Controller) Highlight(st *State, line int) {
	if line <= 0 {
		return
	}
	st.mu.Lock()
	st.detail = ViewYAML
	st.modalOpen = false
	st.highlightLine = line
	st.highlightGen++
	gen := st.highlightGen
	st.mu.Unlock()

	time.AfterFunc(c.opts.HighlightTTL, func() {
		st.mu.Lock()
		defer st.mu.Unlock()
		if st.highlightGen == gen && st.detail == ViewYAML {
			st.highlightLine = 0
		}
	})
}

// OpenModal opens the flowchart modal. It only applies while the flowchart
// view is active with a rule selected; otherwise there is nothing to show.
func (c *Controller) OpenModal(st *State) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.detail != ViewFlowchart || st.selected < 0 || st.selected >= len(st.filtered) {
		return
	}
	st.modalOpen = true
}

// CloseModal dismisses the flowchart modal. Zoom is kept so reopening
// resumes at the same scale.
func (c *Controller) CloseModal(st *State) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.modalOpen = false
}

// ZoomIn raises the flowchart zoom one step, capped at the maximum.
func (c *Controller) ZoomIn(st *State) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.zoom = min(c.opts.ZoomMax, st.zoom+c.opts.ZoomStep)
}

// ZoomOut lowers the flowchart zoom one step, floored at the minimum.
func (c *Controller) ZoomOut(st *State) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.zoom = max(c.opts.ZoomMin, st.zoom-c.opts.ZoomStep)
}

// ZoomReset restores the default zoom.
func (c *Controller) ZoomReset(st *State) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.zoom = 1.0
}

// SelectedRule returns the currently selected rule, or nil.
func (c *Controller) SelectedRule(st *State) *core.Rule {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.selected < 0 || st.selected >= len(st.filtered) {
		return nil
	}
	return st.filtered[st.selected]
}

// Snapshot copies the renderable state under the lock.
func (c *Controller) Snapshot(st *State) Snapshot {
	st.mu.Lock()
	defer st.mu.Unlock()

	visible := st.filtered
	if len(visible) > st.limit {
		visible = visible[:st.limit]
	}
	out := make([]*core.Rule, len(visible))
	copy(out, visible)

	return Snapshot{
		Query:         st.query,
		Mode:          st.mode,
		Total:         len(st.filtered),
		Visible:       out,
		Selected:      st.selected,
		Limit:         st.limit,
		Detail:        st.detail,
		Zoom:          st.zoom,
		ModalOpen:     st.modalOpen,
		HighlightLine: st.highlightLine,
	}
}
