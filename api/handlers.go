package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"rulescope/core"
	"rulescope/detection"
	"rulescope/flowchart"
	"rulescope/metrics"
	"rulescope/search"
	"rulescope/view"
)

func (a *API) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		a.logger.Errorw("Failed to encode response", "error", err)
	}
}

func (a *API) writeFragment(w http.ResponseWriter, html string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write([]byte(html)); err != nil {
		a.logger.Debugw("Failed to write fragment", "error", err)
	}
}

// listFragment renders the status line, visible cards and the load-more
// control for the session's current snapshot.
func (a *API) listFragment(st *view.State) string {
	s := a.controller.Snapshot(st)

	var b strings.Builder
	fresh := a.Freshness()
	if marker := fresh.Marker(); marker != "" {
		fmt.Fprintf(&b, `<p class="status-line">%s <span class="freshness" title="%s">%s</span></p>`,
			view.StatusLine(s), fresh.Tooltip(), marker)
	} else {
		fmt.Fprintf(&b, `<p class="status-line">%s</p>`, view.StatusLine(s))
	}

	fmt.Fprintf(&b, `<div class="card-list">%s</div>`, view.RenderList(s))
	if view.HasMore(s) {
		b.WriteString(`<button type="button" class="load-more" data-action="more">Load more</button>`)
	}
	return b.String()
}

// detailFragment renders the detail pane for the session's selection under
// its active sub-view.
func (a *API) detailFragment(st *view.State) string {
	s := a.controller.Snapshot(st)
	rule := a.controller.SelectedRule(st)
	if rule == nil {
		return `<p class="detail-empty">Select a rule to inspect it.</p>`
	}

	var body string
	switch s.Detail {
	case view.ViewSummary:
		body = view.RenderSummary(rule, detection.ParseFields(rule.YAML))
	case view.ViewFlowchart:
		result := a.parseDetection(rule)
		diagram := flowchart.Compile(result)
		metrics.FlowchartsCompiled.Inc()
		body = view.RenderFlowchart(result, diagram)
		if s.ModalOpen {
			body += view.RenderFlowchartModal(diagram, s.Zoom)
		}
	default:
		body = view.RenderRaw(rule, s)
	}

	return fmt.Sprintf(`<div class="detail" data-view="%s" data-zoom="%.1f">%s</div>`, s.Detail, s.Zoom, body)
}

// parseDetection runs the block parser with outcome instrumentation.
func (a *API) parseDetection(rule *core.Rule) detection.Result {
	result := detection.Parse(rule.YAML)
	switch {
	case !result.Found:
		metrics.DetectionParses.WithLabelValues("missing").Inc()
	case len(result.Groups) == 0:
		metrics.DetectionParses.WithLabelValues("empty").Inc()
	default:
		metrics.DetectionParses.WithLabelValues("found").Inc()
	}
	return result
}

func (a *API) getListFragment(w http.ResponseWriter, r *http.Request) {
	st := a.sessions.state(w, r)
	a.writeFragment(w, a.listFragment(st))
}

func (a *API) getDetailFragment(w http.ResponseWriter, r *http.Request) {
	st := a.sessions.state(w, r)
	a.writeFragment(w, a.detailFragment(st))
}

func (a *API) actionSearch(w http.ResponseWriter, r *http.Request) {
	st := a.sessions.state(w, r)
	query := r.FormValue("q")

	start := time.Now()
	a.controller.Search(st, query)
	metrics.SearchDuration.Observe(time.Since(start).Seconds())
	metrics.SearchesTotal.WithLabelValues(string(a.controller.Snapshot(st).Mode)).Inc()

	a.writeFragment(w, a.listFragment(st))
}

func (a *API) actionMode(w http.ResponseWriter, r *http.Request) {
	st := a.sessions.state(w, r)
	mode := search.Mode(r.FormValue("mode"))
	if !mode.Valid() {
		http.Error(w, "unknown search mode", http.StatusBadRequest)
		return
	}
	a.controller.SetMode(st, mode)
	a.writeFragment(w, a.listFragment(st))
}

func (a *API) actionClear(w http.ResponseWriter, r *http.Request) {
	st := a.sessions.state(w, r)
	a.controller.Clear(st)
	a.writeFragment(w, a.listFragment(st))
}

func (a *API) actionMore(w http.ResponseWriter, r *http.Request) {
	st := a.sessions.state(w, r)
	a.controller.LoadMore(st)
	a.writeFragment(w, a.listFragment(st))
}

func (a *API) actionSelect(w http.ResponseWriter, r *http.Request) {
	st := a.sessions.state(w, r)
	idx, err := strconv.Atoi(r.FormValue("index"))
	if err != nil {
		http.Error(w, "index must be an integer", http.StatusBadRequest)
		return
	}
	a.controller.Select(st, idx)
	a.writeFragment(w, a.detailFragment(st))
}

func (a *API) actionView(w http.ResponseWriter, r *http.Request) {
	st := a.sessions.state(w, r)
	v := view.DetailView(r.FormValue("view"))
	if !v.Valid() {
		http.Error(w, "unknown detail view", http.StatusBadRequest)
		return
	}
	a.controller.SwitchView(st, v)
	a.writeFragment(w, a.detailFragment(st))
}

func (a *API) actionModal(w http.ResponseWriter, r *http.Request) {
	st := a.sessions.state(w, r)
	switch r.FormValue("op") {
	case "open":
		a.controller.OpenModal(st)
	case "close":
		a.controller.CloseModal(st)
	default:
		http.Error(w, "op must be open or close", http.StatusBadRequest)
		return
	}
	a.writeFragment(w, a.detailFragment(st))
}

func (a *API) actionZoom(w http.ResponseWriter, r *http.Request) {
	st := a.sessions.state(w, r)
	switch r.FormValue("op") {
	case "in":
		a.controller.ZoomIn(st)
	case "out":
		a.controller.ZoomOut(st)
	case "reset":
		a.controller.ZoomReset(st)
	default:
		http.Error(w, "op must be in, out or reset", http.StatusBadRequest)
		return
	}
	a.writeFragment(w, a.detailFragment(st))
}

func (a *API) actionHighlight(w http.ResponseWriter, r *http.Request) {
	st := a.sessions.state(w, r)
	line, err := strconv.Atoi(r.FormValue("line"))
	if err != nil || line <= 0 {
		http.Error(w, "line must be a positive integer", http.StatusBadRequest)
		return
	}
	a.controller.Highlight(st, line)
	a.writeFragment(w, a.detailFragment(st))
}

// ruleSummary is the JSON listing shape: metadata without the document body.
type ruleSummary struct {
	Path      string         `json:"path"`
	ID        string         `json:"id,omitempty"`
	Title     string         `json:"title"`
	Status    string         `json:"status,omitempty"`
	Level     string         `json:"level,omitempty"`
	Date      string         `json:"date,omitempty"`
	Modified  string         `json:"modified,omitempty"`
	Logsource core.Logsource `json:"logsource"`
}

func (a *API) getRules(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	mode := search.Mode(r.URL.Query().Get("mode"))
	if !mode.Valid() {
		mode = search.ModeYAML
	}

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 1000 {
			http.Error(w, "limit must be 1-1000", http.StatusBadRequest)
			return
		}
		limit = n
	}
	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "offset must be non-negative", http.StatusBadRequest)
			return
		}
		offset = n
	}

	start := time.Now()
	matched := a.engine.Filter(a.rules, query, mode)
	metrics.SearchDuration.Observe(time.Since(start).Seconds())
	metrics.SearchesTotal.WithLabelValues(string(mode)).Inc()

	page := matched
	if offset >= len(page) {
		page = nil
	} else {
		page = page[offset:]
	}
	if len(page) > limit {
		page = page[:limit]
	}

	summaries := make([]ruleSummary, 0, len(page))
	for _, rule := range page {
		summaries = append(summaries, ruleSummary{
			Path:      rule.Path,
			ID:        rule.ID,
			Title:     rule.Title,
			Status:    rule.Status,
			Level:     rule.Level,
			Date:      rule.Date,
			Modified:  rule.Modified,
			Logsource: rule.Logsource,
		})
	}

	a.writeJSON(w, http.StatusOK, map[string]interface{}{
		"total":  len(matched),
		"count":  len(summaries),
		"offset": offset,
		"rules":  summaries,
	})
}

func (a *API) ruleFromQuery(w http.ResponseWriter, r *http.Request) *core.Rule {
	path := r.URL.Query().Get("path")
	if path == "" {
		http.Error(w, "path parameter required", http.StatusBadRequest)
		return nil
	}
	rule, ok := a.byPath[path]
	if !ok {
		http.Error(w, "rule not found", http.StatusNotFound)
		return nil
	}
	return rule
}

func (a *API) getRuleFlowchart(w http.ResponseWriter, r *http.Request) {
	rule := a.ruleFromQuery(w, r)
	if rule == nil {
		return
	}

	result := a.parseDetection(rule)
	diagram := flowchart.Compile(result)
	metrics.FlowchartsCompiled.Inc()

	a.writeJSON(w, http.StatusOK, map[string]interface{}{
		"path":      rule.Path,
		"found":     result.Found,
		"condition": result.Condition,
		"source":    diagram.Source,
		"targets":   diagram.Targets,
	})
}

func (a *API) getRuleRaw(w http.ResponseWriter, r *http.Request) {
	rule := a.ruleFromQuery(w, r)
	if rule == nil {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := w.Write([]byte(rule.YAML)); err != nil {
		a.logger.Debugw("Failed to write raw rule", "error", err)
	}
}

func (a *API) getStatus(w http.ResponseWriter, r *http.Request) {
	fresh := a.Freshness()
	payload := map[string]interface{}{
		"count":           a.idx.Count,
		"build_time":      a.idx.BuildTime,
		"generated_from":  a.idx.GeneratedFrom,
		"git_last_commit": a.idx.GitLastCommit,
		"freshness": map[string]interface{}{
			"state":   fresh.State.String(),
			"marker":  fresh.Marker(),
			"tooltip": fresh.Tooltip(),
		},
	}
	if fresh.RemoteCommit != "" {
		payload["remote_commit"] = fresh.RemoteCommit
	}
	a.writeJSON(w, http.StatusOK, payload)
}

func (a *API) healthCheck(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
