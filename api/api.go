// Package api exposes the catalog over HTTP: the app shell, server-rendered
// HTML fragments driven by per-session view state, and a small JSON surface.
package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"rulescope/config"
	"rulescope/core"
	"rulescope/index"
	"rulescope/search"
	"rulescope/view"
)

// rateLimiterEntry holds a rate limiter with last seen time
type rateLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// API holds the API server
type API struct {
	router     *mux.Router
	server     *http.Server
	controller *view.Controller
	engine     *search.Engine
	rules      []*core.Rule
	byPath     map[string]*core.Rule
	idx        *core.Index
	sessions   *sessionStore
	config     *config.Config
	logger     *zap.SugaredLogger

	freshnessMu sync.RWMutex
	freshness   index.Freshness

	rateLimiters   map[string]*rateLimiterEntry
	rateLimitersMu sync.Mutex
	stopCh         chan struct{}
}

// NewAPI creates a new API server over the loaded index.
func NewAPI(controller *view.Controller, engine *search.Engine, idx *core.Index, cfg *config.Config, logger *zap.SugaredLogger) (*API, error) {
	sessions, err := newSessionStore(controller, cfg.Sessions.Max)
	if err != nil {
		return nil, err
	}

	byPath := make(map[string]*core.Rule, len(idx.Rules))
	for _, rule := range idx.Rules {
		byPath[rule.Path] = rule
	}

	a := &API{
		router:       mux.NewRouter(),
		controller:   controller,
		engine:       engine,
		rules:        idx.Rules,
		byPath:       byPath,
		idx:          idx,
		sessions:     sessions,
		config:       cfg,
		logger:       logger,
		rateLimiters: make(map[string]*rateLimiterEntry),
		stopCh:       make(chan struct{}),
	}
	a.setupRoutes()
	go a.cleanupRateLimiters()
	return a, nil
}

// SetFreshness records the upstream comparison result for the status line.
func (a *API) SetFreshness(f index.Freshness) {
	a.freshnessMu.Lock()
	defer a.freshnessMu.Unlock()
	a.freshness = f
}

// Freshness returns the last recorded upstream comparison result.
func (a *API) Freshness() index.Freshness {
	a.freshnessMu.RLock()
	defer a.freshnessMu.RUnlock()
	return a.freshness
}

// setupRoutes sets up the API routes
func (a *API) setupRoutes() {
	a.router.Use(a.recoveryMiddleware)
	a.router.Use(a.loggingMiddleware)
	a.router.Use(a.rateLimitMiddleware)

	a.router.HandleFunc("/", a.getShell).Methods("GET")
	a.router.HandleFunc("/fragments/list", a.getListFragment).Methods("GET")
	a.router.HandleFunc("/fragments/detail", a.getDetailFragment).Methods("GET")

	a.router.HandleFunc("/actions/search", a.actionSearch).Methods("POST")
	a.router.HandleFunc("/actions/mode", a.actionMode).Methods("POST")
	a.router.HandleFunc("/actions/clear", a.actionClear).Methods("POST")
	a.router.HandleFunc("/actions/more", a.actionMore).Methods("POST")
	a.router.HandleFunc("/actions/select", a.actionSelect).Methods("POST")
	a.router.HandleFunc("/actions/view", a.actionView).Methods("POST")
	a.router.HandleFunc("/actions/modal", a.actionModal).Methods("POST")
	a.router.HandleFunc("/actions/zoom", a.actionZoom).Methods("POST")
	a.router.HandleFunc("/actions/highlight", a.actionHighlight).Methods("POST")

	a.router.HandleFunc("/api/rules", a.getRules).Methods("GET")
	a.router.HandleFunc("/api/rules/flowchart", a.getRuleFlowchart).Methods("GET")
	a.router.HandleFunc("/api/rules/raw", a.getRuleRaw).Methods("GET")
	a.router.HandleFunc("/api/status", a.getStatus).Methods("GET")

	a.router.HandleFunc("/health", a.healthCheck).Methods("GET")
	a.router.Handle("/metrics", promhttp.Handler())
}

// Router exposes the configured handler, mainly for tests.
func (a *API) Router() http.Handler {
	return a.router
}

// Start starts the API server
func (a *API) Start(addr string) error {
	a.server = &http.Server{
		Addr:    addr,
		Handler: a.router,
	}
	return a.server.ListenAndServe()
}

// Stop stops the API server
func (a *API) Stop(ctx context.Context) error {
	close(a.stopCh)
	if a.server != nil {
		return a.server.Shutdown(ctx)
	}
	return nil
}
