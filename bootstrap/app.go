// Package bootstrap provides application initialization and lifecycle management.
// It extracts the initialization logic from main.go into testable, composable components.
//
// Usage:
//
//	app, err := bootstrap.NewApp(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := app.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	app.WaitForShutdown()
//	app.Shutdown()
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"rulescope/api"
	"rulescope/config"
	"rulescope/core"
	"rulescope/index"
	"rulescope/metrics"
	"rulescope/search"
	"rulescope/view"
)

// App represents the rulescope service with all its components.
type App struct {
	Config *config.Config
	Logger *zap.Logger
	Sugar  *zap.SugaredLogger

	Index      *core.Index
	Cache      *search.Cache
	Engine     *search.Engine
	Controller *view.Controller
	APIServer  *api.API
}

// NewApp creates a new application instance and initializes all components.
func NewApp(ctx context.Context) (*App, error) {
	app := &App{}

	logger, sugar, err := InitLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	app.Logger = logger
	app.Sugar = sugar

	sugar.Info("Rulescope starting...")

	cfg, err := InitConfig(sugar)
	if err != nil {
		return nil, err
	}
	app.Config = cfg

	app.Index, err = InitIndex(cfg, sugar)
	if err != nil {
		return nil, err
	}
	metrics.IndexRules.Set(float64(len(app.Index.Rules)))

	app.Cache, err = search.NewCache(cfg.Search.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize search cache: %w", err)
	}
	app.Engine = search.NewEngine(app.Cache)

	app.Controller = view.NewController(app.Engine, app.Index.Rules, view.Options{
		PageSize:      cfg.UI.PageSize,
		PageIncrement: cfg.UI.PageIncrement,
		HighlightTTL:  cfg.HighlightTTL(),
		ZoomMin:       cfg.UI.ZoomMin,
		ZoomMax:       cfg.UI.ZoomMax,
		ZoomStep:      cfg.UI.ZoomStep,
	})

	app.APIServer, err = api.NewAPI(app.Controller, app.Engine, app.Index, cfg, sugar)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize API server: %w", err)
	}

	return app, nil
}

// InitIndex loads the rule index. A missing index degrades to an empty
// catalog instead of refusing to start, so the UI can explain what to run.
func InitIndex(cfg *config.Config, sugar *zap.SugaredLogger) (*core.Index, error) {
	idx, err := index.Load(cfg.Index.Path, sugar)
	if err == nil {
		return idx, nil
	}
	if errors.Is(err, index.ErrIndexMissing) {
		sugar.Warnw("Rule index not found, serving empty catalog",
			"path", cfg.Index.Path,
			"hint", "run 'rulescope index --source <sigma-checkout>' to build it")
		return &core.Index{}, nil
	}
	return nil, fmt.Errorf("failed to load index: %w", err)
}

// Start launches the freshness check and the API server.
func (a *App) Start(ctx context.Context) error {
	if a.Config.Index.FreshnessEnabled && a.Index.GitLastCommit != "" {
		go a.checkFreshness()
	}

	addr := fmt.Sprintf("%s:%d", a.Config.Server.Host, a.Config.Server.Port)
	go func() {
		a.Sugar.Infow("API server listening", "addr", addr)
		if err := a.APIServer.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Sugar.Errorw("API server failed", "error", err)
		}
	}()

	return nil
}

// checkFreshness is fire and forget: the result only annotates the status
// line, so any failure stays a debug log.
func (a *App) checkFreshness() {
	checker := index.NewFreshnessChecker(a.Config.Index.UpstreamAPIURL, a.Config.FreshnessTimeout(), a.Sugar)

	ctx, cancel := context.WithTimeout(context.Background(), a.Config.FreshnessTimeout())
	defer cancel()

	result := checker.Check(ctx, a.Index)
	a.APIServer.SetFreshness(result)
	a.Sugar.Debugw("Freshness check completed", "state", result.State.String())
}

// WaitForShutdown blocks until a shutdown signal is received.
func (a *App) WaitForShutdown() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
}

// Shutdown gracefully shuts down all components.
func (a *App) Shutdown() {
	a.Sugar.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.APIServer.Stop(ctx); err != nil {
		a.Sugar.Errorw("API server shutdown failed", "error", err)
	}

	_ = a.Logger.Sync()
	a.Sugar.Info("Shutdown complete")
}
