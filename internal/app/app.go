// Package app builds the engine, storage and metrics endpoint from a Config.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/hailam/chesscore/internal/config"
	"github.com/hailam/chesscore/internal/diag"
	"github.com/hailam/chesscore/internal/engine"
	"github.com/hailam/chesscore/internal/logx"
	"github.com/hailam/chesscore/internal/storage"
)

// App holds the process-wide dependencies.
type App struct {
	Config   config.Config
	Log      zerolog.Logger
	Registry *prometheus.Registry
	Metrics  *engine.Metrics
}

// New creates an App logging to logOut.
func New(cfg config.Config, logOut io.Writer) *App {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &App{
		Config:   cfg,
		Log:      logx.New(cfg.Log.Level, logOut),
		Registry: reg,
		Metrics:  engine.NewMetrics(reg),
	}
}

// LoadConfig reads path, applies the environment and validates the result.
func LoadConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, fmt.Errorf("invalid environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// NewEngine builds an engine with metrics and, when enabled, a diagnostics
// recorder. Engines built by one App share its metrics collectors.
func (a *App) NewEngine() (*engine.Engine, error) {
	s := a.Config.Search
	eng := engine.NewEngine(engine.Options{
		HashBits:   engine.BitsForSize(s.HashMB),
		MaxDepth:   s.MaxDepth,
		Quiescence: s.Quiescence,
		Logger:     &a.Log,
	})
	eng.SetMetrics(a.Metrics)

	if d := a.Config.Diagnostics; d.Enabled {
		rec, err := diag.NewRecorder(d.Dir, d.Compress)
		if err != nil {
			return nil, err
		}
		eng.SetTraceSink(rec)
		a.Log.Info().Str("dir", rec.Dir()).Msg("writing search diagnostics")
	}
	return eng, nil
}

// OpenStorage opens the configured database, or the platform default.
func (a *App) OpenStorage() (*storage.Storage, error) {
	if a.Config.Storage.Dir == "" {
		return storage.NewStorage()
	}
	return storage.Open(a.Config.Storage.Dir)
}

// ServeMetrics exposes the registry on the configured address until ctx
// is done. It returns immediately; an empty address disables it.
func (a *App) ServeMetrics(ctx context.Context) {
	addr := a.Config.Metrics.Addr
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		a.Log.Info().Str("addr", addr).Msg("serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Log.Error().Err(err).Msg("metrics server failed")
		}
	}()
	context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	})
}
