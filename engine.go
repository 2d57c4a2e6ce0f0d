package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sudankdk/refix-sandbox/internal/config"
	"github.com/sudankdk/refix-sandbox/internal/docker"
	"github.com/sudankdk/refix-sandbox/internal/executer"
	"github.com/sudankdk/refix-sandbox/internal/logging"
	"github.com/sudankdk/refix-sandbox/internal/metrics"
)

// engine is the wiring shared by serve and run.
type engine struct {
	cfg      *config.Config
	log      *slog.Logger
	docker   *docker.Client
	exec     *executer.Executor
	registry *prometheus.Registry
}

func newEngine(ctx context.Context) (*engine, error) {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	profiles, err := cfg.Registry()
	if err != nil {
		return nil, err
	}

	dc, err := docker.New(logger)
	if err != nil {
		return nil, err
	}
	if err := dc.Ping(ctx); err != nil {
		dc.Close()
		return nil, fmt.Errorf("docker daemon not reachable: %w", err)
	}

	if err := dc.EnsureImages(ctx, profiles.Images(), cfg.Sandbox.PullImages); err != nil {
		dc.Close()
		return nil, err
	}

	reg := prometheus.NewRegistry()
	exec := executer.NewExecutor(dc, profiles, executer.Options{
		ScratchDir: cfg.Sandbox.ScratchDir,
		Timeout:    cfg.Sandbox.Timeout,
		Logger:     logger,
		Metrics:    metrics.New(reg),
	})

	return &engine{cfg: cfg, log: logger, docker: dc, exec: exec, registry: reg}, nil
}

func (e *engine) Close() error {
	return e.docker.Close()
}
