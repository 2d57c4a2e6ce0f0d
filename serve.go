package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/sudankdk/refix-sandbox/internal/api"
	"github.com/sudankdk/refix-sandbox/internal/sandbox"
	"github.com/sudankdk/refix-sandbox/internal/workspace"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve POST /run-test over HTTP",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng, err := newEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close()

	eng.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// No run, in this process or another sharing the scratch dir, lives
	// longer than twice the largest timeout.
	scratch := eng.cfg.Sandbox.ScratchDir
	if n, err := workspace.PurgeOrphans(scratch, 2*sandbox.MaxTimeout); err != nil {
		eng.log.Warn("purging scratch dir failed", "dir", scratch, "err", err)
	} else if n > 0 {
		eng.log.Info("purged orphaned workspaces", "count", n)
	}

	// Labeled containers are judged by their own timeout; the fallback
	// covers containers without one.
	if interval := eng.cfg.Sandbox.SweepInterval; interval > 0 {
		go eng.docker.SweepZombies(ctx, interval, 2*eng.cfg.Sandbox.Timeout)
	}

	srv := api.NewServer(eng.exec, api.Options{
		Pinger:       eng.docker,
		Gatherer:     eng.registry,
		Logger:       eng.log,
		BodyLimit:    eng.cfg.Server.BodyLimit,
		ReadTimeout:  eng.cfg.Server.ReadTimeout,
		WriteTimeout: eng.cfg.Server.WriteTimeout,
	})
	err = srv.Run(ctx, eng.cfg.Server.Addr, eng.cfg.Server.ShutdownTimeout)
	eng.log.Info("server stopped")
	return err
}
