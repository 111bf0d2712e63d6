package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/alphatracker/internal/pipeline"
	"github.com/alanyoungcy/alphatracker/internal/server"
	"github.com/alanyoungcy/alphatracker/internal/server/handler"
	"github.com/alanyoungcy/alphatracker/internal/server/ws"
)

// ServeMode starts the HTTP + WebSocket API without the background loops.
// Useful for read-heavy deployments where a separate track process owns the
// reconciliation schedule.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps)
	return g.Wait()
}

// TrackMode starts the background loops (reconciliation, price updates,
// history retention) without the HTTP server.
func (a *App) TrackMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting track mode")

	return a.newOrchestrator(deps).Run(ctx)
}

// FullMode starts the background loops and the HTTP + WebSocket API in one
// process.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)

	orch := a.newOrchestrator(deps)
	g.Go(func() error {
		return orch.Run(ctx)
	})

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps)
	} else {
		a.logger.InfoContext(ctx, "server.enabled is false, running headless")
	}

	return g.Wait()
}

// newOrchestrator assembles the background pipeline from wired dependencies.
func (a *App) newOrchestrator(deps *Dependencies) *pipeline.Orchestrator {
	var snapshots pipeline.Snapshotter
	if deps.Snapshots != nil {
		snapshots = deps.Snapshots
	}
	return pipeline.NewOrchestrator(
		deps.Reconciler,
		deps.Prices,
		deps.LockManager,
		deps.SignalBus,
		snapshots,
		deps.Notifier,
		pipeline.OrchestratorConfig{
			ReconcileInterval: a.cfg.Reconcile.Interval.Duration,
			PriceInterval:     a.cfg.Prices.Interval.Duration,
			PricesEnabled:     a.cfg.Prices.Enabled,
		},
		a.logger,
	)
}

// startHTTPServer adds the HTTP server and the WebSocket hub to the given
// errgroup. The server is shut down gracefully when the context is cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	hub := ws.NewHub(deps.SignalBus, a.logger, ws.Config{
		Mode:      a.cfg.Mode,
		StartedAt: time.Now().UTC(),
	})
	g.Go(func() error {
		return hub.Run(ctx)
	})

	handlers := server.Handlers{
		Health: handler.NewHealthHandler(a.logger),
		Tokens: handler.NewTokenHandler(
			deps.Tokens, deps.Reconciler, deps.Verifier, deps.PriceCache, a.logger,
		),
	}
	if deps.Snapshots != nil {
		handlers.Snapshots = handler.NewSnapshotHandler(deps.Snapshots, a.logger)
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
	}, handlers, hub, a.logger)

	g.Go(func() error {
		if err := srv.Start(); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}
