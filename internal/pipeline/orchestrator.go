// Package pipeline runs the periodic background work: reconciliation passes,
// price update cycles, and snapshot archival.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/alphatracker/internal/domain"
	"github.com/alanyoungcy/alphatracker/internal/notify"
	"github.com/alanyoungcy/alphatracker/internal/service"
)

// reconcileLockKey serializes scheduled passes across processes.
const reconcileLockKey = "reconcile"

// Snapshotter persists one reconciliation result and returns the storage key.
// *s3blob.SnapshotArchive satisfies it.
type Snapshotter interface {
	Save(ctx context.Context, at time.Time, passID string, payload any) (string, error)
}

// Orchestrator coordinates the background loops. Every loop runs its work
// immediately on start and then on a ticker; an iteration failure is logged
// and the loop keeps going. Only context cancellation stops it.
type Orchestrator struct {
	reconciler *service.Reconciler
	prices     *service.PriceUpdater
	locks      domain.LockManager
	bus        domain.SignalBus
	snapshots  Snapshotter
	notifier   *notify.Notifier

	reconcileInterval time.Duration
	priceInterval     time.Duration
	pricesEnabled     bool

	logger *slog.Logger
}

// OrchestratorConfig holds the loop intervals.
type OrchestratorConfig struct {
	ReconcileInterval time.Duration
	PriceInterval     time.Duration
	PricesEnabled     bool
}

// NewOrchestrator creates an Orchestrator. locks, bus, snapshots, and
// notifier may each be nil; the corresponding behavior is skipped.
func NewOrchestrator(
	reconciler *service.Reconciler,
	prices *service.PriceUpdater,
	locks domain.LockManager,
	bus domain.SignalBus,
	snapshots Snapshotter,
	notifier *notify.Notifier,
	cfg OrchestratorConfig,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		reconciler:        reconciler,
		prices:            prices,
		locks:             locks,
		bus:               bus,
		snapshots:         snapshots,
		notifier:          notifier,
		reconcileInterval: cfg.ReconcileInterval,
		priceInterval:     cfg.PriceInterval,
		pricesEnabled:     cfg.PricesEnabled,
		logger:            logger.With(slog.String("component", "pipeline")),
	}
}

// Run starts the loops and blocks until ctx is cancelled. A clean shutdown
// returns nil.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("pipeline starting",
		slog.Duration("reconcile_interval", o.reconcileInterval),
		slog.Duration("price_interval", o.priceInterval),
		slog.Bool("prices_enabled", o.pricesEnabled),
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := o.runLoop(ctx, o.reconcileInterval, o.reconcileOnce)
		if ctx.Err() != nil {
			return nil // clean shutdown
		}
		return fmt.Errorf("reconcile loop: %w", err)
	})

	if o.pricesEnabled && o.prices != nil {
		g.Go(func() error {
			err := o.runLoop(ctx, o.priceInterval, o.priceOnce)
			if ctx.Err() != nil {
				return nil // clean shutdown
			}
			return fmt.Errorf("price loop: %w", err)
		})

		// History retention runs daily.
		g.Go(func() error {
			err := o.runLoop(ctx, 24*time.Hour, o.pruneOnce)
			if ctx.Err() != nil {
				return nil // clean shutdown
			}
			return fmt.Errorf("prune loop: %w", err)
		})
	}

	err := g.Wait()
	if err != nil {
		o.logger.Error("pipeline stopped with error", slog.String("error", err.Error()))
		return err
	}

	o.logger.Info("pipeline stopped cleanly")
	return nil
}

// runLoop runs fn immediately, then on every tick, until ctx is cancelled.
// Iteration errors are fn's responsibility; runLoop only returns on ctx.
func (o *Orchestrator) runLoop(ctx context.Context, interval time.Duration, fn func(ctx context.Context)) error {
	fn(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			fn(ctx)
		}
	}
}

// reconcileOnce runs one scheduled reconciliation pass behind the distributed
// lock, then fans the summary out to the bus and the snapshot archive.
func (o *Orchestrator) reconcileOnce(ctx context.Context) {
	if o.locks != nil {
		unlock, err := o.locks.Acquire(ctx, reconcileLockKey, o.reconcileInterval)
		if errors.Is(err, domain.ErrLockHeld) {
			o.logger.Debug("reconcile pass skipped, lock held elsewhere")
			return
		}
		if err != nil {
			o.logger.Warn("reconcile lock unavailable, running unlocked", slog.String("error", err.Error()))
		} else {
			defer unlock()
		}
	}

	result, err := o.reconciler.Reconcile(ctx)
	if err != nil {
		o.logger.Error("reconcile pass failed",
			slog.String("pass_id", result.PassID),
			slog.String("error", err.Error()),
		)
		if o.notifier != nil {
			title, msg := notify.ReconcileFailedAlert(result.PassID, err)
			_ = o.notifier.Notify(ctx, notify.EventReconcileFailed, title, msg)
		}
		return
	}

	if o.bus != nil {
		summary := result
		summary.Tokens = nil // the full view is too large for the bus
		if payload, err := json.Marshal(summary); err == nil {
			if err := o.bus.Publish(ctx, domain.ChannelReconcile, payload); err != nil {
				o.logger.Warn("reconcile summary publish failed",
					slog.String("pass_id", result.PassID),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	if o.snapshots != nil {
		key, err := o.snapshots.Save(ctx, result.StartedAt, result.PassID, result)
		if err != nil {
			o.logger.Warn("snapshot archive failed",
				slog.String("pass_id", result.PassID),
				slog.String("error", err.Error()),
			)
		} else {
			o.logger.Debug("snapshot archived", slog.String("key", key))
		}
	}
}

// priceOnce runs one price update cycle.
func (o *Orchestrator) priceOnce(ctx context.Context) {
	if _, err := o.prices.UpdateOnce(ctx); err != nil {
		o.logger.Error("price cycle failed", slog.String("error", err.Error()))
	}
}

// pruneOnce trims the price history to the retention window.
func (o *Orchestrator) pruneOnce(ctx context.Context) {
	if _, err := o.prices.Prune(ctx); err != nil {
		o.logger.Error("price history prune failed", slog.String("error", err.Error()))
	}
}
