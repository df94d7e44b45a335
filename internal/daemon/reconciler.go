package daemon

import (
	"context"
	"log/slog"
	"time"

	"github.com/1broseidon/evepreview/internal/platform"
)

// DefaultReconcileInterval is how often the window listing is re-read to
// repair events the window system dropped.
const DefaultReconcileInterval = 5 * time.Second

// WindowLister returns every top-level window.
type WindowLister func() ([]platform.Window, error)

// ReconcilerConfig holds configuration for the reconciler.
type ReconcilerConfig struct {
	Interval time.Duration
	Logger   *slog.Logger
}

// Reconciler periodically checks for state drift and corrects it.
type Reconciler struct {
	interval    time.Duration
	sync        *StateSynchronizer
	listWindows WindowLister
	logger      *slog.Logger
}

// NewReconciler creates a new reconciler with the given configuration.
func NewReconciler(cfg ReconcilerConfig, sync *StateSynchronizer, listWindows WindowLister) *Reconciler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultReconcileInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Reconciler{
		interval:    interval,
		sync:        sync,
		listWindows: listWindows,
		logger:      logger,
	}
}

// Run starts the reconciliation loop. Blocks until context is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Debug("reconciler started", "interval", r.interval)

	for {
		select {
		case <-ctx.Done():
			r.logger.Debug("reconciler stopped")
			return
		case <-ticker.C:
			r.reconcile()
		}
	}
}

// reconcile performs a single reconciliation pass.
func (r *Reconciler) reconcile() int {
	// Recover from panics to prevent crashing the daemon
	defer func() {
		if err := recover(); err != nil {
			r.logger.Error("reconciler panic recovered", "error", err)
		}
	}()

	windows, err := r.listWindows()
	if err != nil {
		r.logger.Warn("reconciler: failed to list windows", "error", err)
		return 0
	}

	changes := r.sync.Reconcile(windows)
	if len(changes) > 0 {
		r.logger.Info("reconciler: corrected drift", "changes", len(changes))
	}
	return len(changes)
}

// ReconcileNow triggers an immediate reconciliation pass and returns the
// number of registry changes it made.
func (r *Reconciler) ReconcileNow() int {
	return r.reconcile()
}
