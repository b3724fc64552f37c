package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/pkg/apperr"
	"github.com/shashiranjanraj/storefront/pkg/cache"
	"github.com/shashiranjanraj/storefront/pkg/event"
	"github.com/shashiranjanraj/storefront/pkg/logger"
	"github.com/shashiranjanraj/storefront/pkg/metrics"
	"github.com/shashiranjanraj/storefront/pkg/payment"
	"github.com/shashiranjanraj/storefront/pkg/workerpool"
)

// ReconcileConfig tunes the stale order sweep.
type ReconcileConfig struct {
	// After is how old a PENDING order must be before it is re-polled.
	After time.Duration
	// ExpireAfter is when an unpaid order is given up and its intent cancelled.
	ExpireAfter time.Duration
	// Batch caps how many orders one sweep examines.
	Batch int
	// Workers bounds concurrent provider calls.
	Workers int
}

// Reconcile outcomes.
const (
	ReconcileConfirmed = "confirmed"
	ReconcileFailed    = "failed"
	ReconcileCancelled = "cancelled"
	ReconcileExpired   = "expired"
	ReconcilePending   = "pending"
	ReconcileSkipped   = "skipped"
	ReconcileError     = "error"
)

// ReconcileSummary counts the outcome of each order examined.
type ReconcileSummary struct {
	Examined int            `json:"examined"`
	Results  map[string]int `json:"results"`
}

// Reconciler finds PENDING orders whose client never came back and settles
// them with the provider's answer.
type Reconciler struct {
	checkout *CheckoutService
	cfg      ReconcileConfig
	now      func() time.Time
}

func NewReconciler(checkout *CheckoutService, cfg ReconcileConfig) *Reconciler {
	if cfg.After <= 0 {
		cfg.After = 15 * time.Minute
	}
	if cfg.ExpireAfter <= 0 {
		cfg.ExpireAfter = 24 * time.Hour
	}
	if cfg.Batch <= 0 {
		cfg.Batch = 100
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	return &Reconciler{checkout: checkout, cfg: cfg, now: time.Now}
}

// Run sweeps once. It matches the scheduler's task signature.
func (r *Reconciler) Run(ctx context.Context) error {
	sum, err := r.Sweep(ctx)
	if err != nil {
		return err
	}
	if sum.Examined > 0 {
		logger.Info("reconcile: sweep done", "examined", sum.Examined, "results", sum.Results)
	}
	return nil
}

// Sweep examines up to Batch stale orders.
func (r *Reconciler) Sweep(ctx context.Context) (*ReconcileSummary, error) {
	now := r.now()
	stale, err := r.checkout.orders.Stale(ctx, now.Add(-r.cfg.After), r.cfg.Batch)
	if err != nil {
		return nil, err
	}

	sum := &ReconcileSummary{Examined: len(stale), Results: map[string]int{}}
	if len(stale) == 0 {
		return sum, nil
	}

	var mu sync.Mutex
	pool := workerpool.New(r.cfg.Workers)
	defer pool.Shutdown()

	for i := range stale {
		o := stale[i]
		err := pool.SubmitWait(ctx, func() {
			res := r.reconcile(ctx, &o, now)
			metrics.Reconciled.WithLabelValues(res).Inc()
			mu.Lock()
			sum.Results[res]++
			mu.Unlock()
		})
		if err != nil {
			break
		}
	}
	pool.Wait()
	return sum, ctx.Err()
}

func (r *Reconciler) reconcile(ctx context.Context, o *models.Order, now time.Time) string {
	c := r.checkout
	log := logger.WithCtx(ctx).With("order_id", o.ID, "payment_intent_id", o.PaymentIntentID)

	release, err := c.locker.Acquire(ctx, "intent:"+o.PaymentIntentID, c.cfg.LockTTL)
	if err != nil {
		if errors.Is(err, cache.ErrLockTimeout) {
			return ReconcileSkipped
		}
		log.Error("reconcile: lock failed", "error", err)
		return ReconcileError
	}
	defer release()

	// A confirmation may have finished while this order waited for a worker.
	current, err := c.orders.FindByIntent(ctx, o.PaymentIntentID)
	if err != nil {
		log.Error("reconcile: reload failed", "error", err)
		return ReconcileError
	}
	if current.Status != models.OrderPending {
		return ReconcileSkipped
	}

	intent, err := c.gateway.RetrieveIntent(ctx, current.PaymentIntentID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			if err := c.settle(ctx, current, models.OrderCancelled, event.OrderCancelled, "payment intent not found"); err != nil {
				log.Error("reconcile: cancel failed", "error", err)
				return ReconcileError
			}
			return ReconcileCancelled
		}
		log.Warn("reconcile: provider unavailable", "error", err)
		return ReconcileError
	}

	switch {
	case intent.Paid():
		if _, err := c.finalize(ctx, current); err != nil {
			if apperr.KindOf(err) == apperr.KindConflict {
				return ReconcileFailed
			}
			log.Error("reconcile: finalize failed", "error", err)
			return ReconcileError
		}
		log.Info("reconcile: finalized paid order")
		return ReconcileConfirmed

	case intent.Status == payment.StatusCanceled:
		if err := c.settle(ctx, current, models.OrderCancelled, event.OrderCancelled, "payment intent canceled"); err != nil {
			log.Error("reconcile: cancel failed", "error", err)
			return ReconcileError
		}
		return ReconcileCancelled

	case current.CreatedAt.Before(now.Add(-r.cfg.ExpireAfter)):
		if _, err := c.gateway.CancelIntent(ctx, current.PaymentIntentID); err != nil {
			log.Warn("reconcile: cancel intent failed", "error", err)
			return ReconcileError
		}
		if err := c.settle(ctx, current, models.OrderCancelled, event.OrderCancelled, "payment not completed in time"); err != nil {
			log.Error("reconcile: expire failed", "error", err)
			return ReconcileError
		}
		return ReconcileExpired
	}

	return ReconcilePending
}
