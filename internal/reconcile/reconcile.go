// Package reconcile reports captured payments that never became orders and
// purges expired token revocations.
package reconcile

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"storefront/internal/domain"
	"storefront/internal/metrics"
)

type OrphanLister interface {
	Orphaned(ctx context.Context, cutoff time.Time, limit int) ([]domain.Payment, error)
}

type TokenPurger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

type Reconciler struct {
	payments OrphanLister
	tokens   TokenPurger
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	grace    time.Duration
	interval time.Duration
	now      func() time.Time
}

func New(payments OrphanLister, tokens TokenPurger, m *metrics.Metrics, logger zerolog.Logger, grace time.Duration) *Reconciler {
	if m == nil {
		m = metrics.NewNop()
	}
	return &Reconciler{
		payments: payments,
		tokens:   tokens,
		metrics:  m,
		logger:   logger.With().Str("component", "reconciler").Logger(),
		grace:    grace,
		interval: time.Minute,
		now:      time.Now,
	}
}

func (r *Reconciler) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		if _, err := r.Check(ctx); err != nil && ctx.Err() == nil {
			r.logger.Warn().Err(err).Msg("reconcile pass failed")
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Check runs one pass and returns the orphaned payments it found.
func (r *Reconciler) Check(ctx context.Context) ([]domain.Payment, error) {
	now := r.now().UTC()
	orphans, err := r.payments.Orphaned(ctx, now.Add(-r.grace), 100)
	if err != nil {
		return nil, err
	}
	r.metrics.OrphanPayments.Set(float64(len(orphans)))
	for _, p := range orphans {
		r.logger.Error().
			Str("payment_intent_id", p.PaymentIntentID).
			Str("user_id", p.UserID).
			Int64("amount", p.AmountMinor).
			Time("updated_at", p.UpdatedAt).
			Msg("payment captured without an order")
	}

	if r.tokens != nil {
		n, err := r.tokens.PurgeExpired(ctx, now)
		if err != nil {
			return orphans, err
		}
		if n > 0 {
			r.logger.Debug().Int64("purged", n).Msg("expired token revocations removed")
		}
	}
	return orphans, nil
}
