package events

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"storefront/internal/metrics"
	"storefront/internal/repository/outbox"
)

// Relay drains the outbox in id order. A failed publish stops the batch so
// later events never overtake earlier ones.
type Relay struct {
	store     outbox.Store
	publisher Publisher
	metrics   *metrics.Metrics
	logger    zerolog.Logger
	interval  time.Duration
	batch     int
}

func NewRelay(store outbox.Store, publisher Publisher, m *metrics.Metrics, logger zerolog.Logger, interval time.Duration) *Relay {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if m == nil {
		m = metrics.NewNop()
	}
	return &Relay{
		store:     store,
		publisher: publisher,
		metrics:   m,
		logger:    logger.With().Str("component", "outbox_relay").Logger(),
		interval:  interval,
		batch:     100,
	}
}

// Run polls until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		if _, err := r.Drain(ctx); err != nil && ctx.Err() == nil {
			r.logger.Warn().Err(err).Msg("outbox drain failed")
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Drain publishes one batch and returns how many records were sent.
func (r *Relay) Drain(ctx context.Context) (int, error) {
	records, err := r.store.FetchPending(ctx, r.batch)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, rec := range records {
		msg := Message{ID: rec.EventID, Topic: rec.Topic, Key: rec.Key, Payload: rec.Payload}
		if err := r.publisher.Publish(ctx, msg); err != nil {
			r.metrics.OutboxPublished.WithLabelValues(rec.Topic, "error").Inc()
			return sent, err
		}
		if err := r.store.MarkSent(ctx, rec.ID); err != nil {
			return sent, err
		}
		r.metrics.OutboxPublished.WithLabelValues(rec.Topic, "ok").Inc()
		r.logger.Debug().Str("event_id", rec.EventID).Str("topic", rec.Topic).Msg("event published")
		sent++
	}
	return sent, nil
}
