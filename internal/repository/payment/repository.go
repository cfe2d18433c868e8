package payment

import (
	"context"
	"time"

	"storefront/internal/domain"
)

// Repository persists payment intents mirrored from the gateway.
type Repository interface {
	// Create stores a pending payment. idempotencyKey may be empty.
	Create(ctx context.Context, p domain.Payment, idempotencyKey string) (*domain.Payment, error)
	GetByIdempotencyKey(ctx context.Context, userID, key string) (*domain.Payment, error)
	GetByClientSecret(ctx context.Context, userID, clientSecret string) (*domain.Payment, error)
	GetByIntentID(ctx context.Context, userID, intentID string) (*domain.Payment, error)
	// Settle moves a pending payment to its final status. Settling again with
	// the same status returns the stored payment; a different status is
	// domain.ErrConflict.
	Settle(ctx context.Context, intentID string, status domain.PaymentStatus, methodID string) (*domain.Payment, error)
	// Orphaned lists succeeded payments last updated before cutoff that have
	// no order.
	Orphaned(ctx context.Context, cutoff time.Time, limit int) ([]domain.Payment, error)
}
