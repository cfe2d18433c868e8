package order

import (
	"context"

	"storefront/internal/domain"
)

// Repository appends immutable orders. At most one order exists per payment
// intent id.
type Repository interface {
	// Append stores o and enqueues an order.placed event atomically. When an
	// order already exists for o.PaymentIntentID, that order is returned with
	// created=false.
	Append(ctx context.Context, o domain.Order) (order *domain.Order, created bool, err error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
}
