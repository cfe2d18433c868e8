package address

import (
	"context"

	"storefront/internal/domain"
)

// Repository stores owner-scoped addresses. Every lookup is keyed by
// (userID, id); a record owned by someone else is reported as not found.
type Repository interface {
	List(ctx context.Context, userID string) ([]domain.Address, error)
	Get(ctx context.Context, userID, id string) (*domain.Address, error)
	Create(ctx context.Context, a domain.Address) (*domain.Address, error)
	Update(ctx context.Context, a domain.Address) (*domain.Address, error)
	Delete(ctx context.Context, userID, id string) error
}
