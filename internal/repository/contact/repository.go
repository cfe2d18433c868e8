package contact

import (
	"context"

	"storefront/internal/domain"
)

// Repository stores owner-scoped contacts. Emails are unique across all
// owners; a clash is reported as domain.ErrAlreadyExists.
type Repository interface {
	List(ctx context.Context, userID string) ([]domain.Contact, error)
	Get(ctx context.Context, userID, id string) (*domain.Contact, error)
	Create(ctx context.Context, c domain.Contact) (*domain.Contact, error)
	Update(ctx context.Context, c domain.Contact) (*domain.Contact, error)
	Delete(ctx context.Context, userID, id string) error
}
