package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"storefront/internal/domain"
	addressrepo "storefront/internal/repository/address"
	tokenrepo "storefront/internal/repository/token"
	userrepo "storefront/internal/repository/user"
	addresssvc "storefront/internal/service/address"
	usersvc "storefront/internal/service/user"
)

const (
	DemoEmail    = "demo@storefront.local"
	DemoPassword = "demo1234"
)

type Result struct {
	UserID  string
	Email   string
	Created bool
}

// Apply creates a demo shopper with one home address for manual testing.
// Running it again leaves existing data untouched.
func Apply(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger) (Result, error) {
	users := userrepo.NewPostgres(pool, logger)
	// the seed never issues tokens, so the signing secret is irrelevant
	accounts := usersvc.New(users, tokenrepo.NewPostgres(pool), "seed", time.Minute)
	addresses := addresssvc.New(addressrepo.NewPostgres(pool))
	return apply(ctx, users, accounts, addresses)
}

type userLookup interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type registrar interface {
	Register(ctx context.Context, in usersvc.RegisterInput) (*domain.User, error)
}

type addressBook interface {
	List(ctx context.Context, userID string) ([]domain.Address, error)
	Create(ctx context.Context, userID string, in addresssvc.Input) (*domain.Address, error)
}

func apply(ctx context.Context, users userLookup, accounts registrar, addresses addressBook) (Result, error) {
	res := Result{Email: DemoEmail}

	u, err := accounts.Register(ctx, usersvc.RegisterInput{
		Name:     "Demo",
		Surname:  "Shopper",
		Email:    DemoEmail,
		Password: DemoPassword,
	})
	switch {
	case err == nil:
		res.Created = true
	case errors.Is(err, domain.ErrAlreadyExists):
		u, err = users.GetByEmail(ctx, DemoEmail)
		if err != nil {
			return res, fmt.Errorf("load demo user: %w", err)
		}
	default:
		return res, fmt.Errorf("register demo user: %w", err)
	}
	res.UserID = u.ID

	existing, err := addresses.List(ctx, u.ID)
	if err != nil {
		return res, fmt.Errorf("list demo addresses: %w", err)
	}
	if len(existing) > 0 {
		return res, nil
	}
	_, err = addresses.Create(ctx, u.ID, addresssvc.Input{
		Name:        "Demo",
		Surname:     "Shopper",
		Phone:       "+1 555 0100",
		Address:     "1 Market Street",
		City:        "San Francisco",
		AddressType: string(domain.AddressHome),
	})
	if err != nil {
		return res, fmt.Errorf("create demo address: %w", err)
	}
	return res, nil
}
