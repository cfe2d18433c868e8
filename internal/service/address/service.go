package address

import (
	"context"
	"strings"

	"storefront/internal/domain"
	addressrepo "storefront/internal/repository/address"
)

// Service manages a user's address book.
type Service struct {
	repo addressrepo.Repository
}

func New(repo addressrepo.Repository) *Service {
	return &Service{repo: repo}
}

// Input mirrors incoming address payloads. On update, empty fields keep
// their stored value.
type Input struct {
	Name        string `json:"name"`
	Surname     string `json:"surname"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	City        string `json:"city"`
	AddressType string `json:"addressType"`
}

func (s *Service) List(ctx context.Context, userID string) ([]domain.Address, error) {
	return s.repo.List(ctx, userID)
}

func (s *Service) Create(ctx context.Context, userID string, in Input) (*domain.Address, error) {
	a := domain.Address{UserID: userID}
	apply(&a, in)
	if a.AddressType == "" {
		a.AddressType = domain.AddressHome
	}
	if err := validate(a); err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, a)
}

func (s *Service) Update(ctx context.Context, userID, id string, in Input) (*domain.Address, error) {
	current, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	apply(current, in)
	if err := validate(*current); err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, *current)
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	return s.repo.Delete(ctx, userID, id)
}

func apply(a *domain.Address, in Input) {
	set := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	set(&a.Name, in.Name)
	set(&a.Surname, in.Surname)
	set(&a.Phone, in.Phone)
	set(&a.Address, in.Address)
	set(&a.City, in.City)
	if t := strings.ToLower(strings.TrimSpace(in.AddressType)); t != "" {
		a.AddressType = domain.AddressType(t)
	}
}

func validate(a domain.Address) error {
	required := []struct{ field, value string }{
		{"name", a.Name},
		{"surname", a.Surname},
		{"phone", a.Phone},
		{"address", a.Address},
		{"city", a.City},
	}
	for _, r := range required {
		if r.value == "" {
			return domain.Invalid(r.field, "required")
		}
	}
	switch a.AddressType {
	case domain.AddressHome, domain.AddressWork:
	default:
		return domain.Invalid("addressType", "must be home or work")
	}
	return nil
}
