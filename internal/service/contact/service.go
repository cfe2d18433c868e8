package contact

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"storefront/internal/domain"
	contactrepo "storefront/internal/repository/contact"
)

// Service manages a user's contact records. A contact email may be used by
// one record across all users.
type Service struct {
	repo contactrepo.Repository
}

func New(repo contactrepo.Repository) *Service {
	return &Service{repo: repo}
}

// Input mirrors incoming contact payloads. On update, empty fields keep
// their stored value.
type Input struct {
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
}

func (s *Service) List(ctx context.Context, userID string) ([]domain.Contact, error) {
	return s.repo.List(ctx, userID)
}

func (s *Service) Create(ctx context.Context, userID string, in Input) (*domain.Contact, error) {
	c := domain.Contact{UserID: userID}
	if err := apply(&c, in); err != nil {
		return nil, err
	}
	if err := validate(c); err != nil {
		return nil, err
	}
	created, err := s.repo.Create(ctx, c)
	return created, emailTaken(err)
}

func (s *Service) Update(ctx context.Context, userID, id string, in Input) (*domain.Contact, error) {
	current, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := apply(current, in); err != nil {
		return nil, err
	}
	if err := validate(*current); err != nil {
		return nil, err
	}
	updated, err := s.repo.Update(ctx, *current)
	return updated, emailTaken(err)
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	return s.repo.Delete(ctx, userID, id)
}

func apply(c *domain.Contact, in Input) error {
	if v := strings.TrimSpace(in.Phone); v != "" {
		c.Phone = v
	}
	if v := strings.ToLower(strings.TrimSpace(in.Email)); v != "" {
		addr, err := mail.ParseAddress(v)
		if err != nil || addr.Address != v {
			return domain.Invalid("email", "is not a valid email address")
		}
		c.Email = v
	}
	if v := strings.TrimSpace(in.Address); v != "" {
		c.Address = v
	}
	return nil
}

func validate(c domain.Contact) error {
	switch {
	case c.Phone == "":
		return domain.Invalid("phone", "required")
	case c.Email == "":
		return domain.Invalid("email", "required")
	case c.Address == "":
		return domain.Invalid("address", "required")
	}
	return nil
}

func emailTaken(err error) error {
	if errors.Is(err, domain.ErrAlreadyExists) {
		return &domain.ConflictError{Field: "email", Message: "a contact with this email already exists"}
	}
	return err
}
