package seed

import (
	"context"
	"testing"

	"storefront/internal/domain"
	addresssvc "storefront/internal/service/address"
	usersvc "storefront/internal/service/user"
)

type memAccounts struct {
	users map[string]*domain.User
}

func (m *memAccounts) Register(_ context.Context, in usersvc.RegisterInput) (*domain.User, error) {
	if _, ok := m.users[in.Email]; ok {
		return nil, domain.ErrAlreadyExists
	}
	u := &domain.User{ID: "u-demo", Email: in.Email, Name: in.Name}
	m.users[in.Email] = u
	return u, nil
}

func (m *memAccounts) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	if u, ok := m.users[email]; ok {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

type memAddresses struct {
	byUser map[string][]domain.Address
}

func (m *memAddresses) List(_ context.Context, userID string) ([]domain.Address, error) {
	return m.byUser[userID], nil
}

func (m *memAddresses) Create(_ context.Context, userID string, in addresssvc.Input) (*domain.Address, error) {
	a := domain.Address{ID: "a1", UserID: userID, Address: in.Address, AddressType: domain.AddressType(in.AddressType)}
	m.byUser[userID] = append(m.byUser[userID], a)
	return &a, nil
}

func TestApply_IsRepeatable(t *testing.T) {
	accounts := &memAccounts{users: map[string]*domain.User{}}
	addresses := &memAddresses{byUser: map[string][]domain.Address{}}

	first, err := apply(context.Background(), accounts, accounts, addresses)
	if err != nil {
		t.Fatalf("first apply: %v", err)
	}
	if !first.Created || first.UserID != "u-demo" {
		t.Fatalf("unexpected first result %+v", first)
	}

	second, err := apply(context.Background(), accounts, accounts, addresses)
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if second.Created || second.UserID != first.UserID {
		t.Fatalf("unexpected second result %+v", second)
	}
	if got := len(addresses.byUser["u-demo"]); got != 1 {
		t.Fatalf("expected one demo address, got %d", got)
	}
}
