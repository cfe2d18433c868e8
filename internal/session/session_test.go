package session

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
)

func TestStoresAreIsolated(t *testing.T) {
	a := New(nil, nil)
	b := New(nil, nil)

	_, err := a.Cart.AddItem(domain.Product{ID: 1, Price: decimal.NewFromInt(3)}, "", 1)
	require.NoError(t, err)
	a.Favorites.Toggle(domain.Product{ID: 1})

	assert.Equal(t, 1, a.Cart.Len())
	assert.Zero(t, b.Cart.Len())
	assert.Zero(t, b.Favorites.Len())
}

func TestSignInAndLogout(t *testing.T) {
	s := New(nil, nil)
	assert.Nil(t, s.User())
	assert.Empty(t, s.Token())

	s.SignIn(User{ID: "u1", Token: "tok"})
	_, _ = s.Cart.AddItem(domain.Product{ID: 1, Price: decimal.NewFromInt(3)}, "", 1)
	s.Favorites.Toggle(domain.Product{ID: 2})
	require.NotNil(t, s.User())
	assert.Equal(t, "tok", s.Token())

	s.Logout()
	assert.Nil(t, s.User())
	assert.Zero(t, s.Cart.Len())
	assert.Zero(t, s.Favorites.Len())
}
