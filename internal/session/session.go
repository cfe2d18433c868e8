// Package session holds the per-device state of one shopper: who is signed
// in, the cart and the favorites. Each session owns its own Store.
package session

import (
	"sync"

	"storefront/internal/favorites"
	"storefront/internal/ledger"
)

// User is the signed-in shopper as returned by login.
type User struct {
	ID      string
	Name    string
	Surname string
	Email   string
	Token   string
}

type Store struct {
	Cart      *ledger.Ledger
	Favorites *favorites.Set

	mu   sync.RWMutex
	user *User
}

// New builds an empty store. apparel is forwarded to the cart ledger.
func New(notifier ledger.Notifier, apparel []string) *Store {
	return &Store{
		Cart:      ledger.New(notifier, apparel),
		Favorites: favorites.New(),
	}
}

func (s *Store) SignIn(u User) {
	s.mu.Lock()
	s.user = &u
	s.mu.Unlock()
}

// User returns the signed-in user, or nil.
func (s *Store) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Token returns the bearer credential, empty when signed out.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return ""
	}
	return s.user.Token
}

// Logout forgets the user and empties cart and favorites.
func (s *Store) Logout() {
	s.mu.Lock()
	s.user = nil
	s.mu.Unlock()
	s.Cart.Clear()
	s.Favorites.RemoveAll()
}
