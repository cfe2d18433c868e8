// Package favorites keeps the products a shopper flagged during a session.
// Nothing here is persisted.
package favorites

import (
	"sync"

	"storefront/internal/domain"
)

type Set struct {
	mu    sync.Mutex
	byID  map[int64]int
	items []domain.Product
}

func New() *Set {
	return &Set{byID: make(map[int64]int)}
}

// Toggle flips membership and reports whether p is now a favorite.
func (s *Set) Toggle(p domain.Product) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[p.ID]; ok {
		s.removeLocked(p.ID)
		return false
	}
	s.byID[p.ID] = len(s.items)
	s.items = append(s.items, p)
	return true
}

func (s *Set) Contains(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byID[id]
	return ok
}

func (s *Set) Remove(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(id)
}

func (s *Set) RemoveAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID = make(map[int64]int)
	s.items = nil
}

// List returns favorites in the order they were added.
func (s *Set) List() []domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Product, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// removeLocked shifts the tail so List keeps insertion order.
func (s *Set) removeLocked(id int64) {
	idx, ok := s.byID[id]
	if !ok {
		return
	}
	delete(s.byID, id)
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	for i := idx; i < len(s.items); i++ {
		s.byID[s.items[i].ID] = i
	}
}
