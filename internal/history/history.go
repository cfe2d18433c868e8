// Package history lists the signed-in shopper's past orders.
package history

import (
	"context"
	"sort"

	"storefront/internal/domain"
)

// Source fetches the caller's orders in storage order.
type Source interface {
	ListOrders(ctx context.Context) ([]domain.Order, error)
}

type Book struct {
	src Source
}

func New(src Source) *Book {
	return &Book{src: src}
}

// Fetch returns the orders most recent first. Orders created at the same
// instant keep their storage order.
func (b *Book) Fetch(ctx context.Context) ([]domain.Order, error) {
	orders, err := b.src.ListOrders(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}
