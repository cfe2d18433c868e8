package order

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	"storefront/internal/repository/outbox"
	"storefront/internal/repository/payment"
	"storefront/internal/testdb"
)

func TestPostgres_AppendIsIdempotentPerPayment(t *testing.T) {
	ctx := context.Background()
	pool := testdb.Pool(ctx, t)
	userID := testdb.User(ctx, t, pool, "orders@example.com")

	payments := payment.NewPostgres(pool)
	if _, err := payments.Create(ctx, domain.Payment{
		UserID:          userID,
		AmountMinor:     3998,
		Currency:        "usd",
		PaymentIntentID: "pi_test",
		ClientSecret:    "pi_test_secret",
	}, ""); err != nil {
		t.Fatalf("create payment: %v", err)
	}

	repo := NewPostgres(pool)
	in := domain.Order{
		UserID:          userID,
		PaymentIntentID: "pi_test",
		Items: []domain.OrderLine{
			{ProductID: 7, Title: "Tee", Variant: "M", Quantity: 2, Price: decimal.RequireFromString("19.99")},
		},
		Total:     decimal.RequireFromString("39.98"),
		Address:   "1 Main St",
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}

	first, created, err := repo.Append(ctx, in)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if !created || first.ID == "" {
		t.Fatalf("expected new order, got created=%v %+v", created, first)
	}
	if !first.Total.Equal(in.Total) || len(first.Items) != 1 || first.Items[0].Variant != "M" {
		t.Fatalf("unexpected order %+v", first)
	}

	second, created, err := repo.Append(ctx, in)
	if err != nil {
		t.Fatalf("second append: %v", err)
	}
	if created || second.ID != first.ID {
		t.Fatalf("expected replay of %s, got created=%v id=%s", first.ID, created, second.ID)
	}

	list, err := repo.ListByUser(ctx, userID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected one order, got %d", len(list))
	}

	pending, err := outbox.NewPostgres(pool).FetchPending(ctx, 10)
	if err != nil {
		t.Fatalf("fetch outbox: %v", err)
	}
	if len(pending) != 1 || pending[0].Topic != outbox.TopicOrderPlaced || pending[0].Key != first.ID {
		t.Fatalf("unexpected outbox %+v", pending)
	}
}

func TestPostgres_ListByUserIsScoped(t *testing.T) {
	ctx := context.Background()
	pool := testdb.Pool(ctx, t)
	owner := testdb.User(ctx, t, pool, "owner@example.com")
	other := testdb.User(ctx, t, pool, "other@example.com")

	payments := payment.NewPostgres(pool)
	if _, err := payments.Create(ctx, domain.Payment{UserID: owner, AmountMinor: 100, Currency: "usd", PaymentIntentID: "pi_a", ClientSecret: "s_a"}, ""); err != nil {
		t.Fatalf("create payment: %v", err)
	}
	repo := NewPostgres(pool)
	if _, _, err := repo.Append(ctx, domain.Order{
		UserID: owner, PaymentIntentID: "pi_a", Total: decimal.NewFromInt(1), Address: "x", CreatedAt: time.Now(),
		Items: []domain.OrderLine{{ProductID: 1, Title: "a", Quantity: 1, Price: decimal.NewFromInt(1)}},
	}); err != nil {
		t.Fatalf("append: %v", err)
	}

	list, err := repo.ListByUser(ctx, other)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected no orders for other user, got %+v", list)
	}
}
