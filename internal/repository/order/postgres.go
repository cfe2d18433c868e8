package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	"storefront/internal/repository/outbox"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

// NewPostgres returns a Repository backed by Postgres.
func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

const orderColumns = `id::text, user_id::text, payment_intent_id, items, total::text, address, created_at`

func (r *postgresRepo) Append(ctx context.Context, o domain.Order) (*domain.Order, bool, error) {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return nil, false, fmt.Errorf("encode items: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const insert = `
INSERT INTO orders (user_id, payment_intent_id, items, total, address, created_at)
VALUES ($1, $2, $3, $4::numeric, $5, $6)
ON CONFLICT (payment_intent_id) DO NOTHING
RETURNING ` + orderColumns
	created, err := scanOrder(tx.QueryRow(ctx, insert, o.UserID, o.PaymentIntentID, items, o.Total.StringFixed(2), o.Address, o.CreatedAt))
	if errors.Is(err, domain.ErrNotFound) {
		existing, err := scanOrder(tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE payment_intent_id = $1`, o.PaymentIntentID))
		if err != nil {
			return nil, false, err
		}
		return existing, false, tx.Commit(ctx)
	}
	if err != nil {
		return nil, false, err
	}

	if _, err := outbox.Insert(ctx, tx, outbox.TopicOrderPlaced, created.ID, created); err != nil {
		return nil, false, fmt.Errorf("enqueue order event: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, false, err
	}
	return created, true, nil
}

func (r *postgresRepo) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	const q = `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o     domain.Order
		items []byte
		total string
	)
	if err := row.Scan(&o.ID, &o.UserID, &o.PaymentIntentID, &items, &total, &o.Address, &o.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("decode items for order %s: %w", o.ID, err)
	}
	d, err := decimal.NewFromString(total)
	if err != nil {
		return nil, fmt.Errorf("decode total for order %s: %w", o.ID, err)
	}
	o.Total = d
	return &o, nil
}
