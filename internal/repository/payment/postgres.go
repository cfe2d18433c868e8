package payment

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"storefront/internal/domain"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

// NewPostgres returns a Repository backed by Postgres.
func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

const paymentColumns = `id::text, user_id::text, amount, currency, status, payment_intent_id, client_secret, payment_method_id, created_at, updated_at`

func (r *postgresRepo) Create(ctx context.Context, p domain.Payment, idempotencyKey string) (*domain.Payment, error) {
	const q = `
INSERT INTO payments (user_id, amount, currency, status, payment_intent_id, client_secret, idempotency_key)
VALUES ($1, $2, $3, 'pending', $4, $5, NULLIF($6, ''))
RETURNING ` + paymentColumns
	return scanPayment(r.pool.QueryRow(ctx, q, p.UserID, p.AmountMinor, p.Currency, p.PaymentIntentID, p.ClientSecret, idempotencyKey))
}

func (r *postgresRepo) GetByIdempotencyKey(ctx context.Context, userID, key string) (*domain.Payment, error) {
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE user_id = $1 AND idempotency_key = $2`
	return scanPayment(r.pool.QueryRow(ctx, q, userID, key))
}

func (r *postgresRepo) GetByClientSecret(ctx context.Context, userID, clientSecret string) (*domain.Payment, error) {
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE user_id = $1 AND client_secret = $2`
	return scanPayment(r.pool.QueryRow(ctx, q, userID, clientSecret))
}

func (r *postgresRepo) GetByIntentID(ctx context.Context, userID, intentID string) (*domain.Payment, error) {
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE user_id = $1 AND payment_intent_id = $2`
	return scanPayment(r.pool.QueryRow(ctx, q, userID, intentID))
}

func (r *postgresRepo) Settle(ctx context.Context, intentID string, status domain.PaymentStatus, methodID string) (*domain.Payment, error) {
	const q = `
UPDATE payments
SET status = $2, payment_method_id = $3, updated_at = now()
WHERE payment_intent_id = $1 AND status = 'pending'
RETURNING ` + paymentColumns
	p, err := scanPayment(r.pool.QueryRow(ctx, q, intentID, string(status), methodID))
	if !errors.Is(err, domain.ErrNotFound) {
		return p, err
	}

	current, err := scanPayment(r.pool.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE payment_intent_id = $1`, intentID))
	if err != nil {
		return nil, err
	}
	if current.Status != status {
		return nil, domain.ErrConflict
	}
	return current, nil
}

func (r *postgresRepo) Orphaned(ctx context.Context, cutoff time.Time, limit int) ([]domain.Payment, error) {
	const q = `
SELECT ` + paymentColumns + `
FROM payments p
WHERE p.status = 'succeeded'
  AND p.updated_at < $1
  AND NOT EXISTS (SELECT 1 FROM orders o WHERE o.payment_intent_id = p.payment_intent_id)
ORDER BY p.updated_at
LIMIT $2
`
	rows, err := r.pool.Query(ctx, q, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var (
		p      domain.Payment
		status string
	)
	err := row.Scan(&p.ID, &p.UserID, &p.AmountMinor, &p.Currency, &status, &p.PaymentIntentID,
		&p.ClientSecret, &p.PaymentMethodID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrAlreadyExists
		}
		return nil, err
	}
	p.Status = domain.PaymentStatus(status)
	return &p, nil
}
