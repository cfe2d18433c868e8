package address

import (
	"context"
	"errors"

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

const addressColumns = `id::text, user_id::text, name, surname, phone, address, city, address_type, created_at, updated_at`

func (r *postgresRepo) List(ctx context.Context, userID string) ([]domain.Address, error) {
	const q = `SELECT ` + addressColumns + ` FROM addresses WHERE user_id = $1 ORDER BY created_at, id`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := make([]domain.Address, 0)
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (r *postgresRepo) Get(ctx context.Context, userID, id string) (*domain.Address, error) {
	const q = `SELECT ` + addressColumns + ` FROM addresses WHERE id = $1 AND user_id = $2`
	return scanAddress(r.pool.QueryRow(ctx, q, id, userID))
}

func (r *postgresRepo) Create(ctx context.Context, a domain.Address) (*domain.Address, error) {
	const q = `
INSERT INTO addresses (user_id, name, surname, phone, address, city, address_type)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + addressColumns
	return scanAddress(r.pool.QueryRow(ctx, q, a.UserID, a.Name, a.Surname, a.Phone, a.Address, a.City, string(a.AddressType)))
}

func (r *postgresRepo) Update(ctx context.Context, a domain.Address) (*domain.Address, error) {
	const q = `
UPDATE addresses
SET name = $3, surname = $4, phone = $5, address = $6, city = $7, address_type = $8, updated_at = now()
WHERE id = $1 AND user_id = $2
RETURNING ` + addressColumns
	return scanAddress(r.pool.QueryRow(ctx, q, a.ID, a.UserID, a.Name, a.Surname, a.Phone, a.Address, a.City, string(a.AddressType)))
}

func (r *postgresRepo) Delete(ctx context.Context, userID, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM addresses WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return mapErr(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanAddress(row pgx.Row) (*domain.Address, error) {
	var (
		a   domain.Address
		typ string
	)
	if err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.Surname, &a.Phone, &a.Address, &a.City, &typ, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	a.AddressType = domain.AddressType(typ)
	return &a, nil
}

func mapErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "22P02" {
		return domain.ErrNotFound
	}
	return err
}
