package contact

import (
	"context"
	"errors"
	"strings"

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

const contactColumns = `id::text, user_id::text, phone, email, address, created_at, updated_at`

func (r *postgresRepo) List(ctx context.Context, userID string) ([]domain.Contact, error) {
	const q = `SELECT ` + contactColumns + ` FROM contacts WHERE user_id = $1 ORDER BY created_at, id`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := make([]domain.Contact, 0)
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *postgresRepo) Get(ctx context.Context, userID, id string) (*domain.Contact, error) {
	const q = `SELECT ` + contactColumns + ` FROM contacts WHERE id = $1 AND user_id = $2`
	return scanContact(r.pool.QueryRow(ctx, q, id, userID))
}

func (r *postgresRepo) Create(ctx context.Context, c domain.Contact) (*domain.Contact, error) {
	const q = `
INSERT INTO contacts (user_id, phone, email, address)
VALUES ($1, $2, $3, $4)
RETURNING ` + contactColumns
	return scanContact(r.pool.QueryRow(ctx, q, c.UserID, c.Phone, strings.ToLower(c.Email), c.Address))
}

func (r *postgresRepo) Update(ctx context.Context, c domain.Contact) (*domain.Contact, error) {
	const q = `
UPDATE contacts
SET phone = $3, email = $4, address = $5, updated_at = now()
WHERE id = $1 AND user_id = $2
RETURNING ` + contactColumns
	return scanContact(r.pool.QueryRow(ctx, q, c.ID, c.UserID, c.Phone, strings.ToLower(c.Email), c.Address))
}

func (r *postgresRepo) Delete(ctx context.Context, userID, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM contacts WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return mapErr(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanContact(row pgx.Row) (*domain.Contact, error) {
	var c domain.Contact
	if err := row.Scan(&c.ID, &c.UserID, &c.Phone, &c.Email, &c.Address, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

func mapErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return domain.ErrAlreadyExists
		case "22P02":
			return domain.ErrNotFound
		}
	}
	return err
}
