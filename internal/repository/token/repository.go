package token

import (
	"context"
	"time"
)

// Revocation marks a bearer token id as no longer valid.
type Revocation struct {
	JTI       string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Repository tracks revoked tokens until they would have expired anyway.
type Repository interface {
	Revoke(ctx context.Context, rev Revocation) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
