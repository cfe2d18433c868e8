package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"storefront/internal/domain"
	tokenrepo "storefront/internal/repository/token"
)

// Claims identifies the bearer of a valid access token.
type Claims struct {
	UserID    string
	JTI       string
	ExpiresAt time.Time
}

type tokenManager struct {
	repo   tokenrepo.Repository
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func newTokenManager(repo tokenrepo.Repository, secret string, ttl time.Duration) *tokenManager {
	return &tokenManager{repo: repo, secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (m *tokenManager) Issue(userID string) (string, Claims, error) {
	now := m.now()
	claims := Claims{UserID: userID, JTI: uuid.NewString(), ExpiresAt: now.Add(m.ttl)}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		ID:        claims.JTI,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", Claims{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

func (m *tokenManager) Validate(ctx context.Context, raw string) (Claims, error) {
	var rc jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &rc, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return Claims{}, domain.ErrUnauthenticated
	}
	if rc.Subject == "" || rc.ID == "" {
		return Claims{}, domain.ErrUnauthenticated
	}

	revoked, err := m.repo.IsRevoked(ctx, rc.ID)
	if err != nil {
		return Claims{}, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return Claims{}, domain.ErrUnauthenticated
	}
	return Claims{UserID: rc.Subject, JTI: rc.ID, ExpiresAt: rc.ExpiresAt.Time}, nil
}

func (m *tokenManager) Revoke(ctx context.Context, c Claims) error {
	if c.JTI == "" {
		return errors.New("revoke: missing token id")
	}
	return m.repo.Revoke(ctx, tokenrepo.Revocation{JTI: c.JTI, UserID: c.UserID, ExpiresAt: c.ExpiresAt})
}
