package user

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"storefront/internal/domain"
	tokenrepo "storefront/internal/repository/token"
	userrepo "storefront/internal/repository/user"
)

// Service handles registration, login and bearer-token checks.
type Service struct {
	repo        userrepo.Repository
	tokens      *tokenManager
	passwordMin int
	bcryptCost  int
}

// New creates a Service. ttl is the access token lifetime.
func New(repo userrepo.Repository, tokens tokenrepo.Repository, secret string, ttl time.Duration) *Service {
	return &Service{
		repo:        repo,
		tokens:      newTokenManager(tokens, secret, ttl),
		passwordMin: 6,
		bcryptCost:  10,
	}
}

// RegisterInput captures fields expected by the register endpoint.
type RegisterInput struct {
	Name     string `json:"name"`
	Surname  string `json:"surname"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session is a successful login.
type Session struct {
	Token string
	User  *domain.User
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.Invalid("name", "required")
	}
	surname := strings.TrimSpace(in.Surname)
	if surname == "" {
		return nil, domain.Invalid("surname", "required")
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	password := strings.TrimSpace(in.Password)
	if err := validatePassword(password, s.passwordMin); err != nil {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return s.repo.Create(ctx, domain.User{
		Name:         name,
		Surname:      surname,
		Email:        email,
		PasswordHash: string(hashed),
	})
}

// Login validates credentials and issues a bearer token.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	password = strings.TrimSpace(password)
	u, err := s.repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	token, _, err := s.tokens.Issue(u.ID)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: u}, nil
}

// Authenticate resolves a bearer token. Expired, malformed or revoked tokens
// yield domain.ErrUnauthenticated.
func (s *Service) Authenticate(ctx context.Context, token string) (Claims, error) {
	return s.tokens.Validate(ctx, token)
}

// Logout revokes the token described by c.
func (s *Service) Logout(ctx context.Context, c Claims) error {
	return s.tokens.Revoke(ctx, c)
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", domain.Invalid("email", "required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", domain.Invalid("email", "is not a valid email address")
	}
	return email, nil
}

func validatePassword(p string, min int) error {
	if len(p) < min {
		return domain.Invalid("password", "must be at least %d characters", min)
	}
	return nil
}
