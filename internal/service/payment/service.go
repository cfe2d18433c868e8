package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"storefront/internal/domain"
	"storefront/internal/guard"
	"storefront/internal/metrics"
	gateway "storefront/internal/payment"
	paymentrepo "storefront/internal/repository/payment"
)

// Service creates and confirms payments for authenticated users.
type Service struct {
	repo     paymentrepo.Repository
	provider gateway.Provider
	locks    guard.Locker
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	currency string
	lockTTL  time.Duration
}

type Options struct {
	Currency string
	LockTTL  time.Duration
	Metrics  *metrics.Metrics
	Logger   zerolog.Logger
}

func New(repo paymentrepo.Repository, provider gateway.Provider, locks guard.Locker, opts Options) *Service {
	if opts.Currency == "" {
		opts.Currency = "usd"
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = time.Minute
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewNop()
	}
	return &Service{
		repo:     repo,
		provider: provider,
		locks:    locks,
		metrics:  opts.Metrics,
		logger:   opts.Logger.With().Str("component", "payment").Logger(),
		currency: strings.ToLower(opts.Currency),
		lockTTL:  opts.LockTTL,
	}
}

// IntentInput is the paymentorder request. Amount is in minor units.
type IntentInput struct {
	Amount         int64
	UserID         string
	IdempotencyKey string
}

// CreateIntent opens a payment intent for userID. A repeated call with the
// same idempotency key returns the original payment with created=false.
// While another intent for the user is awaiting confirmation the call fails
// with domain.ErrCheckoutInFlight.
func (s *Service) CreateIntent(ctx context.Context, userID string, in IntentInput) (*domain.Payment, bool, error) {
	if in.Amount <= 0 {
		return nil, false, domain.Invalid("amount", "must be a positive integer in minor units")
	}
	if in.UserID != "" && in.UserID != userID {
		return nil, false, domain.Invalid("userId", "does not match the authenticated user")
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	if key != "" {
		existing, err := s.repo.GetByIdempotencyKey(ctx, userID, key)
		if err == nil {
			if existing.AmountMinor != in.Amount {
				return nil, false, &domain.ConflictError{Field: "amount", Message: "idempotency key was used with a different amount"}
			}
			return existing, false, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, false, err
		}
	}

	ok, err := s.locks.Acquire(ctx, userID, s.lockTTL)
	if err != nil {
		return nil, false, fmt.Errorf("acquire checkout lock: %w", err)
	}
	if !ok {
		return nil, false, domain.ErrCheckoutInFlight
	}

	intent, err := s.provider.CreateIntent(ctx, in.Amount, s.currency, key)
	if err != nil {
		s.release(ctx, userID)
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("create intent failed")
		return nil, false, err
	}

	p, err := s.repo.Create(ctx, domain.Payment{
		UserID:          userID,
		AmountMinor:     in.Amount,
		Currency:        s.currency,
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
	}, key)
	if err != nil {
		s.release(ctx, userID)
		return nil, false, fmt.Errorf("store payment %s: %w", intent.ID, err)
	}
	s.metrics.Payments.WithLabelValues(string(domain.PaymentPending)).Inc()
	s.logger.Info().Str("user_id", userID).Str("payment_intent_id", p.PaymentIntentID).Int64("amount", p.AmountMinor).Msg("payment intent created")
	return p, true, nil
}

// ConfirmInput is the confirm request.
type ConfirmInput struct {
	ClientSecret string
	Method       gateway.Method
}

// Confirm charges the payment identified by its client secret. A declined
// card settles the payment as failed and returns *domain.GatewayError.
// Confirming an already succeeded payment returns it unchanged. Every
// outcome except a success that could not be recorded releases the user's
// checkout lock.
func (s *Service) Confirm(ctx context.Context, userID string, in ConfirmInput) (*domain.Payment, error) {
	if strings.TrimSpace(in.ClientSecret) == "" {
		return nil, domain.Invalid("clientSecret", "required")
	}
	if in.Method.ID == "" && in.Method.Card == nil {
		return nil, domain.Invalid("paymentMethodDetails", "required")
	}

	p, err := s.repo.GetByClientSecret(ctx, userID, in.ClientSecret)
	if err != nil {
		return nil, err
	}
	switch p.Status {
	case domain.PaymentSucceeded:
		return p, nil
	case domain.PaymentFailed:
		return nil, &domain.GatewayError{Op: "confirm", Message: "this payment has already failed, start a new checkout"}
	}

	res, err := s.provider.Confirm(ctx, p.PaymentIntentID, in.Method)
	if err != nil {
		s.release(ctx, userID)
		s.logger.Warn().Err(err).Str("payment_intent_id", p.PaymentIntentID).Msg("confirm failed")
		return nil, err
	}

	log := s.logger.With().Str("user_id", userID).Str("payment_intent_id", p.PaymentIntentID).Logger()
	switch res.Status {
	case domain.PaymentSucceeded:
		settled, err := s.repo.Settle(ctx, p.PaymentIntentID, domain.PaymentSucceeded, res.PaymentMethodID)
		if err != nil {
			log.Error().Err(err).Msg("payment succeeded at processor but could not be recorded")
			return nil, fmt.Errorf("settle payment %s: %w", p.PaymentIntentID, err)
		}
		s.release(ctx, userID)
		s.metrics.Payments.WithLabelValues(string(domain.PaymentSucceeded)).Inc()
		log.Info().Msg("payment succeeded")
		return settled, nil
	case domain.PaymentFailed:
		if _, err := s.repo.Settle(ctx, p.PaymentIntentID, domain.PaymentFailed, res.PaymentMethodID); err != nil {
			log.Error().Err(err).Msg("record failed payment")
		}
		s.release(ctx, userID)
		s.metrics.Payments.WithLabelValues(string(domain.PaymentFailed)).Inc()
		msg := res.DeclineMessage
		if msg == "" {
			msg = "payment was declined"
		}
		log.Info().Str("reason", msg).Msg("payment declined")
		return nil, &domain.GatewayError{Op: "confirm", Message: msg}
	default:
		s.release(ctx, userID)
		log.Info().Str("status", string(res.Status)).Msg("payment not completed")
		return nil, &domain.GatewayError{Op: "confirm", Message: "payment requires further action and was not completed"}
	}
}

func (s *Service) release(ctx context.Context, userID string) {
	if err := s.locks.Release(context.WithoutCancel(ctx), userID); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("release checkout lock")
	}
}
