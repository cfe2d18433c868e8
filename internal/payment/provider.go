// Package payment talks to the card processor. Stripe is used in
// production; Fake serves local development and tests.
package payment

import (
	"context"
	"fmt"
	"strings"

	"storefront/internal/config"
	"storefront/internal/domain"
)

// Intent is a payment intent created at the processor.
type Intent struct {
	ID           string
	ClientSecret string
	Status       domain.PaymentStatus
}

// Card is raw card data forwarded to the processor.
type Card struct {
	Number   string `json:"number"`
	ExpMonth int    `json:"expMonth"`
	ExpYear  int    `json:"expYear"`
	CVC      string `json:"cvc"`
}

// Method identifies how to pay: an existing payment method id, or a card
// plus billing details.
type Method struct {
	ID      string
	Card    *Card
	Email   string
	Address string
}

// Result is the outcome of a confirmation. A declined card is a Result
// with Status failed and a DeclineMessage, not an error.
type Result struct {
	IntentID        string
	Status          domain.PaymentStatus
	PaymentMethodID string
	DeclineMessage  string
}

// Provider creates and confirms payment intents.
type Provider interface {
	CreateIntent(ctx context.Context, amountMinor int64, currency, idempotencyKey string) (Intent, error)
	Confirm(ctx context.Context, intentID string, m Method) (Result, error)
}

// FromConfig picks the provider named by PAYMENT_PROVIDER.
func FromConfig(cfg config.Config) (Provider, error) {
	switch strings.ToLower(cfg.PaymentProvider) {
	case "stripe":
		if cfg.StripeSecretKey == "" {
			return nil, fmt.Errorf("payment provider stripe: STRIPE_SECRET_KEY is empty")
		}
		return NewStripe(cfg.StripeSecretKey), nil
	case "", "fake":
		return NewFake(), nil
	default:
		return nil, fmt.Errorf("unknown payment provider %q", cfg.PaymentProvider)
	}
}
