package payment

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"storefront/internal/domain"
)

// Card numbers and method ids the fake declines.
const (
	DeclinedCard   = "4000000000000002"
	DeclinedMethod = "pm_card_chargeDeclined"
)

// Fake is an in-memory processor. Every card succeeds except DeclinedCard
// and DeclinedMethod.
type Fake struct {
	mu        sync.Mutex
	intents   map[string]*fakeIntent
	byIdemKey map[string]string
}

type fakeIntent struct {
	amount int64
	status domain.PaymentStatus
	secret string
}

func NewFake() *Fake {
	return &Fake{intents: make(map[string]*fakeIntent), byIdemKey: make(map[string]string)}
}

func (f *Fake) CreateIntent(ctx context.Context, amountMinor int64, _ string, idempotencyKey string) (Intent, error) {
	if err := ctx.Err(); err != nil {
		return Intent{}, &domain.GatewayError{Op: "intent", Message: "payment service is unavailable, please try again", Err: err}
	}
	if amountMinor <= 0 {
		return Intent{}, &domain.GatewayError{Op: "intent", Message: "amount must be positive"}
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if id, ok := f.byIdemKey[idempotencyKey]; ok && idempotencyKey != "" {
		in := f.intents[id]
		return Intent{ID: id, ClientSecret: in.secret, Status: in.status}, nil
	}
	id := "pi_fake_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	in := &fakeIntent{amount: amountMinor, status: domain.PaymentPending, secret: id + "_secret_" + uuid.NewString()[:8]}
	f.intents[id] = in
	if idempotencyKey != "" {
		f.byIdemKey[idempotencyKey] = id
	}
	return Intent{ID: id, ClientSecret: in.secret, Status: in.status}, nil
}

func (f *Fake) Confirm(ctx context.Context, intentID string, m Method) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, &domain.GatewayError{Op: "confirm", Message: "payment service is unavailable, please try again", Err: err}
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	in, ok := f.intents[intentID]
	if !ok {
		return Result{}, &domain.GatewayError{Op: "confirm", Message: "no such payment intent"}
	}
	if in.status != domain.PaymentPending {
		return Result{}, &domain.GatewayError{Op: "confirm", Message: "payment intent already " + string(in.status)}
	}

	methodID := m.ID
	declined := methodID == DeclinedMethod
	if methodID == "" {
		if m.Card == nil {
			return Result{}, domain.Invalid("paymentMethodDetails", "required")
		}
		methodID = "pm_fake_" + uuid.NewString()[:8]
		declined = strings.ReplaceAll(m.Card.Number, " ", "") == DeclinedCard
	}
	if declined {
		in.status = domain.PaymentFailed
		return Result{IntentID: intentID, Status: in.status, PaymentMethodID: methodID, DeclineMessage: "Your card was declined."}, nil
	}
	in.status = domain.PaymentSucceeded
	return Result{IntentID: intentID, Status: in.status, PaymentMethodID: methodID}, nil
}
