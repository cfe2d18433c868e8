package payment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	"storefront/internal/guard"
	gateway "storefront/internal/payment"
)

type memoryRepo struct {
	mu   sync.Mutex
	rows map[string]*domain.Payment
	keys map[string]string
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{rows: make(map[string]*domain.Payment), keys: make(map[string]string)}
}

func (r *memoryRepo) Create(_ context.Context, p domain.Payment, key string) (*domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = "pay-" + p.PaymentIntentID
	p.Status = domain.PaymentPending
	r.rows[p.PaymentIntentID] = &p
	if key != "" {
		r.keys[p.UserID+"/"+key] = p.PaymentIntentID
	}
	out := p
	return &out, nil
}

func (r *memoryRepo) GetByIdempotencyKey(_ context.Context, userID, key string) (*domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.keys[userID+"/"+key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *r.rows[id]
	return &out, nil
}

func (r *memoryRepo) GetByClientSecret(_ context.Context, userID, secret string) (*domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.rows {
		if p.ClientSecret == secret && p.UserID == userID {
			out := *p
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memoryRepo) GetByIntentID(_ context.Context, userID, id string) (*domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[id]
	if !ok || p.UserID != userID {
		return nil, domain.ErrNotFound
	}
	out := *p
	return &out, nil
}

func (r *memoryRepo) Settle(_ context.Context, id string, status domain.PaymentStatus, method string) (*domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if p.Status != domain.PaymentPending {
		if p.Status != status {
			return nil, domain.ErrConflict
		}
		out := *p
		return &out, nil
	}
	p.Status = status
	p.PaymentMethodID = method
	out := *p
	return &out, nil
}

func (r *memoryRepo) Orphaned(context.Context, time.Time, int) ([]domain.Payment, error) {
	return nil, nil
}

type brokenProvider struct {
	gateway.Provider
	confirmErr error
	status     domain.PaymentStatus
}

func (b *brokenProvider) Confirm(context.Context, string, gateway.Method) (gateway.Result, error) {
	if b.confirmErr != nil {
		return gateway.Result{}, b.confirmErr
	}
	return gateway.Result{Status: b.status}, nil
}

func newService(repo *memoryRepo) *Service {
	return New(repo, gateway.NewFake(), guard.NewMemory(), Options{Currency: "USD", Logger: zerolog.Nop()})
}

var visa = &gateway.Card{Number: "4242424242424242", ExpMonth: 12, ExpYear: 2030, CVC: "123"}

func TestCreateAndConfirm(t *testing.T) {
	repo := newMemoryRepo()
	svc := newService(repo)
	ctx := context.Background()

	p, created, err := svc.CreateIntent(ctx, "u1", IntentInput{Amount: 4998, UserID: "u1"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "usd", p.Currency)
	assert.Equal(t, domain.PaymentPending, p.Status)

	confirmed, err := svc.Confirm(ctx, "u1", ConfirmInput{ClientSecret: p.ClientSecret, Method: gateway.Method{Card: visa}})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentSucceeded, confirmed.Status)
	assert.NotEmpty(t, confirmed.PaymentMethodID)

	again, err := svc.Confirm(ctx, "u1", ConfirmInput{ClientSecret: p.ClientSecret, Method: gateway.Method{Card: visa}})
	require.NoError(t, err)
	assert.Equal(t, confirmed.PaymentIntentID, again.PaymentIntentID)

	_, created, err = svc.CreateIntent(ctx, "u1", IntentInput{Amount: 100})
	require.NoError(t, err, "lock is released after success")
	assert.True(t, created)
}

func TestCreateIntent_Validation(t *testing.T) {
	svc := newService(newMemoryRepo())
	_, _, err := svc.CreateIntent(context.Background(), "u1", IntentInput{Amount: 0})
	assert.Equal(t, domain.KindValidation, domain.Kind(err))

	_, _, err = svc.CreateIntent(context.Background(), "u1", IntentInput{Amount: 100, UserID: "someone-else"})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "userId", verr.Field)
}

func TestCreateIntent_InFlightAndIdempotency(t *testing.T) {
	svc := newService(newMemoryRepo())
	ctx := context.Background()

	first, _, err := svc.CreateIntent(ctx, "u1", IntentInput{Amount: 100, IdempotencyKey: "k1"})
	require.NoError(t, err)

	replay, created, err := svc.CreateIntent(ctx, "u1", IntentInput{Amount: 100, IdempotencyKey: "k1"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.PaymentIntentID, replay.PaymentIntentID)

	_, _, err = svc.CreateIntent(ctx, "u1", IntentInput{Amount: 100, IdempotencyKey: "k1-different"})
	assert.True(t, errors.Is(err, domain.ErrCheckoutInFlight))

	_, _, err = svc.CreateIntent(ctx, "u1", IntentInput{Amount: 200, IdempotencyKey: "k1"})
	assert.Equal(t, domain.KindConflict, domain.Kind(err))

	_, _, err = svc.CreateIntent(ctx, "u2", IntentInput{Amount: 100})
	assert.NoError(t, err, "other users are not blocked")
}

func TestConfirm_DeclineSettlesFailed(t *testing.T) {
	repo := newMemoryRepo()
	svc := newService(repo)
	ctx := context.Background()

	p, _, err := svc.CreateIntent(ctx, "u1", IntentInput{Amount: 100})
	require.NoError(t, err)

	_, err = svc.Confirm(ctx, "u1", ConfirmInput{ClientSecret: p.ClientSecret, Method: gateway.Method{Card: &gateway.Card{Number: gateway.DeclinedCard}}})
	var gerr *domain.GatewayError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, "Your card was declined.", gerr.Message)
	assert.Equal(t, domain.PaymentFailed, repo.rows[p.PaymentIntentID].Status)

	_, err = svc.Confirm(ctx, "u1", ConfirmInput{ClientSecret: p.ClientSecret, Method: gateway.Method{Card: visa}})
	assert.Equal(t, domain.KindGateway, domain.Kind(err), "failed payment cannot succeed later")

	_, _, err = svc.CreateIntent(ctx, "u1", IntentInput{Amount: 100})
	assert.NoError(t, err, "lock is released after decline")
}

func TestConfirm_ForeignSecretIsNotFound(t *testing.T) {
	svc := newService(newMemoryRepo())
	ctx := context.Background()
	p, _, err := svc.CreateIntent(ctx, "u1", IntentInput{Amount: 100})
	require.NoError(t, err)

	_, err = svc.Confirm(ctx, "u2", ConfirmInput{ClientSecret: p.ClientSecret, Method: gateway.Method{ID: "pm_card_visa"}})
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = svc.Confirm(ctx, "u1", ConfirmInput{ClientSecret: p.ClientSecret})
	assert.Equal(t, domain.KindValidation, domain.Kind(err))
}

func TestConfirm_GatewayFailureReleasesLock(t *testing.T) {
	cases := []struct {
		name     string
		provider *brokenProvider
	}{
		{"processor error", &brokenProvider{confirmErr: &domain.GatewayError{Op: "confirm", Message: "processor unavailable"}}},
		{"transport error", &brokenProvider{confirmErr: errors.New("dial tcp: connection refused")}},
		{"requires action", &brokenProvider{status: domain.PaymentStatus("requires_action")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.provider.Provider = gateway.NewFake()
			svc := New(newMemoryRepo(), tc.provider, guard.NewMemory(), Options{Logger: zerolog.Nop()})
			ctx := context.Background()

			p, _, err := svc.CreateIntent(ctx, "u1", IntentInput{Amount: 100, IdempotencyKey: "first"})
			require.NoError(t, err)

			_, err = svc.Confirm(ctx, "u1", ConfirmInput{ClientSecret: p.ClientSecret, Method: gateway.Method{Card: visa}})
			require.Error(t, err)

			retry, created, err := svc.CreateIntent(ctx, "u1", IntentInput{Amount: 100, IdempotencyKey: "second"})
			require.NoError(t, err, "a new checkout must not be blocked")
			assert.True(t, created)
			assert.NotEqual(t, p.PaymentIntentID, retry.PaymentIntentID)
		})
	}
}
