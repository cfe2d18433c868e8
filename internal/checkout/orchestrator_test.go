package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	"storefront/internal/session"
)

var fixedNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

type fakeGateway struct {
	mu         sync.Mutex
	intents    []int64
	confirms   int
	intentErr  error
	confirmErr error
	status     domain.PaymentStatus
	block      chan struct{}
}

func (g *fakeGateway) CreateIntent(_ context.Context, _ string, amount int64) (Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.intents = append(g.intents, amount)
	if g.intentErr != nil {
		return Intent{}, g.intentErr
	}
	return Intent{PaymentIntentID: "pi_1", ClientSecret: "pi_1_secret"}, nil
}

func (g *fakeGateway) Confirm(ctx context.Context, _ Confirmation) (Receipt, error) {
	g.mu.Lock()
	g.confirms++
	block := g.block
	g.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return Receipt{}, ctx.Err()
		}
	}
	if g.confirmErr != nil {
		return Receipt{}, g.confirmErr
	}
	status := g.status
	if status == "" {
		status = domain.PaymentSucceeded
	}
	return Receipt{PaymentIntentID: "pi_1", Status: status}, nil
}

type fakeBook struct {
	mu       sync.Mutex
	failures int
	calls    int
	orders   map[string]*domain.Order
}

func (b *fakeBook) AppendOrder(_ context.Context, d OrderDraft) (*domain.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	if b.failures > 0 {
		b.failures--
		return nil, errors.New("connection reset")
	}
	if b.orders == nil {
		b.orders = make(map[string]*domain.Order)
	}
	if o, ok := b.orders[d.PaymentIntentID]; ok {
		return o, nil
	}
	o := &domain.Order{
		ID:              "ord_" + d.PaymentIntentID,
		PaymentIntentID: d.PaymentIntentID,
		Items:           d.Items,
		Total:           d.Total,
		Address:         d.Address,
		CreatedAt:       d.CreatedAt,
	}
	b.orders[d.PaymentIntentID] = o
	return o, nil
}

func validCard() Card {
	return Card{Number: "4242 4242 4242 4242", ExpMonth: 12, ExpYear: 2030, CVC: "123"}
}

func signedInStore(t *testing.T) *session.Store {
	t.Helper()
	s := session.New(nil, nil)
	s.SignIn(session.User{ID: "u1", Email: "ada@example.com", Token: "tok"})
	_, err := s.Cart.AddItem(domain.Product{ID: 1, Title: "Mug", Category: "electronics", Price: decimal.RequireFromString("19.99")}, "", 2)
	require.NoError(t, err)
	_, err = s.Cart.AddItem(domain.Product{ID: 2, Title: "Tee", Category: "men's clothing", Price: decimal.RequireFromString("10.00")}, "m", 1)
	require.NoError(t, err)
	return s
}

func newOrchestrator(s *session.Store, g Gateway, b OrderBook, opts ...Option) *Orchestrator {
	opts = append([]Option{WithClock(func() time.Time { return fixedNow }), WithAppendRetry(2, time.Millisecond)}, opts...)
	return New(s, g, b, opts...)
}

func TestSubmit_Success(t *testing.T) {
	s := signedInStore(t)
	g := &fakeGateway{}
	b := &fakeBook{}
	var seen []State
	o := newOrchestrator(s, g, b, WithObserver(func(_, to State) { seen = append(seen, to) }))

	order, err := o.Submit(context.Background(), Request{Card: validCard(), SelectedAddress: "1 Main St"})
	require.NoError(t, err)

	assert.Equal(t, []int64{4998}, g.intents)
	assert.True(t, order.Total.Equal(decimal.RequireFromString("49.98")))
	assert.Len(t, order.Items, 2)
	assert.Equal(t, "M", order.Items[1].Variant)
	assert.Equal(t, "1 Main St", order.Address)
	assert.Len(t, b.orders, 1)
	assert.Zero(t, s.Cart.Len())
	assert.Equal(t, Succeeded, o.State())
	assert.Equal(t, []State{IntentRequested, IntentCreated, ConfirmationRequested, Succeeded}, seen)
}

func TestSubmit_SelectedAddressWins(t *testing.T) {
	s := signedInStore(t)
	o := newOrchestrator(s, &fakeGateway{}, &fakeBook{})

	order, err := o.Submit(context.Background(), Request{Card: validCard(), SelectedAddress: "Home", TypedAddress: "Typed"})
	require.NoError(t, err)
	assert.Equal(t, "Home", order.Address)
}

func TestSubmit_ValidationLeavesIdle(t *testing.T) {
	cases := []struct {
		name  string
		req   Request
		field string
	}{
		{"missing card", Request{SelectedAddress: "x"}, "card.number"},
		{"bad luhn", Request{Card: Card{Number: "4242424242424241", ExpMonth: 1, ExpYear: 30, CVC: "123"}, SelectedAddress: "x"}, "card.number"},
		{"expired", Request{Card: Card{Number: "4242424242424242", ExpMonth: 9, ExpYear: 2026, CVC: "123"}, SelectedAddress: "x"}, "card.expYear"},
		{"bad cvc", Request{Card: Card{Number: "4242424242424242", ExpMonth: 10, ExpYear: 2026, CVC: "12"}, SelectedAddress: "x"}, "card.cvc"},
		{"no address", Request{Card: validCard()}, "address"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := signedInStore(t)
			g := &fakeGateway{}
			o := newOrchestrator(s, g, &fakeBook{})

			_, err := o.Submit(context.Background(), tc.req)
			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
			assert.Equal(t, Idle, o.State())
			assert.Empty(t, g.intents)
			assert.Equal(t, 2, s.Cart.Len())
		})
	}
}

func TestSubmit_RequiresUserAndPositiveTotal(t *testing.T) {
	s := session.New(nil, nil)
	o := newOrchestrator(s, &fakeGateway{}, &fakeBook{})
	_, err := o.Submit(context.Background(), Request{Card: validCard(), SelectedAddress: "x"})
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	s.SignIn(session.User{ID: "u1"})
	_, err = o.Submit(context.Background(), Request{Card: validCard(), SelectedAddress: "x"})
	assert.Equal(t, domain.KindValidation, domain.Kind(err))
}

func TestSubmit_DeclineKeepsCart(t *testing.T) {
	s := signedInStore(t)
	g := &fakeGateway{confirmErr: &domain.GatewayError{Op: "confirm", Message: "Your card was declined."}}
	b := &fakeBook{}
	o := newOrchestrator(s, g, b)

	_, err := o.Submit(context.Background(), Request{Card: validCard(), SelectedAddress: "x"})
	var gerr *domain.GatewayError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, "Your card was declined.", gerr.Message)
	assert.Equal(t, Failed, o.State())
	assert.Equal(t, 2, s.Cart.Len())
	assert.Zero(t, b.calls)
}

func TestSubmit_IntentFailureIsGatewayError(t *testing.T) {
	s := signedInStore(t)
	o := newOrchestrator(s, &fakeGateway{intentErr: errors.New("dial tcp: refused")}, &fakeBook{})

	_, err := o.Submit(context.Background(), Request{Card: validCard(), SelectedAddress: "x"})
	assert.Equal(t, domain.KindGateway, domain.Kind(err))
	assert.Equal(t, Failed, o.State())
	assert.Equal(t, 2, s.Cart.Len())
}

func TestSubmit_ConfirmTimeoutNotRetried(t *testing.T) {
	s := signedInStore(t)
	g := &fakeGateway{block: make(chan struct{})}
	o := newOrchestrator(s, g, &fakeBook{}, WithConfirmTimeout(10*time.Millisecond))

	_, err := o.Submit(context.Background(), Request{Card: validCard(), SelectedAddress: "x"})
	var gerr *domain.GatewayError
	require.ErrorAs(t, err, &gerr)
	assert.Contains(t, gerr.Message, "timed out")
	assert.Equal(t, 1, g.confirms)
	assert.Equal(t, Failed, o.State())
	assert.Equal(t, 2, s.Cart.Len())
}

func TestSubmit_RejectsConcurrentSubmit(t *testing.T) {
	s := signedInStore(t)
	g := &fakeGateway{block: make(chan struct{})}
	o := newOrchestrator(s, g, &fakeBook{})

	done := make(chan error, 1)
	go func() {
		_, err := o.Submit(context.Background(), Request{Card: validCard(), SelectedAddress: "x"})
		done <- err
	}()
	require.Eventually(t, func() bool { return o.State() == ConfirmationRequested }, time.Second, time.Millisecond)

	_, err := o.Submit(context.Background(), Request{Card: validCard(), SelectedAddress: "x"})
	assert.ErrorIs(t, err, domain.ErrCheckoutInFlight)

	close(g.block)
	require.NoError(t, <-done)
	assert.Len(t, g.intents, 1)
}

func TestSubmit_RetriesAppendThenSucceeds(t *testing.T) {
	s := signedInStore(t)
	b := &fakeBook{failures: 1}
	o := newOrchestrator(s, &fakeGateway{}, b)

	order, err := o.Submit(context.Background(), Request{Card: validCard(), SelectedAddress: "x"})
	require.NoError(t, err)
	assert.Equal(t, "ord_pi_1", order.ID)
	assert.Equal(t, 2, b.calls)
}

func TestSubmit_FatalInconsistencyAndReconcile(t *testing.T) {
	s := signedInStore(t)
	b := &fakeBook{failures: 2}
	o := newOrchestrator(s, &fakeGateway{}, b)

	_, err := o.Submit(context.Background(), Request{Card: validCard(), SelectedAddress: "x"})
	var fatal *domain.FatalInconsistencyError
	require.ErrorAs(t, err, &fatal)
	assert.Equal(t, "pi_1", fatal.PaymentIntentID)
	assert.Equal(t, domain.KindFatal, domain.Kind(err))
	assert.Zero(t, s.Cart.Len())

	pending, err := o.Pending()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 2, pending[0].Attempts)
	assert.True(t, pending[0].Draft.Total.Equal(decimal.RequireFromString("49.98")))

	recorded, err := o.Reconcile(context.Background())
	require.NoError(t, err)
	require.Len(t, recorded, 1)
	assert.Equal(t, "pi_1", recorded[0].PaymentIntentID)

	pending, err = o.Pending()
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestSubmit_ResetsAfterTerminalState(t *testing.T) {
	s := signedInStore(t)
	g := &fakeGateway{confirmErr: &domain.GatewayError{Op: "confirm", Message: "declined"}}
	o := newOrchestrator(s, g, &fakeBook{})

	_, err := o.Submit(context.Background(), Request{Card: validCard(), SelectedAddress: "x"})
	require.Error(t, err)
	assert.Equal(t, Failed, o.State())

	_, err = o.Submit(context.Background(), Request{SelectedAddress: "x"})
	require.Error(t, err)
	assert.Equal(t, Idle, o.State())
}

func TestSubmit_KeepsItemsAddedDuringPayment(t *testing.T) {
	s := signedInStore(t)
	g := &fakeGateway{block: make(chan struct{})}
	b := &fakeBook{}
	o := newOrchestrator(s, g, b)

	type result struct {
		order *domain.Order
		err   error
	}
	done := make(chan result, 1)
	go func() {
		order, err := o.Submit(context.Background(), Request{Card: validCard(), SelectedAddress: "x"})
		done <- result{order, err}
	}()
	require.Eventually(t, func() bool { return o.State() == ConfirmationRequested }, time.Second, time.Millisecond)

	_, err := s.Cart.AddItem(domain.Product{ID: 3, Title: "Lamp", Category: "electronics", Price: decimal.RequireFromString("30.00")}, "", 1)
	require.NoError(t, err)
	close(g.block)

	res := <-done
	require.NoError(t, res.err)
	assert.True(t, res.order.Total.Equal(decimal.RequireFromString("49.98")))
	assert.Len(t, res.order.Items, 2)

	lines := s.Cart.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, int64(3), lines[0].Product.ID)
}

type flakyPending struct {
	*MemoryPending
	putErr error
}

func (f *flakyPending) Put(p PendingOrder) error {
	if f.putErr != nil {
		return f.putErr
	}
	return f.MemoryPending.Put(p)
}

func TestReconcile_ReportsRepark(t *testing.T) {
	s := signedInStore(t)
	pending := &flakyPending{MemoryPending: NewMemoryPending()}
	b := &fakeBook{failures: 3}
	o := newOrchestrator(s, &fakeGateway{}, b, WithPendingStore(pending))

	_, err := o.Submit(context.Background(), Request{Card: validCard(), SelectedAddress: "x"})
	require.Equal(t, domain.KindFatal, domain.Kind(err))

	pending.putErr = errors.New("disk full")
	recorded, err := o.Reconcile(context.Background())
	assert.Empty(t, recorded)
	require.Error(t, err)
	assert.ErrorContains(t, err, "connection reset")
	assert.ErrorContains(t, err, "disk full")
}
