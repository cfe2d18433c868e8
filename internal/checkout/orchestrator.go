// Package checkout turns the session cart into a paid order.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	"storefront/internal/ledger"
	"storefront/internal/money"
	"storefront/internal/session"
)

// State of a checkout attempt.
type State int

const (
	Idle State = iota
	IntentRequested
	IntentCreated
	ConfirmationRequested
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case IntentRequested:
		return "intent_requested"
	case IntentCreated:
		return "intent_created"
	case ConfirmationRequested:
		return "confirmation_requested"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s State) terminal() bool { return s == Succeeded || s == Failed }

// Request is what the shopper submits on the payment screen. A selected
// address takes precedence over a typed one.
type Request struct {
	Card            Card
	Email           string
	SelectedAddress string
	TypedAddress    string
}

// Orchestrator drives one checkout at a time for a session.
type Orchestrator struct {
	store   *session.Store
	gateway Gateway
	orders  OrderBook
	pending PendingStore
	logger  zerolog.Logger

	now            func() time.Time
	confirmTimeout time.Duration
	appendAttempts int
	appendBackoff  time.Duration
	observer       func(from, to State)

	running atomic.Bool
	mu      sync.Mutex
	state   State
}

type Option func(*Orchestrator)

func WithLogger(l zerolog.Logger) Option { return func(o *Orchestrator) { o.logger = l } }

func WithPendingStore(p PendingStore) Option { return func(o *Orchestrator) { o.pending = p } }

func WithClock(now func() time.Time) Option { return func(o *Orchestrator) { o.now = now } }

// WithConfirmTimeout bounds the confirmation call. A timeout fails the
// attempt; it is never retried.
func WithConfirmTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.confirmTimeout = d }
}

// WithAppendRetry controls how often a paid order is re-sent before it is
// parked in the pending store.
func WithAppendRetry(attempts int, backoff time.Duration) Option {
	return func(o *Orchestrator) {
		o.appendAttempts = attempts
		o.appendBackoff = backoff
	}
}

// WithObserver receives every state transition.
func WithObserver(fn func(from, to State)) Option { return func(o *Orchestrator) { o.observer = fn } }

func New(store *session.Store, gateway Gateway, orders OrderBook, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:          store,
		gateway:        gateway,
		orders:         orders,
		pending:        NewMemoryPending(),
		logger:         zerolog.Nop(),
		now:            time.Now,
		confirmTimeout: 30 * time.Second,
		appendAttempts: 3,
		appendBackoff:  500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.appendAttempts < 1 {
		o.appendAttempts = 1
	}
	return o
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Pending lists paid orders that still need to be recorded.
func (o *Orchestrator) Pending() ([]PendingOrder, error) {
	return o.pending.List()
}

// Submit runs a checkout. It returns the recorded order on success. A
// second Submit while one is running returns domain.ErrCheckoutInFlight.
func (o *Orchestrator) Submit(ctx context.Context, req Request) (*domain.Order, error) {
	if !o.running.CompareAndSwap(false, true) {
		return nil, domain.ErrCheckoutInFlight
	}
	defer o.running.Store(false)

	if o.State().terminal() {
		o.transition(Idle)
	}

	user, lines, address, err := o.validate(req)
	if err != nil {
		return nil, err
	}
	total := linesTotal(lines)
	amount, err := money.ToMinorUnits(total)
	if err != nil {
		return nil, err
	}
	email := strings.TrimSpace(req.Email)
	if email == "" {
		email = user.Email
	}

	log := o.logger.With().Str("user_id", user.ID).Int64("amount", amount).Logger()

	o.transition(IntentRequested)
	intent, err := o.gateway.CreateIntent(ctx, user.ID, amount)
	if err != nil {
		o.transition(Failed)
		log.Warn().Err(err).Msg("create payment intent failed")
		return nil, asGatewayError("intent", err)
	}
	o.transition(IntentCreated)
	log = log.With().Str("payment_intent_id", intent.PaymentIntentID).Logger()

	o.transition(ConfirmationRequested)
	receipt, err := o.confirm(ctx, Confirmation{
		ClientSecret: intent.ClientSecret,
		Card:         req.Card,
		Email:        email,
		Address:      address,
	})
	if err != nil {
		o.transition(Failed)
		log.Warn().Err(err).Msg("payment confirmation failed")
		return nil, err
	}
	o.transition(Succeeded)

	paymentID := receipt.PaymentIntentID
	if paymentID == "" {
		paymentID = intent.PaymentIntentID
	}
	draft := OrderDraft{
		PaymentIntentID: paymentID,
		Items:           toOrderLines(lines),
		Total:           total,
		Address:         address,
		CreatedAt:       o.now().UTC(),
	}

	order, attempts, err := o.appendWithRetry(ctx, draft)
	o.store.Cart.RemoveLines(lines)
	if err != nil {
		if perr := o.pending.Put(PendingOrder{Draft: draft, LastErr: err.Error(), Attempts: attempts}); perr != nil {
			log.Error().Err(perr).Msg("park pending order failed")
		}
		log.Error().Err(err).Int("attempts", attempts).Msg("payment captured but order not recorded")
		return nil, &domain.FatalInconsistencyError{PaymentIntentID: paymentID, Err: err}
	}
	log.Info().Str("order_id", order.ID).Msg("checkout completed")
	return order, nil
}

// Reconcile re-sends parked orders. Recorded ones leave the pending store.
func (o *Orchestrator) Reconcile(ctx context.Context) ([]*domain.Order, error) {
	parked, err := o.pending.List()
	if err != nil {
		return nil, err
	}
	var (
		recorded []*domain.Order
		errs     []error
	)
	for _, p := range parked {
		order, err := o.orders.AppendOrder(ctx, p.Draft)
		if err != nil {
			p.Attempts++
			p.LastErr = err.Error()
			errs = append(errs, fmt.Errorf("payment %s: %w", p.Draft.PaymentIntentID, err))
			if perr := o.pending.Put(p); perr != nil {
				errs = append(errs, fmt.Errorf("re-park payment %s: %w", p.Draft.PaymentIntentID, perr))
			}
			continue
		}
		if err := o.pending.Delete(p.Draft.PaymentIntentID); err != nil {
			errs = append(errs, err)
		}
		recorded = append(recorded, order)
	}
	return recorded, errors.Join(errs...)
}

func (o *Orchestrator) validate(req Request) (*session.User, []ledger.Line, string, error) {
	user := o.store.User()
	if user == nil {
		return nil, nil, "", domain.ErrUnauthenticated
	}
	lines := o.store.Cart.Lines()
	if len(lines) == 0 || !linesTotal(lines).IsPositive() {
		return nil, nil, "", domain.Invalid("total", "cart total must be greater than zero")
	}
	if err := req.Card.Validate(o.now()); err != nil {
		return nil, nil, "", err
	}
	address := strings.TrimSpace(req.SelectedAddress)
	if address == "" {
		address = strings.TrimSpace(req.TypedAddress)
	}
	if address == "" {
		return nil, nil, "", domain.Invalid("address", "select or enter a delivery address")
	}
	return user, lines, address, nil
}

func (o *Orchestrator) confirm(ctx context.Context, c Confirmation) (Receipt, error) {
	cctx, cancel := context.WithTimeout(ctx, o.confirmTimeout)
	defer cancel()

	receipt, err := o.gateway.Confirm(cctx, c)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(cctx.Err(), context.DeadlineExceeded) {
			return Receipt{}, &domain.GatewayError{Op: "confirm", Message: "payment confirmation timed out", Err: err}
		}
		return Receipt{}, asGatewayError("confirm", err)
	}
	if receipt.Status != "" && receipt.Status != domain.PaymentSucceeded {
		return Receipt{}, &domain.GatewayError{Op: "confirm", Message: "payment was not completed"}
	}
	return receipt, nil
}

func (o *Orchestrator) appendWithRetry(ctx context.Context, draft OrderDraft) (*domain.Order, int, error) {
	var lastErr error
	for attempt := 1; attempt <= o.appendAttempts; attempt++ {
		order, err := o.orders.AppendOrder(ctx, draft)
		if err == nil {
			return order, attempt, nil
		}
		lastErr = err
		if k := domain.Kind(err); k != domain.KindInternal && k != domain.KindGateway {
			return nil, attempt, err
		}
		if attempt == o.appendAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, attempt, errors.Join(lastErr, ctx.Err())
		case <-time.After(o.appendBackoff * time.Duration(attempt)):
		}
	}
	return nil, o.appendAttempts, lastErr
}

func (o *Orchestrator) transition(to State) {
	o.mu.Lock()
	from := o.state
	o.state = to
	o.mu.Unlock()
	if o.observer != nil {
		o.observer(from, to)
	}
}

func asGatewayError(op string, err error) error {
	var gerr *domain.GatewayError
	if errors.As(err, &gerr) {
		return gerr
	}
	if k := domain.Kind(err); k == domain.KindAuth || k == domain.KindValidation || k == domain.KindConflict {
		return err
	}
	return &domain.GatewayError{Op: op, Message: "payment service is unavailable, please try again", Err: err}
}

func linesTotal(lines []ledger.Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return total.Round(2)
}

func toOrderLines(lines []ledger.Line) []domain.OrderLine {
	out := make([]domain.OrderLine, 0, len(lines))
	for _, l := range lines {
		out = append(out, domain.OrderLine{
			ProductID: l.Product.ID,
			Title:     l.Product.Title,
			Category:  l.Product.Category,
			Image:     l.Product.Image,
			Variant:   l.Variant,
			Quantity:  l.Quantity,
			Price:     l.Product.Price,
		})
	}
	return out
}
