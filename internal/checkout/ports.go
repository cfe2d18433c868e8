package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

// Intent is what the gateway returns when a payment intent is created.
type Intent struct {
	PaymentIntentID string
	ClientSecret    string
}

// Confirmation carries everything the gateway needs to capture the payment.
type Confirmation struct {
	ClientSecret string
	Card         Card
	Email        string
	Address      string
}

// Receipt is a confirmed payment.
type Receipt struct {
	PaymentIntentID string
	Status          domain.PaymentStatus
}

// Gateway creates and confirms payment intents on behalf of the signed-in
// user. Implementations report declines as *domain.GatewayError.
type Gateway interface {
	CreateIntent(ctx context.Context, userID string, amountMinor int64) (Intent, error)
	Confirm(ctx context.Context, c Confirmation) (Receipt, error)
}

// OrderDraft is the order to append after a successful payment.
type OrderDraft struct {
	PaymentIntentID string
	Items           []domain.OrderLine
	Total           decimal.Decimal
	Address         string
	CreatedAt       time.Time
}

// OrderBook appends orders. Appending the same PaymentIntentID twice must
// yield the same order.
type OrderBook interface {
	AppendOrder(ctx context.Context, draft OrderDraft) (*domain.Order, error)
}

// PendingOrder is a paid order that could not be recorded yet.
type PendingOrder struct {
	Draft    OrderDraft
	LastErr  string
	Attempts int
}

// PendingStore keeps paid-but-unrecorded orders keyed by payment intent id.
type PendingStore interface {
	Put(p PendingOrder) error
	List() ([]PendingOrder, error)
	Delete(paymentIntentID string) error
}

// MemoryPending is a PendingStore living as long as the process.
type MemoryPending struct {
	mu    sync.Mutex
	items map[string]PendingOrder
	order []string
}

func NewMemoryPending() *MemoryPending {
	return &MemoryPending{items: make(map[string]PendingOrder)}
}

func (m *MemoryPending) Put(p PendingOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := p.Draft.PaymentIntentID
	if _, ok := m.items[id]; !ok {
		m.order = append(m.order, id)
	}
	m.items[id] = p
	return nil
}

func (m *MemoryPending) List() ([]PendingOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PendingOrder, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.items[id])
	}
	return out, nil
}

func (m *MemoryPending) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}
