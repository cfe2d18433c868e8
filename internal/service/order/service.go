package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	"storefront/internal/ledger"
	"storefront/internal/metrics"
	"storefront/internal/money"
	orderrepo "storefront/internal/repository/order"
)

// PaymentLookup is the slice of the payment repository the order flow needs.
type PaymentLookup interface {
	GetByIntentID(ctx context.Context, userID, intentID string) (*domain.Payment, error)
}

type Service struct {
	orders   orderrepo.Repository
	payments PaymentLookup
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	now      func() time.Time
}

func New(orders orderrepo.Repository, payments PaymentLookup, m *metrics.Metrics, logger zerolog.Logger) *Service {
	if m == nil {
		m = metrics.NewNop()
	}
	return &Service{
		orders:   orders,
		payments: payments,
		metrics:  m,
		logger:   logger.With().Str("component", "order").Logger(),
		now:      time.Now,
	}
}

// PlaceInput is the myorders request body.
type PlaceInput struct {
	PaymentIntentID string             `json:"paymentIntentId"`
	Items           []domain.OrderLine `json:"items"`
	Total           decimal.Decimal    `json:"total"`
	Address         string             `json:"address"`
	CreatedAt       time.Time          `json:"createdAt"`
}

// Place records the order paid by in.PaymentIntentID. Placing again for the
// same payment returns the existing order with created=false.
func (s *Service) Place(ctx context.Context, userID string, in PlaceInput) (*domain.Order, bool, error) {
	if err := validate(in); err != nil {
		return nil, false, err
	}

	p, err := s.payments.GetByIntentID(ctx, userID, in.PaymentIntentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, false, fmt.Errorf("payment %s: %w", in.PaymentIntentID, domain.ErrPaymentNotSettled)
		}
		return nil, false, err
	}
	if p.Status != domain.PaymentSucceeded {
		return nil, false, fmt.Errorf("payment %s is %s: %w", p.PaymentIntentID, p.Status, domain.ErrPaymentNotSettled)
	}
	amount, err := money.ToMinorUnits(in.Total)
	if err != nil {
		return nil, false, err
	}
	if amount != p.AmountMinor {
		return nil, false, domain.Invalid("total", "does not match the amount paid")
	}

	createdAt := in.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	o, created, err := s.orders.Append(ctx, domain.Order{
		UserID:          userID,
		PaymentIntentID: p.PaymentIntentID,
		Items:           in.Items,
		Total:           money.Round2(in.Total),
		Address:         strings.TrimSpace(in.Address),
		CreatedAt:       createdAt.UTC(),
	})
	if err != nil {
		s.metrics.Orders.WithLabelValues("error").Inc()
		s.logger.Error().Err(err).Str("user_id", userID).Str("payment_intent_id", p.PaymentIntentID).Msg("append order failed")
		return nil, false, err
	}
	if created {
		s.metrics.Orders.WithLabelValues("created").Inc()
		s.logger.Info().Str("order_id", o.ID).Str("payment_intent_id", o.PaymentIntentID).Msg("order placed")
	} else {
		s.metrics.Orders.WithLabelValues("replayed").Inc()
	}
	return o, created, nil
}

// List returns the user's orders, most recent first.
func (s *Service) List(ctx context.Context, userID string) ([]domain.Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

func validate(in PlaceInput) error {
	if strings.TrimSpace(in.PaymentIntentID) == "" {
		return domain.Invalid("paymentIntentId", "required")
	}
	if len(in.Items) == 0 {
		return domain.Invalid("items", "at least one item is required")
	}
	for i, it := range in.Items {
		switch {
		case it.ProductID <= 0:
			return domain.Invalid(fmt.Sprintf("items[%d].productId", i), "required")
		case it.Quantity < 1 || it.Quantity > ledger.MaxQuantity:
			return domain.Invalid(fmt.Sprintf("items[%d].quantity", i), "must be between 1 and %d", ledger.MaxQuantity)
		case !it.Price.IsPositive():
			return domain.Invalid(fmt.Sprintf("items[%d].price", i), "must be positive")
		}
	}
	if strings.TrimSpace(in.Address) == "" {
		return domain.Invalid("address", "required")
	}
	if !in.Total.IsPositive() {
		return domain.Invalid("total", "must be positive")
	}
	if !money.Round2(in.Total).Equal(domain.LinesTotal(in.Items)) {
		return domain.Invalid("total", "does not match the sum of the items")
	}
	return nil
}
