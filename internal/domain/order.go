package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus tracks a payment intent. pending moves to succeeded or
// failed exactly once.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentFailed    PaymentStatus = "failed"
)

// Payment mirrors a gateway payment intent owned by a user.
type Payment struct {
	ID              string        `json:"id"`
	UserID          string        `json:"userId"`
	AmountMinor     int64         `json:"amount"`
	Currency        string        `json:"currency"`
	Status          PaymentStatus `json:"status"`
	PaymentIntentID string        `json:"paymentIntentId"`
	ClientSecret    string        `json:"-"`
	PaymentMethodID string        `json:"paymentMethodId,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

// OrderLine is the snapshot of one cart line at confirmation time.
type OrderLine struct {
	ProductID int64           `json:"productId"`
	Title     string          `json:"title"`
	Category  string          `json:"category,omitempty"`
	Image     string          `json:"image,omitempty"`
	Variant   string          `json:"size,omitempty"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// Order is an immutable record of a completed checkout.
type Order struct {
	ID              string          `json:"id"`
	UserID          string          `json:"userId"`
	PaymentIntentID string          `json:"paymentIntentId"`
	Items           []OrderLine     `json:"items"`
	Total           decimal.Decimal `json:"total"`
	Address         string          `json:"address"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// LinesTotal sums price×quantity over lines, rounded to 2 decimals.
func LinesTotal(lines []OrderLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total.Round(2)
}
