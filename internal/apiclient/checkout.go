package apiclient

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"storefront/internal/checkout"
	"storefront/internal/domain"
)

var (
	_ checkout.Gateway   = (*Client)(nil)
	_ checkout.OrderBook = (*Client)(nil)
)

type cardBody struct {
	Number   string `json:"number"`
	ExpMonth int    `json:"expMonth"`
	ExpYear  int    `json:"expYear"`
	CVC      string `json:"cvc"`
}

type methodBody struct {
	Card    cardBody `json:"card"`
	Email   string   `json:"email,omitempty"`
	Address string   `json:"address,omitempty"`
}

// CreateIntent calls paymentorder. Each call carries a fresh idempotency key.
func (c *Client) CreateIntent(ctx context.Context, userID string, amountMinor int64) (checkout.Intent, error) {
	in := map[string]any{"amount": amountMinor, "userId": userID}
	var out struct {
		ClientSecret    string `json:"clientSecret"`
		PaymentIntentID string `json:"paymentIntentId"`
	}
	headers := map[string]string{"Idempotency-Key": uuid.NewString()}
	if _, err := c.do(ctx, http.MethodPost, "/api/payment/paymentorder", "intent", in, &out, headers); err != nil {
		return checkout.Intent{}, err
	}
	return checkout.Intent{PaymentIntentID: out.PaymentIntentID, ClientSecret: out.ClientSecret}, nil
}

func (c *Client) Confirm(ctx context.Context, conf checkout.Confirmation) (checkout.Receipt, error) {
	in := struct {
		ClientSecret         string     `json:"clientSecret"`
		PaymentMethodDetails methodBody `json:"paymentMethodDetails"`
	}{
		ClientSecret: conf.ClientSecret,
		PaymentMethodDetails: methodBody{
			Card: cardBody{
				Number:   conf.Card.Digits(),
				ExpMonth: conf.Card.ExpMonth,
				ExpYear:  conf.Card.ExpYear,
				CVC:      conf.Card.CVC,
			},
			Email:   conf.Email,
			Address: conf.Address,
		},
	}
	var out struct {
		PaymentIntentID string               `json:"paymentIntentId"`
		Status          domain.PaymentStatus `json:"status"`
	}
	if _, err := c.do(ctx, http.MethodPost, "/api/payment/confirm", "confirm", in, &out, nil); err != nil {
		return checkout.Receipt{}, err
	}
	return checkout.Receipt{PaymentIntentID: out.PaymentIntentID, Status: out.Status}, nil
}

// AppendOrder posts to myorders. The server answers a repeat for the same
// payment with the existing order.
func (c *Client) AppendOrder(ctx context.Context, d checkout.OrderDraft) (*domain.Order, error) {
	in := struct {
		PaymentIntentID string             `json:"paymentIntentId"`
		Items           []domain.OrderLine `json:"items"`
		Total           decimal.Decimal    `json:"total"`
		Address         string             `json:"address"`
		CreatedAt       time.Time          `json:"createdAt"`
	}{d.PaymentIntentID, d.Items, d.Total, d.Address, d.CreatedAt}

	var o domain.Order
	if _, err := c.do(ctx, http.MethodPost, "/api/orders/myorders", "", in, &o, nil); err != nil {
		return nil, err
	}
	return &o, nil
}

// ListOrders satisfies history.Source.
func (c *Client) ListOrders(ctx context.Context) ([]domain.Order, error) {
	var out []domain.Order
	_, err := c.do(ctx, http.MethodGet, "/api/orders/getmyorders", "", nil, &out, nil)
	return out, err
}
