package payment

import (
	"context"
	"errors"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"storefront/internal/domain"
)

type Stripe struct {
	api *client.API
}

func NewStripe(secretKey string) *Stripe {
	sc := &client.API{}
	sc.Init(secretKey, nil)
	return &Stripe{api: sc}
}

func (s *Stripe) CreateIntent(ctx context.Context, amountMinor int64, currency, idempotencyKey string) (Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountMinor),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
	}
	params.Context = ctx
	if idempotencyKey != "" {
		params.SetIdempotencyKey(idempotencyKey)
	}

	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		return Intent{}, gatewayErr("intent", err)
	}
	return Intent{ID: pi.ID, ClientSecret: pi.ClientSecret, Status: statusOf(pi.Status)}, nil
}

func (s *Stripe) Confirm(ctx context.Context, intentID string, m Method) (Result, error) {
	methodID := m.ID
	if methodID == "" {
		if m.Card == nil {
			return Result{}, domain.Invalid("paymentMethodDetails", "required")
		}
		pmParams := &stripe.PaymentMethodParams{
			Type: stripe.String(string(stripe.PaymentMethodTypeCard)),
			Card: &stripe.PaymentMethodCardParams{
				Number:   stripe.String(m.Card.Number),
				ExpMonth: stripe.Int64(int64(m.Card.ExpMonth)),
				ExpYear:  stripe.Int64(int64(m.Card.ExpYear)),
				CVC:      stripe.String(m.Card.CVC),
			},
			BillingDetails: &stripe.PaymentMethodBillingDetailsParams{
				Email:   stripe.String(m.Email),
				Address: &stripe.AddressParams{Line1: stripe.String(m.Address)},
			},
		}
		pmParams.Context = ctx
		pm, err := s.api.PaymentMethods.New(pmParams)
		if err != nil {
			if msg, declined := cardDecline(err); declined {
				return Result{IntentID: intentID, Status: domain.PaymentFailed, DeclineMessage: msg}, nil
			}
			return Result{}, gatewayErr("confirm", err)
		}
		methodID = pm.ID
	}

	params := &stripe.PaymentIntentConfirmParams{PaymentMethod: stripe.String(methodID)}
	params.Context = ctx
	pi, err := s.api.PaymentIntents.Confirm(intentID, params)
	if err != nil {
		if msg, declined := cardDecline(err); declined {
			return Result{IntentID: intentID, Status: domain.PaymentFailed, PaymentMethodID: methodID, DeclineMessage: msg}, nil
		}
		return Result{}, gatewayErr("confirm", err)
	}

	res := Result{IntentID: pi.ID, Status: statusOf(pi.Status), PaymentMethodID: methodID}
	if res.Status == domain.PaymentFailed && pi.LastPaymentError != nil {
		res.DeclineMessage = pi.LastPaymentError.Msg
	}
	return res, nil
}

func statusOf(s stripe.PaymentIntentStatus) domain.PaymentStatus {
	switch s {
	case stripe.PaymentIntentStatusSucceeded:
		return domain.PaymentSucceeded
	case stripe.PaymentIntentStatusCanceled, stripe.PaymentIntentStatusRequiresPaymentMethod:
		return domain.PaymentFailed
	default:
		return domain.PaymentPending
	}
}

func cardDecline(err error) (string, bool) {
	var se *stripe.Error
	if errors.As(err, &se) && se.Type == stripe.ErrorTypeCard {
		return se.Msg, true
	}
	return "", false
}

func gatewayErr(op string, err error) error {
	msg := "payment service is unavailable, please try again"
	var se *stripe.Error
	if errors.As(err, &se) && se.Msg != "" && se.Type == stripe.ErrorTypeInvalidRequest {
		msg = se.Msg
	}
	return &domain.GatewayError{Op: op, Message: msg, Err: err}
}
