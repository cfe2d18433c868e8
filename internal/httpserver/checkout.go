package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
	gateway "storefront/internal/payment"
	ordersvc "storefront/internal/service/order"
	paymentsvc "storefront/internal/service/payment"
)

type paymentOrderRequest struct {
	Amount int64  `json:"amount"`
	UserID string `json:"userId"`
}

type paymentOrderResponse struct {
	ClientSecret    string               `json:"clientSecret"`
	PaymentIntentID string               `json:"paymentIntentId"`
	Status          domain.PaymentStatus `json:"status"`
}

// paymentMethodDetails is either a processor payment method id or a card
// with billing details.
type paymentMethodDetails struct {
	Card    *gateway.Card `json:"card"`
	Email   string        `json:"email"`
	Address string        `json:"address"`
}

type confirmRequest struct {
	ClientSecret         string          `json:"clientSecret"`
	PaymentMethodDetails json.RawMessage `json:"paymentMethodDetails"`
}

type confirmResponse struct {
	PaymentIntentID string               `json:"paymentIntentId"`
	Status          domain.PaymentStatus `json:"status"`
	PaymentMethodID string               `json:"paymentMethodId,omitempty"`
}

func createIntentHandler(svc PaymentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req paymentOrderRequest
		if !bindJSON(c, &req) {
			return
		}
		p, created, err := svc.CreateIntent(c.Request.Context(), userID(c), paymentsvc.IntentInput{
			Amount:         req.Amount,
			UserID:         req.UserID,
			IdempotencyKey: c.GetHeader(idempotencyHeader),
		})
		if err != nil {
			writeError(c, err)
			return
		}
		status := http.StatusCreated
		if !created {
			status = http.StatusOK
		}
		c.JSON(status, paymentOrderResponse{
			ClientSecret:    p.ClientSecret,
			PaymentIntentID: p.PaymentIntentID,
			Status:          p.Status,
		})
	}
}

func confirmPaymentHandler(svc PaymentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req confirmRequest
		if !bindJSON(c, &req) {
			return
		}
		method, err := decodeMethod(req.PaymentMethodDetails)
		if err != nil {
			writeError(c, err)
			return
		}
		p, err := svc.Confirm(c.Request.Context(), userID(c), paymentsvc.ConfirmInput{
			ClientSecret: req.ClientSecret,
			Method:       method,
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, confirmResponse{
			PaymentIntentID: p.PaymentIntentID,
			Status:          p.Status,
			PaymentMethodID: p.PaymentMethodID,
		})
	}
}

func decodeMethod(raw json.RawMessage) (gateway.Method, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return gateway.Method{}, nil
	}
	if raw[0] == '"' {
		var id string
		if err := json.Unmarshal(raw, &id); err != nil {
			return gateway.Method{}, domain.Invalid("paymentMethodDetails", "is malformed")
		}
		return gateway.Method{ID: id}, nil
	}
	var d paymentMethodDetails
	if err := json.Unmarshal(raw, &d); err != nil {
		return gateway.Method{}, domain.Invalid("paymentMethodDetails", "is malformed")
	}
	return gateway.Method{Card: d.Card, Email: d.Email, Address: d.Address}, nil
}

func placeOrderHandler(svc OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ordersvc.PlaceInput
		if !bindJSON(c, &req) {
			return
		}
		o, created, err := svc.Place(c.Request.Context(), userID(c), req)
		if err != nil {
			writeError(c, err)
			return
		}
		status := http.StatusCreated
		if !created {
			status = http.StatusOK
		}
		c.JSON(status, o)
	}
}

func listOrdersHandler(svc OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		orders, err := svc.List(c.Request.Context(), userID(c))
		if err != nil {
			writeError(c, err)
			return
		}
		if orders == nil {
			orders = []domain.Order{}
		}
		c.JSON(http.StatusOK, orders)
	}
}
