package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/checkout"
	"storefront/internal/domain"
	"storefront/internal/history"
	"storefront/internal/session"
)

type fakeAPI struct {
	mu          sync.Mutex
	authHeaders []string
	idemKeys    []string
	intentBody  map[string]any
	confirmBody map[string]any
	orders      map[string]domain.Order
	declined    bool
	inFlight    bool
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	writeJSON := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}
	record := func(r *http.Request) {
		f.mu.Lock()
		f.authHeaders = append(f.authHeaders, r.Header.Get("Authorization"))
		f.mu.Unlock()
	}

	mux.HandleFunc("POST /api/users/login", func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in["password"] != "secret1" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"code": "auth", "message": "invalid email or password"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"token": "tok", "userId": "u1", "name": "Ada", "surname": "Lovelace", "email": in["email"]})
	})
	mux.HandleFunc("POST /api/contacts/addmycontact", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		writeJSON(w, http.StatusBadRequest, map[string]string{"code": "conflict", "field": "email", "message": "a contact with this email already exists"})
	})
	mux.HandleFunc("POST /api/addresses/addmyaddress", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		writeJSON(w, http.StatusBadRequest, map[string]string{"code": "validation", "field": "city", "message": "required"})
	})
	mux.HandleFunc("DELETE /api/addresses/deleteaddress/{id}", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		writeJSON(w, http.StatusNotFound, map[string]string{"code": "not_found", "message": "not found"})
	})
	mux.HandleFunc("POST /api/payment/paymentorder", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		f.mu.Lock()
		defer f.mu.Unlock()
		f.idemKeys = append(f.idemKeys, r.Header.Get("Idempotency-Key"))
		_ = json.NewDecoder(r.Body).Decode(&f.intentBody)
		if f.inFlight {
			writeJSON(w, http.StatusConflict, map[string]string{"code": "conflict", "message": domain.ErrCheckoutInFlight.Error()})
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"clientSecret": "pi_9_secret", "paymentIntentId": "pi_9", "status": "pending"})
	})
	mux.HandleFunc("POST /api/payment/confirm", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		f.mu.Lock()
		defer f.mu.Unlock()
		_ = json.NewDecoder(r.Body).Decode(&f.confirmBody)
		if f.declined {
			writeJSON(w, http.StatusBadRequest, map[string]string{"code": "gateway", "message": "Your card was declined."})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"paymentIntentId": "pi_9", "status": "succeeded"})
	})
	mux.HandleFunc("POST /api/orders/myorders", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		var o domain.Order
		_ = json.NewDecoder(r.Body).Decode(&o)
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.orders == nil {
			f.orders = make(map[string]domain.Order)
		}
		if existing, ok := f.orders[o.PaymentIntentID]; ok {
			writeJSON(w, http.StatusOK, existing)
			return
		}
		o.ID = "ord_" + o.PaymentIntentID
		o.UserID = "u1"
		f.orders[o.PaymentIntentID] = o
		writeJSON(w, http.StatusCreated, o)
	})
	mux.HandleFunc("GET /api/orders/getmyorders", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		f.mu.Lock()
		defer f.mu.Unlock()
		out := []domain.Order{}
		for _, o := range f.orders {
			out = append(out, o)
		}
		writeJSON(w, http.StatusOK, out)
	})
	mux.HandleFunc("GET /api/users/boom", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"code": "internal", "message": "internal server error"})
	})
	return mux
}

func newClient(t *testing.T) (*Client, *fakeAPI, *session.Store) {
	t.Helper()
	api := &fakeAPI{}
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)
	store := session.New(nil, nil)
	return New(srv.URL, store), api, store
}

func TestLoginAndBearerToken(t *testing.T) {
	c, api, store := newClient(t)

	_, err := c.Login(context.Background(), "ada@example.com", "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	u, err := c.Login(context.Background(), "ada@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "tok", u.Token)
	store.SignIn(u)

	_, err = c.ListOrders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Bearer tok"}, api.authHeaders)
}

func TestErrorMapping(t *testing.T) {
	c, _, store := newClient(t)
	store.SignIn(session.User{ID: "u1", Token: "tok"})
	ctx := context.Background()

	_, err := c.CreateContact(ctx, ContactRequest{Email: "ada@example.com"})
	var cerr *domain.ConflictError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "email", cerr.Field)
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	_, err = c.CreateAddress(ctx, AddressRequest{Name: "Ada"})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "city", verr.Field)

	err = c.DeleteAddress(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = c.do(ctx, http.MethodGet, "/api/users/boom", "", nil, nil, nil)
	assert.Equal(t, domain.KindInternal, domain.Kind(err))
}

func TestCreateIntent(t *testing.T) {
	c, api, store := newClient(t)
	store.SignIn(session.User{ID: "u1", Token: "tok"})

	intent, err := c.CreateIntent(context.Background(), "u1", 4998)
	require.NoError(t, err)
	assert.Equal(t, "pi_9", intent.PaymentIntentID)
	assert.Equal(t, "pi_9_secret", intent.ClientSecret)
	assert.EqualValues(t, 4998, api.intentBody["amount"])
	require.Len(t, api.idemKeys, 1)
	assert.NotEmpty(t, api.idemKeys[0])

	api.inFlight = true
	_, err = c.CreateIntent(context.Background(), "u1", 4998)
	assert.ErrorIs(t, err, domain.ErrCheckoutInFlight)
}

func TestCheckoutThroughAPI(t *testing.T) {
	c, api, store := newClient(t)
	store.SignIn(session.User{ID: "u1", Email: "ada@example.com", Token: "tok"})
	_, err := store.Cart.AddItem(domain.Product{ID: 1, Title: "Mug", Price: decimal.RequireFromString("19.99")}, "", 2)
	require.NoError(t, err)

	o := checkout.New(store, c, c)
	card := checkout.Card{Number: "4242 4242 4242 4242", ExpMonth: 12, ExpYear: 2030, CVC: "123"}

	order, err := o.Submit(context.Background(), checkout.Request{Card: card, TypedAddress: "1 Main St"})
	require.NoError(t, err)
	assert.Equal(t, "ord_pi_9", order.ID)
	assert.True(t, order.Total.Equal(decimal.RequireFromString("39.98")))
	assert.Zero(t, store.Cart.Len())

	method := api.confirmBody["paymentMethodDetails"].(map[string]any)
	assert.Equal(t, "4242424242424242", method["card"].(map[string]any)["number"])
	assert.Equal(t, "ada@example.com", method["email"])

	orders, err := history.New(c).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "pi_9", orders[0].PaymentIntentID)
}

func TestCheckoutDeclineThroughAPI(t *testing.T) {
	c, api, store := newClient(t)
	api.declined = true
	store.SignIn(session.User{ID: "u1", Token: "tok"})
	_, err := store.Cart.AddItem(domain.Product{ID: 1, Title: "Mug", Price: decimal.RequireFromString("19.99")}, "", 1)
	require.NoError(t, err)

	o := checkout.New(store, c, c)
	_, err = o.Submit(context.Background(), checkout.Request{
		Card:            checkout.Card{Number: "4000000000000002", ExpMonth: 12, ExpYear: 2030, CVC: "123"},
		SelectedAddress: "Home",
	})
	var gerr *domain.GatewayError
	require.True(t, errors.As(err, &gerr))
	assert.Equal(t, "confirm", gerr.Op)
	assert.Equal(t, "Your card was declined.", gerr.Message)
	assert.Equal(t, 1, store.Cart.Len())
	assert.Empty(t, api.orders)
}
