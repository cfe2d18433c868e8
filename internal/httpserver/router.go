package httpserver

import (
	"context"
	"errors"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"storefront/internal/domain"
	"storefront/internal/metrics"
	addresssvc "storefront/internal/service/address"
	contactsvc "storefront/internal/service/contact"
	ordersvc "storefront/internal/service/order"
	paymentsvc "storefront/internal/service/payment"
	usersvc "storefront/internal/service/user"
)

type UserService interface {
	Register(ctx context.Context, in usersvc.RegisterInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*usersvc.Session, error)
	Authenticate(ctx context.Context, token string) (usersvc.Claims, error)
	Logout(ctx context.Context, c usersvc.Claims) error
}

type AddressService interface {
	List(ctx context.Context, userID string) ([]domain.Address, error)
	Create(ctx context.Context, userID string, in addresssvc.Input) (*domain.Address, error)
	Update(ctx context.Context, userID, id string, in addresssvc.Input) (*domain.Address, error)
	Delete(ctx context.Context, userID, id string) error
}

type ContactService interface {
	List(ctx context.Context, userID string) ([]domain.Contact, error)
	Create(ctx context.Context, userID string, in contactsvc.Input) (*domain.Contact, error)
	Update(ctx context.Context, userID, id string, in contactsvc.Input) (*domain.Contact, error)
	Delete(ctx context.Context, userID, id string) error
}

type OrderService interface {
	Place(ctx context.Context, userID string, in ordersvc.PlaceInput) (*domain.Order, bool, error)
	List(ctx context.Context, userID string) ([]domain.Order, error)
}

type PaymentService interface {
	CreateIntent(ctx context.Context, userID string, in paymentsvc.IntentInput) (*domain.Payment, bool, error)
	Confirm(ctx context.Context, userID string, in paymentsvc.ConfirmInput) (*domain.Payment, error)
}

type CatalogService interface {
	Products(ctx context.Context, category string) ([]domain.Product, error)
	Categories(ctx context.Context) ([]string, error)
}

// Deps holds the services behind the API.
type Deps struct {
	UserSvc     UserService
	AddressSvc  AddressService
	ContactSvc  ContactService
	OrderSvc    OrderService
	PaymentSvc  PaymentService
	Catalog     CatalogService
	Metrics     *metrics.Metrics
	CORSOrigins []string
}

// buildRouter wires routes for the API.
func buildRouter(logger zerolog.Logger, db *pgxpool.Pool, deps Deps) (*gin.Engine, error) {
	if deps.UserSvc == nil || deps.AddressSvc == nil || deps.ContactSvc == nil ||
		deps.OrderSvc == nil || deps.PaymentSvc == nil || deps.Catalog == nil {
		return nil, errors.New("httpserver: missing service dependency")
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewNop()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(requestLogger(logger), gin.Recovery(), observe(deps.Metrics), cors.New(corsConfig(deps.CORSOrigins)))

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))
	router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	api := router.Group("/api")

	users := api.Group("/users")
	users.POST("/register", registerHandler(deps.UserSvc))
	users.POST("/login", loginHandler(deps.UserSvc))

	products := api.Group("/products")
	products.GET("", listProductsHandler(deps.Catalog))
	products.GET("/categories", listCategoriesHandler(deps.Catalog))

	authed := api.Group("", authMiddleware(deps.UserSvc))
	authed.POST("/users/logout", logoutHandler(deps.UserSvc))

	addresses := authed.Group("/addresses")
	addresses.GET("/getmyaddress", listAddressesHandler(deps.AddressSvc))
	addresses.POST("/addmyaddress", createAddressHandler(deps.AddressSvc))
	addresses.PUT("/updateaddress/:id", updateAddressHandler(deps.AddressSvc))
	addresses.DELETE("/deleteaddress/:id", deleteAddressHandler(deps.AddressSvc))

	contacts := authed.Group("/contacts")
	contacts.GET("/getmycontact", listContactsHandler(deps.ContactSvc))
	contacts.POST("/addmycontact", createContactHandler(deps.ContactSvc))
	contacts.PUT("/updatemycontact/:id", updateContactHandler(deps.ContactSvc))
	contacts.DELETE("/deletemycontact/:id", deleteContactHandler(deps.ContactSvc))

	orders := authed.Group("/orders")
	orders.POST("/myorders", placeOrderHandler(deps.OrderSvc))
	orders.GET("/getmyorders", listOrdersHandler(deps.OrderSvc))

	pay := authed.Group("/payment")
	pay.POST("/paymentorder", createIntentHandler(deps.PaymentSvc))
	pay.POST("/confirm", confirmPaymentHandler(deps.PaymentSvc))

	return router, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", idempotencyHeader},
		ExposeHeaders: []string{"Content-Length", requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cfg
}
