package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"storefront/internal/apiclient"
	"storefront/internal/checkout"
	"storefront/internal/config"
	"storefront/internal/domain"
	"storefront/internal/history"
	"storefront/internal/importer"
	"storefront/internal/ledger"
	"storefront/internal/logging"
	"storefront/internal/session"
)

func main() {
	os.Exit(run())
}

// options are the parsed command line flags.
type options struct {
	apiURL   string
	email    string
	password string
	listPath string
	card     checkout.Card
	address  string
}

// run returns the process exit code.
func run() int {
	var (
		apiURL   string
		email    string
		password string
		listPath string
		card     string
		expiry   string
		cvc      string
		address  string
	)
	flag.StringVar(&apiURL, "api", "http://localhost:8081", "Storefront API base URL")
	flag.StringVar(&email, "email", "", "Account email")
	flag.StringVar(&password, "password", "", "Account password")
	flag.StringVar(&listPath, "list", "", "CSV shopping list with productId,size,quantity columns")
	flag.StringVar(&card, "card", "4242 4242 4242 4242", "Card number")
	flag.StringVar(&expiry, "exp", "", "Card expiry as MM/YYYY")
	flag.StringVar(&cvc, "cvc", "", "Card CVC")
	flag.StringVar(&address, "address", "", "Delivery address; defaults to the first saved address")
	flag.Parse()

	if email == "" || password == "" || listPath == "" || expiry == "" || cvc == "" {
		flag.Usage()
		return 2
	}

	cfg := config.FromEnv()
	logger := logging.New(cfg.LogLevel, "console", "shopper")

	month, year, err := parseExpiry(expiry)
	if err != nil {
		logger.Error().Err(err).Msg("parse expiry")
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	return shop(ctx, cfg, options{
		apiURL:   apiURL,
		email:    email,
		password: password,
		listPath: listPath,
		card:     checkout.Card{Number: card, ExpMonth: month, ExpYear: year, CVC: cvc},
		address:  address,
	}, logger)
}

// shop logs in, fills the cart from the shopping list and checks out. The
// session is logged out on every path once login succeeded.
func shop(ctx context.Context, cfg config.Config, opts options, logger zerolog.Logger) int {
	notices := ledger.NotifierFunc(func(n ledger.Notice) {
		logger.Warn().Int64("product_id", n.Key.ProductID).Int("accepted", n.Accepted).Msg(n.Message)
	})
	store := session.New(notices, cfg.ApparelCategories)
	client := apiclient.New(opts.apiURL, store)

	user, err := client.Login(ctx, opts.email, opts.password)
	if err != nil {
		logger.Error().Err(err).Msg("login")
		return 1
	}
	store.SignIn(user)
	defer func() {
		if err := client.Logout(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("logout")
		}
		store.Logout()
	}()

	f, err := os.Open(opts.listPath)
	if err != nil {
		logger.Error().Err(err).Msg("open shopping list")
		return 1
	}
	defer f.Close()

	added, err := importer.NewCSVImporter(f, client, store.Cart).Run(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("fill cart")
		return 1
	}
	logger.Info().Int("rows", added).Str("total", store.Cart.Total().StringFixed(2)).Msg("cart ready")

	selected := ""
	if opts.address == "" {
		saved, err := client.Addresses(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("load addresses")
			return 1
		}
		if len(saved) > 0 {
			selected = formatAddress(saved[0])
		}
	}

	checkoutOpts := []checkout.Option{
		checkout.WithLogger(logger),
		checkout.WithObserver(func(from, to checkout.State) {
			logger.Debug().Stringer("from", from).Stringer("to", to).Msg("checkout state")
		}),
	}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		checkoutOpts = append(checkoutOpts, checkout.WithPendingStore(checkout.NewRedisPending(rdb, user.ID)))
	}
	orch := checkout.New(store, client, client, checkoutOpts...)

	recorded, err := orch.Reconcile(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("earlier paid orders are still unrecorded")
	}
	for _, o := range recorded {
		logger.Info().Str("order_id", o.ID).Str("payment_intent_id", o.PaymentIntentID).Msg("recorded earlier paid order")
	}
	order, err := orch.Submit(ctx, checkout.Request{
		Card:            opts.card,
		SelectedAddress: selected,
		TypedAddress:    opts.address,
	})
	if err != nil {
		report(logger, err)
		return 1
	}
	fmt.Printf("Order %s placed: %s for %d line(s), delivered to %s\n", order.ID, order.Total.StringFixed(2), len(order.Items), order.Address)

	orders, err := history.New(client).Fetch(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("load order history")
		return 0
	}
	if len(orders) == 0 {
		return 0
	}
	fmt.Printf("You have %d order(s); most recent %s\n", len(orders), orders[0].CreatedAt.Format(time.RFC1123))
	return 0
}

func parseExpiry(raw string) (int, int, error) {
	m, y, ok := strings.Cut(raw, "/")
	if !ok {
		return 0, 0, fmt.Errorf("expiry %q is not MM/YYYY", raw)
	}
	month, err := strconv.Atoi(strings.TrimSpace(m))
	if err != nil {
		return 0, 0, fmt.Errorf("expiry month: %w", err)
	}
	year, err := strconv.Atoi(strings.TrimSpace(y))
	if err != nil {
		return 0, 0, fmt.Errorf("expiry year: %w", err)
	}
	return month, year, nil
}

func formatAddress(a domain.Address) string {
	parts := []string{a.Address, a.City}
	return strings.Join(parts, ", ")
}

func report(logger zerolog.Logger, err error) {
	var fatal *domain.FatalInconsistencyError
	if errors.As(err, &fatal) {
		logger.Error().Err(err).Str("payment_intent_id", fatal.PaymentIntentID).
			Msg("your payment went through but the order was not saved; contact support with this payment id")
		return
	}
	logger.Error().Err(err).Str("kind", string(domain.Kind(err))).Msg("checkout failed")
}
