// Package catalog proxies the remote read-only product list.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"storefront/internal/domain"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      Cache
	ttl        time.Duration
	logger     zerolog.Logger
}

func NewClient(baseURL string, cache Cache, ttl time.Duration, logger zerolog.Logger) *Client {
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		cache:  cache,
		ttl:    ttl,
		logger: logger.With().Str("component", "catalog").Logger(),
	}
}

// Products lists the catalog, optionally filtered by category.
func (c *Client) Products(ctx context.Context, category string) ([]domain.Product, error) {
	path := "/products"
	if category = strings.TrimSpace(category); category != "" {
		path = "/products/category/" + url.PathEscape(category)
	}
	var out []domain.Product
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Product{}
	}
	return out, nil
}

// Product returns one catalog entry.
func (c *Client) Product(ctx context.Context, id int64) (*domain.Product, error) {
	var p domain.Product
	if err := c.get(ctx, fmt.Sprintf("/products/%d", id), &p); err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (c *Client) Categories(ctx context.Context) ([]string, error) {
	var out []string
	if err := c.get(ctx, "/products/categories", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, dst any) error {
	if body, ok, err := c.cache.Get(ctx, path); err != nil {
		c.logger.Warn().Err(err).Str("path", path).Msg("catalog cache read failed")
	} else if ok {
		return json.Unmarshal(body, dst)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call catalog: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read catalog response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("catalog returned status %d: %s", resp.StatusCode, string(body))
	}
	// the upstream answers unknown product ids with 200 and an empty body
	if len(strings.TrimSpace(string(body))) == 0 {
		return domain.ErrNotFound
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("decode catalog response: %w", err)
	}

	if err := c.cache.Set(ctx, path, body, c.ttl); err != nil {
		c.logger.Warn().Err(err).Str("path", path).Msg("catalog cache write failed")
	}
	return nil
}
