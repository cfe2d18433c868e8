// Package apiclient is the shopper-side HTTP client for the storefront API.
// It implements the checkout and history ports and maps error responses back
// into domain errors.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"storefront/internal/domain"
)

// TokenSource yields the bearer token for authenticated calls.
// *session.Store satisfies it.
type TokenSource interface {
	Token() string
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.httpClient = hc } }

func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		tokens: tokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field"`
}

// do sends in as JSON and decodes a 2xx response into out. op names the
// payment step for gateway errors.
func (c *Client) do(ctx context.Context, method, path, op string, in, out any, headers map[string]string) (int, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if tok := c.tokens.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out != nil && len(data) > 0 {
			if err := json.Unmarshal(data, out); err != nil {
				return resp.StatusCode, fmt.Errorf("decode response: %w", err)
			}
		}
		return resp.StatusCode, nil
	}
	return resp.StatusCode, decodeError(resp.StatusCode, op, data)
}

func decodeError(status int, op string, data []byte) error {
	var eb errorBody
	if err := json.Unmarshal(data, &eb); err != nil || eb.Code == "" {
		return fmt.Errorf("unexpected status %d: %s", status, strings.TrimSpace(string(data)))
	}

	switch domain.ErrorKind(eb.Code) {
	case domain.KindValidation:
		return &domain.ValidationError{Field: eb.Field, Message: eb.Message}
	case domain.KindAuth:
		if status == http.StatusBadRequest {
			return domain.ErrInvalidCredentials
		}
		return domain.ErrUnauthenticated
	case domain.KindNotFound:
		return domain.ErrNotFound
	case domain.KindConflict:
		switch {
		case eb.Field != "":
			return &domain.ConflictError{Field: eb.Field, Message: eb.Message}
		case strings.Contains(eb.Message, domain.ErrCheckoutInFlight.Error()):
			return domain.ErrCheckoutInFlight
		case strings.Contains(eb.Message, domain.ErrPaymentNotSettled.Error()):
			return fmt.Errorf("%s: %w", eb.Message, domain.ErrPaymentNotSettled)
		case status == http.StatusBadRequest:
			return domain.ErrAlreadyExists
		default:
			return fmt.Errorf("%s: %w", eb.Message, domain.ErrConflict)
		}
	case domain.KindGateway:
		if op == "" {
			op = "request"
		}
		return &domain.GatewayError{Op: op, Message: eb.Message}
	default:
		return fmt.Errorf("server error %d: %s", status, eb.Message)
	}
}
