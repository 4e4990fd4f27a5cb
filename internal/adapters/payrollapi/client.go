// Package payrollapi is the HTTP client for the remote payroll API.
//
// Every operation is a form-encoded POST to <base>/<operation> answered with
// the envelope {"success": bool, "message": string, "data": ...}.
package payrollapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"

	"paydesk/internal/config"
	"paydesk/internal/core/domain"

	"github.com/goccy/go-json"
	"github.com/gorilla/schema"
	"github.com/shopspring/decimal"
)

const maxResponseBytes = 4 << 20

type tokenKey struct{}

// WithToken attaches the bearer token of the calling session to ctx
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFrom returns the bearer token attached by WithToken
func TokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// Client talks to the payroll API
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	backoff    time.Duration
	encoder    *schema.Encoder
}

// NewClient creates a client with the configured timeout and retry policy.
// Reads are retried on transport failures and 5xx; mutations never are.
func NewClient(cfg config.PayrollAPIConfig) *Client {
	encoder := schema.NewEncoder()
	encoder.RegisterEncoder(decimal.Decimal{}, func(v reflect.Value) string {
		return v.Interface().(decimal.Decimal).String()
	})

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.RetryBackoff,
		encoder:    encoder,
	}
}

// envelope is the response wrapper every operation returns
type envelope struct {
	Success  bool            `json:"success"`
	Message  string          `json:"message"`
	Data     json.RawMessage `json:"data"`
	UserData json.RawMessage `json:"user_data"`
}

// call performs one operation; retry enables the read retry policy
func (c *Client) call(ctx context.Context, op string, form interface{}, retry bool) (*envelope, error) {
	values := url.Values{}
	if form != nil {
		if err := c.encoder.Encode(form, values); err != nil {
			return nil, fmt.Errorf("%s: encode form: %w", op, err)
		}
	}
	body := values.Encode()

	attempts := 1
	if retry && c.maxRetries > 0 {
		attempts += c.maxRetries
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt-1) * c.backoff):
			}
			log.Printf("⚠️ Retrying %s (attempt %d/%d): %v", op, attempt, attempts, lastErr)
		}

		env, err := c.do(ctx, op, body)
		if err == nil {
			return env, nil
		}
		if !errors.Is(err, domain.ErrServiceUnavailable) || ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
	}

	log.Printf("❌ %s failed after %d attempts: %v", op, attempts, lastErr)
	return nil, lastErr
}

func (c *Client) do(ctx context.Context, op, body string) (*envelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+op, bytes.NewBufferString(body))
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if token := TokenFrom(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, domain.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: %w: read body: %v", op, domain.ErrServiceUnavailable, err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	switch {
	case resp.StatusCode == http.StatusUnauthorized && op != opLogin:
		return nil, fmt.Errorf("%s: %w", op, domain.ErrSessionExpired)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%s: %w: status %d", op, domain.ErrServiceUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, &domain.RemoteError{Operation: op, Message: env.Message}
	}

	if decodeErr != nil {
		return nil, fmt.Errorf("%s: decode response: %w", op, decodeErr)
	}
	if !env.Success {
		return nil, &domain.RemoteError{Operation: op, Message: env.Message}
	}
	return &env, nil
}

// decodeData unmarshals the envelope payload into dst
func decodeData(op string, data json.RawMessage, dst interface{}) error {
	if len(data) == 0 || string(data) == "null" {
		return fmt.Errorf("%s: empty data", op)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%s: decode data: %w", op, err)
	}
	return nil
}
