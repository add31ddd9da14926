// Package crm is a small client for the CRM/scheduling vendor API used for
// contacts, calendars and appointments.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cenkalti/backoff/v5"
)

const (
	DefaultBaseURL    = "https://services.leadconnectorhq.com"
	DefaultAPIVersion = "2021-04-15"
	defaultTimeout    = 30 * time.Second
	defaultMaxTries   = 3
)

// ErrNotConfigured is returned when no API key or location is set
var ErrNotConfigured = errors.New("crm: API key and location ID are required")

// Config holds vendor credentials and defaults.
type Config struct {
	BaseURL    string
	APIKey     string
	LocationID string
	CalendarID string
	Version    string
	Timezone   string
	Timeout    time.Duration

	// MaxTries bounds attempts for retryable failures (429, 5xx, network)
	MaxTries uint
	// RetryInitial is the first backoff interval, mostly overridden in tests
	RetryInitial time.Duration
}

// APIError is a non-2xx vendor response.
type APIError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	body := truncate(e.Body, maxErrorBody)
	return fmt.Sprintf("crm %s returned %d: %s", e.Operation, e.StatusCode, body)
}

const maxErrorBody = 300

// truncate shortens s to at most n bytes without splitting a UTF-8 sequence
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// Retryable reports whether the vendor may accept the same request later.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Client talks to the vendor REST API.
type Client struct {
	cfg  Config
	http *http.Client
}

// New returns a client with defaults applied to cfg.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Version == "" {
		cfg.Version = DefaultAPIVersion
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxTries == 0 {
		cfg.MaxTries = defaultMaxTries
	}
	if cfg.RetryInitial <= 0 {
		cfg.RetryInitial = 500 * time.Millisecond
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

// Configured reports whether credentials are present.
func (c *Client) Configured() bool {
	return c.cfg.APIKey != "" && c.cfg.LocationID != ""
}

// CalendarID returns the default calendar.
func (c *Client) CalendarID() string {
	return c.cfg.CalendarID
}

// Timezone returns the default calendar time zone.
func (c *Client) Timezone() string {
	return c.cfg.Timezone
}

// do sends a request and decodes a JSON response into out (when non-nil).
// Rate limits, server errors and transport errors are retried with
// exponential backoff; other 4xx responses fail immediately.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("crm %s: encode body: %w", op, err)
		}
		payload = b
	}

	endpoint := c.cfg.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	operation := func() ([]byte, error) {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
		req.Header.Set("Version", c.cfg.Version)
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		started := time.Now()
		resp, err := c.http.Do(req)
		if err != nil {
			observe(op, "error", started)
			return nil, fmt.Errorf("crm %s request failed: %w", op, err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		observe(op, statusClass(resp.StatusCode), started)
		if err != nil {
			return nil, fmt.Errorf("crm %s: read body: %w", op, err)
		}

		if resp.StatusCode >= 400 {
			apiErr := &APIError{Operation: op, StatusCode: resp.StatusCode, Body: string(respBody)}
			if apiErr.Retryable() {
				return nil, apiErr
			}
			return nil, backoff.Permanent(apiErr)
		}
		return respBody, nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.cfg.RetryInitial

	respBody, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(c.cfg.MaxTries),
	)
	if err != nil {
		return err
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("crm %s: decode response: %w", op, err)
	}
	return nil
}

// millis formats t as epoch milliseconds, the vendor's query format for ranges.
func millis(t time.Time) string {
	return fmt.Sprintf("%d", t.UnixMilli())
}
