package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const maxBodyBytes = 8 << 20

// Observer receives one call per HTTP attempt. code is 0 on transport errors.
type Observer interface {
	ObserveUpstream(provider string, code int, duration time.Duration)
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status code: %d", e.Provider, e.Code)
	}
	return fmt.Sprintf("%s: unexpected status code: %d: %s", e.Provider, e.Code, e.Body)
}

// Retryable reports whether another attempt could succeed.
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// IsStatus reports whether err wraps a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}

type Config struct {
	Provider   string
	UserAgent  string
	RPS        float64
	Burst      int
	MaxRetries int
	Timeout    time.Duration
	// Backoff is the first retry delay; it doubles per attempt.
	Backoff    time.Duration
	HTTPClient *http.Client
	Observer   Observer
}

// Client is a rate-limited HTTP client that retries 429 and 5xx responses
// and transport errors with exponential backoff. One Client per provider.
type Client struct {
	provider   string
	httpClient *http.Client
	userAgent  string
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
	observer   Observer
}

func NewClient(cfg Config) *Client {
	if cfg.RPS <= 0 {
		cfg.RPS = 2
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "anicatalog/1.0"
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		provider:   cfg.Provider,
		httpClient: httpClient,
		userAgent:  cfg.UserAgent,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.Backoff,
		observer:   cfg.Observer,
	}
}

func (c *Client) Provider() string { return c.provider }

// GetJSON fetches url and decodes the body into target.
func (c *Client) GetJSON(ctx context.Context, url string, header http.Header, target any) error {
	body, err := c.Do(ctx, http.MethodGet, url, header, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("%s: decode response: %w", c.provider, err)
	}
	return nil
}

// PostJSON sends payload as JSON and decodes the response into target.
func (c *Client) PostJSON(ctx context.Context, url string, payload any, target any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", c.provider, err)
	}
	header := http.Header{}
	header.Set("Content-Type", "application/json")
	header.Set("Accept", "application/json")
	body, err := c.Do(ctx, http.MethodPost, url, header, raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("%s: decode response: %w", c.provider, err)
	}
	return nil
}

// Do performs the request with retries and returns the raw body of the
// first 2xx response.
func (c *Client) Do(ctx context.Context, method, url string, header http.Header, payload []byte) ([]byte, error) {
	var lastErr error
	for i := 0; i <= c.maxRetries; i++ {
		if i > 0 {
			// Backoff: base, 2*base, 4*base...
			backoff := c.backoff * time.Duration(1<<uint(i-1))
			timer := time.NewTimer(backoff)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		body, err := c.attempt(ctx, method, url, header, payload)
		if err == nil {
			return body, nil
		}
		var se *StatusError
		if errors.As(err, &se) && !se.Retryable() {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
	}
	return nil, fmt.Errorf("after %d retries: %w", c.maxRetries, lastErr)
}

func (c *Client) attempt(ctx context.Context, method, url string, header http.Header, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", c.provider, err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(0, time.Since(start))
		return nil, fmt.Errorf("%s: %w", c.provider, err)
	}
	defer resp.Body.Close()
	c.observe(resp.StatusCode, time.Since(start))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", c.provider, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(body)
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return nil, &StatusError{Provider: c.provider, Code: resp.StatusCode, Body: snippet}
	}
	return body, nil
}

func (c *Client) observe(code int, d time.Duration) {
	if c.observer != nil {
		c.observer.ObserveUpstream(c.provider, code, d)
	}
}
