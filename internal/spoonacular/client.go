// Package spoonacular is a thin client for the Spoonacular recipe, nutrition
// and meal-planning API. Upstream failures never surface as Go errors from
// the lookup methods: search degrades to an empty slice and the other calls
// return a record carrying an error message.
package spoonacular

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ccastromar/aos-diet-planner/internal/logx"
	"github.com/ccastromar/aos-diet-planner/internal/metrics"
)

const (
	DefaultBaseURL = "https://api.spoonacular.com"
	DefaultTimeout = 10 * time.Second
)

// upstream bodies larger than this are rejected with ErrResponseTooLarge
var maxResponseBytes int64 = 8 << 20

type Client struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	http    *http.Client
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithTimeout overrides the per-call network budget.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// New resolves the API key right away so a missing credential fails at
// construction rather than on the first call.
func New(keys KeyProvider, opts ...Option) (*Client, error) {
	if keys == nil {
		return nil, ErrMissingAPIKey
	}
	key, err := keys.APIKey()
	if err != nil {
		return nil, err
	}

	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  key,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{
			Timeout:   c.timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return c, nil
}

// Timeout reports the per-call budget.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// call performs one GET and decodes the JSON body into out. Failures are
// logged and counted by category and returned as an ErrorResult.
func (c *Client) call(ctx context.Context, op, path string, params url.Values, out any) *ErrorResult {
	start := time.Now()
	err := c.get(ctx, path, params, out)
	metrics.UpstreamDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	if err == nil {
		metrics.UpstreamCalls.WithLabelValues(op, "ok").Inc()
		return nil
	}

	cat := classify(err)
	metrics.UpstreamCalls.WithLabelValues(op, string(cat)).Inc()
	c.logFailure(op, cat, err)

	res := resultFor(cat, err)
	return &res
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if params == nil {
		params = url.Values{}
	}
	params.Set("apiKey", c.apiKey)
	endpoint := strings.TrimRight(c.baseURL, "/") + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", c.redact(err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return c.redact(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return c.redact(err)
	}
	if int64(len(body)) > maxResponseBytes {
		return fmt.Errorf("%w: more than %d bytes", ErrResponseTooLarge, maxResponseBytes)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &decodeError{err: err}
	}
	return nil
}

// redact keeps the API key out of error messages, which end up in logs and
// in caller-visible results.
func (c *Client) redact(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) && c.apiKey != "" {
		ue.URL = strings.ReplaceAll(ue.URL, url.QueryEscape(c.apiKey), "REDACTED")
		ue.URL = strings.ReplaceAll(ue.URL, c.apiKey, "REDACTED")
	}
	return err
}

func (c *Client) logFailure(op string, cat Category, err error) {
	switch cat {
	case CategoryTimeout:
		logx.Error("Spoonacular", "%s: request timed out after %s", op, c.timeout)
	case CategoryHTTP:
		var se *StatusError
		errors.As(err, &se)
		logx.Error("Spoonacular", "%s: API returned an error: %d - %s", op, se.Code, se.Body)
	case CategoryConnection:
		logx.Error("Spoonacular", "%s: error making request: %v", op, err)
	default:
		logx.Error("Spoonacular", "%s: unexpected error: %v", op, err)
	}
}
