package llm

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"net/http"
	"time"
)

// retryHTTP wraps an operation with small exponential backoff retries for transient failures.
// It retries when:
// - the op returns a retriable error (network timeout), or
// - the returned HTTP status code is retriable (429, 408)
// The op should perform the HTTP request and return the response and/or an error.
func retryHTTP(ctx context.Context, maxAttempts int, baseDelay time.Duration, op func() (*http.Response, error)) (*http.Response, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		resp, err := op()
		if err == nil && resp != nil && !isRetriableStatus(resp.StatusCode) {
			return resp, nil
		}

		shouldRetry := false
		if err != nil {
			shouldRetry = isRetriableError(err)
		} else if resp != nil {
			shouldRetry = true
		}

		lastErr = err
		if attempt == maxAttempts || !shouldRetry {
			return resp, err
		}
		if resp != nil {
			// close body before retry to avoid leaks
			resp.Body.Close()
		}

		delay := baseDelay << (attempt - 1) // 100ms, 200ms, 400ms...
		if delay > time.Second {
			delay = time.Second
		}
		// jitter in [-10%, +10%)
		jitter := time.Duration(rand.Int63n(int64(delay/5) + 1))
		delay = delay - delay/10 + jitter

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, lastErr
}

// Only rate limiting and request timeouts are retried; a 5xx fails fast.
func isRetriableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusRequestTimeout
}

func isRetriableError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}
