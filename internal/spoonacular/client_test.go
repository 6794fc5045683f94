package spoonacular

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ccastromar/aos-diet-planner/internal/logx"
)

func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	prev := logx.SetLogger(zap.New(core))
	t.Cleanup(func() { logx.SetLogger(prev) })
	return logs
}

func newTestClient(t *testing.T, baseURL string, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithBaseURL(baseURL)}, opts...)
	c, err := New(StaticKey("test-key"), opts...)
	require.NoError(t, err)
	return c
}

// slowServer holds every request until the client gives up.
func slowServer(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func statusServer(t *testing.T, code int, body string) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, body, code)
	}))
	t.Cleanup(ts.Close)
	return ts
}

// closedServerURL returns the address of a server that no longer listens.
func closedServerURL() string {
	ts := httptest.NewServer(http.NotFoundHandler())
	u := ts.URL
	ts.Close()
	return u
}

func TestNew_MissingKeyFailsBeforeAnyCall(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer ts.Close()

	keys := &EnvKey{Name: KeyEnvVar, Lookup: func(string) (string, bool) { return "", false }}
	c, err := New(keys, WithBaseURL(ts.URL))
	require.Nil(t, c)
	require.ErrorIs(t, err, ErrMissingAPIKey)
	require.Contains(t, err.Error(), KeyEnvVar)
	require.Equal(t, int32(0), atomic.LoadInt32(&hits))

	_, err = New(StaticKey("  "))
	require.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = New(nil)
	require.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestNew_MissingKeyFromRealEnvironment(t *testing.T) {
	t.Setenv(KeyEnvVar, "")
	_, err := New(NewEnvKey())
	require.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestEnvKey_ResolvedOnceAcrossConstructions(t *testing.T) {
	logs := observeLogs(t)

	var lookups int
	keys := &EnvKey{
		Name: KeyEnvVar,
		Lookup: func(name string) (string, bool) {
			lookups++
			return "abcdef123456", true
		},
	}

	c1, err := New(keys)
	require.NoError(t, err)
	c2, err := New(keys)
	require.NoError(t, err)

	require.Equal(t, 1, lookups)
	require.Equal(t, c1.apiKey, c2.apiKey)

	loaded := logs.FilterMessageSnippet("API key loaded").All()
	require.Len(t, loaded, 1)
	require.Equal(t, "API key loaded: abcde...", loaded[0].Message)
}

func TestEnvKey_FailedLookupIsRetried(t *testing.T) {
	val := ""
	keys := &EnvKey{Lookup: func(string) (string, bool) { return val, val != "" }}

	_, err := New(keys)
	require.ErrorIs(t, err, ErrMissingAPIKey)

	val = "late-key"
	c, err := New(keys)
	require.NoError(t, err)
	require.Equal(t, "late-key", c.apiKey)
}

func TestNew_DefaultsAndOptions(t *testing.T) {
	c, err := New(StaticKey("k"))
	require.NoError(t, err)
	require.Equal(t, DefaultBaseURL, c.baseURL)
	require.Equal(t, 10*time.Second, c.Timeout())
	require.Equal(t, 10*time.Second, c.http.Timeout)

	custom := &http.Client{}
	c, err = New(StaticKey("k"), WithTimeout(time.Second), WithHTTPClient(custom), WithBaseURL("http://x"))
	require.NoError(t, err)
	require.Equal(t, time.Second, c.Timeout())
	require.Same(t, custom, c.http)
	require.Equal(t, "http://x", c.baseURL)
}

func TestClassify(t *testing.T) {
	require.Equal(t, CategoryHTTP, classify(&StatusError{Code: 500}))
	require.Equal(t, CategoryTimeout, classify(context.DeadlineExceeded))
	require.Equal(t, CategoryUnexpected, classify(&decodeError{err: errors.New("bad")}))
	require.Equal(t, CategoryUnexpected, classify(errors.New("other")))
}

func TestConcurrentCallsShareClient(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"calories": "100"})
	}))
	defer ts.Close()

	c := newTestClient(t, ts.URL)
	done := make(chan NutritionInfo, 8)
	for i := 0; i < 8; i++ {
		go func(id int) { done <- c.NutritionInfo(context.Background(), id) }(i + 1)
	}
	for i := 0; i < 8; i++ {
		got := <-done
		require.Equal(t, "100", got.Calories)
	}
}

func TestOversizedResponseIsReported(t *testing.T) {
	old := maxResponseBytes
	maxResponseBytes = 64
	t.Cleanup(func() { maxResponseBytes = old })

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"calories":"` + strings.Repeat("9", 100) + `"}`))
	}))
	defer ts.Close()

	got := newTestClient(t, ts.URL).NutritionInfo(context.Background(), 1)
	require.True(t, got.Failed())
	require.Equal(t, CategoryUnexpected, got.Category)
	require.Contains(t, got.Error, "Unexpected error: response too large")
	require.NotContains(t, got.Error, "unexpected EOF")
}

func TestResponseAtLimitIsAccepted(t *testing.T) {
	body := `{"calories":"584"}`
	old := maxResponseBytes
	maxResponseBytes = int64(len(body))
	t.Cleanup(func() { maxResponseBytes = old })

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer ts.Close()

	got := newTestClient(t, ts.URL).NutritionInfo(context.Background(), 1)
	require.False(t, got.Failed(), got.Error)
	require.Equal(t, "584", got.Calories)
}

func TestErrorMessagesNeverLeakKey(t *testing.T) {
	c, err := New(StaticKey("super-secret-key"), WithBaseURL(closedServerURL()))
	require.NoError(t, err)

	got := c.NutritionInfo(context.Background(), 1)
	require.True(t, got.Failed())
	require.False(t, strings.Contains(got.Error, "super-secret-key"), got.Error)
}
