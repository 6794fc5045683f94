package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ccastromar/aos-diet-planner/internal/metrics"
)

type OllamaClient struct {
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Timeout    time.Duration
}

var _ LLMClient = (*OllamaClient)(nil)

func NewOllamaClient(baseURL, model string) *OllamaClient {
	return &OllamaClient{
		BaseURL:    baseURL,
		Model:      model,
		HTTPClient: newHTTPClient(60 * time.Second),
		Timeout:    60 * time.Second,
	}
}

func (c *OllamaClient) Provider() string { return "ollama" }

// Chat streams the reply and returns the concatenated message content.
func (c *OllamaClient) Chat(ctx context.Context, prompt string) (string, error) {
	payload := map[string]any{
		"model": c.Model,
		"messages": []map[string]any{
			{"role": "user", "content": prompt},
		},
		"stream": true,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	to := c.Timeout
	if to <= 0 {
		to = 30 * time.Second
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, to)
	defer cancel()

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = newHTTPClient(to)
	}
	url := strings.TrimRight(c.BaseURL, "/") + "/api/chat"

	start := time.Now()
	resp, err := retryHTTP(ctx, 3, 100*time.Millisecond, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("new request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		return httpClient.Do(req)
	})
	if err != nil {
		metrics.LLMChats.WithLabelValues("ollama", "error").Inc()
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		metrics.LLMChats.WithLabelValues("ollama", "error").Inc()
		return "", fmt.Errorf("ollama chat failed: status %d, body: %s", resp.StatusCode, string(b))
	}

	dec := json.NewDecoder(resp.Body)
	var out bytes.Buffer
	for {
		var chunk struct {
			Message *struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"message"`
			Done bool `json:"done"`
		}
		if err := dec.Decode(&chunk); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			metrics.LLMChats.WithLabelValues("ollama", "error").Inc()
			return "", fmt.Errorf("ollama stream: %w", err)
		}
		if chunk.Message != nil {
			out.WriteString(chunk.Message.Content)
		}
		if chunk.Done {
			break
		}
	}

	metrics.LLMChats.WithLabelValues("ollama", "ok").Inc()
	metrics.LLMChatDur.WithLabelValues("ollama").Observe(time.Since(start).Seconds())
	return out.String(), nil
}

// Ping checks if Ollama is reachable and responding (GET /api/tags).
func (c *OllamaClient) Ping(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = newHTTPClient(1 * time.Second)
	}
	url := strings.TrimRight(c.BaseURL, "/") + "/api/tags"

	resp, err := retryHTTP(ctx, 3, 50*time.Millisecond, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		return httpClient.Do(req)
	})
	if err != nil {
		metrics.LLMPings.WithLabelValues("ollama", "error").Inc()
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.LLMPings.WithLabelValues("ollama", "error").Inc()
		return fmt.Errorf("llm ping failed: status %d", resp.StatusCode)
	}
	metrics.LLMPings.WithLabelValues("ollama", "ok").Inc()
	return nil
}
