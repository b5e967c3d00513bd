package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bxu-infra/kml-dashboard/config"
	"github.com/bxu-infra/kml-dashboard/internal/logging"
)

// Client relays prompts to a local Ollama server.
type Client struct {
	generateURL string
	model       string
	httpClient  *http.Client
	metrics     *Metrics
}

type GenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// GenerateResponse is the subset of the Ollama reply we use. Response is nil when the field
// was absent, null, or the body was not JSON.
type GenerateResponse struct {
	Model    string  `json:"model,omitempty"`
	Response *string `json:"response"`
	Done     bool    `json:"done,omitempty"`
}

// Text returns the generated text, or fallback when the reply carried none.
func (r *GenerateResponse) Text(fallback string) string {
	if r == nil || r.Response == nil {
		return fallback
	}
	return *r.Response
}

// NewClient creates a relay client from config. A nil httpClient gets one with cfg.Timeout.
func NewClient(cfg config.OllamaConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		generateURL: cfg.GenerateURL(),
		model:       cfg.Model,
		httpClient:  httpClient,
		metrics:     &Metrics{},
	}
}

func (c *Client) Model() string { return c.model }

func (c *Client) Stats() Stats { return c.metrics.Snapshot() }

// Generate sends one non-streaming prompt and returns the decoded reply.
// Any status other than 200 yields *StatusError; transport failures wrap ErrUnavailable.
func (c *Client) Generate(ctx context.Context, prompt string) (*GenerateResponse, error) {
	logger := logging.New(ctx)
	start := time.Now()

	body, err := json.Marshal(GenerateRequest{Model: c.model, Prompt: prompt, Stream: false})
	if err != nil {
		return nil, fmt.Errorf("encode generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.generateURL, bytes.NewReader(body))
	if err != nil {
		c.metrics.record(time.Since(start), err)
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.record(time.Since(start), err)
		logger.Error("ollama_generate", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	duration := time.Since(start)
	if err != nil {
		c.metrics.record(duration, err)
		logger.Error("ollama_generate", err)
		return nil, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		serr := &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
		c.metrics.record(duration, serr)
		logger.Warnf("ollama_generate", "upstream returned status %d body=%q", resp.StatusCode, truncate(serr.Body, 200))
		return nil, serr
	}
	c.metrics.record(duration, nil)

	var out GenerateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		logger.Warnf("ollama_generate", "undecodable reply: %v", err)
		return &GenerateResponse{}, nil
	}
	logger.Debugf("ollama_generate", "model=%s latency=%s", c.model, duration)
	return &out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
