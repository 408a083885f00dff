// Package gemini implements the text-generation API client used for
// student reports. Requests go through a circuit breaker and a retrier;
// only rate limits, server errors and transport failures are retried.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/concordia-classroom/concordia/internal/application/report"
	"github.com/concordia-classroom/concordia/internal/domain/shared"
	"github.com/concordia-classroom/concordia/pkg/circuitbreaker"
	"github.com/concordia-classroom/concordia/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// DefaultModel is the model used when none is configured.
const DefaultModel = "gemini-3-flash-preview"

// DefaultBaseURL is the public API endpoint.
const DefaultBaseURL = "https://generativelanguage.googleapis.com"

// ClientConfig contains configuration for the API client.
type ClientConfig struct {
	// BaseURL is the API root, without the version segment.
	BaseURL string

	// APIKey authenticates requests. Empty means "not configured".
	APIKey string

	// Model is the model name, e.g. "gemini-3-flash-preview".
	Model string

	// Timeout is the per-attempt HTTP timeout.
	Timeout time.Duration

	// MaxAttempts counts the first attempt too.
	MaxAttempts int

	// BreakerThreshold consecutive failures open the circuit for BreakerTimeout.
	BreakerThreshold int
	BreakerTimeout   time.Duration

	// Logger for structured logging
	Logger *slog.Logger

	// HTTPClient overrides the default client (tests).
	HTTPClient *http.Client
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(apiKey string) ClientConfig {
	return ClientConfig{
		BaseURL:          DefaultBaseURL,
		APIKey:           apiKey,
		Model:            DefaultModel,
		Timeout:          60 * time.Second,
		MaxAttempts:      3,
		BreakerThreshold: 3,
		BreakerTimeout:   60 * time.Second,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client talks to models/{model}:generateContent.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	logger     *slog.Logger
	retrier    *retry.Retrier
	breaker    *circuitbreaker.CircuitBreaker
}

// NewClient creates a new API client.
func NewClient(config ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 1
	}
	if config.BreakerThreshold <= 0 {
		config.BreakerThreshold = 3
	}
	if config.BreakerTimeout <= 0 {
		config.BreakerTimeout = 60 * time.Second
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}
	logger := config.Logger.With("component", "gemini")

	return &Client{
		config:     config,
		httpClient: httpClient,
		logger:     logger,
		retrier: retry.New(
			retry.WithMaxAttempts(config.MaxAttempts),
			retry.WithInitialDelay(500*time.Millisecond),
			retry.WithMaxDelay(8*time.Second),
			retry.WithJitter(0.2),
			retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
				logger.Warn("retrying generateContent", "attempt", attempt, "delay", delay, "error", err)
			}),
		),
		breaker: circuitbreaker.New("gemini",
			circuitbreaker.WithFailureThreshold(config.BreakerThreshold),
			circuitbreaker.WithSuccessThreshold(1),
			circuitbreaker.WithTimeout(config.BreakerTimeout),
			circuitbreaker.WithMaxHalfOpenRequests(1),
			// a blank answer says nothing about the health of the API
			circuitbreaker.WithIsFailure(func(err error) bool {
				return !errors.Is(err, shared.ErrReportEmpty) && !errors.Is(err, context.Canceled)
			}),
			circuitbreaker.WithOnStateChange(func(name string, from, to circuitbreaker.State) {
				logger.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
			}),
		),
	}
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool {
	return strings.TrimSpace(c.config.APIKey) != ""
}

// BreakerState exposes the circuit state for health checks.
func (c *Client) BreakerState() circuitbreaker.State {
	return c.breaker.State()
}

// GenerateReport implements report.Generator.
func (c *Client) GenerateReport(ctx context.Context, in report.Input) (string, error) {
	if !c.Configured() {
		return "", shared.ErrReportNotConfigured
	}
	return c.Generate(ctx, BuildPrompt(in))
}

// Generate sends a single-turn prompt and returns the answer text.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if !c.Configured() {
		return "", shared.ErrReportNotConfigured
	}

	var text string
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		text, err = retry.DoWithData(ctx, c.retrier, func(ctx context.Context) (string, error) {
			return c.doSingleRequest(ctx, prompt)
		})
		return err
	})
	if err != nil {
		if errors.Is(err, circuitbreaker.ErrCircuitOpen) || errors.Is(err, circuitbreaker.ErrTooManyRequests) {
			return "", shared.WrapError("report", "Generate", shared.ErrServiceUnavailable, "generation API temporarily disabled", err)
		}
		return "", err
	}
	return text, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HTTP REQUEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func (c *Client) endpoint() string {
	return fmt.Sprintf("%s/v1beta/models/%s:generateContent",
		strings.TrimRight(c.config.BaseURL, "/"), url.PathEscape(c.config.Model))
}

// doSingleRequest performs one HTTP attempt. Returned errors carry a
// retry marker so the retrier knows what to do with them.
func (c *Client) doSingleRequest(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(GenerateContentRequest{
		Contents: []ContentDTO{{Role: "user", Parts: []PartDTO{{Text: prompt}}}},
	})
	if err != nil {
		return "", retry.Permanent(fmt.Errorf("marshal body: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(body))
	if err != nil {
		return "", retry.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-goog-api-key", c.config.APIKey)

	c.logger.Debug("gemini api request", "model", c.config.Model, "prompt_bytes", len(prompt))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", retry.Permanent(ctx.Err())
		}
		return "", retry.Retryable(fmt.Errorf("http request: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", retry.Retryable(fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Code: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var wrapped APIErrorResponse
		if err := json.Unmarshal(respBody, &wrapped); err == nil && wrapped.Error.Message != "" {
			apiErr = &wrapped.Error
			apiErr.Code = resp.StatusCode
		}
		if apiErr.Temporary() {
			return "", retry.Retryable(apiErr)
		}
		return "", retry.Permanent(apiErr)
	}

	var out GenerateContentResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", retry.Permanent(fmt.Errorf("unmarshal response: %w", err))
	}

	text := out.Text()
	if strings.TrimSpace(text) == "" {
		return "", retry.Permanent(shared.ErrReportEmpty)
	}
	return text, nil
}
