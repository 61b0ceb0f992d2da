// Package offload implements the remote-computation decision: a keyword
// predicate over the task description combined with one bounded remote call.
// Any failure of the remote side falls back to the local pipeline; the call
// is attempted at most once per workflow, never retried.
package offload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DefaultKeywords are the description markers that route a workflow to the
// remote computation service. They cover the engineering-style requests the
// service handles better than a local render.
var DefaultKeywords = []string{"design", "engineer", "simulate", "lattice"}

const defaultTimeout = 30 * time.Second

// Request is the single request of the offload RPC.
type Request struct {
	Description   string `json:"description"`
	CorrelationID string `json:"correlation_id"`
}

// Response is the remote side's answer: either an artifact bundle or an
// error.
type Response struct {
	Status    string         `json:"status"`
	Artifacts map[string]any `json:"artifacts,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// Client issues the offload call against a remote computation endpoint.
type Client struct {
	endpoint string
	keywords []string
	timeout  time.Duration
	http     *http.Client
	logger   *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

func WithKeywords(keywords []string) Option {
	return func(c *Client) { c.keywords = keywords }
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.timeout = timeout }
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.http = httpClient }
}

func NewClient(endpoint string, logger *slog.Logger, opts ...Option) *Client {
	client := &Client{
		endpoint: endpoint,
		keywords: DefaultKeywords,
		timeout:  defaultTimeout,
		http:     &http.Client{},
		logger:   logger.With("module", "offload"),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// ShouldOffload evaluates the keyword predicate over the description.
func (c *Client) ShouldOffload(description string) bool {
	if c.endpoint == "" {
		return false
	}

	lower := strings.ToLower(description)

	for _, keyword := range c.keywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}

	return false
}

// Offload issues the one blocking remote call. It returns the artifact
// bundle on success and an error on any failure: unreachable endpoint,
// timeout, non-2xx status, or malformed response. Callers treat every error
// as a signal to fall back locally.
func (c *Client) Offload(ctx context.Context, description, correlationID string) (map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(Request{Description: description, CorrelationID: correlationID})
	if err != nil {
		return nil, fmt.Errorf("encoding offload request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building offload request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	c.logger.Info("Attempting remote offload", "endpoint", c.endpoint, "correlation_id", correlationID)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("offload endpoint unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("offload endpoint returned %s", resp.Status)
	}

	var decoded Response
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("malformed offload response: %w", err)
	}

	if decoded.Error != "" {
		return nil, fmt.Errorf("offload rejected: %s", decoded.Error)
	}

	if decoded.Artifacts == nil {
		return nil, errors.New("offload response carried no artifacts")
	}

	c.logger.Info("Offload succeeded", "artifacts", len(decoded.Artifacts))

	return decoded.Artifacts, nil
}
