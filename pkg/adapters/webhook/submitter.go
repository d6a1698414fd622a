// Package webhook implements ports.LeadSubmitter over a plain HTTP JSON
// POST. One request per lead, no retries: the engine's at-most-once contract
// is honored by keeping this adapter dumb.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/krauseinafrica/leadchat/pkg/domain"
)

const defaultTimeout = 10 * time.Second

// Submitter posts leads to a configured endpoint.
type Submitter struct {
	endpoint string
	client   *http.Client
}

// Option configures the Submitter.
type Option func(*Submitter)

// WithClient overrides the HTTP client (tests, custom transports).
func WithClient(c *http.Client) Option {
	return func(s *Submitter) {
		if c != nil {
			s.client = c
		}
	}
}

// WithTimeout bounds the submission request.
func WithTimeout(d time.Duration) Option {
	return func(s *Submitter) {
		if d > 0 {
			s.client.Timeout = d
		}
	}
}

// New creates a webhook submitter targeting the given endpoint URL.
func New(endpoint string, opts ...Option) *Submitter {
	s := &Submitter{
		endpoint: endpoint,
		client:   &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit implements ports.LeadSubmitter. The response body is not inspected
// beyond the status class.
func (s *Submitter) Submit(ctx context.Context, lead domain.Lead) error {
	payload, err := json.Marshal(lead)
	if err != nil {
		return fmt.Errorf("webhook: failed to marshal lead: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("webhook: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: submission failed: %w", err)
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused.
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook: endpoint returned %s", resp.Status)
	}
	return nil
}
