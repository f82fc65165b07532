// Package webhook delivers alerts to an email-gateway webhook endpoint.
package webhook

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

	"github.com/miniblog/miniblog/internal/notify"
)

// Config captures the webhook gateway behaviour we need.
type Config struct {
	URL        string
	AuthToken  string
	Sender     string
	Timeout    time.Duration
	RetryLimit int
	Client     *http.Client
}

// Client delivers alerts to a webhook gateway.
type Client struct {
	url        string
	authToken  string
	sender     string
	retryLimit int
	client     *http.Client
}

// NewClient builds a webhook client. Callers should pass a validated config.
func NewClient(cfg Config) (*Client, error) {
	gatewayURL := strings.TrimSpace(cfg.URL)
	if gatewayURL == "" {
		return nil, errors.New("webhook url is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	retries := cfg.RetryLimit
	if retries < 0 {
		retries = 0
	}

	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	sender := strings.TrimSpace(cfg.Sender)
	if sender == "" {
		sender = "miniblog"
	}

	return &Client{
		url:        gatewayURL,
		authToken:  strings.TrimSpace(cfg.AuthToken),
		sender:     sender,
		retryLimit: retries,
		client:     hc,
	}, nil
}

// SendAlert posts the alert to the gateway as JSON.
func (c *Client) SendAlert(ctx context.Context, payload notify.AlertPayload) error {
	occurredAt := payload.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	body, err := json.Marshal(map[string]any{
		"sender":      c.sender,
		"recipient":   payload.RecipientContact,
		"subject":     payload.Subject,
		"body":        payload.Body,
		"post_id":     payload.PostID,
		"post_slug":   payload.PostSlug,
		"occurred_at": occurredAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("encode alert payload: %w", err)
	}

	attempts := c.retryLimit + 1
	var lastErr error
	for attempt := range attempts {
		err = c.post(ctx, body)
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt < attempts-1 {
			// Linear backoff to avoid thundering retries.
			delay := time.Duration(attempt+1) * 200 * time.Millisecond
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				if !timer.Stop() {
					<-timer.C
				}
				return ctx.Err()
			case <-timer.C:
			}
		}
	}

	return lastErr
}

func (c *Client) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
