package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// NotificationClient delivers transfer notifications over HTTP.
// Implements ports.Notifier.
type NotificationClient struct {
	httpClient *http.Client
	url        string
	log        zerolog.Logger
}

// NewNotificationClient creates a client for the external notification
// service with a bounded per-call timeout.
func NewNotificationClient(url string, timeout time.Duration, log zerolog.Logger) *NotificationClient {
	return &NotificationClient{
		httpClient: &http.Client{Timeout: timeout},
		url:        url,
		log:        log.With().Str("component", "notification_client").Logger(),
	}
}

// Notify posts to the notification service. Non-2xx responses are reported
// as errors; callers treat delivery as best-effort and only log failures.
func (c *NotificationClient) Notify(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, nil)
	if err != nil {
		return fmt.Errorf("building notification request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling notification service: %w", err)
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification service returned status %d", resp.StatusCode)
	}
	return nil
}
