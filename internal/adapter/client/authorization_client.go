package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// AuthorizationClient consults the external authorizer over HTTP.
// Implements ports.AuthorizationGate.
type AuthorizationClient struct {
	httpClient *http.Client
	url        string
	log        zerolog.Logger
}

// NewAuthorizationClient creates a client for the external authorization
// service with a bounded per-call timeout.
func NewAuthorizationClient(url string, timeout time.Duration, log zerolog.Logger) *AuthorizationClient {
	return &AuthorizationClient{
		httpClient: &http.Client{Timeout: timeout},
		url:        url,
		log:        log.With().Str("component", "authorization_client").Logger(),
	}
}

type authorizationResponse struct {
	Status string `json:"status"`
	Data   struct {
		Authorization bool `json:"authorization"`
	} `json:"data"`
}

// Authorize asks the external service for its verdict. A 4xx response is a
// denial, not a failure: it returns (false, nil) and the caller must not
// retry. Transport errors, timeouts and 5xx responses return an error so the
// caller can surface upstream unavailability.
func (c *AuthorizationClient) Authorize(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return false, fmt.Errorf("building authorization request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("calling authorization service: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var body authorizationResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return false, fmt.Errorf("decoding authorization response: %w", err)
		}
		return body.Data.Authorization, nil

	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		c.log.Info().Int("status", resp.StatusCode).Msg("authorization denied")
		return false, nil

	default:
		return false, fmt.Errorf("authorization service returned status %d", resp.StatusCode)
	}
}
