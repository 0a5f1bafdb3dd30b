// Package client implements the estimation fallback chain: an ordered list of
// candidate endpoints tried strictly in sequence, with bounded retries and
// linearly increasing backoff on connectivity failures. First success wins.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"calorie-lens/api/internal/config"
	"calorie-lens/api/internal/estimate"
)

const (
	// Primary and legacy routes tried after any device-specific candidate.
	EndpointPrimary = "/api/estimate-calories"
	EndpointLegacy  = "/api/direct-estimate"
	EndpointMobile  = "/api/mobile-estimate"

	DefaultMaxAttempts = 3
	DefaultBackoffUnit = 2 * time.Second
)

type Config struct {
	// BaseURL of the API server, without trailing slash.
	BaseURL string
	Profile config.Profile

	// Endpoints overrides the candidate order. Empty means the profile
	// default: device endpoint first where applicable, then primary, then
	// legacy.
	Endpoints []string

	MaxAttempts int
	BackoffUnit time.Duration
	Timeout     time.Duration

	HTTPClient *http.Client

	// Sleep is swapped out by tests; nil means time.Sleep.
	Sleep func(time.Duration)
}

type Client struct {
	baseURL   string
	profile   config.Profile
	endpoints []string
	attempts  int
	backoff   time.Duration
	httpc     *http.Client
	sleep     func(time.Duration)
}

func New(cfg Config) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		profile:   cfg.Profile,
		endpoints: cfg.Endpoints,
		attempts:  cfg.MaxAttempts,
		backoff:   cfg.BackoffUnit,
		httpc:     cfg.HTTPClient,
		sleep:     cfg.Sleep,
	}
	if len(c.endpoints) == 0 {
		c.endpoints = defaultEndpoints(cfg.Profile)
	}
	if c.attempts <= 0 {
		c.attempts = DefaultMaxAttempts
	}
	if c.backoff <= 0 {
		c.backoff = DefaultBackoffUnit
	}
	if c.httpc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = cfg.Profile.Timeout()
		}
		c.httpc = &http.Client{Timeout: timeout}
	}
	if c.sleep == nil {
		c.sleep = time.Sleep
	}
	return c
}

func defaultEndpoints(p config.Profile) []string {
	switch p {
	case config.ProfileMobile, config.ProfileConstrainedMobile:
		return []string{EndpointMobile, EndpointPrimary, EndpointLegacy}
	default:
		return []string{EndpointPrimary, EndpointLegacy}
	}
}

// Estimate runs the candidate sequence. Definite server errors abandon the
// candidate and move on without ever being retried; only a connectivity or
// timeout failure on the last candidate triggers another pass, up to the
// attempt budget.
func (c *Client) Estimate(ctx context.Context, imageB64 string) (*estimate.CalorieEstimation, error) {
	var lastErr *estimate.APIError

	for attempt := 1; attempt <= c.attempts; attempt++ {
		for _, ep := range c.endpoints {
			data, err := c.post(ctx, ep, imageB64)
			if err == nil {
				return data, nil
			}
			lastErr = asAPIError(err)
		}
		// lastErr now describes the final candidate of this pass.
		if !lastErr.Transient() {
			break
		}
		if attempt < c.attempts {
			c.sleep(time.Duration(attempt) * c.backoff)
		}
	}

	return nil, c.composeError(lastErr)
}

func (c *Client) post(ctx context.Context, endpoint, imageB64 string) (*estimate.CalorieEstimation, error) {
	body, _ := json.Marshal(map[string]string{"image": imageB64})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &estimate.APIError{Status: 0, Kind: estimate.KindUnreachable, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		kind := estimate.KindUnreachable
		status := 0
		var nerr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &nerr) && nerr.Timeout()) {
			kind = estimate.KindTimeout
			status = http.StatusRequestTimeout
		}
		return nil, &estimate.APIError{Status: status, Kind: kind, Err: err}
	}
	defer resp.Body.Close()

	var env estimate.Response
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, &estimate.APIError{
			Status: resp.StatusCode,
			Kind:   estimate.KindServer,
			Err:    fmt.Errorf("bad envelope from %s: %w", endpoint, err),
		}
	}
	if env.Success && env.Data != nil {
		return env.Data, nil
	}

	msg := env.Error
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return nil, &estimate.APIError{Status: resp.StatusCode, Kind: estimate.KindServer, Message: msg}
}

func (c *Client) composeError(last *estimate.APIError) *estimate.APIError {
	if last == nil {
		return estimate.NewAPIError(0, estimate.KindUnreachable, "no candidate endpoints configured")
	}
	switch last.Kind {
	case estimate.KindTimeout:
		return &estimate.APIError{
			Status:  http.StatusRequestTimeout,
			Kind:    estimate.KindTimeout,
			Message: "the analysis timed out; " + c.profile.Guidance(),
			Err:     last.Err,
		}
	case estimate.KindUnreachable:
		return &estimate.APIError{
			Status:  0,
			Kind:    estimate.KindUnreachable,
			Message: "the server could not be reached; " + c.profile.Guidance(),
			Err:     last.Err,
		}
	default:
		return &estimate.APIError{
			Status:  last.Status,
			Kind:    estimate.KindServer,
			Message: last.Error(),
			Err:     last.Err,
		}
	}
}

func asAPIError(err error) *estimate.APIError {
	var apiErr *estimate.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return &estimate.APIError{Status: 0, Kind: estimate.KindUnreachable, Err: err}
}
