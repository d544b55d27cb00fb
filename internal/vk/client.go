// Pubrec - Community Recommendations from Shared Memberships
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pubrec

package vk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/pubrec/internal/config"
	"github.com/tomtom215/pubrec/internal/logging"
	"github.com/tomtom215/pubrec/internal/metrics"
)

// maxErrorBodySize limits the maximum amount of response body read for error reporting
const maxErrorBodySize = 64 * 1024 // 64KB

// readBodyForError reads the response body for error reporting (max 64KB)
// Returns the body content or a placeholder message if reading fails
func readBodyForError(r io.Reader) []byte {
	limitedReader := io.LimitReader(r, maxErrorBodySize)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}

// envelope is the common response wrapper.
type envelope struct {
	Response json.RawMessage `json:"response"`
	Error    *APIError       `json:"error"`
}

// Client talks to the VK HTTP API.
//
// Features:
//   - Client-side rate limiting (token bucket, 3 calls/s by default)
//   - Retry with exponential backoff on HTTP 429, HTTP 5xx and API error 6
//   - Circuit breaker around every call
//   - Member count cache
//   - Session verification, reset on API error 5
//
// Thread Safety: Safe for concurrent use.
type Client struct {
	baseURL        string
	version        string
	token          string
	client         *http.Client
	limiter        *rate.Limiter
	breaker        *breaker
	counts         *memberCountCache
	maxRetries     int
	retryBaseDelay time.Duration
	logger         zerolog.Logger

	authMu   sync.Mutex
	verified atomic.Bool
}

// New creates a client from configuration.
func New(cfg *config.VKConfig) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("vk: config is required")
	}
	if strings.TrimSpace(cfg.AccessToken) == "" {
		return nil, ErrMissingToken
	}

	return &Client{
		baseURL: strings.TrimSuffix(cfg.APIURL, "/"),
		version: cfg.APIVersion,
		token:   cfg.AccessToken,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter:        rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		breaker:        newBreaker("vk-api", cfg.Breaker),
		counts:         newMemberCountCache(cfg.MemberCountCacheTTL, cfg.MemberCountCacheSize),
		maxRetries:     cfg.MaxRetries,
		retryBaseDelay: cfg.RetryBaseDelay,
		logger:         logging.WithComponent("vk"),
	}, nil
}

// BreakerState returns the circuit breaker state name.
func (c *Client) BreakerState() string {
	return c.breaker.state()
}

// IsFatal reports whether err must abort a whole request.
func (c *Client) IsFatal(err error) bool {
	return IsFatal(err)
}

// call invokes an API method and decodes the response field into out.
// out may be nil.
func (c *Client) call(ctx context.Context, method string, params url.Values, out interface{}) error {
	start := time.Now()

	raw, err := c.breaker.execute(func() (json.RawMessage, error) {
		return c.callWithRetry(ctx, method, params)
	})
	metrics.RecordDataSourceCall(method, statusLabel(err), time.Since(start))
	if err != nil {
		if errors.Is(err, ErrAuthFailed) {
			c.verified.Store(false)
		}
		return err
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", method, err)
	}
	return nil
}

// callWithRetry retries rate-limited and transient failures with
// exponential backoff, honoring Retry-After.
func (c *Client) callWithRetry(ctx context.Context, method string, params url.Values) (json.RawMessage, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retryBaseDelay
	bo.Multiplier = 2
	bo.MaxInterval = 30 * time.Second

	raw, err := backoff.Retry(ctx, func() (json.RawMessage, error) {
		return c.attempt(ctx, method, params)
	},
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(c.maxRetries+1)),
		backoff.WithNotify(func(err error, delay time.Duration) {
			metrics.RecordRetry(method)
			logging.Ctx(ctx).Debug().
				Err(err).
				Str("method", method).
				Dur("delay", delay).
				Msg("Retrying API call")
		}),
	)
	if err != nil {
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			err = permanent.Err
		}
		var retryAfter *backoff.RetryAfterError
		if errors.As(err, &retryAfter) {
			return nil, fmt.Errorf("%s: %w after %d retries (HTTP 429)", method, ErrRateLimited, c.maxRetries)
		}
		return nil, err
	}
	return raw, nil
}

// attempt performs one HTTP round trip. Errors wrapped with
// backoff.Permanent are not retried.
func (c *Client) attempt(ctx context.Context, method string, params url.Values) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, backoff.Permanent(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.methodURL(method, params), http.NoBody)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("%s: HTTP request failed: %w", method, err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		if seconds, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && seconds > 0 {
			return nil, backoff.RetryAfter(seconds)
		}
		return nil, fmt.Errorf("%s: %w (HTTP 429)", method, ErrRateLimited)
	case resp.StatusCode >= http.StatusInternalServerError:
		body := readBodyForError(resp.Body)
		return nil, fmt.Errorf("%s request failed with status %d: %s", method, resp.StatusCode, string(body))
	case resp.StatusCode != http.StatusOK:
		body := readBodyForError(resp.Body)
		return nil, backoff.Permanent(fmt.Errorf("%s request failed with status %d: %s", method, resp.StatusCode, string(body)))
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to decode %s response: %w", method, err))
	}
	if env.Error != nil {
		env.Error.Method = method
		if env.Error.Code == CodeTooManyRequests {
			return nil, env.Error
		}
		return nil, backoff.Permanent(env.Error)
	}
	return env.Response, nil
}

// methodURL builds the request URL including token and version.
func (c *Client) methodURL(method string, params url.Values) string {
	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("access_token", c.token)
	q.Set("v", c.version)
	return fmt.Sprintf("%s/method/%s?%s", c.baseURL, method, q.Encode())
}
