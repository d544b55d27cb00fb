// Pubrec - Community Recommendations from Shared Memberships
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pubrec

package vk

import (
	"context"
	"errors"
	"fmt"
)

// API error codes the client reacts to.
const (
	CodeUnknown          = 1
	CodeAuthFailed       = 5
	CodeTooManyRequests  = 6
	CodeFloodControl     = 9
	CodeInternal         = 10
	CodeAccessDenied     = 15
	CodeUserDeleted      = 18
	CodePrivateProfile   = 30
	CodeInvalidParameter = 100
	CodeInvalidUserID    = 113
	CodeGroupAccess      = 203
)

// Sentinel errors.
var (
	// ErrMissingToken is returned by New when no access token is configured.
	ErrMissingToken = errors.New("vk: access token is required (set VK_ACCESS_TOKEN)")

	// ErrAuthFailed matches API error 5.
	ErrAuthFailed = errors.New("vk: authorization failed")

	// ErrRateLimited matches HTTP 429 and API error 6 after retries are exhausted.
	ErrRateLimited = errors.New("vk: rate limited")

	// ErrCircuitOpen is returned while the circuit breaker rejects calls.
	ErrCircuitOpen = errors.New("vk: circuit breaker open")
)

// APIError is an error object returned in the response envelope.
type APIError struct {
	Code    int    `json:"error_code"`
	Message string `json:"error_msg"`
	Method  string `json:"-"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("vk: %s failed: error %d: %s", e.Method, e.Code, e.Message)
}

// Is maps API error codes to the package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrAuthFailed:
		return e.Code == CodeAuthFailed
	case ErrRateLimited:
		return e.Code == CodeTooManyRequests || e.Code == CodeFloodControl
	}
	return false
}

// resourceError reports whether the code concerns a single user or page
// rather than the health of the API.
func (e *APIError) resourceError() bool {
	switch e.Code {
	case CodeAccessDenied, CodeUserDeleted, CodePrivateProfile,
		CodeInvalidParameter, CodeInvalidUserID, CodeGroupAccess:
		return true
	}
	return false
}

// IsFatal reports whether err must abort a whole request rather than skip
// one call: an open circuit, a rejected token, or cancellation.
func IsFatal(err error) bool {
	return errors.Is(err, ErrCircuitOpen) ||
		errors.Is(err, ErrAuthFailed) ||
		errors.Is(err, context.Canceled)
}

// statusLabel returns the metrics label for a call outcome.
func statusLabel(err error) string {
	var apiErr *APIError
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.As(err, &apiErr):
		return "api_error"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}
