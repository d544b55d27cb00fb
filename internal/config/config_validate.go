// Pubrec - Community Recommendations from Shared Memberships
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pubrec

package config

import (
	"fmt"
	"strings"
)

// Validate checks that the configuration is internally consistent.
// The access token is not required here so that the config command can
// run without credentials; the API client rejects an empty token.
func (c *Config) Validate() error {
	if err := c.validateVK(); err != nil {
		return err
	}

	if err := c.validateBreaker(); err != nil {
		return err
	}

	if err := c.validateRecommend(); err != nil {
		return err
	}

	if err := c.validateMetrics(); err != nil {
		return err
	}

	return c.validateLogging()
}

// validateVK validates API client settings
func (c *Config) validateVK() error {
	if err := validateHTTPURL(c.VK.APIURL, "VK_API_URL"); err != nil {
		return fmt.Errorf("VK_API_URL is invalid: %w", err)
	}
	if c.VK.APIVersion == "" {
		return fmt.Errorf("VK_API_VERSION is required")
	}
	if containsPlaceholder(c.VK.AccessToken) {
		return fmt.Errorf("VK_ACCESS_TOKEN contains a placeholder value")
	}
	if c.VK.Timeout <= 0 {
		return fmt.Errorf("VK_TIMEOUT must be positive, got %v", c.VK.Timeout)
	}
	if c.VK.RequestsPerSecond <= 0 {
		return fmt.Errorf("VK_REQUESTS_PER_SECOND must be positive, got %v", c.VK.RequestsPerSecond)
	}
	if c.VK.Burst < 1 {
		return fmt.Errorf("VK_BURST must be at least 1, got %d", c.VK.Burst)
	}
	if c.VK.MaxRetries < 0 {
		return fmt.Errorf("VK_MAX_RETRIES must be non-negative, got %d", c.VK.MaxRetries)
	}
	if c.VK.RetryBaseDelay <= 0 {
		return fmt.Errorf("VK_RETRY_BASE_DELAY must be positive, got %v", c.VK.RetryBaseDelay)
	}
	if c.VK.MemberCountCacheTTL <= 0 {
		return fmt.Errorf("VK_MEMBER_COUNT_CACHE_TTL must be positive, got %v", c.VK.MemberCountCacheTTL)
	}
	return nil
}

// validateBreaker validates circuit breaker settings
func (c *Config) validateBreaker() error {
	b := c.VK.Breaker
	if b.MaxRequests == 0 {
		return fmt.Errorf("VK_BREAKER_MAX_REQUESTS must be at least 1")
	}
	if b.Timeout <= 0 {
		return fmt.Errorf("VK_BREAKER_TIMEOUT must be positive, got %v", b.Timeout)
	}
	if b.FailureRatio <= 0 || b.FailureRatio > 1 {
		return fmt.Errorf("VK_BREAKER_FAILURE_RATIO must be in (0, 1], got %v", b.FailureRatio)
	}
	return nil
}

// validateRecommend validates pipeline settings
func (c *Config) validateRecommend() error {
	r := c.Recommend
	positive := []struct {
		name  string
		value int
	}{
		{"RECOMMEND_SCAN_SUBSCRIPTIONS", r.ScanSubscriptions},
		{"RECOMMEND_CANDIDATE_POOL_SIZE", r.CandidatePoolSize},
		{"RECOMMEND_SUBSCRIPTIONS_LIMIT", r.SubscriptionsLimit},
		{"RECOMMEND_MEMBER_PAGE_SIZE", r.MemberPageSize},
		{"RECOMMEND_BATCH_WINDOW", r.BatchWindow},
		{"RECOMMEND_OUTPUT_COUNT", r.OutputCount},
		{"RECOMMEND_MEGA_PAGE_MEMBERS", r.MegaPageMembers},
	}
	for _, p := range positive {
		if p.value < 1 {
			return fmt.Errorf("%s must be at least 1, got %d", p.name, p.value)
		}
	}

	if r.MinPoolSize < 0 {
		return fmt.Errorf("RECOMMEND_MIN_POOL_SIZE must be non-negative, got %d", r.MinPoolSize)
	}
	if r.MinPoolSize > r.CandidatePoolSize {
		return fmt.Errorf("RECOMMEND_MIN_POOL_SIZE (%d) must not exceed RECOMMEND_CANDIDATE_POOL_SIZE (%d)",
			r.MinPoolSize, r.CandidatePoolSize)
	}
	if r.MaxMembersPerPage < 0 {
		return fmt.Errorf("RECOMMEND_MAX_MEMBERS_PER_PAGE must be non-negative, got %d", r.MaxMembersPerPage)
	}
	if r.BatchDelay < 0 {
		return fmt.Errorf("RECOMMEND_BATCH_DELAY must be non-negative, got %v", r.BatchDelay)
	}
	if r.CallTimeout <= 0 {
		return fmt.Errorf("RECOMMEND_CALL_TIMEOUT must be positive, got %v", r.CallTimeout)
	}
	if r.KeepFraction <= 0 || r.KeepFraction > 1 {
		return fmt.Errorf("RECOMMEND_KEEP_FRACTION must be in (0, 1], got %v", r.KeepFraction)
	}
	if r.SimilarUsers < 0 {
		return fmt.Errorf("RECOMMEND_SIMILAR_USERS must be non-negative, got %d", r.SimilarUsers)
	}
	if r.LowRankEnabled && r.LowRank < 1 {
		return fmt.Errorf("RECOMMEND_LOW_RANK must be at least 1 when the refinement is enabled, got %d", r.LowRank)
	}
	if strings.TrimSpace(r.Site) == "" {
		return fmt.Errorf("RECOMMEND_SITE is required")
	}
	if len(r.AcceptedHosts) == 0 {
		return fmt.Errorf("RECOMMEND_ACCEPTED_HOSTS must list at least one host")
	}
	return nil
}

// validateMetrics validates the metrics listener
func (c *Config) validateMetrics() error {
	if c.Metrics.Enabled && c.Metrics.ListenAddr == "" {
		return fmt.Errorf("METRICS_LISTEN_ADDR is required when METRICS_ENABLED=true")
	}
	return nil
}

// validLogLevels defines the allowed log levels
var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validLogFormats defines the allowed log formats
var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

// validateLogging validates logging configuration
func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

// placeholderPatterns defines common placeholder patterns that indicate
// the user forgot to set a real value.
var placeholderPatterns = []string{
	"REPLACE",
	"CHANGEME",
	"CHANGE_ME",
	"YOUR_TOKEN",
	"PLACEHOLDER",
}

// containsPlaceholder checks if a value contains common placeholder patterns.
func containsPlaceholder(value string) bool {
	upperValue := strings.ToUpper(value)
	for _, pattern := range placeholderPatterns {
		if strings.Contains(upperValue, pattern) {
			return true
		}
	}
	return false
}
