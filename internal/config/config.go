// Pubrec - Community Recommendations from Shared Memberships
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pubrec

package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration loaded from defaults, an optional
// YAML file and environment variables.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in defaults for every setting
//  2. Config File: Optional YAML config file (config.yaml) for persistent settings
//  3. Environment Variables: Override any setting via environment variables
//
// Command-line flags are applied on top by the CLI for per-run parameters.
//
// Thread Safety:
// Config is immutable after Load() and safe for concurrent read access.
type Config struct {
	VK        VKConfig        `koanf:"vk" yaml:"vk"`
	Recommend RecommendConfig `koanf:"recommend" yaml:"recommend"`
	Logging   LoggingConfig   `koanf:"logging" yaml:"logging"`
	Metrics   MetricsConfig   `koanf:"metrics" yaml:"metrics"`
}

// VKConfig holds the social network API connection settings.
//
// Environment Variables:
//   - VK_API_URL: API base URL (default: https://api.vk.com)
//   - VK_API_VERSION: API version sent with every call (default: 5.131)
//   - VK_ACCESS_TOKEN: Service or user access token (required)
//   - VK_TIMEOUT: HTTP client timeout (default: 30s)
//   - VK_REQUESTS_PER_SECOND: Client-side call rate (default: 3)
//   - VK_BURST: Rate limiter burst (default: 3)
//   - VK_MAX_RETRIES: Retries for rate-limited calls (default: 5)
//   - VK_RETRY_BASE_DELAY: Initial backoff delay (default: 1s)
//   - VK_MEMBER_COUNT_CACHE_TTL: Member count cache TTL (default: 1h)
//   - VK_MEMBER_COUNT_CACHE_SIZE: Member count cache capacity (default: 10000)
type VKConfig struct {
	APIURL            string        `koanf:"api_url" yaml:"api_url"`
	APIVersion        string        `koanf:"api_version" yaml:"api_version"`
	AccessToken       string        `koanf:"access_token" yaml:"access_token"`
	Timeout           time.Duration `koanf:"timeout" yaml:"timeout"`
	RequestsPerSecond float64       `koanf:"requests_per_second" yaml:"requests_per_second"`
	Burst             int           `koanf:"burst" yaml:"burst"`
	MaxRetries        int           `koanf:"max_retries" yaml:"max_retries"`
	RetryBaseDelay    time.Duration `koanf:"retry_base_delay" yaml:"retry_base_delay"`

	MemberCountCacheTTL  time.Duration `koanf:"member_count_cache_ttl" yaml:"member_count_cache_ttl"`
	MemberCountCacheSize uint64        `koanf:"member_count_cache_size" yaml:"member_count_cache_size"`

	Breaker BreakerConfig `koanf:"breaker" yaml:"breaker"`
}

// BreakerConfig holds circuit breaker settings for the API client.
// The breaker opens when the failure ratio reaches FailureRatio over at
// least MinRequests requests within Interval.
type BreakerConfig struct {
	MaxRequests  uint32        `koanf:"max_requests" yaml:"max_requests"`
	Interval     time.Duration `koanf:"interval" yaml:"interval"`
	Timeout      time.Duration `koanf:"timeout" yaml:"timeout"`
	MinRequests  uint32        `koanf:"min_requests" yaml:"min_requests"`
	FailureRatio float64       `koanf:"failure_ratio" yaml:"failure_ratio"`
}

// RecommendConfig holds recommendation pipeline settings.
//
// Environment Variables:
//   - RECOMMEND_SCAN_SUBSCRIPTIONS: Seed pages whose members are scanned (default: 10)
//   - RECOMMEND_CANDIDATE_POOL_SIZE: Target candidate pool size (default: 300)
//   - RECOMMEND_MIN_POOL_SIZE: Pool size floor (default: 10)
//   - RECOMMEND_SUBSCRIPTIONS_LIMIT: Items per subscription fetch (default: 200)
//   - RECOMMEND_MEMBER_PAGE_SIZE: Ids per member fetch (default: 1000)
//   - RECOMMEND_MAX_MEMBERS_PER_PAGE: Members scanned per page, 0 = all (default: 100000)
//   - RECOMMEND_BATCH_WINDOW: Calls per batch (default: 25)
//   - RECOMMEND_BATCH_DELAY: Pause between batches (default: 180ms)
//   - RECOMMEND_CALL_TIMEOUT: Per-call timeout (default: 10s)
//   - RECOMMEND_KEEP_FRACTION: Share of candidate rows kept (default: 0.7)
//   - RECOMMEND_OUTPUT_COUNT: Rows emitted per table (default: 15)
//   - RECOMMEND_MEGA_PAGE_MEMBERS: Mega-page ceiling (default: 1000000)
//   - RECOMMEND_SIMILAR_USERS: Rows in the similar users table (default: 10)
//   - RECOMMEND_LOW_RANK_ENABLED: Run the SVD refinement (default: true)
//   - RECOMMEND_LOW_RANK: Initial rank of the refinement (default: 50)
//   - RECOMMEND_SITE: Host used in canonical URLs (default: vk.com)
//   - RECOMMEND_ACCEPTED_HOSTS: Comma-separated hosts accepted in profile references
type RecommendConfig struct {
	ScanSubscriptions  int           `koanf:"scan_subscriptions" yaml:"scan_subscriptions"`
	CandidatePoolSize  int           `koanf:"candidate_pool_size" yaml:"candidate_pool_size"`
	MinPoolSize        int           `koanf:"min_pool_size" yaml:"min_pool_size"`
	SubscriptionsLimit int           `koanf:"subscriptions_limit" yaml:"subscriptions_limit"`
	MemberPageSize     int           `koanf:"member_page_size" yaml:"member_page_size"`
	MaxMembersPerPage  int           `koanf:"max_members_per_page" yaml:"max_members_per_page"`
	BatchWindow        int           `koanf:"batch_window" yaml:"batch_window"`
	BatchDelay         time.Duration `koanf:"batch_delay" yaml:"batch_delay"`
	CallTimeout        time.Duration `koanf:"call_timeout" yaml:"call_timeout"`
	KeepFraction       float64       `koanf:"keep_fraction" yaml:"keep_fraction"`
	OutputCount        int           `koanf:"output_count" yaml:"output_count"`
	MegaPageMembers    int           `koanf:"mega_page_members" yaml:"mega_page_members"`
	SimilarUsers       int           `koanf:"similar_users" yaml:"similar_users"`
	LowRankEnabled     bool          `koanf:"low_rank_enabled" yaml:"low_rank_enabled"`
	LowRank            int           `koanf:"low_rank" yaml:"low_rank"`
	Site               string        `koanf:"site" yaml:"site"`
	AcceptedHosts      []string      `koanf:"accepted_hosts" yaml:"accepted_hosts"`
}

// LoggingConfig holds logging configuration.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: console)
//   - LOG_CALLER: true/false - include caller file:line (default: false)
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level" yaml:"level"`

	// Format is the output format: json or console.
	// Console is the default since the CLI is usually run interactively.
	Format string `koanf:"format" yaml:"format"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller" yaml:"caller"`
}

// MetricsConfig holds the Prometheus listener settings.
//
// Environment Variables:
//   - METRICS_ENABLED: Expose /metrics while a run is in progress (default: false)
//   - METRICS_LISTEN_ADDR: Listener address (default: 127.0.0.1:9464)
type MetricsConfig struct {
	Enabled    bool   `koanf:"enabled" yaml:"enabled"`
	ListenAddr string `koanf:"listen_addr" yaml:"listen_addr"`
}

// Load reads configuration from the default sources.
// It searches DefaultConfigPaths unless PUBREC_CONFIG names a file.
func Load() (*Config, error) {
	return LoadWithKoanf("")
}

// redactedValue replaces secrets in dumped configuration.
const redactedValue = "[REDACTED]"

// Redacted returns a copy of the configuration with secrets masked.
func (c *Config) Redacted() *Config {
	cp := *c
	cp.Recommend.AcceptedHosts = append([]string(nil), c.Recommend.AcceptedHosts...)
	if cp.VK.AccessToken != "" {
		cp.VK.AccessToken = redactedValue
	}
	return &cp
}

// YAML renders the redacted configuration as YAML.
func (c *Config) YAML() ([]byte, error) {
	out, err := yaml.Marshal(c.Redacted())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal configuration: %w", err)
	}
	return out, nil
}
