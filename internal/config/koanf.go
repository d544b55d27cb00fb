// Pubrec - Community Recommendations from Shared Memberships
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pubrec

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"pubrec.yaml",
	"pubrec.yml",
	"config.yaml",
	"config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "PUBREC_CONFIG"

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		VK: VKConfig{
			APIURL:               "https://api.vk.com",
			APIVersion:           "5.131",
			AccessToken:          "",
			Timeout:              30 * time.Second,
			RequestsPerSecond:    3, // Documented per-token limit for most methods
			Burst:                3,
			MaxRetries:           5,
			RetryBaseDelay:       time.Second,
			MemberCountCacheTTL:  time.Hour,
			MemberCountCacheSize: 10000,
			Breaker: BreakerConfig{
				MaxRequests:  3,
				Interval:     time.Minute,
				Timeout:      2 * time.Minute,
				MinRequests:  10,
				FailureRatio: 0.6,
			},
		},
		Recommend: RecommendConfig{
			ScanSubscriptions:  10,
			CandidatePoolSize:  300,
			MinPoolSize:        10,
			SubscriptionsLimit: 200,
			MemberPageSize:     1000,
			MaxMembersPerPage:  100000,
			BatchWindow:        25,
			BatchDelay:         180 * time.Millisecond,
			CallTimeout:        10 * time.Second,
			KeepFraction:       0.7,
			OutputCount:        15,
			MegaPageMembers:    1000000,
			SimilarUsers:       10,
			LowRankEnabled:     true,
			LowRank:            50,
			Site:               "vk.com",
			AcceptedHosts:      []string{"vk.com", "m.vk.com", "www.vk.com", "vk.ru"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Caller: false,
		},
		Metrics: MetricsConfig{
			Enabled:    false,
			ListenAddr: "127.0.0.1:9464",
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in defaults
//  2. Config File: explicitPath if given, otherwise the first file found by findConfigFile
//  3. Environment Variables: Override any setting
func LoadWithKoanf(explicitPath string) (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional unless explicitly requested)
	configPath := explicitPath
	if configPath == "" {
		configPath = findConfigFile()
	}
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Post-process slice fields from comma-separated strings
	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"recommend.accepted_hosts",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars come in as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// Already a slice (from defaults or YAML file)
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
var envMappings = map[string]string{
	// VK API mappings
	"vk_api_url":                 "vk.api_url",
	"vk_api_version":             "vk.api_version",
	"vk_access_token":            "vk.access_token",
	"vk_timeout":                 "vk.timeout",
	"vk_requests_per_second":     "vk.requests_per_second",
	"vk_burst":                   "vk.burst",
	"vk_max_retries":             "vk.max_retries",
	"vk_retry_base_delay":        "vk.retry_base_delay",
	"vk_member_count_cache_ttl":  "vk.member_count_cache_ttl",
	"vk_member_count_cache_size": "vk.member_count_cache_size",
	"vk_breaker_max_requests":    "vk.breaker.max_requests",
	"vk_breaker_interval":        "vk.breaker.interval",
	"vk_breaker_timeout":         "vk.breaker.timeout",
	"vk_breaker_min_requests":    "vk.breaker.min_requests",
	"vk_breaker_failure_ratio":   "vk.breaker.failure_ratio",

	// Recommendation pipeline mappings
	"recommend_scan_subscriptions":   "recommend.scan_subscriptions",
	"recommend_candidate_pool_size":  "recommend.candidate_pool_size",
	"recommend_min_pool_size":        "recommend.min_pool_size",
	"recommend_subscriptions_limit":  "recommend.subscriptions_limit",
	"recommend_member_page_size":     "recommend.member_page_size",
	"recommend_max_members_per_page": "recommend.max_members_per_page",
	"recommend_batch_window":         "recommend.batch_window",
	"recommend_batch_delay":          "recommend.batch_delay",
	"recommend_call_timeout":         "recommend.call_timeout",
	"recommend_keep_fraction":        "recommend.keep_fraction",
	"recommend_output_count":         "recommend.output_count",
	"recommend_mega_page_members":    "recommend.mega_page_members",
	"recommend_similar_users":        "recommend.similar_users",
	"recommend_low_rank_enabled":     "recommend.low_rank_enabled",
	"recommend_low_rank":             "recommend.low_rank",
	"recommend_site":                 "recommend.site",
	"recommend_accepted_hosts":       "recommend.accepted_hosts",

	// Logging mappings
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Metrics mappings
	"metrics_enabled":     "metrics.enabled",
	"metrics_listen_addr": "metrics.listen_addr",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - VK_ACCESS_TOKEN -> vk.access_token
//   - RECOMMEND_BATCH_DELAY -> recommend.batch_delay
//   - LOG_LEVEL -> logging.level
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}

	// Unmapped keys are skipped so unrelated environment variables
	// never leak into configuration
	return ""
}
