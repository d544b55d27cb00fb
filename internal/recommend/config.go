// Pubrec - Community Recommendations from Shared Memberships
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pubrec

package recommend

import (
	"errors"
	"fmt"
	"time"
)

// Config contains all configuration for the recommendation engine.
type Config struct {
	// ScanSubscriptions is the number of the seed's first pages whose
	// members are scanned (K).
	ScanSubscriptions int `json:"scan_subscriptions"`

	// CandidatePoolSize is the target candidate pool size (N).
	CandidatePoolSize int `json:"candidate_pool_size"`

	// MinPoolSize is the floor below which the frequency threshold is relaxed.
	MinPoolSize int `json:"min_pool_size"`

	// SubscriptionsLimit is the number of pages requested per user.
	SubscriptionsLimit int `json:"subscriptions_limit"`

	// MemberPageSize is the chunk size for member list requests.
	MemberPageSize int `json:"member_page_size"`

	// MaxMembersPerPage caps how many members are scanned per page.
	MaxMembersPerPage int `json:"max_members_per_page"`

	// BatchWindow is the maximum number of concurrent calls (W).
	BatchWindow int `json:"batch_window"`

	// BatchDelay is the pause between windows.
	BatchDelay time.Duration `json:"batch_delay"`

	// CallTimeout bounds each data source call.
	CallTimeout time.Duration `json:"call_timeout"`

	// KeepFraction is the fraction of candidate rows kept after sorting.
	KeepFraction float64 `json:"keep_fraction"`

	// OutputCount is the number of rows per output table.
	OutputCount int `json:"output_count"`

	// MegaPageMembers excludes pages with at least this many members.
	MegaPageMembers int `json:"mega_page_members"`

	// SimilarUsers is the number of rows in the similar users table.
	SimilarUsers int `json:"similar_users"`

	// LowRankEnabled turns on the low-rank refinement.
	LowRankEnabled bool `json:"low_rank_enabled"`

	// LowRank is the starting decomposition rank.
	LowRank int `json:"low_rank"`

	// Site is the host used for canonical URLs.
	Site string `json:"site"`

	// AcceptedHosts lists hosts accepted in profile references.
	AcceptedHosts []string `json:"accepted_hosts"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
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
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.ScanSubscriptions <= 0 {
		errs = append(errs, fmt.Errorf("scan_subscriptions must be positive, got %d", c.ScanSubscriptions))
	}
	if c.CandidatePoolSize <= 0 {
		errs = append(errs, fmt.Errorf("candidate_pool_size must be positive, got %d", c.CandidatePoolSize))
	}
	if c.MinPoolSize < 0 || c.MinPoolSize > c.CandidatePoolSize {
		errs = append(errs, fmt.Errorf("min_pool_size must be in [0, %d], got %d", c.CandidatePoolSize, c.MinPoolSize))
	}
	if c.SubscriptionsLimit <= 0 {
		errs = append(errs, fmt.Errorf("subscriptions_limit must be positive, got %d", c.SubscriptionsLimit))
	}
	if c.MemberPageSize <= 0 {
		errs = append(errs, fmt.Errorf("member_page_size must be positive, got %d", c.MemberPageSize))
	}
	if c.MaxMembersPerPage < c.MemberPageSize {
		errs = append(errs, fmt.Errorf("max_members_per_page must be at least member_page_size, got %d", c.MaxMembersPerPage))
	}
	if c.BatchWindow <= 0 {
		errs = append(errs, fmt.Errorf("batch_window must be positive, got %d", c.BatchWindow))
	}
	if c.BatchDelay < 0 {
		errs = append(errs, fmt.Errorf("batch_delay must be non-negative, got %v", c.BatchDelay))
	}
	if c.CallTimeout <= 0 {
		errs = append(errs, fmt.Errorf("call_timeout must be positive, got %v", c.CallTimeout))
	}
	if c.KeepFraction <= 0 || c.KeepFraction > 1 {
		errs = append(errs, fmt.Errorf("keep_fraction must be in (0, 1], got %f", c.KeepFraction))
	}
	if c.OutputCount <= 0 {
		errs = append(errs, fmt.Errorf("output_count must be positive, got %d", c.OutputCount))
	}
	if c.MegaPageMembers <= 0 {
		errs = append(errs, fmt.Errorf("mega_page_members must be positive, got %d", c.MegaPageMembers))
	}
	if c.SimilarUsers < 0 {
		errs = append(errs, fmt.Errorf("similar_users must be non-negative, got %d", c.SimilarUsers))
	}
	if c.LowRankEnabled && c.LowRank <= 0 {
		errs = append(errs, fmt.Errorf("low_rank must be positive when enabled, got %d", c.LowRank))
	}
	if c.Site == "" {
		errs = append(errs, errors.New("site is required"))
	}
	if len(c.AcceptedHosts) == 0 {
		errs = append(errs, errors.New("accepted_hosts must not be empty"))
	}

	return errors.Join(errs...)
}
