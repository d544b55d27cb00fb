// Pubrec - Community Recommendations from Shared Memberships
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pubrec

package main

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/tomtom215/pubrec/internal/config"
	"github.com/tomtom215/pubrec/internal/logging"
	"github.com/tomtom215/pubrec/internal/metrics"
	"github.com/tomtom215/pubrec/internal/recommend"
	"github.com/tomtom215/pubrec/internal/vk"
)

// buildEngineConfig converts application config to engine config.
func buildEngineConfig(cfg *config.Config) *recommend.Config {
	r := cfg.Recommend

	maxMembers := r.MaxMembersPerPage
	if maxMembers == 0 {
		maxMembers = math.MaxInt
	}

	return &recommend.Config{
		ScanSubscriptions:  r.ScanSubscriptions,
		CandidatePoolSize:  r.CandidatePoolSize,
		MinPoolSize:        r.MinPoolSize,
		SubscriptionsLimit: r.SubscriptionsLimit,
		MemberPageSize:     r.MemberPageSize,
		MaxMembersPerPage:  maxMembers,
		BatchWindow:        r.BatchWindow,
		BatchDelay:         r.BatchDelay,
		CallTimeout:        r.CallTimeout,
		KeepFraction:       r.KeepFraction,
		OutputCount:        r.OutputCount,
		MegaPageMembers:    r.MegaPageMembers,
		SimilarUsers:       r.SimilarUsers,
		LowRankEnabled:     r.LowRankEnabled,
		LowRank:            r.LowRank,
		Site:               r.Site,
		AcceptedHosts:      append([]string(nil), r.AcceptedHosts...),
	}
}

// initEngine creates the API client and the engine on top of it.
//
//nolint:gocritic // hugeParam: logger passed by value for zerolog chaining
func initEngine(cfg *config.Config, logger zerolog.Logger) (*recommend.Engine, *vk.Client, error) {
	client, err := vk.New(&cfg.VK)
	if err != nil {
		return nil, nil, fmt.Errorf("create API client: %w", err)
	}

	engine, err := recommend.NewEngine(buildEngineConfig(cfg), client, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("create recommendation engine: %w", err)
	}
	return engine, client, nil
}

// startMetrics serves /metrics until the returned stop function is called.
// It is a no-op unless metrics are enabled.
func startMetrics(ctx context.Context, cfg *config.Config) func() {
	if !cfg.Metrics.Enabled || cfg.Metrics.ListenAddr == "" {
		return func() {}
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := metrics.Serve(ctx, cfg.Metrics.ListenAddr); err != nil {
			logging.Warn().Err(err).Msg("Metrics listener stopped")
		}
	}()
	return func() {
		cancel()
		<-done
	}
}
