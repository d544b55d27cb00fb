// Pubrec - Community Recommendations from Shared Memberships
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pubrec

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/tomtom215/pubrec/internal/logging"
	"github.com/tomtom215/pubrec/internal/recommend"
	"github.com/tomtom215/pubrec/internal/report"
	"github.com/tomtom215/pubrec/internal/vk"
)

type recommendOptions struct {
	subscriptions int
	candidates    int
	top           int
	output        string
	progress      bool
	noRefine      bool
}

func newRecommendCmd(a *app) *cobra.Command {
	opts := &recommendOptions{}

	cmd := &cobra.Command{
		Use:   "recommend <profile>",
		Short: "Recommend public pages for a user",
		Long: `Recommend public pages for a user.

The profile is a link such as vk.com/id1 or https://vk.com/durov.
Members of the user's pages are scanned to find users with similar
interests, and pages those users follow are ranked by how strongly
they correlate with the user's own subscriptions.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runRecommend(cmd, args[0], opts)
		},
	}

	fs := cmd.Flags()
	fs.IntVar(&opts.subscriptions, "subscriptions", 0, "seed pages whose members are scanned (default from config)")
	fs.IntVar(&opts.candidates, "candidates", 0, "target candidate pool size (default from config)")
	fs.IntVar(&opts.top, "top", 0, "rows per table (default from config)")
	fs.StringVarP(&opts.output, "output", "o", "table", "output format: table or json")
	fs.BoolVar(&opts.progress, "progress", false, "show stage progress on stderr")
	fs.BoolVar(&opts.noRefine, "no-refine", false, "skip the low-rank refinement")
	return cmd
}

func (a *app) runRecommend(cmd *cobra.Command, ref string, opts *recommendOptions) error {
	format, err := report.ParseFormat(opts.output)
	if err != nil {
		return a.fail(err)
	}
	if err := checkCounts(cmd.Flags(), opts); err != nil {
		return a.fail(err)
	}

	cfg := a.cfg
	if opts.noRefine {
		cfg.Recommend.LowRankEnabled = false
	}

	ctx := cmd.Context()
	stopMetrics := startMetrics(ctx, cfg)
	defer stopMetrics()

	logger := logging.WithComponent("recommend")
	engine, client, err := initEngine(cfg, logger)
	if err != nil {
		return a.fail(err)
	}
	if opts.progress {
		engine.SetProgressReporter(newProgressReporter(a.errOut))
	}

	resp, err := engine.Recommend(ctx, recommend.Request{
		ProfileRef:        ref,
		ScanSubscriptions: opts.subscriptions,
		CandidatePoolSize: opts.candidates,
		OutputCount:       opts.top,
	})
	if err != nil {
		return a.fail(describeError(err, client))
	}

	return report.Write(a.out, resp, format)
}

// checkCounts rejects explicit counts below 1. Unset flags keep the
// configured defaults.
func checkCounts(fs *pflag.FlagSet, opts *recommendOptions) error {
	for _, f := range []struct {
		name  string
		value int
	}{
		{"subscriptions", opts.subscriptions},
		{"candidates", opts.candidates},
		{"top", opts.top},
	} {
		if fs.Changed(f.name) && f.value < 1 {
			return fmt.Errorf("--%s must be at least 1, got %d", f.name, f.value)
		}
	}
	return nil
}

// describeError adds a hint to errors the user can act on. client may be nil.
func describeError(err error, client *vk.Client) error {
	switch {
	case errors.Is(err, vk.ErrCircuitOpen) && client != nil:
		return fmt.Errorf("%w (circuit breaker %s, retry later)", err, client.BreakerState())
	case errors.Is(err, recommend.ErrInvalidProfileReference):
		return fmt.Errorf("%w (expected a link like vk.com/id1 or vk.com/alias)", err)
	case errors.Is(err, recommend.ErrNoSubscriptions):
		return fmt.Errorf("%w (the profile may be private)", err)
	}
	return err
}
