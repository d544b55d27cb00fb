// Pubrec - Community Recommendations from Shared Memberships
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pubrec

// Package main is the entry point for the pubrec command line tool.
//
// pubrec recommends public pages to a user of the VK social network by
// looking at what users who share the seed user's pages also follow.
//
// # Commands
//
//	pubrec recommend <profile>   Run the recommendation pipeline
//	pubrec resolve <profile>     Resolve a profile reference to a user id
//	pubrec config                Print the effective configuration
//	pubrec version               Print build information
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest priority wins):
//   - Command line flags
//   - Environment variables (VK_ACCESS_TOKEN, RECOMMEND_*, LOG_*, METRICS_*)
//   - Config file (--config, PUBREC_CONFIG or config.yaml)
//   - Built-in defaults
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the running pipeline. In-flight calls are
// abandoned and the command exits with a non-zero status.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// Build information, set via -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
