// Pubrec - Community Recommendations from Shared Memberships
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pubrec

// Package logging provides the process-wide zerolog logger for pubrec.
//
// The CLI initializes the logger once from configuration; every pipeline
// stage then logs through Ctx(ctx) so that the request ID assigned to a
// recommendation run is attached to each line it produces.
//
// # Quick Start
//
//	logging.Init(logging.Config{
//	    Level:  "info",
//	    Format: "console",
//	})
//
//	ctx = logging.ContextWithRequestID(ctx, logging.GenerateRequestID())
//	logging.Ctx(ctx).Info().Int("pool_size", n).Msg("Candidate pool built")
//
// # Component Loggers
//
//	vkLogger := logging.WithComponent("vk")
//	vkLogger.Debug().Str("method", "groups.getMembers").Msg("Calling API")
//
// # Output Formats
//
// JSON Format (default):
//
//	{"level":"info","request_id":"...","pool_size":300,"time":"2026-01-03T10:30:00Z","message":"Candidate pool built"}
//
// Console Format:
//
//	10:30:00 INF Candidate pool built pool_size=300 request_id=...
//
// Logs go to stderr by default so that tables written to stdout stay clean.
package logging
