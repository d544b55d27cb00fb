// Pubrec - Community Recommendations from Shared Memberships
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pubrec

/*
Package vk implements the recommendation data source on top of the VK HTTP API.

Methods used:

  - users.getSubscriptions (extended, with members_count)
  - groups.getMembers (sorted by id, up to 1000 per call)
  - users.get (profile resolution, names, session check)
  - groups.getById (bulk member counts)

Every call passes through a token bucket limiter, a retry loop for
rate-limited responses and a circuit breaker. Errors about one user or page
(private profile, access denied) are returned to the caller but do not count
against the breaker.

	client, err := vk.New(&cfg.VK)
	if err != nil {
	    return err
	}
	engine, err := recommend.NewEngine(recCfg, client, logging.Logger())
*/
package vk
