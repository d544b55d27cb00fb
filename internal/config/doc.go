// Pubrec - Community Recommendations from Shared Memberships
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pubrec

/*
Package config provides layered configuration for pubrec.

Configuration is assembled with Koanf v2 from three sources, later sources
overriding earlier ones:

 1. Built-in defaults (defaultConfig)
 2. An optional YAML file: the --config flag, PUBREC_CONFIG, or the first of
    DefaultConfigPaths found in the working directory
 3. Environment variables, mapped explicitly by envTransformFunc

Unknown environment variables are ignored. Comma-separated values are split
for slice settings such as RECOMMEND_ACCEPTED_HOSTS.

# Example File

	vk:
	  access_token: "vk1.a.xxxxx"
	  requests_per_second: 3
	recommend:
	  scan_subscriptions: 10
	  candidate_pool_size: 300
	  batch_delay: 250ms
	logging:
	  level: debug

# Validation

Validate checks ranges (positive batch windows, keep fraction in (0, 1],
known log levels). It does not require an access token so that
`pubrec config` works without credentials.

# Dumping

Config.YAML renders the effective configuration with the access token
redacted; the CLI `config` command prints it.
*/
package config
