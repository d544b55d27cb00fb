// Pubrec - Community Recommendations from Shared Memberships
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pubrec

// Package validation provides struct validation using go-playground/validator v10.
//
// A thread-safe singleton validator caches struct metadata and registers the
// custom "profileref" tag, which accepts "host/path" profile references such as
// vk.com/id1 or https://vk.com/durov. Failures are collected into a
// RequestValidationError whose UserMessage is shown by the CLI.
//
// Example usage:
//
//	type Request struct {
//	    ProfileRef        string `validate:"required,profileref"`
//	    ScanSubscriptions int    `validate:"min=1,max=200"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    fmt.Fprintln(os.Stderr, verr.UserMessage())
//	}
package validation
