// Pubrec - Community Recommendations from Shared Memberships
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pubrec

package recommend

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	numericProfilePattern = regexp.MustCompile(`^id([0-9]+)$`)
	aliasPattern          = regexp.MustCompile(`^[A-Za-z0-9_.]+$`)
)

// ProfileReference is a parsed profile reference.
// Exactly one of UserID and Alias is set.
type ProfileReference struct {
	Host   string
	UserID int64
	Alias  string
}

// IsNumeric reports whether the reference names the user by id.
func (p ProfileReference) IsNumeric() bool {
	return p.UserID > 0
}

// ParseProfileReference parses "site/id<digits>" or "site/<alias>",
// optionally prefixed with http(s):// and followed by a slash.
// The host must be one of acceptedHosts (case-insensitive).
func ParseProfileReference(ref string, acceptedHosts []string) (ProfileReference, error) {
	s := strings.TrimSpace(ref)
	lower := strings.ToLower(s)
	switch {
	case strings.HasPrefix(lower, "https://"):
		s = s[len("https://"):]
	case strings.HasPrefix(lower, "http://"):
		s = s[len("http://"):]
	}
	s = strings.TrimSuffix(s, "/")

	host, path, ok := strings.Cut(s, "/")
	if !ok || host == "" || path == "" {
		return ProfileReference{}, fmt.Errorf("%w: %q", ErrInvalidProfileReference, ref)
	}
	host = strings.ToLower(host)
	if !hostAccepted(host, acceptedHosts) {
		return ProfileReference{}, fmt.Errorf("%w: unsupported host %q", ErrInvalidProfileReference, host)
	}

	if m := numericProfilePattern.FindStringSubmatch(path); m != nil {
		id, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil || id <= 0 {
			return ProfileReference{}, fmt.Errorf("%w: bad user id in %q", ErrInvalidProfileReference, ref)
		}
		return ProfileReference{Host: host, UserID: id}, nil
	}
	if !aliasPattern.MatchString(path) {
		return ProfileReference{}, fmt.Errorf("%w: %q", ErrInvalidProfileReference, ref)
	}
	return ProfileReference{Host: host, Alias: path}, nil
}

func hostAccepted(host string, accepted []string) bool {
	for _, h := range accepted {
		if strings.EqualFold(h, host) {
			return true
		}
	}
	return false
}

// FormatPageURL returns the canonical URL of a page.
func FormatPageURL(site string, pageID int64) string {
	return fmt.Sprintf("%s/public%d", site, pageID)
}

// FormatUserURL returns the canonical URL of a user profile.
func FormatUserURL(site string, userID int64) string {
	return fmt.Sprintf("%s/id%d", site, userID)
}
