// Pubrec - Community Recommendations from Shared Memberships
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pubrec

package vk

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/samber/lo"

	"github.com/tomtom215/pubrec/internal/logging"
	"github.com/tomtom215/pubrec/internal/recommend"
)

// Per-call id limits of the bulk methods.
const (
	maxUserIDsPerCall  = 1000
	maxGroupIDsPerCall = 500
	maxMembersPerCall  = 1000
	maxSubscriptions   = 200
)

var (
	_ recommend.DataSource      = (*Client)(nil)
	_ recommend.SessionKeeper   = (*Client)(nil)
	_ recommend.UserDirectory   = (*Client)(nil)
	_ recommend.PageDirectory   = (*Client)(nil)
	_ recommend.FatalClassifier = (*Client)(nil)
)

// subscriptionsResponse is users.getSubscriptions with extended=1.
// Profiles are mixed in with pages and carry no name.
type subscriptionsResponse struct {
	Count int                `json:"count"`
	Items []subscriptionItem `json:"items"`
}

type subscriptionItem struct {
	ID           int64  `json:"id"`
	Type         string `json:"type"`
	Name         string `json:"name"`
	MembersCount *int   `json:"members_count"`
}

// membersResponse is groups.getMembers.
type membersResponse struct {
	Count int     `json:"count"`
	Items []int64 `json:"items"`
}

// user is one users.get entry.
type user struct {
	ID          int64  `json:"id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Deactivated string `json:"deactivated"`
}

// group is one groups.getById entry.
type group struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	MembersCount *int   `json:"members_count"`
}

// GetUserSubscriptions returns up to limit pages the user follows, most
// prominent first. Profiles in the list are returned without a name.
func (c *Client) GetUserSubscriptions(ctx context.Context, userID int64, limit int) (*recommend.SubscriptionList, error) {
	params := url.Values{}
	params.Set("user_id", strconv.FormatInt(userID, 10))
	params.Set("extended", "1")
	params.Set("count", strconv.Itoa(min(max(limit, 1), maxSubscriptions)))
	params.Set("fields", "members_count")

	var resp subscriptionsResponse
	if err := c.call(ctx, "users.getSubscriptions", params, &resp); err != nil {
		return nil, err
	}

	list := &recommend.SubscriptionList{
		TotalCount: resp.Count,
		Items:      make([]recommend.Page, 0, len(resp.Items)),
	}
	for _, item := range resp.Items {
		p := recommend.Page{ID: item.ID, MemberCount: recommend.UnknownMemberCount}
		if item.Type != "profile" {
			p.Name = item.Name
		}
		if item.MembersCount != nil {
			p.MemberCount = *item.MembersCount
			c.counts.set(item.ID, *item.MembersCount)
		}
		list.Items = append(list.Items, p)
	}
	return list, nil
}

// GetPageMembers returns member ids of a page in ascending id order.
func (c *Client) GetPageMembers(ctx context.Context, pageID int64, offset, count int) (*recommend.MemberPage, error) {
	params := url.Values{}
	params.Set("group_id", strconv.FormatInt(pageID, 10))
	params.Set("offset", strconv.Itoa(max(offset, 0)))
	params.Set("count", strconv.Itoa(min(max(count, 1), maxMembersPerCall)))
	params.Set("sort", "id_asc")

	var resp membersResponse
	if err := c.call(ctx, "groups.getMembers", params, &resp); err != nil {
		return nil, err
	}
	c.counts.set(pageID, resp.Count)

	return &recommend.MemberPage{TotalCount: resp.Count, UserIDs: resp.Items}, nil
}

// ResolveProfileReference resolves "site/id<digits>" or "site/<alias>"
// through users.get. Unknown users yield recommend.ErrProfileNotFound.
func (c *Client) ResolveProfileReference(ctx context.Context, reference string) (int64, error) {
	name := screenName(reference)
	if name == "" {
		return 0, fmt.Errorf("%w: %q", recommend.ErrInvalidProfileReference, reference)
	}

	params := url.Values{}
	params.Set("user_ids", name)

	var users []user
	if err := c.call(ctx, "users.get", params, &users); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && (apiErr.Code == CodeInvalidUserID || apiErr.Code == CodeInvalidParameter) {
			return 0, fmt.Errorf("%w: %q", recommend.ErrProfileNotFound, reference)
		}
		return 0, err
	}
	if len(users) == 0 || users[0].ID <= 0 {
		return 0, fmt.Errorf("%w: %q", recommend.ErrProfileNotFound, reference)
	}

	if users[0].Deactivated != "" {
		logging.Ctx(ctx).Warn().
			Int64("user_id", users[0].ID).
			Str("deactivated", users[0].Deactivated).
			Msg("Resolved profile is deactivated")
	}
	return users[0].ID, nil
}

// screenName extracts the last path segment of a profile reference.
func screenName(reference string) string {
	s := strings.TrimSpace(reference)
	s = strings.TrimSuffix(s, "/")
	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}
	return s
}

// GetUserNames returns "First Last" for each user id found.
func (c *Client) GetUserNames(ctx context.Context, userIDs []int64) (map[int64]string, error) {
	names := make(map[int64]string, len(userIDs))
	for _, chunk := range lo.Chunk(userIDs, maxUserIDsPerCall) {
		params := url.Values{}
		params.Set("user_ids", joinIDs(chunk))

		var users []user
		if err := c.call(ctx, "users.get", params, &users); err != nil {
			return nil, err
		}
		for _, u := range users {
			names[u.ID] = strings.TrimSpace(u.FirstName + " " + u.LastName)
		}
	}
	return names, nil
}

// GetPageMemberCounts returns member counts for the given pages, from the
// cache where possible. Pages that hide their count are omitted.
func (c *Client) GetPageMemberCounts(ctx context.Context, pageIDs []int64) (map[int64]int, error) {
	counts := make(map[int64]int, len(pageIDs))
	var missing []int64
	for _, id := range lo.Uniq(pageIDs) {
		if n, ok := c.counts.get(id); ok {
			counts[id] = n
			continue
		}
		missing = append(missing, id)
	}

	for _, chunk := range lo.Chunk(missing, maxGroupIDsPerCall) {
		params := url.Values{}
		params.Set("group_ids", joinIDs(chunk))
		params.Set("fields", "members_count")

		var raw json.RawMessage
		if err := c.call(ctx, "groups.getById", params, &raw); err != nil {
			return nil, err
		}
		groups, err := decodeGroups(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to decode groups.getById response: %w", err)
		}
		for _, g := range groups {
			if g.MembersCount == nil {
				continue
			}
			counts[g.ID] = *g.MembersCount
			c.counts.set(g.ID, *g.MembersCount)
		}
	}
	return counts, nil
}

// decodeGroups accepts both the array response of older API versions and
// the {"groups": [...]} object of newer ones.
func decodeGroups(raw json.RawMessage) ([]group, error) {
	var groups []group
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '[' {
		err := json.Unmarshal(raw, &groups)
		return groups, err
	}
	var wrapped struct {
		Groups []group `json:"groups"`
	}
	err := json.Unmarshal(raw, &wrapped)
	return wrapped.Groups, err
}

// EnsureAuthenticated verifies the access token once and again after any
// call fails with API error 5.
func (c *Client) EnsureAuthenticated(ctx context.Context) error {
	if c.verified.Load() {
		return nil
	}

	c.authMu.Lock()
	defer c.authMu.Unlock()
	if c.verified.Load() {
		return nil
	}

	params := url.Values{}
	params.Set("user_ids", "1")
	if err := c.call(ctx, "users.get", params, nil); err != nil {
		return fmt.Errorf("verify session: %w", err)
	}

	c.verified.Store(true)
	c.logger.Info().Str("api_version", c.version).Msg("Session verified")
	return nil
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
