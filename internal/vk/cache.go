// Pubrec - Community Recommendations from Shared Memberships
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pubrec

package vk

import (
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/tomtom215/pubrec/internal/metrics"
)

// memberCountCache remembers page member counts seen in any response.
// Expired entries are dropped on read.
type memberCountCache struct {
	cache *ttlcache.Cache[int64, int]
}

func newMemberCountCache(ttl time.Duration, capacity uint64) *memberCountCache {
	opts := []ttlcache.Option[int64, int]{
		ttlcache.WithTTL[int64, int](ttl),
	}
	if capacity > 0 {
		opts = append(opts, ttlcache.WithCapacity[int64, int](capacity))
	}
	return &memberCountCache{cache: ttlcache.New[int64, int](opts...)}
}

// get returns a cached count.
func (m *memberCountCache) get(pageID int64) (int, bool) {
	item := m.cache.Get(pageID)
	if item == nil {
		metrics.MemberCountCacheMisses.Inc()
		return 0, false
	}
	metrics.MemberCountCacheHits.Inc()
	return item.Value(), true
}

// set stores a count.
func (m *memberCountCache) set(pageID int64, count int) {
	m.cache.Set(pageID, count, ttlcache.DefaultTTL)
}

// len returns the number of cached entries.
func (m *memberCountCache) len() int {
	return m.cache.Len()
}
