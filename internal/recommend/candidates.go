// Pubrec - Community Recommendations from Shared Memberships
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pubrec

package recommend

import (
	"sort"
)

// CountFrequencies counts, for every user, the number of distinct scanned
// pages the user is a member of. members maps page id to member ids.
func CountFrequencies(members map[int64][]int64) map[int64]int {
	freq := make(map[int64]int)
	for _, ids := range members {
		seen := make(map[int64]struct{}, len(ids))
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			freq[id]++
		}
	}
	return freq
}

// SelectPool picks the candidate pool from user frequencies.
//
// Starting at threshold 1 the pool is every user with frequency strictly
// above the threshold. While the pool is larger than target the threshold
// rises. If the pool falls below floor the threshold drops back by one and
// the search stops. The returned pool has at most target users, ordered by
// frequency descending then id ascending, and the accepted threshold.
func SelectPool(freq map[int64]int, target, floor int) ([]int64, int) {
	threshold := 1
	pool := poolAbove(freq, threshold)
	for {
		if len(pool) > target {
			threshold++
			pool = poolAbove(freq, threshold)
			continue
		}
		if len(pool) < floor && threshold > 0 {
			threshold--
			pool = poolAbove(freq, threshold)
		}
		break
	}

	sort.Slice(pool, func(i, j int) bool {
		fi, fj := freq[pool[i]], freq[pool[j]]
		if fi != fj {
			return fi > fj
		}
		return pool[i] < pool[j]
	})
	if len(pool) > target {
		pool = pool[:target]
	}
	return pool, threshold
}

func poolAbove(freq map[int64]int, threshold int) []int64 {
	pool := make([]int64, 0)
	for id, f := range freq {
		if f > threshold {
			pool = append(pool, id)
		}
	}
	return pool
}
