// Pubrec - Community Recommendations from Shared Memberships
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pubrec

package recommend

import (
	"math/rand"
	"reflect"
	"testing"
)

// freqMap builds a frequency map with count users at each frequency,
// assigning ids from start upward.
func freqMap(start int64, groups map[int]int) map[int64]int {
	freq := make(map[int64]int)
	id := start
	for f, count := range groups {
		for i := 0; i < count; i++ {
			freq[id] = f
			id++
		}
	}
	return freq
}

func TestCountFrequencies(t *testing.T) {
	t.Parallel()

	members := map[int64][]int64{
		10: {1, 2, 3, 3},
		11: {2, 3},
		12: {3, 4},
	}
	got := CountFrequencies(members)
	want := map[int64]int{1: 1, 2: 2, 3: 3, 4: 1}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("CountFrequencies() = %v, want %v", got, want)
	}
}

func TestSelectPool(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		groups        map[int]int
		target        int
		floor         int
		wantSize      int
		wantThreshold int
	}{
		{
			name:          "accepted at first threshold",
			groups:        map[int]int{2: 20, 1: 50},
			target:        300,
			floor:         10,
			wantSize:      20,
			wantThreshold: 1,
		},
		{
			name:          "threshold rises until pool fits",
			groups:        map[int]int{2: 500, 3: 50, 1: 10},
			target:        300,
			floor:         10,
			wantSize:      50,
			wantThreshold: 2,
		},
		{
			name:          "below floor relaxes once",
			groups:        map[int]int{2: 5, 1: 100},
			target:        300,
			floor:         10,
			wantSize:      105,
			wantThreshold: 0,
		},
		{
			name:          "relaxed pool is truncated",
			groups:        map[int]int{2: 5, 1: 400},
			target:        300,
			floor:         10,
			wantSize:      300,
			wantThreshold: 0,
		},
		{
			name:          "overshoot then floor steps back",
			groups:        map[int]int{2: 400, 3: 3},
			target:        300,
			floor:         10,
			wantSize:      300,
			wantThreshold: 1,
		},
		{
			name:          "degenerate pool below floor",
			groups:        map[int]int{1: 4},
			target:        300,
			floor:         10,
			wantSize:      4,
			wantThreshold: 0,
		},
		{
			name:          "empty",
			groups:        map[int]int{},
			target:        300,
			floor:         10,
			wantSize:      0,
			wantThreshold: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			pool, threshold := SelectPool(freqMap(1, tt.groups), tt.target, tt.floor)
			if len(pool) != tt.wantSize {
				t.Errorf("pool size = %d, want %d", len(pool), tt.wantSize)
			}
			if threshold != tt.wantThreshold {
				t.Errorf("threshold = %d, want %d", threshold, tt.wantThreshold)
			}
		})
	}
}

func TestSelectPool_OrderedByFrequency(t *testing.T) {
	t.Parallel()

	freq := freqMap(1, map[int]int{2: 400, 3: 3})
	pool, _ := SelectPool(freq, 300, 10)

	for i := 1; i < len(pool); i++ {
		a, b := freq[pool[i-1]], freq[pool[i]]
		if a < b || (a == b && pool[i-1] > pool[i]) {
			t.Fatalf("pool not ordered at %d: (%d,f=%d) before (%d,f=%d)", i, pool[i-1], a, pool[i], b)
		}
	}
	for i := 0; i < 3; i++ {
		if freq[pool[i]] != 3 {
			t.Errorf("pool[%d] has frequency %d, want the frequency-3 users first", i, freq[pool[i]])
		}
	}
}

func TestSelectPool_Deterministic(t *testing.T) {
	t.Parallel()

	freq := freqMap(1, map[int]int{1: 100, 2: 250, 3: 120, 4: 40})
	first, t1 := SelectPool(freq, 300, 10)

	for i := 0; i < 20; i++ {
		again, t2 := SelectPool(freq, 300, 10)
		if t1 != t2 || !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs from first run", i)
		}
	}
}

func TestSelectPool_Terminates(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(7)) //nolint:gosec // deterministic test data
	for i := 0; i < 200; i++ {
		freq := make(map[int64]int)
		maxFreq := 0
		users := rng.Intn(2000)
		for u := 0; u < users; u++ {
			f := 1 + rng.Intn(10)
			freq[int64(u)] = f
			maxFreq = max(maxFreq, f)
		}
		target := 10 + rng.Intn(400)

		pool, threshold := SelectPool(freq, target, 10)

		if len(pool) > target {
			t.Fatalf("case %d: pool size %d exceeds target %d", i, len(pool), target)
		}
		if threshold < 0 || threshold > max(maxFreq, 1) {
			t.Fatalf("case %d: threshold %d outside [0, %d]", i, threshold, maxFreq)
		}

		above := 0
		for _, f := range freq {
			if f > 0 {
				above++
			}
		}
		if len(pool) < 10 && above >= 10 && threshold > 0 {
			t.Fatalf("case %d: pool %d below floor with threshold %d still relaxable", i, len(pool), threshold)
		}
	}
}
