// Pubrec - Community Recommendations from Shared Memberships
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pubrec

package recommend

import (
	"math"
	"sort"
)

// ScoredPage is a page column with its recommend score.
type ScoredPage struct {
	Page  Page
	Score float64
}

// SortRows orders candidate rows by score descending, then user id
// ascending. The seed row stays at index 0.
func SortRows(m *Matrix) {
	candidates := m.rows[1:]
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].UserID < candidates[j].UserID
	})
}

// PruneTail keeps the seed row and the first ceil(fraction * candidates)
// candidate rows. Rows must already be sorted. Columns are untouched.
func PruneTail(m *Matrix, fraction float64) int {
	n := len(m.rows) - 1
	keep := int(math.Ceil(fraction * float64(n)))
	keep = min(max(keep, 0), n)
	m.rows = m.rows[:1+keep]
	return len(m.rows)
}

// RankPages scores every column the seed does not follow by
// sum(score * grade) / sumOfScores over the candidate rows and returns the
// pages with a positive score, highest first, ties by page id ascending.
func RankPages(m *Matrix, sumOfScores float64) []ScoredPage {
	if sumOfScores <= 0 || math.IsNaN(sumOfScores) || math.IsInf(sumOfScores, 0) {
		return nil
	}

	totals := make(map[int]float64)
	for _, row := range m.Candidates() {
		if row.Score == 0 {
			continue
		}
		for col, grade := range row.Grades {
			if col < m.SeedColumns() {
				continue
			}
			totals[col] += row.Score * float64(grade)
		}
	}

	ranked := make([]ScoredPage, 0, len(totals))
	for col, total := range totals {
		score := total / sumOfScores
		if score <= 0 {
			continue
		}
		ranked = append(ranked, ScoredPage{Page: m.Page(col), Score: score})
	}
	sortScored(ranked)
	return ranked
}

func sortScored(pages []ScoredPage) {
	sort.Slice(pages, func(i, j int) bool {
		if pages[i].Score != pages[j].Score {
			return pages[i].Score > pages[j].Score
		}
		return pages[i].Page.ID < pages[j].Page.ID
	})
}
