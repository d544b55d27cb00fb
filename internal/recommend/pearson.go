// Pubrec - Community Recommendations from Shared Memberships
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pubrec

package recommend

import (
	"math"
)

// rowAverage is the mean grade of a row with c subscriptions spread over
// numCols columns: c(c+1)/2 / numCols.
func rowAverage(c, numCols int) float64 {
	if numCols == 0 {
		return 0
	}
	return float64(c) * float64(c+1) / 2 / float64(numCols)
}

// Pearson returns the absolute correlation between a row and the seed row
// over all page columns. Zero variance on either side scores 0.
func Pearson(m *Matrix, row *Row) float64 {
	seed := m.Seed()
	numCols := m.NumColumns()
	if numCols == 0 {
		return 0
	}

	avg := rowAverage(row.Count, numCols)
	ourAvg := rowAverage(seed.Count, numCols)

	var crossSum, userSqSum, seedSqSum float64
	for col := 0; col < numCols; col++ {
		userDiff := float64(row.Grade(col)) - avg
		seedDiff := float64(seed.Grade(col)) - ourAvg
		crossSum += userDiff * seedDiff
		userSqSum += userDiff * userDiff
		seedSqSum += seedDiff * seedDiff
	}
	if userSqSum == 0 || seedSqSum == 0 {
		return 0
	}

	score := math.Abs(crossSum / math.Sqrt(seedSqSum) / math.Sqrt(userSqSum))
	switch {
	case math.IsNaN(score), math.IsInf(score, 0):
		return 0
	case score > 1:
		return 1
	}
	return score
}

// ScoreRows writes the pearson score of every candidate row and returns
// the sum of all candidate scores. The seed row keeps 1.0.
func ScoreRows(m *Matrix) float64 {
	m.Seed().Score = 1.0
	var sum float64
	for _, row := range m.Candidates() {
		row.Score = Pearson(m, row)
		sum += row.Score
	}
	return sum
}
