// Pubrec - Community Recommendations from Shared Memberships
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pubrec

package recommend

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Refine ranks the pages the seed does not follow by a rank-k
// reconstruction of the row-demeaned matrix.
//
// Only columns with a grade in at least one remaining row take part.
// Starting at rank, k is decremented until the decomposition succeeds.
// It returns the pages highest first and the rank used, or an error when
// no rank down to 1 works.
func Refine(m *Matrix, rank int) ([]ScoredPage, int, error) {
	cols := activeColumns(m)
	if len(cols) == 0 {
		return nil, 0, fmt.Errorf("%w: no columns", ErrRankTooLarge)
	}

	r, means := demeaned(m, cols)

	var lastErr error
	for k := rank; k >= 1; k-- {
		seedRow, err := reconstructSeedRow(r, k)
		if errors.Is(err, ErrDecompositionFailed) {
			return nil, 0, err
		}
		if err != nil {
			lastErr = err
			continue
		}

		ranked := make([]ScoredPage, 0, len(cols))
		for j, col := range cols {
			p := m.Page(col)
			if m.Followed(p.ID) {
				continue
			}
			ranked = append(ranked, ScoredPage{Page: p, Score: seedRow[j] + means[0]})
		}
		sortScored(ranked)
		return ranked, k, nil
	}
	if lastErr == nil {
		lastErr = ErrRankTooLarge
	}
	return nil, 0, lastErr
}

// activeColumns returns, in column order, the columns graded by any row.
func activeColumns(m *Matrix) []int {
	used := make([]bool, len(m.pages))
	for _, row := range m.rows {
		for col := range row.Grades {
			used[col] = true
		}
	}
	cols := make([]int, 0, len(m.pages))
	for col, ok := range used {
		if ok {
			cols = append(cols, col)
		}
	}
	return cols
}

// demeaned builds the dense rows x cols matrix with each row's mean removed.
func demeaned(m *Matrix, cols []int) (*mat.Dense, []float64) {
	r := mat.NewDense(len(m.rows), len(cols), nil)
	means := make([]float64, len(m.rows))
	for i, row := range m.rows {
		var sum float64
		for j, col := range cols {
			v := float64(row.Grade(col))
			r.Set(i, j, v)
			sum += v
		}
		means[i] = sum / float64(len(cols))
		for j := range cols {
			r.Set(i, j, r.At(i, j)-means[i])
		}
	}
	return r, means
}

// truncatedSVD factorizes a and keeps the k largest singular triplets.
// k must be positive and below the smaller dimension of a.
func truncatedSVD(a mat.Matrix, k int) (u *mat.Dense, sigma []float64, v *mat.Dense, err error) {
	rows, cols := a.Dims()
	if k < 1 || k >= min(rows, cols) {
		return nil, nil, nil, fmt.Errorf("%w: k=%d for %dx%d", ErrRankTooLarge, k, rows, cols)
	}

	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return nil, nil, nil, ErrDecompositionFailed
	}

	var uFull, vFull mat.Dense
	svd.UTo(&uFull)
	svd.VTo(&vFull)
	values := svd.Values(nil)

	u = mat.DenseCopyOf(uFull.Slice(0, rows, 0, k))
	v = mat.DenseCopyOf(vFull.Slice(0, cols, 0, k))
	return u, values[:k], v, nil
}

// reconstructSeedRow returns row 0 of U_k * diag(sigma_k) * V_k^T.
func reconstructSeedRow(a mat.Matrix, k int) ([]float64, error) {
	u, sigma, v, err := truncatedSVD(a, k)
	if err != nil {
		return nil, err
	}

	weights := mat.NewVecDense(k, nil)
	for l := 0; l < k; l++ {
		weights.SetVec(l, u.At(0, l)*sigma[l])
	}

	_, cols := a.Dims()
	out := mat.NewVecDense(cols, nil)
	out.MulVec(v, weights)
	return out.RawVector().Data, nil
}

// IsRankError reports whether err came from an unusable decomposition rank.
func IsRankError(err error) bool {
	return errors.Is(err, ErrRankTooLarge) || errors.Is(err, ErrDecompositionFailed)
}
