// Pubrec - Community Recommendations from Shared Memberships
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pubrec

package recommend

// Row is one user's grades in a Matrix.
type Row struct {
	// UserID is the row's user.
	UserID int64

	// Count is the user's total subscription count (c).
	Count int

	// Grades maps column index to grade. Missing entries are zero.
	Grades map[int]int

	// Score is the pearson score against the seed row.
	Score float64
}

// Grade returns the row's grade for a column.
func (r *Row) Grade(col int) int {
	return r.Grades[col]
}

// Matrix is a sparse user by page rating matrix.
//
// Row 0 is always the seed user. Columns are appended in discovery order and
// never removed, so the seed's pages occupy the leading columns.
type Matrix struct {
	columns     map[int64]int
	pages       []Page
	rows        []*Row
	seedColumns int
}

// NewMatrix creates a matrix whose first row is the seed user.
func NewMatrix(seedID int64, seed *SubscriptionList) *Matrix {
	m := &Matrix{columns: make(map[int64]int)}
	m.AddRow(seedID, seed)
	m.seedColumns = len(m.pages)
	m.rows[0].Score = 1.0
	return m
}

// AddRow appends a user row. A nil or empty list yields a zero row.
// Items without a name and repeated pages are skipped; skipped items
// still occupy their position when grading.
func (m *Matrix) AddRow(userID int64, subs *SubscriptionList) *Row {
	row := &Row{UserID: userID, Grades: make(map[int]int)}
	m.rows = append(m.rows, row)
	if subs == nil {
		return row
	}

	row.Count = max(subs.TotalCount, len(subs.Items))
	for i, item := range subs.Items {
		if item.Name == "" {
			continue
		}
		col := m.column(item)
		if _, dup := row.Grades[col]; dup {
			continue
		}
		row.Grades[col] = GradeFor(row.Count, i)
	}
	return row
}

// column returns the column index of a page, appending it when new.
func (m *Matrix) column(p Page) int {
	if col, ok := m.columns[p.ID]; ok {
		if m.pages[col].MemberCount == UnknownMemberCount && p.MemberCount != UnknownMemberCount {
			m.pages[col].MemberCount = p.MemberCount
		}
		return col
	}
	col := len(m.pages)
	m.columns[p.ID] = col
	m.pages = append(m.pages, p)
	return col
}

// GradeFor returns the grade of the item at position i in a list of c.
func GradeFor(c, i int) int {
	return c - i
}

// Seed returns the seed row.
func (m *Matrix) Seed() *Row {
	return m.rows[0]
}

// Candidates returns the non-seed rows.
func (m *Matrix) Candidates() []*Row {
	return m.rows[1:]
}

// NumRows returns the number of rows, seed included.
func (m *Matrix) NumRows() int {
	return len(m.rows)
}

// NumColumns returns the number of page columns.
func (m *Matrix) NumColumns() int {
	return len(m.pages)
}

// SeedColumns returns the number of leading columns the seed follows.
func (m *Matrix) SeedColumns() int {
	return m.seedColumns
}

// Page returns the page at a column.
func (m *Matrix) Page(col int) Page {
	return m.pages[col]
}

// columnOf returns the column index of a page id.
func (m *Matrix) columnOf(pageID int64) (int, bool) {
	col, ok := m.columns[pageID]
	return col, ok
}

// Followed reports whether the seed follows the page.
func (m *Matrix) Followed(pageID int64) bool {
	col, ok := m.columnOf(pageID)
	return ok && col < m.seedColumns
}
