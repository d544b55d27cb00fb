// Pubrec - Community Recommendations from Shared Memberships
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pubrec

package recommend

import (
	"fmt"
	"testing"
)

// subs builds a named subscription list of total count c.
func subs(c int, ids ...int64) *SubscriptionList {
	items := make([]Page, len(ids))
	for i, id := range ids {
		items[i] = Page{ID: id, Name: fmt.Sprintf("page %d", id), MemberCount: UnknownMemberCount}
	}
	return &SubscriptionList{TotalCount: c, Items: items}
}

// exampleMatrix is the seed A,B,C / X: A,D / Y: B scenario.
func exampleMatrix() *Matrix {
	const (
		pageA, pageB, pageC, pageD = 1, 2, 3, 4
	)
	m := NewMatrix(100, subs(3, pageA, pageB, pageC))
	m.AddRow(200, subs(2, pageA, pageD))
	m.AddRow(300, subs(1, pageB))
	return m
}

func TestGradeFor_Monotonic(t *testing.T) {
	t.Parallel()

	for c := 1; c <= 50; c++ {
		prev := c + 1
		for i := 0; i < c; i++ {
			g := GradeFor(c, i)
			if g != c-i {
				t.Fatalf("GradeFor(%d, %d) = %d, want %d", c, i, g, c-i)
			}
			if g <= 0 {
				t.Fatalf("GradeFor(%d, %d) = %d, want positive", c, i, g)
			}
			if g >= prev {
				t.Fatalf("GradeFor(%d, %d) = %d, not below previous %d", c, i, g, prev)
			}
			prev = g
		}
	}
}

func TestMatrix_ExampleScenario(t *testing.T) {
	t.Parallel()

	m := exampleMatrix()

	if m.NumRows() != 3 {
		t.Fatalf("NumRows() = %d, want 3", m.NumRows())
	}
	if m.NumColumns() != 4 {
		t.Fatalf("NumColumns() = %d, want 4", m.NumColumns())
	}
	if m.SeedColumns() != 3 {
		t.Errorf("SeedColumns() = %d, want 3", m.SeedColumns())
	}

	want := []map[int64]int{
		{1: 3, 2: 2, 3: 1},
		{1: 2, 4: 1},
		{2: 1},
	}
	for i, row := range m.rows {
		for pageID, grade := range want[i] {
			col, ok := m.columnOf(pageID)
			if !ok {
				t.Fatalf("page %d has no column", pageID)
			}
			if got := row.Grade(col); got != grade {
				t.Errorf("row %d page %d grade = %d, want %d", i, pageID, got, grade)
			}
		}
		if len(row.Grades) != len(want[i]) {
			t.Errorf("row %d has %d grades, want %d", i, len(row.Grades), len(want[i]))
		}
	}

	if m.Seed().UserID != 100 {
		t.Errorf("Seed().UserID = %d, want 100", m.Seed().UserID)
	}
	if m.Seed().Score != 1.0 {
		t.Errorf("Seed().Score = %v, want 1.0", m.Seed().Score)
	}
}

func TestMatrix_ColumnsOnlyGrow(t *testing.T) {
	t.Parallel()

	m := NewMatrix(1, subs(3, 10, 11, 12))
	lists := []*SubscriptionList{
		subs(2, 13, 10),
		nil,
		subs(4, 14, 15, 11, 16),
		{TotalCount: 0},
		subs(1, 13),
	}

	for i, l := range lists {
		before := make([]int64, m.NumColumns())
		for col := range before {
			before[col] = m.Page(col).ID
		}

		m.AddRow(int64(100+i), l)

		if m.NumColumns() < len(before) {
			t.Fatalf("columns shrank from %d to %d", len(before), m.NumColumns())
		}
		for col, id := range before {
			if m.Page(col).ID != id {
				t.Fatalf("column %d changed from page %d to %d", col, id, m.Page(col).ID)
			}
		}
	}

	if m.NumColumns() != 7 {
		t.Errorf("NumColumns() = %d, want 7", m.NumColumns())
	}
	if m.SeedColumns() != 3 {
		t.Errorf("SeedColumns() = %d, want 3", m.SeedColumns())
	}
}

func TestMatrix_SkipsNamelessAndDuplicates(t *testing.T) {
	t.Parallel()

	m := NewMatrix(1, subs(1, 99))
	row := m.AddRow(2, &SubscriptionList{
		TotalCount: 4,
		Items: []Page{
			{ID: 10, Name: "a"},
			{ID: 11},
			{ID: 12, Name: "c"},
			{ID: 10, Name: "a"},
		},
	})

	if _, ok := m.columnOf(11); ok {
		t.Error("nameless page 11 got a column")
	}
	col10, _ := m.columnOf(10)
	col12, _ := m.columnOf(12)
	if got := row.Grade(col10); got != 4 {
		t.Errorf("grade of page 10 = %d, want 4", got)
	}
	if got := row.Grade(col12); got != 2 {
		t.Errorf("grade of page 12 = %d, want 2 (position kept)", got)
	}
	if len(row.Grades) != 2 {
		t.Errorf("row has %d grades, want 2", len(row.Grades))
	}
}

func TestMatrix_ZeroRow(t *testing.T) {
	t.Parallel()

	m := NewMatrix(1, subs(2, 10, 11))
	row := m.AddRow(2, nil)

	if row.Count != 0 || len(row.Grades) != 0 {
		t.Errorf("zero row = %+v, want empty", row)
	}
	if m.NumRows() != 2 {
		t.Errorf("NumRows() = %d, want 2 (failed rows are kept)", m.NumRows())
	}
}

func TestMatrix_TotalCountExceedsItems(t *testing.T) {
	t.Parallel()

	m := NewMatrix(1, subs(10, 10, 11))
	col10, _ := m.columnOf(10)
	col11, _ := m.columnOf(11)

	if got := m.Seed().Grade(col10); got != 10 {
		t.Errorf("grade = %d, want 10", got)
	}
	if got := m.Seed().Grade(col11); got != 9 {
		t.Errorf("grade = %d, want 9", got)
	}
}

func TestMatrix_Followed(t *testing.T) {
	t.Parallel()

	m := exampleMatrix()

	for _, id := range []int64{1, 2, 3} {
		if !m.Followed(id) {
			t.Errorf("Followed(%d) = false, want true", id)
		}
	}
	if m.Followed(4) {
		t.Error("Followed(4) = true, want false")
	}
	if m.Followed(404) {
		t.Error("Followed(404) = true for unknown page")
	}
}

func TestMatrix_MemberCountBackfill(t *testing.T) {
	t.Parallel()

	m := NewMatrix(1, subs(1, 10))
	m.AddRow(2, &SubscriptionList{TotalCount: 1, Items: []Page{{ID: 10, Name: "x", MemberCount: 42}}})

	col, _ := m.columnOf(10)
	if got := m.Page(col).MemberCount; got != 42 {
		t.Errorf("MemberCount = %d, want 42", got)
	}
}
