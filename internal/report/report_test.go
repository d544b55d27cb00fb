// Pubrec - Community Recommendations from Shared Memberships
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pubrec

package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/pubrec/internal/recommend"
)

func sampleResponse() *recommend.Response {
	return &recommend.Response{
		Recommendations: []recommend.Recommendation{
			{Rank: 1, PageID: 50, Name: "Small Page", URL: "vk.com/public50", Score: 1.2, MemberCount: 5000},
			{Rank: 2, PageID: 52, Name: "Hidden Page", URL: "vk.com/public52", Score: 0.16, MemberCount: 3},
		},
		Refined: []recommend.Recommendation{
			{Rank: 1, PageID: 52, Name: "Hidden Page", URL: "vk.com/public52", Score: 0.9, MemberCount: 3},
		},
		SimilarUsers: []recommend.SimilarUser{
			{UserID: 100, Name: "Ann Lee", URL: "vk.com/id100", Score: 0.375},
			{UserID: 101, URL: "vk.com/id101", Score: 0.25},
		},
		Metadata: recommend.ResponseMetadata{
			SeedUserID: 1, PoolSize: 20, Threshold: 1, MatrixRows: 21, MatrixColumns: 6,
			KeptRows: 15, RankUsed: 5, LatencyMS: 42,
		},
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatTable, false},
		{"table", FormatTable, false},
		{" JSON ", FormatJSON, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestWriteTables(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := Write(&buf, sampleResponse(), FormatTable); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"Recommended pages",
		"Small Page", "vk.com/public50", "1.2000", "5 000",
		"Refined by low-rank model (rank 5)",
		"Most similar users", "Ann Lee", "vk.com/id101",
		"20 candidates (threshold 1)", "21x6 matrix",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "Small Page") > strings.Index(out, "Refined") {
		t.Error("main table not printed before refined table")
	}
}

func TestWriteTables_Empty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := WriteTables(&buf, &recommend.Response{}); err != nil {
		t.Fatalf("WriteTables() error = %v", err)
	}
	if !strings.Contains(buf.String(), "No recommendations found.") {
		t.Errorf("output = %q", buf.String())
	}
	if strings.Contains(buf.String(), "Refined") || strings.Contains(buf.String(), "similar") {
		t.Error("empty tables rendered")
	}
}

func TestWriteJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := Write(&buf, sampleResponse(), FormatJSON); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	var decoded recommend.Response
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if len(decoded.Recommendations) != 2 || decoded.Recommendations[0].URL != "vk.com/public50" {
		t.Errorf("decoded = %+v", decoded.Recommendations)
	}
}

func TestFormatCount(t *testing.T) {
	t.Parallel()

	tests := map[int]string{
		-1:      "?",
		0:       "0",
		999:     "999",
		1000:    "1 000",
		1234567: "1 234 567",
	}
	for in, want := range tests {
		if got := formatCount(in); got != want {
			t.Errorf("formatCount(%d) = %q, want %q", in, got, want)
		}
	}
}
