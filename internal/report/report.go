// Pubrec - Community Recommendations from Shared Memberships
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pubrec

// Package report renders recommendation responses for the terminal.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/olekukonko/tablewriter"

	"github.com/tomtom215/pubrec/internal/recommend"
)

// Format is an output format.
type Format string

// Supported formats.
const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
)

// ParseFormat parses a format name (case-insensitive).
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatTable, "":
		return FormatTable, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q (want table or json)", s)
}

// Write renders resp in the given format.
func Write(w io.Writer, resp *recommend.Response, format Format) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, resp)
	case FormatTable, "":
		return WriteTables(w, resp)
	}
	return fmt.Errorf("unknown output format %q", format)
}

// WriteJSON writes resp as indented JSON.
func WriteJSON(w io.Writer, resp *recommend.Response) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// WriteTables writes the recommendation, refined and similar users tables
// followed by a one-line run summary.
func WriteTables(w io.Writer, resp *recommend.Response) error {
	if len(resp.Recommendations) == 0 {
		if _, err := fmt.Fprintln(w, "No recommendations found."); err != nil {
			return err
		}
	} else {
		if err := writeRecommendations(w, "Recommended pages", resp.Recommendations); err != nil {
			return err
		}
	}

	if len(resp.Refined) > 0 {
		title := fmt.Sprintf("Refined by low-rank model (rank %d)", resp.Metadata.RankUsed)
		if err := writeRecommendations(w, title, resp.Refined); err != nil {
			return err
		}
	}

	if len(resp.SimilarUsers) > 0 {
		if err := writeSimilarUsers(w, resp.SimilarUsers); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintln(w, Summary(resp.Metadata))
	return err
}

func writeRecommendations(w io.Writer, title string, recs []recommend.Recommendation) error {
	if _, err := fmt.Fprintf(w, "\n%s\n", title); err != nil {
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header("#", "Page", "URL", "Score", "Members")
	for _, r := range recs {
		row := []string{
			strconv.Itoa(r.Rank),
			r.Name,
			r.URL,
			formatScore(r.Score),
			formatCount(r.MemberCount),
		}
		if err := table.Append(row); err != nil {
			return fmt.Errorf("render %s: %w", title, err)
		}
	}
	return table.Render()
}

func writeSimilarUsers(w io.Writer, users []recommend.SimilarUser) error {
	if _, err := fmt.Fprintf(w, "\nMost similar users\n"); err != nil {
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header("#", "Name", "URL", "Similarity")
	for i, u := range users {
		name := u.Name
		if name == "" {
			name = u.URL
		}
		row := []string{strconv.Itoa(i + 1), name, u.URL, formatScore(u.Score)}
		if err := table.Append(row); err != nil {
			return fmt.Errorf("render similar users: %w", err)
		}
	}
	return table.Render()
}

// Summary returns a one-line description of a run.
func Summary(m recommend.ResponseMetadata) string {
	return fmt.Sprintf(
		"\nseed %d: %d pages scanned, %d candidates (threshold %d), %dx%d matrix, %d rows kept, %d failed calls, %d ms",
		m.SeedUserID, m.ScannedPages, m.PoolSize, m.Threshold,
		m.MatrixRows, m.MatrixColumns, m.KeptRows, m.FailedCalls, m.LatencyMS,
	)
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func formatCount(n int) string {
	if n < 0 {
		return "?"
	}
	s := strconv.Itoa(n)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}
