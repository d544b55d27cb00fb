// Pubrec - Community Recommendations from Shared Memberships
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pubrec

package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/tomtom215/pubrec/internal/recommend"
)

var stageLabels = map[string]string{
	recommend.StageResolve:    "Resolving profile",
	recommend.StageScan:       "Scanning page members",
	recommend.StageScanChunks: "Scanning remaining members",
	recommend.StagePool:       "Selecting candidates",
	recommend.StageAssemble:   "Fetching subscriptions",
	recommend.StageScore:      "Scoring users",
	recommend.StageRank:       "Ranking pages",
	recommend.StageOutput:     "Resolving member counts",
	recommend.StageRefine:     "Low-rank refinement",
}

func stageLabel(stage string) string {
	if l, ok := stageLabels[stage]; ok {
		return l
	}
	return stage
}

// progressReporter renders one progress bar per pipeline stage.
type progressReporter struct {
	mu      sync.Mutex
	w       io.Writer
	bar     *progressbar.ProgressBar
	started time.Time
}

var _ recommend.ProgressReporter = (*progressReporter)(nil)

func newProgressReporter(w io.Writer) *progressReporter {
	return &progressReporter{w: w}
}

func (p *progressReporter) StageStarted(stage string, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Stages without a known step count get a spinner.
	limit := int64(total)
	if total <= 0 {
		limit = -1
	}
	p.started = time.Now()
	p.bar = progressbar.NewOptions64(limit,
		progressbar.OptionSetWriter(p.w),
		progressbar.OptionSetDescription(stageLabel(stage)),
		progressbar.OptionShowCount(),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

func (p *progressReporter) StageProgress(_ string, done int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		_ = p.bar.Set(done)
	}
}

func (p *progressReporter) StageFinished(stage string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		_ = p.bar.Finish()
		p.bar = nil
	}
	fmt.Fprintf(p.w, "%s: done in %s\n", stageLabel(stage), time.Since(p.started).Round(time.Millisecond))
}
