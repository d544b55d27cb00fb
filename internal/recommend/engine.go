// Pubrec - Community Recommendations from Shared Memberships
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pubrec

package recommend

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/pubrec/internal/batch"
	"github.com/tomtom215/pubrec/internal/logging"
	"github.com/tomtom215/pubrec/internal/metrics"
	"github.com/tomtom215/pubrec/internal/validation"
)

// Pipeline stage names used for progress, logs and metrics.
const (
	StageResolve  = "resolve"
	StageScan     = "scan"
	StagePool     = "pool"
	StageAssemble = "assemble"
	StageScore    = "score"
	StageRank     = "rank"
	StageRefine   = "refine"
	StageOutput   = "output"
)

// Engine runs the recommendation pipeline against a DataSource.
// It is safe for concurrent use.
type Engine struct {
	config   *Config
	source   DataSource
	logger   zerolog.Logger
	progress ProgressReporter

	requestCount atomic.Int64
	errorCount   atomic.Int64
}

// Stats is a snapshot of engine counters.
type Stats struct {
	RequestCount int64 `json:"request_count"`
	ErrorCount   int64 `json:"error_count"`
}

// NewEngine creates a new recommendation engine.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(cfg *Config, source DataSource, logger zerolog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if source == nil {
		return nil, errors.New("data source is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Engine{
		config: cfg,
		source: source,
		logger: logger.With().Str("component", "recommend").Logger(),
	}, nil
}

// SetProgressReporter installs a progress reporter. Call before Recommend.
func (e *Engine) SetProgressReporter(p ProgressReporter) {
	e.progress = p
}

// Stats returns a snapshot of engine counters.
func (e *Engine) Stats() Stats {
	return Stats{
		RequestCount: e.requestCount.Load(),
		ErrorCount:   e.errorCount.Load(),
	}
}

// params are the effective per-request settings.
type params struct {
	scan        int
	poolSize    int
	outputCount int
}

// run is the state of a single request.
type run struct {
	e      *Engine
	params params
	meta   ResponseMetadata

	// counts caches member counts resolved during output selection.
	counts   map[int64]int
	lookedUp map[int64]struct{}
}

// Recommend generates recommendations for the referenced profile.
//
// Validation errors wrap ErrInvalidRequest or ErrInvalidProfileReference and
// are returned before any data source call. Failed individual calls are
// skipped; only fatal data source errors abort the request.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) Recommend(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	e.requestCount.Add(1)

	if req.RequestID == "" {
		req.RequestID = logging.GenerateRequestID()
	}
	ctx = logging.ContextWithRequestID(ctx, req.RequestID)
	ctx = logging.ContextWithLogger(ctx, e.logger.With().Str("profile_ref", req.ProfileRef).Logger())
	logger := logging.Ctx(ctx)

	resp, err := e.recommend(ctx, req, start)
	switch {
	case err == nil:
		metrics.RecordRequest("success")
		logger.Info().
			Int("recommendations", len(resp.Recommendations)).
			Int("refined", len(resp.Refined)).
			Int64("latency_ms", resp.Metadata.LatencyMS).
			Msg("Recommendation complete")
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrInvalidProfileReference):
		metrics.RecordRequest("invalid")
		logger.Debug().Err(err).Msg("Rejected request")
	default:
		e.errorCount.Add(1)
		metrics.RecordRequest("error")
		logger.Error().Err(err).Msg("Recommendation failed")
	}
	return resp, err
}

//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) recommend(ctx context.Context, req Request, start time.Time) (*Response, error) {
	if verr := validation.ValidateStruct(&req); verr != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, verr.UserMessage())
	}
	ref, err := ParseProfileReference(req.ProfileRef, e.config.AcceptedHosts)
	if err != nil {
		return nil, err
	}

	r := &run{
		e:        e,
		params:   e.paramsFor(req),
		meta:     ResponseMetadata{RequestID: req.RequestID},
		counts:   make(map[int64]int),
		lookedUp: make(map[int64]struct{}),
	}

	seedID, err := r.resolve(ctx, req.ProfileRef, ref)
	if err != nil {
		return nil, err
	}
	r.meta.SeedUserID = seedID

	if err := r.ensureAuthenticated(ctx); err != nil {
		return nil, err
	}

	seedSubs, err := r.seedSubscriptions(ctx, seedID)
	if err != nil {
		return nil, err
	}

	members, err := r.scanMembers(ctx, scanTargets(seedSubs, r.params.scan))
	if err != nil {
		return nil, err
	}

	pool := r.selectPool(ctx, members, seedID)

	if err := r.ensureAuthenticated(ctx); err != nil {
		return nil, err
	}

	m, err := r.assemble(ctx, seedID, seedSubs, pool)
	if err != nil {
		return nil, err
	}

	sum := r.score(ctx, m)
	similar := r.similarUsers(ctx, m)
	ranked := r.rank(m, sum)

	doneOutput := r.stage(StageOutput, 0)
	recs, err := r.selectOutput(ctx, ranked)
	doneOutput()
	if err != nil {
		return nil, err
	}

	var refined []Recommendation
	if e.config.LowRankEnabled {
		refined, err = r.refine(ctx, m)
		if err != nil {
			return nil, err
		}
	}

	r.meta.LatencyMS = time.Since(start).Milliseconds()
	r.meta.Timestamp = time.Now()

	return &Response{
		Recommendations: recs,
		Refined:         refined,
		SimilarUsers:    similar,
		Metadata:        r.meta,
	}, nil
}

// paramsFor applies request overrides to the configuration.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) paramsFor(req Request) params {
	p := params{
		scan:        e.config.ScanSubscriptions,
		poolSize:    e.config.CandidatePoolSize,
		outputCount: e.config.OutputCount,
	}
	if req.ScanSubscriptions > 0 {
		p.scan = req.ScanSubscriptions
	}
	if req.CandidatePoolSize > 0 {
		p.poolSize = req.CandidatePoolSize
	}
	if req.OutputCount > 0 {
		p.outputCount = req.OutputCount
	}
	return p
}

// stage times a pipeline stage and announces it to the progress reporter.
func (r *run) stage(name string, total int) func() {
	start := time.Now()
	if r.e.progress != nil {
		r.e.progress.StageStarted(name, total)
	}
	return func() {
		metrics.RecordStage(name, time.Since(start))
		if r.e.progress != nil {
			r.e.progress.StageFinished(name)
		}
	}
}

// progressFunc forwards batch progress to the reporter.
func (r *run) progressFunc(stage string) batch.ProgressFunc {
	if r.e.progress == nil || stage == "" {
		return nil
	}
	return func(done, _ int) {
		r.e.progress.StageProgress(stage, done)
	}
}

// isFatal classifies data source errors.
func (r *run) isFatal(err error) bool {
	if fc, ok := r.e.source.(FatalClassifier); ok {
		return fc.IsFatal(err)
	}
	return false
}

// callContext bounds a single data source call.
func (r *run) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.e.config.CallTimeout)
}

func (r *run) score(ctx context.Context, m *Matrix) float64 {
	defer r.stage(StageScore, m.NumRows()-1)()

	sum := ScoreRows(m)
	SortRows(m)
	r.meta.SumOfScores = sum

	logging.Ctx(ctx).Debug().
		Float64("sum_of_scores", sum).
		Int("rows", m.NumRows()).
		Msg("Scored candidate rows")
	return sum
}

func (r *run) rank(m *Matrix, sum float64) []ScoredPage {
	defer r.stage(StageRank, 0)()

	r.meta.KeptRows = PruneTail(m, r.e.config.KeepFraction)
	return RankPages(m, sum)
}
