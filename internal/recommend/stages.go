// Pubrec - Community Recommendations from Shared Memberships
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pubrec

package recommend

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"github.com/tomtom215/pubrec/internal/batch"
	"github.com/tomtom215/pubrec/internal/logging"
	"github.com/tomtom215/pubrec/internal/metrics"
)

// StageScanChunks is the second scan pass over member list offsets.
const StageScanChunks = "scan_chunks"

// memberChunk identifies one member list request.
type memberChunk struct {
	pageID int64
	offset int
}

// batchOptions returns window settings for an operation. An empty stage
// disables progress reporting.
func (r *run) batchOptions(operation, stage string) batch.Options {
	cfg := r.e.config
	return batch.Options{
		Operation:   operation,
		Window:      cfg.BatchWindow,
		Delay:       cfg.BatchDelay,
		CallTimeout: cfg.CallTimeout,
		IsFatal:     r.isFatal,
		Progress:    r.progressFunc(stage),
	}
}

// resolve turns the profile reference into the seed user id. Numeric
// references carry the id and need no lookup.
func (r *run) resolve(ctx context.Context, raw string, ref ProfileReference) (int64, error) {
	defer r.stage(StageResolve, 0)()

	if ref.IsNumeric() {
		logging.Ctx(ctx).Debug().Int64("seed_id", ref.UserID).Msg("Seed taken from reference")
		return ref.UserID, nil
	}

	callCtx, cancel := r.callContext(ctx)
	defer cancel()

	id, err := r.e.source.ResolveProfileReference(callCtx, raw)
	if err != nil {
		return 0, fmt.Errorf("resolve profile %q: %w", raw, err)
	}
	if id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrProfileNotFound, raw)
	}

	logging.Ctx(ctx).Debug().Int64("seed_id", id).Msg("Seed resolved")
	return id, nil
}

// ensureAuthenticated refreshes the data source session when supported.
func (r *run) ensureAuthenticated(ctx context.Context) error {
	keeper, ok := r.e.source.(SessionKeeper)
	if !ok {
		return nil
	}
	if err := keeper.EnsureAuthenticated(ctx); err != nil {
		return fmt.Errorf("ensure authenticated: %w", err)
	}
	return nil
}

// seedSubscriptions fetches the seed's list. Failure here is fatal.
func (r *run) seedSubscriptions(ctx context.Context, seedID int64) (*SubscriptionList, error) {
	callCtx, cancel := r.callContext(ctx)
	defer cancel()

	subs, err := r.e.source.GetUserSubscriptions(callCtx, seedID, r.e.config.SubscriptionsLimit)
	if err != nil {
		return nil, fmt.Errorf("fetch seed subscriptions: %w", err)
	}

	named := 0
	if subs != nil {
		named = lo.CountBy(subs.Items, func(p Page) bool { return p.Name != "" })
	}
	if named == 0 {
		return nil, fmt.Errorf("%w: user %d", ErrNoSubscriptions, seedID)
	}
	r.meta.SeedSubscriptions = named
	return subs, nil
}

// scanTargets returns the ids of the first k named pages of the list.
func scanTargets(subs *SubscriptionList, k int) []int64 {
	ids := make([]int64, 0, k)
	seen := make(map[int64]struct{}, k)
	for _, p := range subs.Items {
		if len(ids) == k {
			break
		}
		if p.Name == "" {
			continue
		}
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		ids = append(ids, p.ID)
	}
	return ids
}

// scanMembers collects the member ids of the given pages.
//
// The first chunk of every page is fetched first to learn the totals, then
// the remaining offsets are fetched up to MaxMembersPerPage.
func (r *run) scanMembers(ctx context.Context, pages []int64) (map[int64][]int64, error) {
	cfg := r.e.config
	src := r.e.source

	done := r.stage(StageScan, len(pages))
	first, err := batch.Run(ctx, pages, r.batchOptions("member_scan", StageScan),
		func(ctx context.Context, pageID int64) (*MemberPage, error) {
			return src.GetPageMembers(ctx, pageID, 0, cfg.MemberPageSize)
		})
	done()
	r.meta.FailedCalls += len(first.Failed)
	if err != nil {
		return nil, fmt.Errorf("scan page members: %w", err)
	}

	members := make(map[int64][]int64, len(pages))
	var chunks []memberChunk
	for _, pageID := range pages {
		mp, ok := first.Values[pageID]
		if !ok || mp == nil {
			continue
		}
		members[pageID] = append(members[pageID], mp.UserIDs...)

		limit := min(mp.TotalCount, cfg.MaxMembersPerPage)
		for off := cfg.MemberPageSize; off < limit; off += cfg.MemberPageSize {
			chunks = append(chunks, memberChunk{pageID: pageID, offset: off})
		}
	}

	if len(chunks) > 0 {
		done = r.stage(StageScanChunks, len(chunks))
		rest, err := batch.Run(ctx, chunks, r.batchOptions("member_scan_chunks", StageScanChunks),
			func(ctx context.Context, c memberChunk) (*MemberPage, error) {
				count := min(cfg.MemberPageSize, cfg.MaxMembersPerPage-c.offset)
				return src.GetPageMembers(ctx, c.pageID, c.offset, count)
			})
		done()
		r.meta.FailedCalls += len(rest.Failed)
		if err != nil {
			return nil, fmt.Errorf("scan page members: %w", err)
		}
		for _, c := range chunks {
			if mp, ok := rest.Values[c]; ok && mp != nil {
				members[c.pageID] = append(members[c.pageID], mp.UserIDs...)
			}
		}
	}

	r.meta.ScannedPages = len(members)
	logging.Ctx(ctx).Debug().
		Int("pages", len(pages)).
		Int("scanned", len(members)).
		Int("chunks", len(chunks)).
		Msg("Member scan complete")
	return members, nil
}

// selectPool counts memberships and picks the candidate pool.
// The seed never enters its own pool.
func (r *run) selectPool(ctx context.Context, members map[int64][]int64, seedID int64) []int64 {
	defer r.stage(StagePool, 0)()

	freq := CountFrequencies(members)
	delete(freq, seedID)
	r.meta.DistinctMembers = len(freq)

	floor := min(r.e.config.MinPoolSize, r.params.poolSize)
	pool, threshold := SelectPool(freq, r.params.poolSize, floor)
	r.meta.PoolSize = len(pool)
	r.meta.Threshold = threshold
	metrics.RecordCandidatePool(len(pool), threshold)

	logger := logging.Ctx(ctx)
	if len(pool) < floor {
		logger.Warn().
			Int("pool", len(pool)).
			Int("floor", floor).
			Msg("Candidate pool below floor, continuing")
	}
	logger.Debug().
		Int("distinct_members", len(freq)).
		Int("pool", len(pool)).
		Int("threshold", threshold).
		Msg("Candidate pool selected")
	return pool
}

// assemble fetches candidate subscriptions and builds the rating matrix.
// A candidate whose fetch failed becomes a zero row.
func (r *run) assemble(ctx context.Context, seedID int64, seedSubs *SubscriptionList, pool []int64) (*Matrix, error) {
	defer r.stage(StageAssemble, len(pool))()

	cfg := r.e.config
	src := r.e.source
	res, err := batch.Run(ctx, pool, r.batchOptions("candidate_subscriptions", StageAssemble),
		func(ctx context.Context, userID int64) (*SubscriptionList, error) {
			return src.GetUserSubscriptions(ctx, userID, cfg.SubscriptionsLimit)
		})
	r.meta.FailedCalls += len(res.Failed)
	if err != nil {
		return nil, fmt.Errorf("fetch candidate subscriptions: %w", err)
	}

	m := NewMatrix(seedID, seedSubs)
	for _, userID := range pool {
		if userID == seedID {
			continue
		}
		m.AddRow(userID, res.Values[userID])
	}

	r.meta.MatrixRows = m.NumRows()
	r.meta.MatrixColumns = m.NumColumns()
	metrics.RecordMatrix(m.NumRows(), m.NumColumns())
	return m, nil
}

// similarUsers returns the top candidates by score. Rows must be sorted.
// Names are looked up when the data source supports it; a failed lookup
// leaves names empty.
func (r *run) similarUsers(ctx context.Context, m *Matrix) []SimilarUser {
	n := r.e.config.SimilarUsers
	if n == 0 {
		return nil
	}

	site := r.e.config.Site
	top := make([]SimilarUser, 0, n)
	for _, row := range m.Candidates() {
		if len(top) == n || row.Score <= 0 {
			break
		}
		top = append(top, SimilarUser{
			UserID: row.UserID,
			URL:    FormatUserURL(site, row.UserID),
			Score:  row.Score,
		})
	}
	if len(top) == 0 {
		return nil
	}

	dir, ok := r.e.source.(UserDirectory)
	if !ok {
		return top
	}

	callCtx, cancel := r.callContext(ctx)
	defer cancel()

	names, err := dir.GetUserNames(callCtx, lo.Map(top, func(u SimilarUser, _ int) int64 { return u.UserID }))
	if err != nil {
		r.meta.FailedCalls++
		logging.Ctx(ctx).Warn().Err(err).Msg("User name lookup failed, showing URLs only")
		return top
	}
	for i := range top {
		top[i].Name = names[top[i].UserID]
	}
	return top
}

// selectOutput walks ranked pages in windows, resolving unknown member
// counts per window, and keeps pages with a known count below the
// mega-page ceiling until the output count is reached.
func (r *run) selectOutput(ctx context.Context, ranked []ScoredPage) ([]Recommendation, error) {
	cfg := r.e.config
	limit := r.params.outputCount
	out := make([]Recommendation, 0, limit)

	for _, window := range lo.Chunk(ranked, cfg.BatchWindow) {
		if len(out) >= limit {
			break
		}
		if err := r.resolveCounts(ctx, window); err != nil {
			return nil, err
		}
		for _, sp := range window {
			count, ok := r.memberCount(sp.Page)
			if !ok || count >= cfg.MegaPageMembers {
				continue
			}
			out = append(out, Recommendation{
				Rank:        len(out) + 1,
				PageID:      sp.Page.ID,
				Name:        sp.Page.Name,
				URL:         FormatPageURL(cfg.Site, sp.Page.ID),
				Score:       sp.Score,
				MemberCount: count,
			})
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// memberCount returns a page's member count if known.
func (r *run) memberCount(p Page) (int, bool) {
	if p.MemberCount != UnknownMemberCount {
		return p.MemberCount, true
	}
	c, ok := r.counts[p.ID]
	return c, ok
}

// resolveCounts looks up member counts not reported with the pages.
// Each page is looked up at most once per request.
func (r *run) resolveCounts(ctx context.Context, window []ScoredPage) error {
	var ids []int64
	for _, sp := range window {
		if sp.Page.MemberCount != UnknownMemberCount {
			continue
		}
		if _, tried := r.lookedUp[sp.Page.ID]; tried {
			continue
		}
		r.lookedUp[sp.Page.ID] = struct{}{}
		ids = append(ids, sp.Page.ID)
	}
	if len(ids) == 0 {
		return nil
	}

	if dir, ok := r.e.source.(PageDirectory); ok {
		callCtx, cancel := r.callContext(ctx)
		counts, err := dir.GetPageMemberCounts(callCtx, ids)
		cancel()
		if err == nil {
			for id, c := range counts {
				r.counts[id] = c
			}
			return nil
		}
		if r.isFatal(err) || ctx.Err() != nil {
			return fmt.Errorf("resolve member counts: %w", err)
		}
		logging.Ctx(ctx).Debug().Err(err).Msg("Bulk member count lookup failed, falling back")
	}

	src := r.e.source
	res, err := batch.Run(ctx, ids, r.batchOptions("member_counts", ""),
		func(ctx context.Context, pageID int64) (int, error) {
			mp, err := src.GetPageMembers(ctx, pageID, 0, 1)
			if err != nil {
				return 0, err
			}
			if mp == nil {
				return 0, fmt.Errorf("page %d: empty member response", pageID)
			}
			return mp.TotalCount, nil
		})
	r.meta.FailedCalls += len(res.Failed)
	for id, c := range res.Values {
		r.counts[id] = c
	}
	if err != nil {
		return fmt.Errorf("resolve member counts: %w", err)
	}
	return nil
}

// refine produces the low-rank table. A decomposition that cannot succeed
// at any rank skips the table.
func (r *run) refine(ctx context.Context, m *Matrix) ([]Recommendation, error) {
	defer r.stage(StageRefine, 0)()

	ranked, k, err := Refine(m, r.e.config.LowRank)
	if err != nil {
		metrics.LowRankUsed.Set(0)
		if IsRankError(err) {
			logging.Ctx(ctx).Info().Err(err).Msg("Low-rank refinement skipped, matrix too small or degenerate")
		} else {
			logging.Ctx(ctx).Warn().Err(err).Msg("Low-rank refinement skipped")
		}
		return nil, nil
	}
	r.meta.RankUsed = k
	metrics.LowRankUsed.Set(float64(k))

	logging.Ctx(ctx).Debug().Int("rank", k).Msg("Low-rank refinement complete")
	return r.selectOutput(ctx, ranked)
}
