// Pubrec - Community Recommendations from Shared Memberships
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pubrec

package recommend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/pubrec/internal/logging"
)

var errFatal = errors.New("connection lost")

// memberCall records one GetPageMembers call.
type memberCall struct {
	pageID int64
	offset int
	count  int
}

// fakeSource implements DataSource, SessionKeeper, UserDirectory and
// FatalClassifier from in-memory maps.
type fakeSource struct {
	refs     map[string]int64
	subs     map[int64]*SubscriptionList
	members  map[int64][]int64
	names    map[int64]string
	failSubs map[int64]bool
	failPage map[int64]error
	namesErr error

	mu           sync.Mutex
	memberCalls  []memberCall
	requestIDs   []string
	calls        atomic.Int64
	authCalls    atomic.Int64
	resolveCalls atomic.Int64
}

func (f *fakeSource) GetUserSubscriptions(ctx context.Context, userID int64, limit int) (*SubscriptionList, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.requestIDs = append(f.requestIDs, logging.RequestIDFromContext(ctx))
	f.mu.Unlock()
	if f.failSubs[userID] {
		return nil, fmt.Errorf("user %d: access denied", userID)
	}
	l, ok := f.subs[userID]
	if !ok {
		return &SubscriptionList{}, nil
	}
	items := l.Items
	if len(items) > limit {
		items = items[:limit]
	}
	return &SubscriptionList{TotalCount: l.TotalCount, Items: items}, nil
}

func (f *fakeSource) GetPageMembers(_ context.Context, pageID int64, offset, count int) (*MemberPage, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.memberCalls = append(f.memberCalls, memberCall{pageID: pageID, offset: offset, count: count})
	f.mu.Unlock()

	if err := f.failPage[pageID]; err != nil {
		return nil, err
	}
	all := f.members[pageID]
	if offset >= len(all) {
		return &MemberPage{TotalCount: len(all)}, nil
	}
	end := min(offset+count, len(all))
	return &MemberPage{TotalCount: len(all), UserIDs: all[offset:end]}, nil
}

func (f *fakeSource) ResolveProfileReference(_ context.Context, ref string) (int64, error) {
	f.calls.Add(1)
	f.resolveCalls.Add(1)
	id, ok := f.refs[ref]
	if !ok {
		return 0, ErrProfileNotFound
	}
	return id, nil
}

func (f *fakeSource) EnsureAuthenticated(context.Context) error {
	f.authCalls.Add(1)
	return nil
}

func (f *fakeSource) GetUserNames(_ context.Context, ids []int64) (map[int64]string, error) {
	if f.namesErr != nil {
		return nil, f.namesErr
	}
	out := make(map[int64]string, len(ids))
	for _, id := range ids {
		if n, ok := f.names[id]; ok {
			out[id] = n
		}
	}
	return out, nil
}

func (f *fakeSource) IsFatal(err error) bool {
	return errors.Is(err, errFatal)
}

func (f *fakeSource) memberCallsFor(pageID int64) []memberCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []memberCall
	for _, c := range f.memberCalls {
		if c.pageID == pageID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].offset < out[j].offset })
	return out
}

// Page ids used by the scenario.
const (
	seedID      = 1
	pageSeedA   = 10
	pageSeedB   = 11
	pageSeedC   = 12
	pageSmall   = 50
	pageMega    = 51
	pageUnknown = 52
)

func page(id int64, members int) Page {
	return Page{ID: id, Name: fmt.Sprintf("page %d", id), MemberCount: members}
}

// newScenario builds a seed following A, B, C and twenty candidates who are
// members of A and B. Half follow A, small, mega; half follow B, C, unknown.
func newScenario() *fakeSource {
	f := &fakeSource{
		refs:    map[string]int64{"vk.com/id1": seedID, "vk.com/seed": seedID},
		subs:    make(map[int64]*SubscriptionList),
		members: make(map[int64][]int64),
		names:   make(map[int64]string),
	}
	f.subs[seedID] = &SubscriptionList{TotalCount: 3, Items: []Page{
		page(pageSeedA, 5000), page(pageSeedB, 5000), page(pageSeedC, 5000),
	}}

	for i := int64(0); i < 20; i++ {
		uid := 100 + i
		f.members[pageSeedA] = append(f.members[pageSeedA], uid)
		f.members[pageSeedB] = append(f.members[pageSeedB], uid)
		f.names[uid] = fmt.Sprintf("User %d", uid)
		if i < 10 {
			f.subs[uid] = &SubscriptionList{TotalCount: 3, Items: []Page{
				page(pageSeedA, 5000), page(pageSmall, 5000), page(pageMega, 2000000),
			}}
		} else {
			f.subs[uid] = &SubscriptionList{TotalCount: 3, Items: []Page{
				page(pageSeedB, 5000), page(pageSeedC, 5000), page(pageUnknown, UnknownMemberCount),
			}}
		}
	}
	f.members[pageSeedA] = append(f.members[pageSeedA], seedID)
	f.members[pageUnknown] = []int64{7, 8, 9}
	return f
}

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.BatchDelay = 0
	cfg.CallTimeout = time.Second
	return cfg
}

func newTestEngine(t *testing.T, cfg *Config, src DataSource) *Engine {
	t.Helper()
	e, err := NewEngine(cfg, src, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return e
}

func TestNewEngine(t *testing.T) {
	t.Parallel()

	if _, err := NewEngine(nil, newScenario(), zerolog.Nop()); err != nil {
		t.Errorf("NewEngine(nil config) error = %v", err)
	}
	if _, err := NewEngine(nil, nil, zerolog.Nop()); err == nil {
		t.Error("NewEngine(nil source) succeeded, want error")
	}
	bad := DefaultConfig()
	bad.OutputCount = 0
	if _, err := NewEngine(bad, newScenario(), zerolog.Nop()); err == nil {
		t.Error("NewEngine(invalid config) succeeded, want error")
	}
}

func TestEngine_Recommend(t *testing.T) {
	t.Parallel()

	src := newScenario()
	e := newTestEngine(t, testConfig(), src)

	resp, err := e.Recommend(context.Background(), Request{ProfileRef: "vk.com/id1"})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}

	got := make([]int64, 0, len(resp.Recommendations))
	for i, r := range resp.Recommendations {
		got = append(got, r.PageID)
		if r.Rank != i+1 {
			t.Errorf("recommendation %d has rank %d", i, r.Rank)
		}
		if r.URL != FormatPageURL("vk.com", r.PageID) {
			t.Errorf("URL = %q", r.URL)
		}
	}
	if len(got) != 2 {
		t.Fatalf("recommendations = %v, want small and unknown pages", got)
	}
	for _, id := range got {
		switch id {
		case pageSeedA, pageSeedB, pageSeedC:
			t.Errorf("followed page %d recommended", id)
		case pageMega:
			t.Errorf("mega page recommended")
		}
	}
	if got[0] != pageSmall {
		t.Errorf("top page = %d, want %d", got[0], pageSmall)
	}
	if resp.Recommendations[1].MemberCount != 3 {
		t.Errorf("resolved member count = %d, want 3", resp.Recommendations[1].MemberCount)
	}

	for _, r := range resp.Refined {
		if r.PageID == pageMega || r.PageID == pageSeedA || r.PageID == pageSeedB || r.PageID == pageSeedC {
			t.Errorf("refined table contains page %d", r.PageID)
		}
	}

	meta := resp.Metadata
	if meta.SeedUserID != seedID {
		t.Errorf("SeedUserID = %d", meta.SeedUserID)
	}
	if meta.PoolSize != 20 || meta.Threshold != 1 {
		t.Errorf("pool = %d threshold = %d, want 20 and 1", meta.PoolSize, meta.Threshold)
	}
	if meta.MatrixRows != 21 {
		t.Errorf("MatrixRows = %d, want 21", meta.MatrixRows)
	}
	if meta.KeptRows != 15 {
		t.Errorf("KeptRows = %d, want 15", meta.KeptRows)
	}
	if meta.RequestID == "" {
		t.Error("RequestID not generated")
	}
	if src.authCalls.Load() != 2 {
		t.Errorf("EnsureAuthenticated called %d times, want 2", src.authCalls.Load())
	}

	if len(resp.SimilarUsers) == 0 || len(resp.SimilarUsers) > 10 {
		t.Fatalf("similar users = %d, want 1..10", len(resp.SimilarUsers))
	}
	for _, u := range resp.SimilarUsers {
		if u.Name != fmt.Sprintf("User %d", u.UserID) {
			t.Errorf("similar user %d name = %q", u.UserID, u.Name)
		}
		if u.URL != FormatUserURL("vk.com", u.UserID) {
			t.Errorf("similar user URL = %q", u.URL)
		}
	}

	if stats := e.Stats(); stats.RequestCount != 1 || stats.ErrorCount != 0 {
		t.Errorf("Stats() = %+v", stats)
	}
}

func TestEngine_Recommend_RequestIDInContext(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		id   string
	}{
		{"caller supplied", "rid-1"},
		{"generated", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src := newScenario()
			e := newTestEngine(t, testConfig(), src)

			resp, err := e.Recommend(context.Background(), Request{ProfileRef: "vk.com/id1", RequestID: tt.id})
			if err != nil {
				t.Fatalf("Recommend() error = %v", err)
			}
			want := resp.Metadata.RequestID
			if tt.id != "" && want != tt.id {
				t.Errorf("Metadata.RequestID = %q, want %q", want, tt.id)
			}
			if want == "" {
				t.Fatal("Metadata.RequestID is empty")
			}

			src.mu.Lock()
			defer src.mu.Unlock()
			if len(src.requestIDs) == 0 {
				t.Fatal("GetUserSubscriptions never called")
			}
			for i, got := range src.requestIDs {
				if got != want {
					t.Errorf("call %d saw request id %q, want %q", i, got, want)
				}
			}
		})
	}
}

func TestEngine_Recommend_NumericReferenceSkipsResolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ref          string
		wantResolves int64
	}{
		{"vk.com/id1", 0},
		{"https://vk.com/id1", 0},
		{"vk.com/seed", 1},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			t.Parallel()

			src := newScenario()
			e := newTestEngine(t, testConfig(), src)

			resp, err := e.Recommend(context.Background(), Request{ProfileRef: tt.ref})
			if err != nil {
				t.Fatalf("Recommend() error = %v", err)
			}
			if resp.Metadata.SeedUserID != seedID {
				t.Errorf("SeedUserID = %d, want %d", resp.Metadata.SeedUserID, seedID)
			}
			if n := src.resolveCalls.Load(); n != tt.wantResolves {
				t.Errorf("ResolveProfileReference called %d times, want %d", n, tt.wantResolves)
			}
		})
	}
}

func TestEngine_Recommend_Deterministic(t *testing.T) {
	t.Parallel()

	run := func() *Response {
		e := newTestEngine(t, testConfig(), newScenario())
		resp, err := e.Recommend(context.Background(), Request{ProfileRef: "vk.com/seed", RequestID: "fixed"})
		if err != nil {
			t.Fatalf("Recommend() error = %v", err)
		}
		return resp
	}

	first := run()
	for i := 0; i < 5; i++ {
		again := run()
		if fmt.Sprint(first.Recommendations) != fmt.Sprint(again.Recommendations) {
			t.Fatalf("run %d: %v != %v", i, again.Recommendations, first.Recommendations)
		}
		if fmt.Sprint(first.SimilarUsers) != fmt.Sprint(again.SimilarUsers) {
			t.Fatalf("run %d: similar users differ", i)
		}
	}
}

func TestEngine_Recommend_RejectsBeforeCalls(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		req     Request
		wantErr error
	}{
		{"empty ref", Request{}, ErrInvalidRequest},
		{"malformed ref", Request{ProfileRef: "not a profile"}, ErrInvalidRequest},
		{"unsupported host", Request{ProfileRef: "example.com/id1"}, ErrInvalidProfileReference},
		{"zero id", Request{ProfileRef: "vk.com/id0"}, ErrInvalidProfileReference},
		{"negative count", Request{ProfileRef: "vk.com/id1", OutputCount: -1}, ErrInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src := newScenario()
			e := newTestEngine(t, testConfig(), src)

			_, err := e.Recommend(context.Background(), tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if n := src.calls.Load(); n != 0 {
				t.Errorf("data source called %d times before rejection", n)
			}
		})
	}
}

func TestEngine_Recommend_ToleratesFailures(t *testing.T) {
	t.Parallel()

	src := newScenario()
	src.failSubs = map[int64]bool{100: true, 115: true}
	src.namesErr = errors.New("names unavailable")
	e := newTestEngine(t, testConfig(), src)

	resp, err := e.Recommend(context.Background(), Request{ProfileRef: "vk.com/id1"})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if resp.Metadata.MatrixRows != 21 {
		t.Errorf("MatrixRows = %d, want 21 (failed candidates kept as zero rows)", resp.Metadata.MatrixRows)
	}
	if resp.Metadata.FailedCalls < 3 {
		t.Errorf("FailedCalls = %d, want at least 3", resp.Metadata.FailedCalls)
	}
	for _, u := range resp.SimilarUsers {
		if u.Name != "" || u.URL == "" {
			t.Errorf("similar user %+v, want URL only", u)
		}
	}
	if len(resp.Recommendations) == 0 {
		t.Error("no recommendations after partial failure")
	}
}

func TestEngine_Recommend_FatalError(t *testing.T) {
	t.Parallel()

	src := newScenario()
	src.failPage = map[int64]error{pageSeedB: errFatal}
	e := newTestEngine(t, testConfig(), src)

	_, err := e.Recommend(context.Background(), Request{ProfileRef: "vk.com/id1"})
	if !errors.Is(err, errFatal) {
		t.Fatalf("error = %v, want %v", err, errFatal)
	}
	if stats := e.Stats(); stats.ErrorCount != 1 {
		t.Errorf("ErrorCount = %d, want 1", stats.ErrorCount)
	}
}

func TestEngine_Recommend_NoSubscriptions(t *testing.T) {
	t.Parallel()

	src := newScenario()
	src.subs[seedID] = &SubscriptionList{TotalCount: 2, Items: []Page{{ID: 1}, {ID: 2}}}
	e := newTestEngine(t, testConfig(), src)

	if _, err := e.Recommend(context.Background(), Request{ProfileRef: "vk.com/id1"}); !errors.Is(err, ErrNoSubscriptions) {
		t.Fatalf("error = %v, want ErrNoSubscriptions", err)
	}
}

func TestEngine_Recommend_ProfileNotFound(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, testConfig(), newScenario())
	if _, err := e.Recommend(context.Background(), Request{ProfileRef: "vk.com/nobody"}); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("error = %v, want ErrProfileNotFound", err)
	}
}

func TestEngine_Recommend_PagesThroughMembers(t *testing.T) {
	t.Parallel()

	src := newScenario()
	for i := int64(0); i < 2500; i++ {
		src.members[pageSeedC] = append(src.members[pageSeedC], 10000+i)
	}

	cfg := testConfig()
	cfg.MaxMembersPerPage = 2000
	e := newTestEngine(t, cfg, src)

	if _, err := e.Recommend(context.Background(), Request{ProfileRef: "vk.com/id1"}); err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}

	calls := src.memberCallsFor(pageSeedC)
	want := []memberCall{
		{pageID: pageSeedC, offset: 0, count: 1000},
		{pageID: pageSeedC, offset: 1000, count: 1000},
	}
	if fmt.Sprint(calls) != fmt.Sprint(want) {
		t.Errorf("member calls = %v, want %v", calls, want)
	}
}

func TestEngine_Recommend_OutputCount(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, testConfig(), newScenario())
	resp, err := e.Recommend(context.Background(), Request{ProfileRef: "vk.com/id1", OutputCount: 1})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(resp.Recommendations) != 1 {
		t.Errorf("recommendations = %d, want 1", len(resp.Recommendations))
	}
}

func TestEngine_Recommend_RefineDisabled(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.LowRankEnabled = false
	e := newTestEngine(t, cfg, newScenario())

	resp, err := e.Recommend(context.Background(), Request{ProfileRef: "vk.com/id1"})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if resp.Refined != nil || resp.Metadata.RankUsed != 0 {
		t.Errorf("refined = %v rank = %d, want none", resp.Refined, resp.Metadata.RankUsed)
	}
}

// recordingProgress records stage announcements.
type recordingProgress struct {
	mu      sync.Mutex
	started []string
	done    map[string]int
}

func (p *recordingProgress) StageStarted(stage string, _ int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started = append(p.started, stage)
}

func (p *recordingProgress) StageProgress(stage string, done int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done[stage] = done
}

func (p *recordingProgress) StageFinished(string) {}

func TestEngine_ProgressReporter(t *testing.T) {
	t.Parallel()

	progress := &recordingProgress{done: make(map[string]int)}
	e := newTestEngine(t, testConfig(), newScenario())
	e.SetProgressReporter(progress)

	if _, err := e.Recommend(context.Background(), Request{ProfileRef: "vk.com/id1"}); err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}

	want := []string{StageResolve, StageScan, StagePool, StageAssemble, StageScore, StageRank, StageOutput, StageRefine}
	if fmt.Sprint(progress.started) != fmt.Sprint(want) {
		t.Errorf("stages = %v, want %v", progress.started, want)
	}
	if progress.done[StageScan] != 3 {
		t.Errorf("scan progress = %d, want 3", progress.done[StageScan])
	}
	if progress.done[StageAssemble] != 20 {
		t.Errorf("assemble progress = %d, want 20", progress.done[StageAssemble])
	}
}
