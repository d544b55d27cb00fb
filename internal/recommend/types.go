// Pubrec - Community Recommendations from Shared Memberships
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pubrec

package recommend

import (
	"context"
	"errors"
	"time"
)

// UnknownMemberCount marks a page whose member count was not reported.
const UnknownMemberCount = -1

// Sentinel errors returned by the engine.
var (
	// ErrInvalidRequest wraps request validation failures.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrInvalidProfileReference is returned for references that are not
	// of the form site/id<digits> or site/<alias>.
	ErrInvalidProfileReference = errors.New("invalid profile reference")

	// ErrProfileNotFound is returned when a reference resolves to no user.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrNoSubscriptions is returned when the seed user follows no named pages.
	ErrNoSubscriptions = errors.New("seed user has no visible subscriptions")

	// ErrRankTooLarge is returned when the requested decomposition rank is
	// not below the smaller matrix dimension.
	ErrRankTooLarge = errors.New("rank exceeds matrix dimensions")

	// ErrDecompositionFailed is returned when the factorization does not converge.
	ErrDecompositionFailed = errors.New("singular value decomposition failed")
)

// Page is a public page or community.
type Page struct {
	// ID is the page identifier.
	ID int64 `json:"id"`

	// Name is the display name. Items without a name are skipped.
	Name string `json:"name"`

	// MemberCount is UnknownMemberCount when the source did not report it.
	MemberCount int `json:"member_count"`
}

// SubscriptionList is a user's followed pages, most prominent first.
type SubscriptionList struct {
	// TotalCount is the size of the user's full list and may exceed len(Items).
	TotalCount int `json:"total_count"`

	// Items holds the fetched pages in source order.
	Items []Page `json:"items"`
}

// MemberPage is one chunk of a page's member list.
type MemberPage struct {
	// TotalCount is the page's total member count.
	TotalCount int `json:"total_count"`

	// UserIDs holds the chunk's member ids.
	UserIDs []int64 `json:"user_ids"`
}

// DataSource is the narrow capability the pipeline needs from the social network.
// Implementations must be safe for concurrent use.
type DataSource interface {
	// GetUserSubscriptions returns up to limit followed pages for a user.
	GetUserSubscriptions(ctx context.Context, userID int64, limit int) (*SubscriptionList, error)

	// GetPageMembers returns count member ids starting at offset.
	GetPageMembers(ctx context.Context, pageID int64, offset, count int) (*MemberPage, error)

	// ResolveProfileReference resolves a site/id<digits> or site/<alias> reference.
	ResolveProfileReference(ctx context.Context, reference string) (int64, error)
}

// SessionKeeper is implemented by data sources that hold an authenticated session.
// EnsureAuthenticated must be idempotent.
type SessionKeeper interface {
	EnsureAuthenticated(ctx context.Context) error
}

// UserDirectory is implemented by data sources that can name users.
type UserDirectory interface {
	GetUserNames(ctx context.Context, userIDs []int64) (map[int64]string, error)
}

// PageDirectory is implemented by data sources that can report member counts in bulk.
type PageDirectory interface {
	GetPageMemberCounts(ctx context.Context, pageIDs []int64) (map[int64]int, error)
}

// FatalClassifier is implemented by data sources whose errors may require
// aborting a request instead of skipping the failed call.
type FatalClassifier interface {
	IsFatal(err error) bool
}

// ProgressReporter receives stage progress.
type ProgressReporter interface {
	// StageStarted announces a stage with a known number of steps.
	StageStarted(stage string, total int)

	// StageProgress reports completed steps for the current stage.
	StageProgress(stage string, done int)

	// StageFinished closes the stage.
	StageFinished(stage string)
}

// Request is a single recommendation request.
type Request struct {
	// ProfileRef is the human-entered profile reference (vk.com/id1, vk.com/alias).
	ProfileRef string `json:"profile_ref" validate:"required,profileref"`

	// ScanSubscriptions overrides Config.ScanSubscriptions when positive.
	ScanSubscriptions int `json:"scan_subscriptions,omitempty" validate:"min=0,max=1000"`

	// CandidatePoolSize overrides Config.CandidatePoolSize when positive.
	CandidatePoolSize int `json:"candidate_pool_size,omitempty" validate:"min=0,max=100000"`

	// OutputCount overrides Config.OutputCount when positive.
	OutputCount int `json:"output_count,omitempty" validate:"min=0,max=1000"`

	// RequestID is a unique identifier for tracing.
	RequestID string `json:"request_id,omitempty"`
}

// Recommendation is one row of an output table.
type Recommendation struct {
	// Rank is the 1-based position in the table.
	Rank int `json:"rank"`

	// PageID is the page identifier.
	PageID int64 `json:"page_id"`

	// Name is the display name.
	Name string `json:"name"`

	// URL is the canonical page URL (<site>/public<id>).
	URL string `json:"url"`

	// Score is the recommend score or the reconstructed rating.
	Score float64 `json:"score"`

	// MemberCount is the page's member count, if known.
	MemberCount int `json:"member_count"`
}

// SimilarUser is one row of the similar users table.
type SimilarUser struct {
	// UserID is the candidate user.
	UserID int64 `json:"user_id"`

	// Name is "First Last", empty when the lookup failed.
	Name string `json:"name,omitempty"`

	// URL is the canonical profile URL (<site>/id<id>).
	URL string `json:"url"`

	// Score is the pearson score.
	Score float64 `json:"score"`
}

// Response is the result of a recommendation request.
type Response struct {
	// Recommendations is the correlation-based table.
	Recommendations []Recommendation `json:"recommendations"`

	// Refined is the low-rank table, empty when the refinement was skipped.
	Refined []Recommendation `json:"refined,omitempty"`

	// SimilarUsers lists the most similar candidate users.
	SimilarUsers []SimilarUser `json:"similar_users,omitempty"`

	// Metadata contains timing and diagnostic information.
	Metadata ResponseMetadata `json:"metadata"`
}

// ResponseMetadata contains timing and diagnostic information.
type ResponseMetadata struct {
	// RequestID is the unique request identifier.
	RequestID string `json:"request_id"`

	// SeedUserID is the resolved seed user.
	SeedUserID int64 `json:"seed_user_id"`

	// SeedSubscriptions is the number of named pages the seed follows.
	SeedSubscriptions int `json:"seed_subscriptions"`

	// ScannedPages is the number of seed pages whose members were scanned.
	ScannedPages int `json:"scanned_pages"`

	// DistinctMembers is the number of distinct users found in scanned pages.
	DistinctMembers int `json:"distinct_members"`

	// PoolSize is the accepted candidate pool size.
	PoolSize int `json:"pool_size"`

	// Threshold is the accepted frequency threshold.
	Threshold int `json:"threshold"`

	// MatrixRows is the number of rows before pruning, seed included.
	MatrixRows int `json:"matrix_rows"`

	// MatrixColumns is the number of page columns.
	MatrixColumns int `json:"matrix_columns"`

	// KeptRows is the number of rows after pruning, seed included.
	KeptRows int `json:"kept_rows"`

	// SumOfScores is the sum of candidate pearson scores.
	SumOfScores float64 `json:"sum_of_scores"`

	// RankUsed is the rank accepted by the refinement, 0 when skipped.
	RankUsed int `json:"rank_used"`

	// FailedCalls counts data source calls that failed and were skipped.
	FailedCalls int `json:"failed_calls"`

	// LatencyMS is the total latency in milliseconds.
	LatencyMS int64 `json:"latency_ms"`

	// Timestamp is when the response was generated.
	Timestamp time.Time `json:"timestamp"`
}
