package db

import (
	"context"
	"time"

	models "github.com/socialpulse/pulsex/pkg/db/models/metrics"
)

// TotalKey identifies one entity in the accumulative totals map.
type TotalKey struct {
	OwnerID  string
	EntityID string
}

// RollupPass describes one aggregation pass of a rollup tier: the granularity
// (weekly, monthly, quarterly, yearly), the period containing the analysis
// date, and whether the analysis date closes the period.
type RollupPass struct {
	Granularity  string
	PeriodStart  time.Time
	AnalysisDate time.Time
	Finalize     bool
}

// MetricsStore is the narrow storage contract the pipeline activities work
// against. The production implementation is ClickHouse-backed; tests swap in
// fakes. Snapshot reads are the only access the pipeline has to the capture
// product's tables, and they are read-only.
type MetricsStore interface {
	DatabaseName() string
	Ping(ctx context.Context) error
	Close() error

	// Snapshot read contract (read-only).
	RecentPostSnapshots(ctx context.Context, since time.Time) (valid []*models.PostSnapshot, dropped int, err error)
	RecentProfileSnapshots(ctx context.Context, since time.Time) (valid []*models.ProfileSnapshot, dropped int, err error)
	PostBackfillCandidates(ctx context.Context) ([]*models.PostSnapshot, error)
	ProfileBackfillCandidates(ctx context.Context) ([]*models.ProfileSnapshot, error)
	PostsCreatedOn(ctx context.Context, dates []time.Time) ([]models.PostRef, error)

	// Sink write contract: batched upserts keyed by natural unique keys.
	InsertDailyDeltas(ctx context.Context, rows []*models.DailyDelta) error
	InsertTotals(ctx context.Context, rows []*models.AccumulativeTotal) error
	InsertSummaries(ctx context.Context, rows []*models.SummaryEntry) error
	ComputeRollup(ctx context.Context, pass RollupPass) error
	RetagEntityPhase(ctx context.Context, ownerID, entityType, entityID string, phase int8) error

	// Reads over pipeline-owned tables.
	LatestTotals(ctx context.Context, entityType string) (map[TotalKey]models.MetricSet, error)
	Owners(ctx context.Context) ([]string, error)
	OwnerDeltaHistory(ctx context.Context, ownerID string, from time.Time) ([]models.DeltaPoint, error)
	OwnerCumulativeTotals(ctx context.Context, ownerID string) (models.MetricSet, error)
	RollupsByOwner(ctx context.Context, granularity, ownerID string, from time.Time) ([]models.PeriodRollup, error)
	GetSummary(ctx context.Context, ownerID, metric, periodName string) (*models.SummaryEntry, error)
}
