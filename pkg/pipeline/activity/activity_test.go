package activity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"
	"go.uber.org/zap/zaptest"

	"github.com/socialpulse/pulsex/pkg/db"
	models "github.com/socialpulse/pulsex/pkg/db/models/metrics"
	"github.com/socialpulse/pulsex/pkg/pipeline/phase"
	"github.com/socialpulse/pulsex/pkg/pipeline/types"
)

const analysisDay = "2026-08-25" // a Tuesday

func day(s string) time.Time {
	d, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		panic(err)
	}
	return d
}

func newTestContext(t *testing.T, store *fakeMetricsStore) *Context {
	t.Helper()
	return &Context{
		Logger:                zaptest.NewLogger(t),
		DB:                    store,
		SummaryMaxParallelism: 2,
	}
}

func execute(t *testing.T, fn interface{}) types.StepOutput {
	t.Helper()

	suite := testsuite.WorkflowTestSuite{}
	env := suite.NewTestActivityEnvironment()
	env.RegisterActivity(fn)

	val, err := env.ExecuteActivity(fn, types.StepInput{AnalysisDate: analysisDay})
	require.NoError(t, err)

	var out types.StepOutput
	require.NoError(t, val.Get(&out))
	return out
}

func TestComputeProfileDeltasBootstrapDeltaAndSkip(t *testing.T) {
	store := &fakeMetricsStore{
		profileSnapshots: []*models.ProfileSnapshot{
			{OwnerID: "owner-new", CapturedAt: day(analysisDay), Followers: 100, ProfileViews: 40},
			{OwnerID: "owner-flat", CapturedAt: day(analysisDay), Followers: 50},
			{OwnerID: "owner-grown", CapturedAt: day(analysisDay), Followers: 60, SearchAppearances: 3},
		},
		totals: map[string]map[db.TotalKey]models.MetricSet{
			models.EntityProfile: {
				{OwnerID: "owner-flat", EntityID: "owner-flat"}:     {Followers: 50},
				{OwnerID: "owner-grown", EntityID: "owner-grown"}:   {Followers: 55, SearchAppearances: 3},
				{OwnerID: "owner-absent", EntityID: "owner-absent"}: {Followers: 9},
			},
		},
	}
	ctx := newTestContext(t, store)

	out := execute(t, ctx.ComputeProfileDeltas)

	require.Equal(t, int64(2), out.Processed)
	require.Equal(t, int64(1), out.Skipped)
	require.Len(t, store.insertedDeltas, 2)
	require.Len(t, store.insertedTotals, 2)

	byOwner := map[string]*models.DailyDelta{}
	for _, d := range store.insertedDeltas {
		require.Equal(t, models.EntityProfile, d.EntityType)
		require.Equal(t, d.OwnerID, d.EntityID)
		require.Equal(t, day(analysisDay), d.Date)
		require.Equal(t, int8(phase.Daily), d.Phase)
		byOwner[d.OwnerID] = d
	}

	// First-ever profile bootstraps with its full value
	require.Equal(t, int64(100), byOwner["owner-new"].Gained.Followers)
	require.Equal(t, int64(40), byOwner["owner-new"].Gained.ProfileViews)
	// Known profile contributes only the gain
	require.Equal(t, int64(5), byOwner["owner-grown"].Gained.Followers)
	require.Equal(t, int64(0), byOwner["owner-grown"].Gained.SearchAppearances)

	// Totals baseline holds the absolute snapshot values
	for _, total := range store.insertedTotals {
		if total.OwnerID == "owner-grown" {
			require.Equal(t, int64(60), total.Totals.Followers)
		}
	}
}

func TestComputePostDeltasPhaseGating(t *testing.T) {
	store := &fakeMetricsStore{
		postSnapshots: []*models.PostSnapshot{
			{OwnerID: "o1", PostID: "fresh", PostCreatedAt: day("2026-08-20"), CapturedAt: day(analysisDay),
				Impressions: 200, Reactions: 6, Comments: 2, Saves: 2},
			// 60 days old: weekly phase, and the analysis day is not a Monday
			{OwnerID: "o1", PostID: "weekly", PostCreatedAt: day("2026-06-26"), CapturedAt: day(analysisDay),
				Impressions: 999},
			// Over a year old: inactive, never sampled
			{OwnerID: "o1", PostID: "ancient", PostCreatedAt: day("2025-05-01"), CapturedAt: day(analysisDay),
				Impressions: 5},
		},
	}
	ctx := newTestContext(t, store)

	out := execute(t, ctx.ComputePostDeltas)

	require.Equal(t, int64(1), out.Processed)
	require.Equal(t, int64(2), out.Skipped)
	require.Len(t, store.insertedDeltas, 1)

	d := store.insertedDeltas[0]
	require.Equal(t, "fresh", d.EntityID)
	require.Equal(t, models.EntityPost, d.EntityType)
	require.Equal(t, int8(phase.Daily), d.Phase)
	require.NotNil(t, d.EngagementRate)
	require.InDelta(t, 5.0, *d.EngagementRate, 1e-9)
}

func TestComputeWeeklyRollupFinalizesOnSunday(t *testing.T) {
	store := &fakeMetricsStore{}
	ctx := newTestContext(t, store)

	suite := testsuite.WorkflowTestSuite{}
	env := suite.NewTestActivityEnvironment()
	env.RegisterActivity(ctx.ComputeWeeklyRollups)

	_, err := env.ExecuteActivity(ctx.ComputeWeeklyRollups, types.StepInput{AnalysisDate: "2026-08-30"})
	require.NoError(t, err)

	require.Len(t, store.rollupPasses, 1)
	pass := store.rollupPasses[0]
	require.Equal(t, "weekly", pass.Granularity)
	require.Equal(t, day("2026-08-24"), pass.PeriodStart)
	require.Equal(t, day("2026-08-30"), pass.AnalysisDate)
	require.True(t, pass.Finalize)
}

func TestComputeMonthlyRollupMidMonthIsProvisional(t *testing.T) {
	store := &fakeMetricsStore{}
	ctx := newTestContext(t, store)

	out := execute(t, ctx.ComputeMonthlyRollups)

	require.Len(t, store.rollupPasses, 1)
	pass := store.rollupPasses[0]
	require.Equal(t, "monthly", pass.Granularity)
	require.Equal(t, day("2026-08-01"), pass.PeriodStart)
	require.False(t, pass.Finalize)
	require.GreaterOrEqual(t, out.DurationMs, 0.0)
}

func TestApplyPhaseTransitionsRetagsAndIsolatesFailures(t *testing.T) {
	store := &fakeMetricsStore{
		createdRefs: []models.PostRef{
			{OwnerID: "o1", PostID: "just-weekly", PostCreatedAt: day("2026-07-25")},  // age 31
			{OwnerID: "o1", PostID: "just-monthly", PostCreatedAt: day("2026-05-26")}, // age 91
			{OwnerID: "o1", PostID: "not-yet", PostCreatedAt: day("2026-07-26")},      // age 30
			{OwnerID: "o1", PostID: "broken", PostCreatedAt: day("2026-07-24")},       // age 32
		},
		retagErrFor: "broken",
	}
	ctx := newTestContext(t, store)

	out := execute(t, ctx.ApplyPhaseTransitions)

	require.Equal(t, int64(2), out.Processed)
	require.Equal(t, int64(1), out.Skipped)
	require.Equal(t, int64(1), out.Errored)

	require.Len(t, store.retags, 2)
	require.Equal(t, int8(phase.Weekly), store.retags["just-weekly"])
	require.Equal(t, int8(phase.Monthly), store.retags["just-monthly"])
}

func TestBackfillSeedDatesPostsAtCreation(t *testing.T) {
	store := &fakeMetricsStore{
		postCandidates: []*models.PostSnapshot{
			{OwnerID: "o1", PostID: "p1", PostCreatedAt: day("2026-08-10"), CapturedAt: day(analysisDay),
				Impressions: 500, Reactions: 20},
		},
		profileCandidates: []*models.ProfileSnapshot{
			{OwnerID: "o2", CapturedAt: day(analysisDay), Followers: 80},
		},
	}
	ctx := newTestContext(t, store)

	out := execute(t, ctx.BackfillSeed)

	require.Equal(t, int64(2), out.Processed)
	require.Len(t, store.insertedDeltas, 2)
	require.Len(t, store.insertedTotals, 2)

	post := store.insertedDeltas[0]
	require.Equal(t, "p1", post.EntityID)
	require.Equal(t, day("2026-08-10"), post.Date)
	require.Equal(t, int64(500), post.Gained.Impressions)
	require.Equal(t, int8(phase.Daily), post.Phase)

	profile := store.insertedDeltas[1]
	require.Equal(t, models.EntityProfile, profile.EntityType)
	require.Equal(t, day(analysisDay), profile.Date)
	require.Equal(t, int64(80), profile.Gained.Followers)
}

func TestPrecomputeSummariesWritesEveryMetricAndPeriod(t *testing.T) {
	history := make([]models.DeltaPoint, 0, 7)
	for i := 6; i >= 0; i-- {
		history = append(history, models.DeltaPoint{
			Date:        day(analysisDay).AddDate(0, 0, -i),
			Impressions: 10,
			Followers:   2,
		})
	}

	store := &fakeMetricsStore{
		owners:     []string{"o1"},
		history:    map[string][]models.DeltaPoint{"o1": history},
		cumulative: map[string]models.MetricSet{"o1": {Impressions: 5000}},
	}
	ctx := newTestContext(t, store)

	out := execute(t, ctx.PrecomputeSummaries)

	require.Equal(t, int64(1), out.Processed)
	require.Equal(t, int64(0), out.Errored)
	require.Len(t, store.insertedSummaries, len(models.SummaryPeriods)*len(models.MetricNames))

	var impressions7d *models.SummaryEntry
	for _, e := range store.insertedSummaries {
		if e.Metric == models.MetricImpressions && e.Period == "7d" {
			impressions7d = e
		}
	}
	require.NotNil(t, impressions7d)
	require.Equal(t, int64(7), impressions7d.CurrentCount)
	require.Equal(t, 70.0, impressions7d.CurrentTotal)
	// No comparison history at all: percent change is suppressed
	require.True(t, impressions7d.Suppressed)
	require.NotNil(t, impressions7d.CumulativeTotal)
	require.Equal(t, 5000.0, *impressions7d.CumulativeTotal)
	require.Len(t, impressions7d.Timeseries, 7)
}

func TestPrecomputeSummariesIsolatesBrokenOwner(t *testing.T) {
	store := &fakeMetricsStore{
		owners:     []string{"broken", "ok"},
		historyErr: map[string]error{"broken": errors.New("boom")},
		history:    map[string][]models.DeltaPoint{},
		cumulative: map[string]models.MetricSet{},
	}
	ctx := newTestContext(t, store)

	out := execute(t, ctx.PrecomputeSummaries)

	require.Equal(t, int64(1), out.Processed)
	require.Equal(t, int64(1), out.Errored)
}

// fakeMetricsStore is an in-memory MetricsStore for activity tests.
type fakeMetricsStore struct {
	mu sync.Mutex

	profileSnapshots  []*models.ProfileSnapshot
	postSnapshots     []*models.PostSnapshot
	postCandidates    []*models.PostSnapshot
	profileCandidates []*models.ProfileSnapshot
	createdRefs       []models.PostRef

	totals     map[string]map[db.TotalKey]models.MetricSet
	owners     []string
	history    map[string][]models.DeltaPoint
	historyErr map[string]error
	cumulative map[string]models.MetricSet

	insertedDeltas    []*models.DailyDelta
	insertedTotals    []*models.AccumulativeTotal
	insertedSummaries []*models.SummaryEntry
	rollupPasses      []db.RollupPass
	retags            map[string]int8
	retagErrFor       string
}

var _ db.MetricsStore = (*fakeMetricsStore)(nil)

func (f *fakeMetricsStore) DatabaseName() string       { return "pulse_metrics_test" }
func (f *fakeMetricsStore) Ping(context.Context) error { return nil }
func (f *fakeMetricsStore) Close() error               { return nil }

func (f *fakeMetricsStore) RecentPostSnapshots(context.Context, time.Time) ([]*models.PostSnapshot, int, error) {
	return f.postSnapshots, 0, nil
}

func (f *fakeMetricsStore) RecentProfileSnapshots(context.Context, time.Time) ([]*models.ProfileSnapshot, int, error) {
	return f.profileSnapshots, 0, nil
}

func (f *fakeMetricsStore) PostBackfillCandidates(context.Context) ([]*models.PostSnapshot, error) {
	return f.postCandidates, nil
}

func (f *fakeMetricsStore) ProfileBackfillCandidates(context.Context) ([]*models.ProfileSnapshot, error) {
	return f.profileCandidates, nil
}

func (f *fakeMetricsStore) PostsCreatedOn(context.Context, []time.Time) ([]models.PostRef, error) {
	return f.createdRefs, nil
}

func (f *fakeMetricsStore) InsertDailyDeltas(_ context.Context, rows []*models.DailyDelta) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertedDeltas = append(f.insertedDeltas, rows...)
	return nil
}

func (f *fakeMetricsStore) InsertTotals(_ context.Context, rows []*models.AccumulativeTotal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertedTotals = append(f.insertedTotals, rows...)
	return nil
}

func (f *fakeMetricsStore) InsertSummaries(_ context.Context, rows []*models.SummaryEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertedSummaries = append(f.insertedSummaries, rows...)
	return nil
}

func (f *fakeMetricsStore) ComputeRollup(_ context.Context, pass db.RollupPass) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rollupPasses = append(f.rollupPasses, pass)
	return nil
}

func (f *fakeMetricsStore) RetagEntityPhase(_ context.Context, _, _, entityID string, ph int8) error {
	if entityID == f.retagErrFor {
		return errors.New("retag failed")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.retags == nil {
		f.retags = map[string]int8{}
	}
	f.retags[entityID] = ph
	return nil
}

func (f *fakeMetricsStore) LatestTotals(_ context.Context, entityType string) (map[db.TotalKey]models.MetricSet, error) {
	if f.totals == nil {
		return map[db.TotalKey]models.MetricSet{}, nil
	}
	out := f.totals[entityType]
	if out == nil {
		out = map[db.TotalKey]models.MetricSet{}
	}
	return out, nil
}

func (f *fakeMetricsStore) Owners(context.Context) ([]string, error) {
	return f.owners, nil
}

func (f *fakeMetricsStore) OwnerDeltaHistory(_ context.Context, ownerID string, _ time.Time) ([]models.DeltaPoint, error) {
	if err := f.historyErr[ownerID]; err != nil {
		return nil, err
	}
	return f.history[ownerID], nil
}

func (f *fakeMetricsStore) OwnerCumulativeTotals(_ context.Context, ownerID string) (models.MetricSet, error) {
	return f.cumulative[ownerID], nil
}

func (f *fakeMetricsStore) RollupsByOwner(context.Context, string, string, time.Time) ([]models.PeriodRollup, error) {
	return nil, nil
}

func (f *fakeMetricsStore) GetSummary(context.Context, string, string, string) (*models.SummaryEntry, error) {
	return nil, nil
}
