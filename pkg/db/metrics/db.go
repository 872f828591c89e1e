// Package metrics implements the ClickHouse-backed metrics store: the raw
// snapshot read contract and the five sink tables the pipeline writes
// (daily deltas, accumulative totals, per-granularity rollups, summary cache).
//
// Every sink table is a ReplacingMergeTree(version) ordered by its natural
// unique key, so all writes are upserts: re-inserting a key with a newer
// version replaces the row once parts merge, and reads go through FINAL (or
// argMax) to observe the latest version. That is the only concurrency control
// the pipeline needs; the backfill sweep and the main run can race on the
// same keys and the last writer wins.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/socialpulse/pulsex/pkg/db/clickhouse"
	models "github.com/socialpulse/pulsex/pkg/db/models/metrics"
	"github.com/socialpulse/pulsex/pkg/utils"
	"go.uber.org/zap"
)

const (
	PostSnapshotsTable    = "post_snapshots"
	ProfileSnapshotsTable = "profile_snapshots"
	DailyDeltasTable      = "daily_deltas"
	TotalsTable           = "accumulative_totals"
	SummaryTable          = "summary_cache"
)

// RollupTables maps a granularity key to its rollup table.
var RollupTables = map[string]string{
	"weekly":    "rollups_weekly",
	"monthly":   "rollups_monthly",
	"quarterly": "rollups_quarterly",
	"yearly":    "rollups_yearly",
}

// DB is the ClickHouse metrics store.
type DB struct {
	clickhouse.Client
	Name string
}

// New connects to ClickHouse and ensures the metrics database and its tables
// exist. A missing CLICKHOUSE_ADDR aborts here, before any component writes.
func New(ctx context.Context, logger *zap.Logger) (*DB, error) {
	name := clickhouse.SanitizeName(utils.Env("METRICS_DB", "pulse_metrics"))

	client, err := clickhouse.New(ctx, logger, name)
	if err != nil {
		return nil, err
	}

	db := &DB{Client: client, Name: name}
	if err := db.InitializeDB(ctx); err != nil {
		return nil, fmt.Errorf("initialize metrics db: %w", err)
	}
	return db, nil
}

// DatabaseName returns the metrics database name.
func (db *DB) DatabaseName() string {
	return db.Name
}

// Close terminates the underlying ClickHouse connection.
func (db *DB) Close() error {
	return db.Db.Close()
}

func (db *DB) table(name string) string {
	return fmt.Sprintf("%q.%q", db.Name, name)
}

// InitializeDB creates the database and every table the pipeline touches.
// The snapshot tables belong to the capture product; they are created here
// with IF NOT EXISTS only so local and test environments work out of the box,
// and the pipeline never inserts into them.
func (db *DB) InitializeDB(ctx context.Context) error {
	if err := db.Exec(ctx, fmt.Sprintf(`CREATE DATABASE IF NOT EXISTS %q`, db.Name)); err != nil {
		return fmt.Errorf("create database %s: %w", db.Name, err)
	}

	if err := db.initSnapshots(ctx); err != nil {
		return err
	}
	if err := db.initDeltas(ctx); err != nil {
		return err
	}
	if err := db.initTotals(ctx); err != nil {
		return err
	}
	if err := db.initRollups(ctx); err != nil {
		return err
	}
	return db.initSummaries(ctx)
}

func (db *DB) initSnapshots(ctx context.Context) error {
	postQuery := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			owner_id String,
			post_id String,
			post_created_at DateTime,
			captured_at DateTime,
			impressions Int64,
			reactions Int64,
			comments Int64,
			reposts Int64,
			saves Int64,
			sends Int64,
			engagement_rate Nullable(Float64)
		) ENGINE = %s
		ORDER BY (owner_id, post_id, captured_at)
	`, db.table(PostSnapshotsTable), clickhouse.MergeTree)
	if err := db.Exec(ctx, postQuery); err != nil {
		return fmt.Errorf("create %s: %w", PostSnapshotsTable, err)
	}

	profileQuery := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			owner_id String,
			captured_at DateTime,
			followers Int64,
			profile_views Int64,
			search_appearances Int64
		) ENGINE = %s
		ORDER BY (owner_id, captured_at)
	`, db.table(ProfileSnapshotsTable), clickhouse.MergeTree)
	if err := db.Exec(ctx, profileQuery); err != nil {
		return fmt.Errorf("create %s: %w", ProfileSnapshotsTable, err)
	}

	return nil
}

func (db *DB) initDeltas(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			owner_id String,
			entity_type LowCardinality(String),
			entity_id String,
			date Date,
			%s,
			engagement_rate Nullable(Float64),
			phase Int8,
			version UInt64
		) ENGINE = %s(version)
		ORDER BY (owner_id, entity_type, entity_id, date)
	`, db.table(DailyDeltasTable), models.ColumnsToSchemaSQL(models.MetricColumns), clickhouse.ReplacingMergeTree)
	if err := db.Exec(ctx, query); err != nil {
		return fmt.Errorf("create %s: %w", DailyDeltasTable, err)
	}
	return nil
}

func (db *DB) initTotals(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			owner_id String,
			entity_type LowCardinality(String),
			entity_id String,
			date Date,
			%s,
			version UInt64
		) ENGINE = %s(version)
		ORDER BY (owner_id, entity_type, entity_id, date)
	`, db.table(TotalsTable), models.ColumnsToSchemaSQL(models.MetricColumns), clickhouse.ReplacingMergeTree)
	if err := db.Exec(ctx, query); err != nil {
		return fmt.Errorf("create %s: %w", TotalsTable, err)
	}
	return nil
}

func (db *DB) initRollups(ctx context.Context) error {
	for _, table := range RollupTables {
		query := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				owner_id String,
				entity_type LowCardinality(String),
				entity_id String,
				period_start Date,
				%s,
				engagement_rate Nullable(Float64),
				is_finalized UInt8,
				phase Int8,
				version UInt64
			) ENGINE = %s(version)
			ORDER BY (owner_id, entity_type, entity_id, period_start)
		`, db.table(table), models.ColumnsToSchemaSQL(models.MetricColumns), clickhouse.ReplacingMergeTree)
		if err := db.Exec(ctx, query); err != nil {
			return fmt.Errorf("create %s: %w", table, err)
		}
	}
	return nil
}

func (db *DB) initSummaries(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			owner_id String,
			metric LowCardinality(String),
			period LowCardinality(String),
			current_total Float64,
			current_avg Float64,
			current_count Int64,
			comparison_total Float64,
			comparison_avg Float64,
			comparison_count Int64,
			pct_change Float64,
			suppressed UInt8,
			cumulative_total Nullable(Float64),
			timeseries String,
			computed_at DateTime,
			version UInt64
		) ENGINE = %s(version)
		ORDER BY (owner_id, metric, period)
	`, db.table(SummaryTable), clickhouse.ReplacingMergeTree)
	if err := db.Exec(ctx, query); err != nil {
		return fmt.Errorf("create %s: %w", SummaryTable, err)
	}
	return nil
}

func formatDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
