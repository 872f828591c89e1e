package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/socialpulse/pulsex/pkg/db"
	models "github.com/socialpulse/pulsex/pkg/db/models/metrics"
	"go.uber.org/zap"
)

// metricSums renders the summed metric column list shared by every rollup pass.
func metricSums() string {
	out := ""
	for _, name := range models.MetricNames {
		out += fmt.Sprintf("\t\t\tsum(%s) AS %s,\n", name, name)
	}
	return out
}

// ComputeRollup runs one aggregation pass entirely inside ClickHouse with an
// INSERT..SELECT..GROUP BY, the cheapest way to fold a whole tier at once.
//
// Weekly and monthly tiers re-sum daily delta rows in [periodStart,
// analysisDate]; quarterly and yearly tiers re-sum already persisted monthly
// rollups, so each tier depends only on the tier directly below it.
//
// The engagement rate is recomputed from the summed engagement counts over
// summed impressions, falling back to the latest stored rate when no
// impressions were gained. Keys already finalized for this period are
// excluded by the HAVING anti-join, so a closed period is never rewritten.
func (mdb *DB) ComputeRollup(ctx context.Context, pass db.RollupPass) error {
	target, ok := RollupTables[pass.Granularity]
	if !ok {
		return fmt.Errorf("unknown rollup granularity %q", pass.Granularity)
	}

	finalized := uint8(0)
	if pass.Finalize {
		finalized = 1
	}

	var query string
	switch pass.Granularity {
	case "weekly", "monthly":
		query = fmt.Sprintf(`
		INSERT INTO %[1]s (owner_id, entity_type, entity_id, period_start, impressions, reactions, comments, reposts, saves, sends, followers, profile_views, search_appearances, engagement_rate, is_finalized, phase, version)
		SELECT
			owner_id,
			entity_type,
			entity_id,
			toDate('%[3]s') AS bucket,
%[4]s			if(sum(impressions) > 0,
				(sum(reactions) + sum(comments) + sum(reposts) + sum(saves) + sum(sends)) / sum(impressions) * 100,
				argMax(engagement_rate, date)) AS rate,
			%[5]d             AS finalized,
			argMax(phase, date) AS last_phase,
			toUInt64(now64())   AS version
		FROM %[2]s FINAL
		WHERE date BETWEEN toDate('%[3]s') AND toDate('%[6]s')
		GROUP BY owner_id, entity_type, entity_id
		HAVING (owner_id, entity_type, entity_id) NOT IN (
			SELECT (owner_id, entity_type, entity_id)
			FROM %[1]s FINAL
			WHERE period_start = toDate('%[3]s') AND is_finalized = 1
		)
		`, mdb.table(target), mdb.table(DailyDeltasTable), formatDate(pass.PeriodStart), metricSums(), finalized, formatDate(pass.AnalysisDate))

	case "quarterly", "yearly":
		query = fmt.Sprintf(`
		INSERT INTO %[1]s (owner_id, entity_type, entity_id, period_start, impressions, reactions, comments, reposts, saves, sends, followers, profile_views, search_appearances, engagement_rate, is_finalized, phase, version)
		SELECT
			owner_id,
			entity_type,
			entity_id,
			toDate('%[3]s') AS bucket,
%[4]s			if(sum(impressions) > 0,
				(sum(reactions) + sum(comments) + sum(reposts) + sum(saves) + sum(sends)) / sum(impressions) * 100,
				argMax(engagement_rate, period_start)) AS rate,
			%[5]d                      AS finalized,
			argMax(phase, period_start) AS last_phase,
			toUInt64(now64())           AS version
		FROM %[2]s FINAL
		WHERE period_start BETWEEN toDate('%[3]s') AND toDate('%[6]s')
		GROUP BY owner_id, entity_type, entity_id
		HAVING (owner_id, entity_type, entity_id) NOT IN (
			SELECT (owner_id, entity_type, entity_id)
			FROM %[1]s FINAL
			WHERE period_start = toDate('%[3]s') AND is_finalized = 1
		)
		`, mdb.table(target), mdb.table(RollupTables["monthly"]), formatDate(pass.PeriodStart), metricSums(), finalized, formatDate(pass.AnalysisDate))
	}

	mdb.Logger.Debug("Running rollup pass",
		zap.String("granularity", pass.Granularity),
		zap.String("period_start", formatDate(pass.PeriodStart)),
		zap.Bool("finalize", pass.Finalize))

	if err := mdb.Exec(ctx, query); err != nil {
		return fmt.Errorf("rollup %s: %w", pass.Granularity, err)
	}
	return nil
}

// RollupsByOwner returns an owner's rollup rows of one granularity starting
// at or after the given period start, latest version of each row.
func (mdb *DB) RollupsByOwner(ctx context.Context, granularity, ownerID string, from time.Time) ([]models.PeriodRollup, error) {
	table, ok := RollupTables[granularity]
	if !ok {
		return nil, fmt.Errorf("unknown rollup granularity %q", granularity)
	}

	query := fmt.Sprintf(`
		SELECT owner_id, entity_type, entity_id, period_start,
			impressions, reactions, comments, reposts, saves, sends,
			followers, profile_views, search_appearances,
			engagement_rate, is_finalized, phase, version
		FROM %s FINAL
		WHERE owner_id = ? AND period_start >= toDate(?)
		ORDER BY entity_type, entity_id, period_start
	`, mdb.table(table))

	var rows []models.PeriodRollup
	if err := mdb.Select(ctx, &rows, query, ownerID, formatDate(from)); err != nil {
		return nil, fmt.Errorf("rollups by owner: %w", err)
	}
	return rows, nil
}

// RetagEntityPhase rewrites the stored phase tag on every persisted row of an
// entity: the daily tier plus all four rollup tiers. Totals are untouched;
// this is a filter-only attribute for downstream reads.
func (mdb *DB) RetagEntityPhase(ctx context.Context, ownerID, entityType, entityID string, phase int8) error {
	tables := []string{DailyDeltasTable}
	for _, t := range RollupTables {
		tables = append(tables, t)
	}

	for _, table := range tables {
		query := fmt.Sprintf(`
			ALTER TABLE %s
			UPDATE phase = ?
			WHERE owner_id = ? AND entity_type = ? AND entity_id = ?
		`, mdb.table(table))
		if err := mdb.Exec(ctx, query, phase, ownerID, entityType, entityID); err != nil {
			return fmt.Errorf("retag phase on %s: %w", table, err)
		}
	}
	return nil
}
