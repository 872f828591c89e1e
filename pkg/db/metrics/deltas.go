package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	models "github.com/socialpulse/pulsex/pkg/db/models/metrics"
)

// InsertDailyDeltas batch-upserts daily delta rows. The ReplacingMergeTree
// key (owner, entity_type, entity, date) makes the write idempotent under
// re-runs of the same step.
func (db *DB) InsertDailyDeltas(ctx context.Context, rows []*models.DailyDelta) error {
	if len(rows) == 0 {
		return nil
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (owner_id, entity_type, entity_id, date, impressions, reactions, comments, reposts, saves, sends, followers, profile_views, search_appearances, engagement_rate, phase, version) VALUES`,
		db.table(DailyDeltasTable),
	)
	batch, err := db.PrepareBatch(ctx, query)
	if err != nil {
		return err
	}
	defer func(batch driver.Batch) {
		_ = batch.Abort()
	}(batch)

	for _, row := range rows {
		args := []interface{}{row.OwnerID, row.EntityType, row.EntityID, row.Date}
		for _, v := range row.Gained.Values() {
			args = append(args, v)
		}
		args = append(args, row.EngagementRate, row.Phase, row.Version)
		if err = batch.Append(args...); err != nil {
			return err
		}
	}

	return batch.Send()
}

// Owners returns every owner with at least one daily delta row.
func (db *DB) Owners(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf(`SELECT DISTINCT owner_id FROM %s`, db.table(DailyDeltasTable))

	var rows []struct {
		OwnerID string `ch:"owner_id"`
	}
	if err := db.Select(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list owners: %w", err)
	}

	owners := make([]string, 0, len(rows))
	for _, row := range rows {
		owners = append(owners, row.OwnerID)
	}
	return owners, nil
}

// OwnerDeltaHistory returns the owner's daily gains since the given date,
// summed across all of the owner's entities, date ascending. This is the
// input of the summary precomputation.
func (db *DB) OwnerDeltaHistory(ctx context.Context, ownerID string, from time.Time) ([]models.DeltaPoint, error) {
	query := fmt.Sprintf(`
		SELECT
			date,
			sum(impressions)        AS impressions,
			sum(reactions)          AS reactions,
			sum(comments)           AS comments,
			sum(reposts)            AS reposts,
			sum(saves)              AS saves,
			sum(sends)              AS sends,
			sum(followers)          AS followers,
			sum(profile_views)      AS profile_views,
			sum(search_appearances) AS search_appearances
		FROM %s FINAL
		WHERE owner_id = ? AND date >= toDate(?)
		GROUP BY date
		ORDER BY date
	`, db.table(DailyDeltasTable))

	var rows []models.DeltaPoint
	if err := db.Select(ctx, &rows, query, ownerID, formatDate(from)); err != nil {
		return nil, fmt.Errorf("owner delta history: %w", err)
	}
	return rows, nil
}

// OwnerCumulativeTotals returns the owner's all-time summed gains per metric.
// By the accumulative invariant this equals the owner's current running totals.
func (db *DB) OwnerCumulativeTotals(ctx context.Context, ownerID string) (models.MetricSet, error) {
	query := fmt.Sprintf(`
		SELECT
			sum(impressions)        AS impressions,
			sum(reactions)          AS reactions,
			sum(comments)           AS comments,
			sum(reposts)            AS reposts,
			sum(saves)              AS saves,
			sum(sends)              AS sends,
			sum(followers)          AS followers,
			sum(profile_views)      AS profile_views,
			sum(search_appearances) AS search_appearances
		FROM %s FINAL
		WHERE owner_id = ?
	`, db.table(DailyDeltasTable))

	var rows []models.DeltaPoint
	if err := db.Select(ctx, &rows, query, ownerID); err != nil {
		return models.MetricSet{}, fmt.Errorf("owner cumulative totals: %w", err)
	}
	if len(rows) == 0 {
		return models.MetricSet{}, nil
	}
	return rows[0].Metrics(), nil
}
