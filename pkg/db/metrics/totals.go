package metrics

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/socialpulse/pulsex/pkg/db"
	models "github.com/socialpulse/pulsex/pkg/db/models/metrics"
)

// InsertTotals batch-upserts accumulative total rows.
func (mdb *DB) InsertTotals(ctx context.Context, rows []*models.AccumulativeTotal) error {
	if len(rows) == 0 {
		return nil
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (owner_id, entity_type, entity_id, date, impressions, reactions, comments, reposts, saves, sends, followers, profile_views, search_appearances, version) VALUES`,
		mdb.table(TotalsTable),
	)
	batch, err := mdb.PrepareBatch(ctx, query)
	if err != nil {
		return err
	}
	defer func(batch driver.Batch) {
		_ = batch.Abort()
	}(batch)

	for _, row := range rows {
		args := []interface{}{row.OwnerID, row.EntityType, row.EntityID, row.Date}
		for _, v := range row.Totals.Values() {
			args = append(args, v)
		}
		args = append(args, row.Version)
		if err = batch.Append(args...); err != nil {
			return err
		}
	}

	return batch.Send()
}

// LatestTotals returns the most recent accumulative totals per entity of the
// given type, the baselines for the next delta computation. Absence of a key
// in the map means the entity has never been processed (bootstrap case).
func (mdb *DB) LatestTotals(ctx context.Context, entityType string) (map[db.TotalKey]models.MetricSet, error) {
	query := fmt.Sprintf(`
		SELECT
			owner_id,
			entity_id,
			argMax(impressions, date)        AS impressions,
			argMax(reactions, date)          AS reactions,
			argMax(comments, date)           AS comments,
			argMax(reposts, date)            AS reposts,
			argMax(saves, date)              AS saves,
			argMax(sends, date)              AS sends,
			argMax(followers, date)          AS followers,
			argMax(profile_views, date)      AS profile_views,
			argMax(search_appearances, date) AS search_appearances
		FROM %s FINAL
		WHERE entity_type = ?
		GROUP BY owner_id, entity_id
	`, mdb.table(TotalsTable))

	var rows []models.TotalPoint
	if err := mdb.Select(ctx, &rows, query, entityType); err != nil {
		return nil, fmt.Errorf("latest totals: %w", err)
	}

	out := make(map[db.TotalKey]models.MetricSet, len(rows))
	for i := range rows {
		out[db.TotalKey{OwnerID: rows[i].OwnerID, EntityID: rows[i].EntityID}] = rows[i].Metrics()
	}
	return out, nil
}
