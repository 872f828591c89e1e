package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	models "github.com/socialpulse/pulsex/pkg/db/models/metrics"
)

// InsertSummaries batch-upserts summary cache rows, one per
// (owner, metric, period). The timeseries is stored as JSON.
func (mdb *DB) InsertSummaries(ctx context.Context, rows []*models.SummaryEntry) error {
	if len(rows) == 0 {
		return nil
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (owner_id, metric, period, current_total, current_avg, current_count, comparison_total, comparison_avg, comparison_count, pct_change, suppressed, cumulative_total, timeseries, computed_at, version) VALUES`,
		mdb.table(SummaryTable),
	)
	batch, err := mdb.PrepareBatch(ctx, query)
	if err != nil {
		return err
	}
	defer func(batch driver.Batch) {
		_ = batch.Abort()
	}(batch)

	for _, row := range rows {
		series, err := json.Marshal(row.Timeseries)
		if err != nil {
			return fmt.Errorf("marshal timeseries for %s/%s/%s: %w", row.OwnerID, row.Metric, row.Period, err)
		}

		suppressed := uint8(0)
		if row.Suppressed {
			suppressed = 1
		}

		if err = batch.Append(
			row.OwnerID,
			row.Metric,
			row.Period,
			row.CurrentTotal,
			row.CurrentAvg,
			row.CurrentCount,
			row.ComparisonTotal,
			row.ComparisonAvg,
			row.ComparisonCount,
			row.PctChange,
			suppressed,
			row.CumulativeTotal,
			string(series),
			row.ComputedAt,
			row.Version,
		); err != nil {
			return err
		}
	}

	return batch.Send()
}

type summaryRow struct {
	OwnerID         string    `ch:"owner_id"`
	Metric          string    `ch:"metric"`
	Period          string    `ch:"period"`
	CurrentTotal    float64   `ch:"current_total"`
	CurrentAvg      float64   `ch:"current_avg"`
	CurrentCount    int64     `ch:"current_count"`
	ComparisonTotal float64   `ch:"comparison_total"`
	ComparisonAvg   float64   `ch:"comparison_avg"`
	ComparisonCount int64     `ch:"comparison_count"`
	PctChange       float64   `ch:"pct_change"`
	Suppressed      uint8     `ch:"suppressed"`
	CumulativeTotal *float64  `ch:"cumulative_total"`
	Timeseries      string    `ch:"timeseries"`
	ComputedAt      time.Time `ch:"computed_at"`
	Version         uint64    `ch:"version"`
}

// GetSummary returns the cached summary for one (owner, metric, period), or
// nil when none has been computed yet.
func (mdb *DB) GetSummary(ctx context.Context, ownerID, metric, periodName string) (*models.SummaryEntry, error) {
	query := fmt.Sprintf(`
		SELECT owner_id, metric, period,
			current_total, current_avg, current_count,
			comparison_total, comparison_avg, comparison_count,
			pct_change, suppressed, cumulative_total, timeseries, computed_at, version
		FROM %s FINAL
		WHERE owner_id = ? AND metric = ? AND period = ?
		LIMIT 1
	`, mdb.table(SummaryTable))

	var rows []summaryRow
	if err := mdb.Select(ctx, &rows, query, ownerID, metric, periodName); err != nil {
		return nil, fmt.Errorf("get summary: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	row := rows[0]
	var series []models.TimeseriesPoint
	if row.Timeseries != "" {
		if err := json.Unmarshal([]byte(row.Timeseries), &series); err != nil {
			return nil, fmt.Errorf("unmarshal timeseries: %w", err)
		}
	}

	return &models.SummaryEntry{
		OwnerID:         row.OwnerID,
		Metric:          row.Metric,
		Period:          row.Period,
		CurrentTotal:    row.CurrentTotal,
		CurrentAvg:      row.CurrentAvg,
		CurrentCount:    row.CurrentCount,
		ComparisonTotal: row.ComparisonTotal,
		ComparisonAvg:   row.ComparisonAvg,
		ComparisonCount: row.ComparisonCount,
		PctChange:       row.PctChange,
		Suppressed:      row.Suppressed == 1,
		CumulativeTotal: row.CumulativeTotal,
		Timeseries:      series,
		ComputedAt:      row.ComputedAt,
		Version:         row.Version,
	}, nil
}
