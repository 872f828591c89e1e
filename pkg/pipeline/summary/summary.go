// Package summary computes windowed summary statistics (totals, averages,
// percent change, timeseries) from persisted daily delta points. The whole
// computation is a pure function of its inputs and can be recomputed from
// scratch at any time; persisted results are a cache, not a source of truth.
package summary

import (
	"math"
	"time"

	models "github.com/socialpulse/pulsex/pkg/db/models/metrics"
)

// MinComparisonPoints is the minimum number of data points the comparison
// window needs before a percent change is considered meaningful. Sparser
// history yields a suppressed (zero) percent change instead of a noisy or
// infinite one.
const MinComparisonPoints = 3

// Point is one day's gained value for a single metric.
type Point struct {
	Date  time.Time
	Value float64
}

// Round2 rounds to the fixed 2-decimal presentation precision.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Compute builds the summary entry for one (owner, metric, period) triple.
// current and comparison are the delta points falling inside the respective
// windows; current must be date-ascending (the store query guarantees it).
func Compute(ownerID, metric, periodName string, current, comparison []Point, cumulative *float64, now time.Time) models.SummaryEntry {
	curTotal, curAvg := totalAndAvg(current)
	compTotal, compAvg := totalAndAvg(comparison)

	pct := 0.0
	suppressed := true
	if len(comparison) >= MinComparisonPoints && compAvg != 0 {
		pct = (curAvg - compAvg) / compAvg * 100
		suppressed = false
	}

	series := make([]models.TimeseriesPoint, 0, len(current))
	for _, p := range current {
		series = append(series, models.TimeseriesPoint{
			Date:  p.Date.Format("2006-01-02"),
			Value: Round2(p.Value),
		})
	}

	return models.SummaryEntry{
		OwnerID:         ownerID,
		Metric:          metric,
		Period:          periodName,
		CurrentTotal:    Round2(curTotal),
		CurrentAvg:      Round2(curAvg),
		CurrentCount:    int64(len(current)),
		ComparisonTotal: Round2(compTotal),
		ComparisonAvg:   Round2(compAvg),
		ComparisonCount: int64(len(comparison)),
		PctChange:       Round2(pct),
		Suppressed:      suppressed,
		CumulativeTotal: cumulative,
		Timeseries:      series,
		ComputedAt:      now.UTC(),
		Version:         uint64(now.UnixMilli()),
	}
}

func totalAndAvg(points []Point) (total, avg float64) {
	for _, p := range points {
		total += p.Value
	}
	if len(points) > 0 {
		avg = total / float64(len(points))
	}
	return total, avg
}
