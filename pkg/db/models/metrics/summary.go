package metrics

import "time"

// TimeseriesPoint is one element of a summary timeseries: the gained value of
// a single metric on a single day, rounded for presentation.
type TimeseriesPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// SummaryEntry is one precomputed summary row per (owner, metric, period).
// Fully derived from daily deltas; safely recomputable, treated as a cache.
type SummaryEntry struct {
	OwnerID string
	Metric  string
	Period  string // "7d", "30d", "90d", "1y"

	CurrentTotal float64
	CurrentAvg   float64
	CurrentCount int64

	ComparisonTotal float64
	ComparisonAvg   float64
	ComparisonCount int64

	// PctChange is 0 when suppressed (sparse or zero comparison window).
	PctChange  float64
	Suppressed bool

	// CumulativeTotal is the all-time running total for the metric, when the
	// metric accumulates monotonically enough to make one meaningful.
	CumulativeTotal *float64

	Timeseries []TimeseriesPoint

	ComputedAt time.Time
	Version    uint64
}

// SummaryPeriods enumerates the supported summary windows and their lengths
// in days.
var SummaryPeriods = map[string]int{
	"7d":  7,
	"30d": 30,
	"90d": 90,
	"1y":  365,
}
