// Package delta turns absolute snapshot counters into per-day gained amounts.
//
// The computation is pure: persistence of the resulting rows is the caller's
// responsibility (batched upserts keyed by entity+date).
package delta

import (
	"math"

	models "github.com/socialpulse/pulsex/pkg/db/models/metrics"
)

// Compute returns the per-metric gain between the current snapshot values and
// the last known accumulative totals. When previous is nil this is the
// entity's first-ever processed row (bootstrap): the entire current value
// counts as gained.
func Compute(current models.MetricSet, previous *models.MetricSet) (gained models.MetricSet, bootstrap bool) {
	if previous == nil {
		return current, true
	}
	return current.Sub(*previous), false
}

// ShouldSkip reports whether the computed row should not be written at all.
// An unchanged entity (prior totals exist, every delta zero) produces no row,
// so storage is not flooded with no-op rows. Bootstrap rows are always
// written, even when every value happens to be zero.
func ShouldSkip(gained models.MetricSet, bootstrap bool) bool {
	return !bootstrap && gained.IsZero()
}

// EngagementRate resolves the daily engagement rate for a delta row.
// A positive source-provided rate wins; otherwise the rate is derived from
// the day's gained engagements over gained impressions. Nil when neither is
// available.
func EngagementRate(sourceRate *float64, gained models.MetricSet) *float64 {
	if sourceRate != nil && *sourceRate > 0 && !math.IsNaN(*sourceRate) && !math.IsInf(*sourceRate, 0) {
		rate := *sourceRate
		return &rate
	}
	if gained.Impressions > 0 {
		rate := float64(gained.Engagements()) / float64(gained.Impressions) * 100
		return &rate
	}
	return nil
}
