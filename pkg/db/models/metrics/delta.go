package metrics

import "time"

// DailyDelta is one row of per-day gained amounts for an entity.
// Unique key: (owner_id, entity_type, entity_id, date). The table is a
// ReplacingMergeTree(version), so writing the same key again replaces the
// row instead of duplicating it; re-running a pipeline step is idempotent.
type DailyDelta struct {
	OwnerID    string
	EntityType string
	EntityID   string
	Date       time.Time

	Gained MetricSet

	// EngagementRate is the derived daily rate; nil when neither the source
	// supplied one nor impressions were gained that day.
	EngagementRate *float64

	Phase   int8
	Version uint64
}

// DeltaPoint is a date-ordered owner-level aggregation of daily deltas, used
// by the summary precomputation (metrics summed across the owner's entities).
type DeltaPoint struct {
	Date time.Time `ch:"date"`

	Impressions       int64 `ch:"impressions"`
	Reactions         int64 `ch:"reactions"`
	Comments          int64 `ch:"comments"`
	Reposts           int64 `ch:"reposts"`
	Saves             int64 `ch:"saves"`
	Sends             int64 `ch:"sends"`
	Followers         int64 `ch:"followers"`
	ProfileViews      int64 `ch:"profile_views"`
	SearchAppearances int64 `ch:"search_appearances"`
}

// Metrics returns the point's gained values as a MetricSet.
func (p *DeltaPoint) Metrics() MetricSet {
	return MetricSet{
		Impressions:       p.Impressions,
		Reactions:         p.Reactions,
		Comments:          p.Comments,
		Reposts:           p.Reposts,
		Saves:             p.Saves,
		Sends:             p.Sends,
		Followers:         p.Followers,
		ProfileViews:      p.ProfileViews,
		SearchAppearances: p.SearchAppearances,
	}
}
