package metrics

import "time"

// PeriodRollup is one aggregated row per (entity, period start) in one of the
// four rollup tables. Finalized rows never change again; non-finalized rows
// are replaced on every run until the period closes.
type PeriodRollup struct {
	OwnerID     string    `ch:"owner_id"`
	EntityType  string    `ch:"entity_type"`
	EntityID    string    `ch:"entity_id"`
	PeriodStart time.Time `ch:"period_start"`

	Impressions       int64 `ch:"impressions"`
	Reactions         int64 `ch:"reactions"`
	Comments          int64 `ch:"comments"`
	Reposts           int64 `ch:"reposts"`
	Saves             int64 `ch:"saves"`
	Sends             int64 `ch:"sends"`
	Followers         int64 `ch:"followers"`
	ProfileViews      int64 `ch:"profile_views"`
	SearchAppearances int64 `ch:"search_appearances"`

	EngagementRate *float64 `ch:"engagement_rate"`
	IsFinalized    uint8    `ch:"is_finalized"`
	Phase          int8     `ch:"phase"`
	Version        uint64   `ch:"version"`
}

// Metrics returns the rollup's summed gains as a MetricSet.
func (r *PeriodRollup) Metrics() MetricSet {
	return MetricSet{
		Impressions:       r.Impressions,
		Reactions:         r.Reactions,
		Comments:          r.Comments,
		Reposts:           r.Reposts,
		Saves:             r.Saves,
		Sends:             r.Sends,
		Followers:         r.Followers,
		ProfileViews:      r.ProfileViews,
		SearchAppearances: r.SearchAppearances,
	}
}
