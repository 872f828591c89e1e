package metrics

import "time"

// AccumulativeTotal is the running cumulative counter state for an entity,
// used as the baseline for the next delta computation. One row is written per
// pipeline run; the latest row per entity (argMax over date) is the baseline.
// In steady state Totals(t) == sum of all gained deltas up to t.
type AccumulativeTotal struct {
	OwnerID    string
	EntityType string
	EntityID   string
	Date       time.Time

	Totals MetricSet

	Version uint64
}

// TotalPoint is the scan shape for "latest total per entity" queries.
type TotalPoint struct {
	OwnerID  string `ch:"owner_id"`
	EntityID string `ch:"entity_id"`

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

// Metrics returns the point's totals as a MetricSet.
func (p *TotalPoint) Metrics() MetricSet {
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
