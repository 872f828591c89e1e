package metrics

import "time"

// PostSnapshot is the latest raw capture of a post's absolute counters within
// the read window, as returned by the snapshot read contract (one row per
// post, metrics collapsed with argMax over capture time).
//
// Snapshot tables are owned by the capture product; the pipeline reads them
// and never writes. Fields are normalized at this boundary: a snapshot with a
// missing owner/post id or a zero capture time is dropped before it can reach
// the delta computer.
type PostSnapshot struct {
	OwnerID       string    `ch:"owner_id"`
	PostID        string    `ch:"post_id"`
	PostCreatedAt time.Time `ch:"post_created_at"`
	CapturedAt    time.Time `ch:"captured_at"`

	Impressions int64 `ch:"impressions"`
	Reactions   int64 `ch:"reactions"`
	Comments    int64 `ch:"comments"`
	Reposts     int64 `ch:"reposts"`
	Saves       int64 `ch:"saves"`
	Sends       int64 `ch:"sends"`

	// EngagementRate is the source-provided rate, if the capture product
	// supplied one. Nil or non-positive values are ignored downstream.
	EngagementRate *float64 `ch:"engagement_rate"`
}

// Metrics returns the snapshot's absolute counters as a MetricSet.
func (s *PostSnapshot) Metrics() MetricSet {
	return MetricSet{
		Impressions: s.Impressions,
		Reactions:   s.Reactions,
		Comments:    s.Comments,
		Reposts:     s.Reposts,
		Saves:       s.Saves,
		Sends:       s.Sends,
	}
}

// Valid reports whether the snapshot has the fields required for processing.
func (s *PostSnapshot) Valid() bool {
	return s.OwnerID != "" && s.PostID != "" && !s.CapturedAt.IsZero() && !s.PostCreatedAt.IsZero()
}

// ProfileSnapshot is the latest raw capture of a profile's absolute audience
// counters within the read window.
type ProfileSnapshot struct {
	OwnerID    string    `ch:"owner_id"`
	CapturedAt time.Time `ch:"captured_at"`

	Followers         int64 `ch:"followers"`
	ProfileViews      int64 `ch:"profile_views"`
	SearchAppearances int64 `ch:"search_appearances"`
}

// Metrics returns the snapshot's absolute counters as a MetricSet.
func (s *ProfileSnapshot) Metrics() MetricSet {
	return MetricSet{
		Followers:         s.Followers,
		ProfileViews:      s.ProfileViews,
		SearchAppearances: s.SearchAppearances,
	}
}

// Valid reports whether the snapshot has the fields required for processing.
func (s *ProfileSnapshot) Valid() bool {
	return s.OwnerID != "" && !s.CapturedAt.IsZero()
}
