package metrics

// Entity types tracked by the pipeline. A profile is keyed by its owner alone
// (EntityID == OwnerID); a post is keyed by (owner, post id).
const (
	EntityProfile = "profile"
	EntityPost    = "post"
)

// Metric column names, in canonical order. Post metrics first, then profile
// (audience) metrics. Every sink table carries the full set; columns that do
// not apply to an entity type stay zero.
const (
	MetricImpressions       = "impressions"
	MetricReactions         = "reactions"
	MetricComments          = "comments"
	MetricReposts           = "reposts"
	MetricSaves             = "saves"
	MetricSends             = "sends"
	MetricFollowers         = "followers"
	MetricProfileViews      = "profile_views"
	MetricSearchAppearances = "search_appearances"
)

// MetricNames lists every tracked metric in canonical column order.
var MetricNames = []string{
	MetricImpressions,
	MetricReactions,
	MetricComments,
	MetricReposts,
	MetricSaves,
	MetricSends,
	MetricFollowers,
	MetricProfileViews,
	MetricSearchAppearances,
}

// MetricColumns is the shared wide column block of the sink tables.
var MetricColumns = func() []Column {
	cols := make([]Column, 0, len(MetricNames))
	for _, name := range MetricNames {
		cols = append(cols, Column{Name: name, Type: "Int64"})
	}
	return cols
}()

// MetricSet holds one value per tracked metric. Depending on context the
// values are absolute counters (snapshots, accumulative totals) or per-period
// gains (daily deltas, rollups). Gains are signed: counters can shrink.
type MetricSet struct {
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

// Values returns the metric values in canonical column order, for batch appends.
func (m MetricSet) Values() []int64 {
	return []int64{
		m.Impressions,
		m.Reactions,
		m.Comments,
		m.Reposts,
		m.Saves,
		m.Sends,
		m.Followers,
		m.ProfileViews,
		m.SearchAppearances,
	}
}

// Value returns a single metric by column name; unknown names return 0.
func (m MetricSet) Value(name string) int64 {
	switch name {
	case MetricImpressions:
		return m.Impressions
	case MetricReactions:
		return m.Reactions
	case MetricComments:
		return m.Comments
	case MetricReposts:
		return m.Reposts
	case MetricSaves:
		return m.Saves
	case MetricSends:
		return m.Sends
	case MetricFollowers:
		return m.Followers
	case MetricProfileViews:
		return m.ProfileViews
	case MetricSearchAppearances:
		return m.SearchAppearances
	}
	return 0
}

// Engagements is the combined engagement count used for rate derivation.
func (m MetricSet) Engagements() int64 {
	return m.Reactions + m.Comments + m.Reposts + m.Saves + m.Sends
}

// Sub returns m - prev, field by field.
func (m MetricSet) Sub(prev MetricSet) MetricSet {
	return MetricSet{
		Impressions:       m.Impressions - prev.Impressions,
		Reactions:         m.Reactions - prev.Reactions,
		Comments:          m.Comments - prev.Comments,
		Reposts:           m.Reposts - prev.Reposts,
		Saves:             m.Saves - prev.Saves,
		Sends:             m.Sends - prev.Sends,
		Followers:         m.Followers - prev.Followers,
		ProfileViews:      m.ProfileViews - prev.ProfileViews,
		SearchAppearances: m.SearchAppearances - prev.SearchAppearances,
	}
}

// Add returns m + other, field by field.
func (m MetricSet) Add(other MetricSet) MetricSet {
	return MetricSet{
		Impressions:       m.Impressions + other.Impressions,
		Reactions:         m.Reactions + other.Reactions,
		Comments:          m.Comments + other.Comments,
		Reposts:           m.Reposts + other.Reposts,
		Saves:             m.Saves + other.Saves,
		Sends:             m.Sends + other.Sends,
		Followers:         m.Followers + other.Followers,
		ProfileViews:      m.ProfileViews + other.ProfileViews,
		SearchAppearances: m.SearchAppearances + other.SearchAppearances,
	}
}

// IsZero reports whether every metric is zero.
func (m MetricSet) IsZero() bool {
	return m == MetricSet{}
}
