package metrics

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValuesFollowCanonicalColumnOrder(t *testing.T) {
	m := MetricSet{
		Impressions:       1,
		Reactions:         2,
		Comments:          3,
		Reposts:           4,
		Saves:             5,
		Sends:             6,
		Followers:         7,
		ProfileViews:      8,
		SearchAppearances: 9,
	}

	values := m.Values()
	require.Len(t, values, len(MetricNames))
	for i, name := range MetricNames {
		require.Equal(t, values[i], m.Value(name), "column %s", name)
	}
}

func TestValueUnknownNameIsZero(t *testing.T) {
	m := MetricSet{Impressions: 10}
	require.Equal(t, int64(0), m.Value("likes"))
}

func TestEngagementsSumsInteractionMetrics(t *testing.T) {
	m := MetricSet{Impressions: 100, Reactions: 1, Comments: 2, Reposts: 3, Saves: 4, Sends: 5, Followers: 50}
	require.Equal(t, int64(15), m.Engagements())
}

func TestSubAndAddRoundTrip(t *testing.T) {
	a := MetricSet{Impressions: 100, Followers: 20}
	b := MetricSet{Impressions: 30, Followers: 25}

	diff := a.Sub(b)
	require.Equal(t, int64(70), diff.Impressions)
	require.Equal(t, int64(-5), diff.Followers)
	require.Equal(t, a, b.Add(diff))
}

func TestIsZero(t *testing.T) {
	require.True(t, MetricSet{}.IsZero())
	require.False(t, MetricSet{Sends: 1}.IsZero())
}

func TestColumnsToSchemaSQL(t *testing.T) {
	sql := ColumnsToSchemaSQL([]Column{{Name: "impressions", Type: "Int64"}, {Name: "rate", Type: "Float64"}})
	require.Contains(t, sql, "impressions Int64")
	require.Contains(t, sql, "rate Float64")
}
