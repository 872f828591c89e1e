package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	d, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		panic(err)
	}
	return d
}

func TestStartWeeklyIsMonday(t *testing.T) {
	// 2026-08-25 is a Tuesday
	require.Equal(t, date("2026-08-24"), Start(Weekly, date("2026-08-25")))
	// Monday maps to itself
	require.Equal(t, date("2026-08-24"), Start(Weekly, date("2026-08-24")))
	// Sunday belongs to the preceding Monday's week
	require.Equal(t, date("2026-08-24"), Start(Weekly, date("2026-08-30")))
}

func TestStartMonthlyQuarterlyYearly(t *testing.T) {
	d := date("2026-08-25")

	require.Equal(t, date("2026-08-01"), Start(Monthly, d))
	require.Equal(t, date("2026-07-01"), Start(Quarterly, d))
	require.Equal(t, date("2026-01-01"), Start(Yearly, d))

	require.Equal(t, date("2026-10-01"), Start(Quarterly, date("2026-12-31")))
	require.Equal(t, date("2026-01-01"), Start(Quarterly, date("2026-02-14")))
}

func TestIsEndWeekly(t *testing.T) {
	require.True(t, IsEnd(Weekly, date("2026-08-30"))) // Sunday
	require.False(t, IsEnd(Weekly, date("2026-08-24")))
}

func TestIsEndMonthlyHandlesLeapYear(t *testing.T) {
	require.True(t, IsEnd(Monthly, date("2024-02-29")))
	require.False(t, IsEnd(Monthly, date("2024-02-28")))
	require.True(t, IsEnd(Monthly, date("2026-02-28")))
	require.True(t, IsEnd(Monthly, date("2026-08-31")))
	require.False(t, IsEnd(Monthly, date("2026-08-30")))
}

func TestIsEndQuarterly(t *testing.T) {
	require.True(t, IsEnd(Quarterly, date("2026-03-31")))
	require.True(t, IsEnd(Quarterly, date("2026-06-30")))
	require.True(t, IsEnd(Quarterly, date("2026-09-30")))
	require.True(t, IsEnd(Quarterly, date("2026-12-31")))
	// End of a month that does not close a quarter
	require.False(t, IsEnd(Quarterly, date("2026-08-31")))
}

func TestIsEndYearly(t *testing.T) {
	require.True(t, IsEnd(Yearly, date("2026-12-31")))
	require.False(t, IsEnd(Yearly, date("2026-06-30")))
}

func TestWindowBoundsAreInclusiveAndAdjacent(t *testing.T) {
	curStart, curEnd, compStart, compEnd := Window(7, date("2026-08-25"))

	require.Equal(t, date("2026-08-19"), curStart)
	require.Equal(t, date("2026-08-25"), curEnd)
	require.Equal(t, date("2026-08-12"), compStart)
	require.Equal(t, date("2026-08-18"), compEnd)

	// Windows are equal length and contiguous
	require.Equal(t, curEnd.Sub(curStart), compEnd.Sub(compStart))
	require.Equal(t, curStart.AddDate(0, 0, -1), compEnd)
}

func TestWindowYearLength(t *testing.T) {
	curStart, curEnd, compStart, compEnd := Window(365, date("2026-08-25"))

	require.Equal(t, 364*24*time.Hour, curEnd.Sub(curStart))
	require.Equal(t, 364*24*time.Hour, compEnd.Sub(compStart))
	require.Equal(t, date("2025-08-26"), curStart)
	require.Equal(t, date("2025-08-25"), compEnd)
	require.Equal(t, date("2024-08-26"), compStart)
}
