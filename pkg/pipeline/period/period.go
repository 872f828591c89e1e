// Package period centralizes the calendar arithmetic of the rollup tiers:
// period starts, period boundaries (finalization) and summary comparison
// windows. Everything operates on UTC calendar dates.
package period

import "time"

// Granularity identifies one rollup tier.
type Granularity string

const (
	Weekly    Granularity = "weekly"
	Monthly   Granularity = "monthly"
	Quarterly Granularity = "quarterly"
	Yearly    Granularity = "yearly"
)

// All lists the rollup tiers in computation order (finer tiers first, since
// quarter and year re-sum from the monthly tier).
var All = []Granularity{Weekly, Monthly, Quarterly, Yearly}

// DateOf truncates a timestamp to its UTC calendar date.
func DateOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// Start returns the first day of the period containing d: the ISO-week
// Monday, the 1st of the month, the first day of the 3-month block, or Jan 1.
func Start(g Granularity, d time.Time) time.Time {
	day := DateOf(d)
	switch g {
	case Weekly:
		offset := (int(day.Weekday()) + 6) % 7 // Monday=0 ... Sunday=6
		return day.AddDate(0, 0, -offset)
	case Monthly:
		return time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
	case Quarterly:
		firstMonth := time.Month((int(day.Month())-1)/3*3 + 1)
		return time.Date(day.Year(), firstMonth, 1, 0, 0, 0, 0, time.UTC)
	case Yearly:
		return time.Date(day.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return day
}

// IsEnd reports whether d is the last day of its period: Sunday, the last
// calendar day of the month, the last day of a 3-month block, or Dec 31.
// A rollup row is finalized only when written on such a day.
func IsEnd(g Granularity, d time.Time) bool {
	day := DateOf(d)
	switch g {
	case Weekly:
		return day.Weekday() == time.Sunday
	case Monthly:
		return day.AddDate(0, 0, 1).Day() == 1
	case Quarterly:
		if day.AddDate(0, 0, 1).Day() != 1 {
			return false
		}
		return day.Month()%3 == 0
	case Yearly:
		return day.Month() == time.December && day.Day() == 31
	}
	return false
}

// Window returns the current summary window [today-(days-1), today] and the
// equal-length comparison window immediately preceding it. Bounds are
// inclusive calendar dates.
func Window(days int, today time.Time) (curStart, curEnd, compStart, compEnd time.Time) {
	curEnd = DateOf(today)
	curStart = curEnd.AddDate(0, 0, -(days - 1))
	compEnd = curStart.AddDate(0, 0, -1)
	compStart = compEnd.AddDate(0, 0, -(days - 1))
	return curStart, curEnd, compStart, compEnd
}
