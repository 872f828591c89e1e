// Package phase classifies tracked entities into a sampling frequency based
// on their age in days. The classification is a one-way state machine that is
// recomputed from age on every run; no transition state is stored.
package phase

import "time"

// Phase is the sampling frequency assigned to an entity.
type Phase int8

const (
	Inactive Phase = iota
	Daily
	Weekly
	Monthly
)

// Age thresholds, inclusive upper bounds of each phase.
const (
	DailyMaxAgeDays   = 30
	WeeklyMaxAgeDays  = 90
	MonthlyMaxAgeDays = 365
)

// TransitionToleranceDays is how many days past a boundary an entity is still
// treated as freshly transitioned. Covers a missed run: the retag side effect
// fires on the first or second run after the boundary is crossed. Applied
// symmetrically at every boundary.
const TransitionToleranceDays = 2

func (p Phase) String() string {
	switch p {
	case Daily:
		return "daily"
	case Weekly:
		return "weekly"
	case Monthly:
		return "monthly"
	default:
		return "inactive"
	}
}

// Classify maps an entity age in days to its tracking phase.
func Classify(ageDays int) Phase {
	switch {
	case ageDays <= DailyMaxAgeDays:
		return Daily
	case ageDays <= WeeklyMaxAgeDays:
		return Weekly
	case ageDays <= MonthlyMaxAgeDays:
		return Monthly
	default:
		return Inactive
	}
}

// AgeDays returns the entity age in whole calendar days (UTC) on the analysis date.
func AgeDays(createdAt, analysisDate time.Time) int {
	created := DateOf(createdAt)
	analysis := DateOf(analysisDate)
	return int(analysis.Sub(created).Hours() / 24)
}

// DateOf truncates a timestamp to its UTC calendar date.
func DateOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// SampledOn reports whether the analysis date is a sampling day for the phase.
// Weekly entities are sampled on the weekly anchor day (Monday), monthly
// entities on the monthly anchor day (the 1st).
func SampledOn(p Phase, analysisDate time.Time) bool {
	switch p {
	case Daily:
		return true
	case Weekly:
		return analysisDate.UTC().Weekday() == time.Monday
	case Monthly:
		return analysisDate.UTC().Day() == 1
	default:
		return false
	}
}

// Transition reports whether an entity of the given age has just crossed a
// phase boundary, within the missed-run tolerance, and if so which phase its
// stored rows should be retagged to.
func Transition(ageDays int) (Phase, bool) {
	for _, boundary := range []struct {
		threshold int
		next      Phase
	}{
		{DailyMaxAgeDays, Weekly},
		{WeeklyMaxAgeDays, Monthly},
		{MonthlyMaxAgeDays, Inactive},
	} {
		past := ageDays - boundary.threshold
		if past >= 1 && past <= TransitionToleranceDays {
			return boundary.next, true
		}
	}
	return Inactive, false
}
