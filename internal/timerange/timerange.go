// Package timerange holds the pure date/time arithmetic the scheduling engine
// is built on: half-open interval overlap on instants, inclusive overlap on
// whole-day date ranges, and local-day-to-UTC slot placement.
package timerange

import (
	"iter"
	"time"
)

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Touching endpoints do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// DatesOverlap reports whether two inclusive whole-day ranges intersect.
// Dates sharing a boundary day do overlap, unlike instants.
func DatesOverlap(aFrom, aTo, bFrom, bTo time.Time) bool {
	return !aTo.Before(bFrom) && !bTo.Before(aFrom)
}

// MinutesOverlap reports whether two half-open daily windows, expressed in
// minutes since midnight, intersect.
func MinutesOverlap(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && bStart < aEnd
}

// EachDate yields every calendar date from from to to inclusive, ascending.
// The sequence is empty when from is after to, and can be ranged over more
// than once.
func EachDate(from, to time.Time) iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
			if !yield(d) {
				return
			}
		}
	}
}

// CombineLocal places a time of day, given as minutes since midnight, on the
// given calendar date in loc and returns the instant in UTC. Callers fix the
// conversion at slot-generation time; generated instants are stored absolute
// and never re-derived.
func CombineLocal(date time.Time, minuteOfDay int, loc *time.Location) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(),
		minuteOfDay/60, minuteOfDay%60, 0, 0, loc).UTC()
}
