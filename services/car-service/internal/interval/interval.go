package interval

import (
	"sort"
	"time"
)

// Interval is a closed calendar-day range [From, To], both endpoints at UTC
// midnight. A valid interval has From <= To.
type Interval struct {
	From time.Time
	To   time.Time
}

func (iv Interval) Valid() bool {
	return !iv.To.Before(iv.From)
}

// Overlaps reports whether a and b share at least one calendar day.
// Adjacent intervals (a.To == b.From) overlap: there is no same-day handover.
func Overlaps(a, b Interval) bool {
	return !(a.To.Before(b.From) || a.From.After(b.To))
}

// Contains reports whether inner lies entirely within outer, boundary days
// included.
func Contains(outer, inner Interval) bool {
	return !inner.From.Before(outer.From) && !inner.To.After(outer.To)
}

// Tagged is an interval carrying the id of the row it came from, so a
// conflict check can exclude the record being updated.
type Tagged struct {
	ID int64
	Interval
}

// FirstConflict returns the first existing interval that overlaps candidate,
// skipping the entry with excludeID (pass 0 to exclude nothing).
func FirstConflict(candidate Interval, existing []Tagged, excludeID int64) (Tagged, bool) {
	for _, e := range existing {
		if excludeID != 0 && e.ID == excludeID {
			continue
		}
		if Overlaps(candidate, e.Interval) {
			return e, true
		}
	}
	return Tagged{}, false
}

// Remaining subtracts the booked spans from offer and returns the unbooked
// gaps in ascending order. Booked spans may arrive in any order; they are
// sorted before the scan. A span covering the whole offer yields no gaps.
func Remaining(offer Interval, booked []Interval) []Interval {
	spans := make([]Interval, len(booked))
	copy(spans, booked)
	sort.Slice(spans, func(i, j int) bool { return spans[i].From.Before(spans[j].From) })

	cursor := offer.From
	var gaps []Interval
	for _, r := range spans {
		if r.From.After(cursor) {
			gaps = append(gaps, Interval{From: cursor, To: r.From.AddDate(0, 0, -1)})
		}
		if next := r.To.AddDate(0, 0, 1); next.After(cursor) {
			cursor = next
		}
	}
	if !cursor.After(offer.To) {
		gaps = append(gaps, Interval{From: cursor, To: offer.To})
	}
	return gaps
}
