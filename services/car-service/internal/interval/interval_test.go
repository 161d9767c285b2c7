package interval

import (
	"testing"
	"time"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func iv(from, to string) Interval {
	return Interval{From: day(from), To: day(to)}
}

func TestOverlaps(t *testing.T) {
	cases := []struct {
		name string
		a, b Interval
		want bool
	}{
		{"disjoint", iv("2025-01-01", "2025-01-05"), iv("2025-01-10", "2025-01-15"), false},
		{"partial", iv("2025-05-05", "2025-05-15"), iv("2025-05-10", "2025-05-20"), true},
		{"contained", iv("2025-01-01", "2025-01-31"), iv("2025-01-10", "2025-01-15"), true},
		{"adjacent shares a day", iv("2025-01-01", "2025-01-05"), iv("2025-01-05", "2025-01-10"), true},
		{"gap of one day", iv("2025-01-01", "2025-01-05"), iv("2025-01-07", "2025-01-10"), false},
		{"single day equal", iv("2025-01-01", "2025-01-01"), iv("2025-01-01", "2025-01-01"), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Overlaps(tc.a, tc.b); got != tc.want {
				t.Fatalf("Overlaps(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
			if got := Overlaps(tc.b, tc.a); got != tc.want {
				t.Fatalf("Overlaps is not symmetric for %v, %v", tc.a, tc.b)
			}
		})
	}
}

func TestOverlapsSelf(t *testing.T) {
	a := iv("2025-03-01", "2025-03-10")
	if !Overlaps(a, a) {
		t.Fatal("an interval must overlap itself")
	}
}

func TestContains(t *testing.T) {
	outer := iv("2025-01-01", "2025-01-31")
	cases := []struct {
		name  string
		inner Interval
		want  bool
	}{
		{"strictly inside", iv("2025-01-10", "2025-01-15"), true},
		{"equal bounds", iv("2025-01-01", "2025-01-31"), true},
		{"starts before", iv("2024-12-31", "2025-01-15"), false},
		{"ends after", iv("2025-01-15", "2025-02-01"), false},
		{"spans both sides", iv("2024-12-31", "2025-02-01"), false},
		{"boundary start day", iv("2025-01-01", "2025-01-01"), true},
		{"boundary end day", iv("2025-01-31", "2025-01-31"), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Contains(outer, tc.inner); got != tc.want {
				t.Fatalf("Contains(%v, %v) = %v, want %v", outer, tc.inner, got, tc.want)
			}
		})
	}
}

func TestFirstConflict(t *testing.T) {
	existing := []Tagged{
		{ID: 1, Interval: iv("2025-01-01", "2025-01-05")},
		{ID: 2, Interval: iv("2025-01-10", "2025-01-15")},
	}

	if _, found := FirstConflict(iv("2025-01-06", "2025-01-09"), existing, 0); found {
		t.Fatal("expected no conflict for a gap interval")
	}

	got, found := FirstConflict(iv("2025-01-04", "2025-01-11"), existing, 0)
	if !found || got.ID != 1 {
		t.Fatalf("expected conflict with id 1, got %+v found=%v", got, found)
	}

	got, found = FirstConflict(iv("2025-01-04", "2025-01-11"), existing, 1)
	if !found || got.ID != 2 {
		t.Fatalf("exclusion should skip id 1 and hit id 2, got %+v found=%v", got, found)
	}

	if _, found := FirstConflict(iv("2025-01-02", "2025-01-03"), existing, 1); found {
		t.Fatal("excluding the only conflicting interval should yield no conflict")
	}
}

func TestRemaining(t *testing.T) {
	offer := iv("2025-01-01", "2025-01-31")
	cases := []struct {
		name   string
		booked []Interval
		want   []Interval
	}{
		{
			"no reservations",
			nil,
			[]Interval{iv("2025-01-01", "2025-01-31")},
		},
		{
			"one reservation in the middle",
			[]Interval{iv("2025-01-10", "2025-01-15")},
			[]Interval{iv("2025-01-01", "2025-01-09"), iv("2025-01-16", "2025-01-31")},
		},
		{
			"reservation covering the full range",
			[]Interval{iv("2025-01-01", "2025-01-31")},
			nil,
		},
		{
			"reservation at the start",
			[]Interval{iv("2025-01-01", "2025-01-05")},
			[]Interval{iv("2025-01-06", "2025-01-31")},
		},
		{
			"reservation at the end",
			[]Interval{iv("2025-01-20", "2025-01-31")},
			[]Interval{iv("2025-01-01", "2025-01-19")},
		},
		{
			"two reservations",
			[]Interval{iv("2025-01-05", "2025-01-08"), iv("2025-01-20", "2025-01-25")},
			[]Interval{iv("2025-01-01", "2025-01-04"), iv("2025-01-09", "2025-01-19"), iv("2025-01-26", "2025-01-31")},
		},
		{
			"back to back reservations leave no inner gap",
			[]Interval{iv("2025-01-05", "2025-01-10"), iv("2025-01-11", "2025-01-15")},
			[]Interval{iv("2025-01-01", "2025-01-04"), iv("2025-01-16", "2025-01-31")},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Remaining(offer, tc.booked)
			assertIntervals(t, got, tc.want)
		})
	}
}

func TestRemainingOrderIndependent(t *testing.T) {
	offer := iv("2025-01-01", "2025-01-31")
	sorted := []Interval{
		iv("2025-01-03", "2025-01-05"),
		iv("2025-01-12", "2025-01-14"),
		iv("2025-01-25", "2025-01-28"),
	}
	shuffled := []Interval{sorted[2], sorted[0], sorted[1]}

	assertIntervals(t, Remaining(offer, shuffled), Remaining(offer, sorted))
}

func TestRemainingSingleDayOffer(t *testing.T) {
	offer := iv("2025-06-01", "2025-06-01")
	if got := Remaining(offer, nil); len(got) != 1 || !got[0].From.Equal(offer.From) || !got[0].To.Equal(offer.To) {
		t.Fatalf("unbooked single-day offer should remain whole, got %v", got)
	}
	if got := Remaining(offer, []Interval{offer}); len(got) != 0 {
		t.Fatalf("booked single-day offer should have no gaps, got %v", got)
	}
}

func assertIntervals(t *testing.T, got, want []Interval) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d intervals %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if !got[i].From.Equal(want[i].From) || !got[i].To.Equal(want[i].To) {
			t.Fatalf("interval %d: got %v, want %v", i, got[i], want[i])
		}
	}
}
