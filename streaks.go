package main

import (
	"sort"
	"time"
)

// dayNumber maps a calendar date to a day count since the Unix epoch, ignoring
// the time of day, so consecutive dates differ by exactly one.
func dayNumber(t time.Time) int {
	y, m, d := t.Date()
	return int(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}

// computeStreak returns the current and longest runs of consecutive calendar
// days in dates. Duplicates are ignored, as are dates after today. The current
// run must end today, or yesterday when nothing has been logged today yet;
// otherwise it is 0.
func computeStreak(dates []time.Time, today time.Time) (current, longest int) {
	todayN := dayNumber(today)

	seen := make(map[int]bool, len(dates))
	days := make([]int, 0, len(dates))
	for _, d := range dates {
		n := dayNumber(d)
		if n > todayN || seen[n] {
			continue
		}
		seen[n] = true
		days = append(days, n)
	}
	if len(days) == 0 {
		return 0, 0
	}
	sort.Ints(days)

	run := 1
	longest = 1
	for i := 1; i < len(days); i++ {
		if days[i] == days[i-1]+1 {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}

	// run now holds the streak ending at the most recent day.
	if last := days[len(days)-1]; last == todayN || last == todayN-1 {
		current = run
	}
	return current, longest
}

// refresh zeroes a stored current streak that has lapsed since it was written.
// Records are only rewritten on activity, so a streak that ended days ago is
// still stored with its old length.
func (r *streakRecord) refresh(today time.Time) {
	if r.LastActivityDate == nil {
		r.CurrentStreak = 0
		return
	}
	if dayNumber(today)-dayNumber(r.LastActivityDate.Time) > 1 {
		r.CurrentStreak = 0
	}
}
