package domain

import (
	"fmt"
	"time"
)

// Day truncates t to its UTC calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD string as a UTC calendar day.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrInvalidInput, s)
	}
	return t, nil
}

// DayKey formats a day as YYYY-MM-DD.
func DayKey(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// WindowDays returns the n calendar days ending at reference, newest first.
// A window of 1 is the reference day alone. Non-positive n yields nil.
func WindowDays(reference time.Time, n int) []time.Time {
	if n <= 0 {
		return nil
	}
	ref := Day(reference)
	days := make([]time.Time, n)
	for i := range days {
		days[i] = ref.AddDate(0, 0, -i)
	}
	return days
}
