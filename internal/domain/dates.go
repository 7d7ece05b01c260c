package domain

import (
	"fmt"
	"time"
)

// DayFormat is the wire format for all calendar dates.
const DayFormat = "2006-01-02"

// ParseDay parses a YYYY-MM-DD string into a UTC-midnight time. All date
// comparisons in the booking path go through this normalization so that
// timezone drift can never produce an off-by-one overlap.
func ParseDay(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DayFormat, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", s, err)
	}
	return t, nil
}

// Today returns the current calendar day at UTC midnight.
func Today() time.Time {
	return Day(time.Now())
}

// Day truncates t to UTC midnight.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole-day duration from pickup to dropoff.
func DaysBetween(pickup, dropoff time.Time) int {
	return int(Day(dropoff).Sub(Day(pickup)).Hours() / 24)
}
