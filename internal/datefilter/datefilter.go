// Package datefilter converts calendar-day inputs into the backend's
// createTime filter grammar.
package datefilter

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidDate reports a calendar string that does not parse or a range
// whose start falls after its end.
var ErrInvalidDate = errors.New("invalid date")

// timeNow is swapped in tests.
var timeNow = time.Now

// Relative builds a filter for the window ending offset days before today.
// Both endpoints sit on day boundaries: the window opens at the start of the
// day daysWindow days before the end day and runs through the end of the end
// day, so it spans the end day plus the daysWindow days preceding it.
func Relative(daysWindow, offset int) (string, error) {
	if daysWindow <= 0 {
		return "", fmt.Errorf("%w: days_window must be positive, got %d", ErrInvalidDate, daysWindow)
	}
	if offset < 0 {
		return "", fmt.Errorf("%w: offset must be non-negative, got %d", ErrInvalidDate, offset)
	}

	today := timeNow().UTC().Truncate(24 * time.Hour)
	endDay := today.AddDate(0, 0, -offset)
	startDay := endDay.AddDate(0, 0, -daysWindow)

	return between(startOfDay(startDay), endOfDay(endDay)), nil
}

// Range builds a filter from explicit YYYY-MM-DD endpoints. Either endpoint
// may be empty, producing an open-ended filter; at least one is required.
func Range(startDate, endDate string) (string, error) {
	if startDate == "" && endDate == "" {
		return "", fmt.Errorf("%w: at least one of start and end is required", ErrInvalidDate)
	}

	if startDate == "" {
		end, err := parseDay(endDate)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("createTime < %q", Format(endOfDay(end))), nil
	}

	start, err := parseDay(startDate)
	if err != nil {
		return "", err
	}

	if endDate == "" {
		return fmt.Sprintf("createTime > %q", Format(startOfDay(start))), nil
	}

	end, err := parseDay(endDate)
	if err != nil {
		return "", err
	}
	if end.Before(start) {
		return "", fmt.Errorf("%w: start %s after end %s", ErrInvalidDate, startDate, endDate)
	}
	return between(startOfDay(start), endOfDay(end)), nil
}

// Format renders an instant in the backend's timestamp form: RFC-3339 UTC
// with microsecond precision, trailing zeros trimmed, Z suffix.
func Format(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.999999Z07:00")
}

func between(start, end time.Time) string {
	// Quoting is mandatory; the backend rejects bare timestamps.
	return fmt.Sprintf("createTime > %q AND createTime < %q", Format(start), Format(end))
}

func parseDay(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is not YYYY-MM-DD", ErrInvalidDate, s)
	}
	return t, nil
}

func startOfDay(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
}

func endOfDay(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), 23, 59, 59, 999999000, time.UTC)
}
