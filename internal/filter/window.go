package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/highbeam/pulseboard/internal/domain"
)

// Window is a named reporting period.
type Window string

const (
	WindowWeek    Window = "week"
	WindowMonth   Window = "month"
	WindowQuarter Window = "quarter"
	WindowAll     Window = "all"
	WindowCustom  Window = "custom"
)

// ParseWindow parses a window name. The empty string means WindowAll.
func ParseWindow(s string) (Window, error) {
	switch w := Window(strings.ToLower(strings.TrimSpace(s))); w {
	case "":
		return WindowAll, nil
	case WindowWeek, WindowMonth, WindowQuarter, WindowAll, WindowCustom:
		return w, nil
	default:
		return "", fmt.Errorf("unknown window %q (want week, month, quarter, all or custom)", s)
	}
}

// RangeFor returns the date range a preset window covers, ending at the
// last instant of now's calendar day. WindowAll and WindowCustom return nil;
// custom ranges are supplied by the caller.
//
//	week    - the last 7 calendar days including today
//	month   - from the same day one month back
//	quarter - from the same day three months back
func RangeFor(w Window, now time.Time) *DateRange {
	today := domain.Day(now)
	end := today.AddDate(0, 0, 1).Add(-time.Nanosecond)

	var start time.Time
	switch w {
	case WindowWeek:
		start = today.AddDate(0, 0, -6)
	case WindowMonth:
		start = today.AddDate(0, -1, 0)
	case WindowQuarter:
		start = today.AddDate(0, -3, 0)
	default:
		return nil
	}
	return &DateRange{Start: start, End: end}
}

// ParseDay parses a YYYY-MM-DD date in loc.
func ParseDay(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// CustomRange builds an inclusive range covering whole days from start to
// end (both YYYY-MM-DD). A start after end is returned as-is and will
// match nothing.
func CustomRange(start, end string, loc *time.Location) (*DateRange, error) {
	s, err := ParseDay(start, loc)
	if err != nil {
		return nil, err
	}
	e, err := ParseDay(end, loc)
	if err != nil {
		return nil, err
	}
	return &DateRange{Start: s, End: e.AddDate(0, 0, 1).Add(-time.Nanosecond)}, nil
}
