// Package timeseries buckets records by calendar day or week for trend
// charts. Buckets are always contiguous: days with no records still get a
// zero-count point.
package timeseries

import (
	"time"

	"github.com/highbeam/pulseboard/internal/domain"
)

// Point is one bucket of a series.
type Point struct {
	Label string    `json:"label"`
	Date  time.Time `json:"date"`
	Count int       `json:"count"`
}

// Interval is an inclusive span of calendar days. Only the date part of
// Start and End is used; both are read in Start's location.
type Interval struct {
	Start time.Time
	End   time.Time
}

// LastDays returns the interval of n calendar days ending on the day of now.
func LastDays(now time.Time, n int) Interval {
	if n < 1 {
		n = 1
	}
	end := domain.Day(now)
	return Interval{Start: end.AddDate(0, 0, -(n - 1)), End: end}
}

// Days returns the first and last day of the interval, truncated to midnight.
func (iv Interval) Days() (time.Time, time.Time) {
	start := domain.Day(iv.Start)
	end := domain.Day(iv.End.In(start.Location()))
	return start, end
}

// BinByDay emits one point per calendar day in the interval, labeled with
// the weekday abbreviation. A record lands in the bucket for the day its
// date falls on; records with no date or outside the interval are skipped.
// An interval whose start is after its end yields no points.
func BinByDay[T any](records []T, iv Interval, date func(T) *time.Time) []Point {
	start, end := iv.Days()
	out := make([]Point, 0)
	if start.After(end) {
		return out
	}

	index := make(map[time.Time]int)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		index[d] = len(out)
		out = append(out, Point{Label: d.Format("Mon"), Date: d})
	}

	for _, r := range records {
		t := date(r)
		if t == nil || t.IsZero() {
			continue
		}
		if i, ok := index[domain.Day(t.In(start.Location()))]; ok {
			out[i].Count++
		}
	}
	return out
}

// BinByWeek emits one point per Monday-started week touching the interval,
// labeled with the week's Monday ("Jan 02"). Only records inside the
// interval are counted, so the first and last weeks may be partial.
func BinByWeek[T any](records []T, iv Interval, date func(T) *time.Time) []Point {
	start, end := iv.Days()
	out := make([]Point, 0)
	if start.After(end) {
		return out
	}

	index := make(map[time.Time]int)
	for w := weekStart(start); !w.After(end); w = w.AddDate(0, 0, 7) {
		index[w] = len(out)
		out = append(out, Point{Label: w.Format("Jan 02"), Date: w})
	}

	for _, r := range records {
		t := date(r)
		if t == nil || t.IsZero() {
			continue
		}
		d := domain.Day(t.In(start.Location()))
		if d.Before(start) || d.After(end) {
			continue
		}
		if i, ok := index[weekStart(d)]; ok {
			out[i].Count++
		}
	}
	return out
}

// weekStart returns the Monday on or before d.
func weekStart(d time.Time) time.Time {
	offset := (int(d.Weekday()) + 6) % 7
	return domain.Day(d).AddDate(0, 0, -offset)
}

// Total sums the counts of a series.
func Total(points []Point) int {
	n := 0
	for _, p := range points {
		n += p.Count
	}
	return n
}
