// Package availability reconciles calendar free-slot data into available and
// missing (booked or blocked) dates for a venue calendar.
package availability

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"sort"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DateLayout is the calendar date format used for slot map keys
	DateLayout = "2006-01-02"

	// DefaultChunkDays is the widest window the free-slots endpoint accepts reliably
	DefaultChunkDays = 30

	// MaxRangeDays bounds a single availability query
	MaxRangeDays = 400

	// DefaultPace is the minimum gap between sequential free-slot calls
	DefaultPace = 250 * time.Millisecond
)

var (
	ErrInvalidRange  = errors.New("end date is before start date")
	ErrRangeTooLarge = fmt.Errorf("date range exceeds %d days", MaxRangeDays)
)

// SlotSource returns free slots keyed by date (YYYY-MM-DD) for a calendar.
type SlotSource interface {
	FreeSlots(ctx context.Context, calendarID string, start, end time.Time, timezone string) (map[string][]string, error)
}

// Window is an inclusive range of calendar dates.
type Window struct {
	Start time.Time
	End   time.Time
}

// Until returns the last instant of the window's final day.
func (w Window) Until() time.Time {
	return w.End.AddDate(0, 0, 1).Add(-time.Millisecond)
}

// Options controls how free-slot data is fetched.
type Options struct {
	ChunkDays int
	Timezone  string
	// Limiter paces chunk requests. Defaults to one request per DefaultPace.
	Limiter *rate.Limiter
}

// ChunkResult records what a single window fetch returned.
type ChunkResult struct {
	Start     string `json:"start"`
	End       string `json:"end"`
	DateKeys  int    `json:"date_keys"`
	SlotCount int    `json:"slot_count"`
	Error     string `json:"error,omitempty"`
}

// Report is the reconciled view of a calendar over a date range.
type Report struct {
	CalendarID string              `json:"calendar_id"`
	Start      string              `json:"start"`
	End        string              `json:"end"`
	Available  []string            `json:"available"`
	Missing    []string            `json:"missing"`
	Unknown    []string            `json:"unknown,omitempty"`
	Chunks     []ChunkResult       `json:"chunks"`
	Errors     []string            `json:"errors,omitempty"`
	Slots      map[string][]string `json:"-"`
}

// Chunk splits the inclusive date range [start, end] into consecutive windows of
// at most days days.
func Chunk(start, end time.Time, days int) []Window {
	if days <= 0 {
		days = DefaultChunkDays
	}
	start, end = StartOfDay(start), StartOfDay(end)

	var windows []Window
	for cur := start; !cur.After(end); cur = cur.AddDate(0, 0, days) {
		last := cur.AddDate(0, 0, days-1)
		if last.After(end) {
			last = end
		}
		windows = append(windows, Window{Start: cur, End: last})
	}
	return windows
}

// DateRange lists every date in the inclusive range [start, end].
func DateRange(start, end time.Time) []string {
	start, end = StartOfDay(start), StartOfDay(end)

	var dates []string
	for cur := start; !cur.After(end); cur = cur.AddDate(0, 0, 1) {
		dates = append(dates, cur.Format(DateLayout))
	}
	return dates
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ParseDate parses a YYYY-MM-DD date in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return t, nil
}

// ValidateRange checks ordering and size of an availability query.
func ValidateRange(start, end time.Time) error {
	start, end = StartOfDay(start), StartOfDay(end)
	if end.Before(start) {
		return ErrInvalidRange
	}
	if DayCount(start, end) > MaxRangeDays {
		return ErrRangeTooLarge
	}
	return nil
}

// DayCount returns the number of calendar dates in the inclusive range [start, end],
// or 0 when end is before start. DST shifts in the dates' location are ignored.
func DayCount(start, end time.Time) int {
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	if e.Before(s) {
		return 0
	}
	// whole days, computed from Unix seconds so ranges past time.Duration's ~292 years still count
	return int((e.Unix()-s.Unix())/86400) + 1
}

// Reconcile splits dates into those with at least one slot and those without.
// Both results are sorted and free of duplicates.
func Reconcile(dates []string, slots map[string][]string) (available, missing []string) {
	available = []string{}
	missing = []string{}
	seen := make(map[string]bool, len(dates))
	for _, d := range dates {
		if seen[d] {
			continue
		}
		seen[d] = true
		if len(slots[d]) > 0 {
			available = append(available, d)
		} else {
			missing = append(missing, d)
		}
	}
	sort.Strings(available)
	sort.Strings(missing)
	return available, missing
}

// Fetch pulls free slots for [start, end] window by window and reconciles them.
// A failed window is logged and its dates are reported as unknown rather than
// missing; the remaining windows are still fetched.
func Fetch(ctx context.Context, src SlotSource, calendarID string, start, end time.Time, opts Options) (*Report, error) {
	if err := ValidateRange(start, end); err != nil {
		return nil, err
	}

	limiter := opts.Limiter
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Every(DefaultPace), 1)
	}

	report := &Report{
		CalendarID: calendarID,
		Start:      StartOfDay(start).Format(DateLayout),
		End:        StartOfDay(end).Format(DateLayout),
		Chunks:     []ChunkResult{},
	}

	merged := make(map[string][]string)
	failed := make(map[string]bool)

	for _, w := range Chunk(start, end, opts.ChunkDays) {
		if err := limiter.Wait(ctx); err != nil {
			return report, err
		}

		result := ChunkResult{
			Start: w.Start.Format(DateLayout),
			End:   w.End.Format(DateLayout),
		}

		slots, err := src.FreeSlots(ctx, calendarID, w.Start, w.Until(), opts.Timezone)
		if err != nil {
			log.Printf("[Availability] Window %s..%s failed for calendar %s: %v", result.Start, result.End, calendarID, err)
			result.Error = err.Error()
			report.Chunks = append(report.Chunks, result)
			report.Errors = append(report.Errors, fmt.Sprintf("%s..%s: %v", result.Start, result.End, err))
			for _, d := range DateRange(w.Start, w.End) {
				failed[d] = true
			}
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			continue
		}

		for date, daySlots := range slots {
			result.DateKeys++
			result.SlotCount += len(daySlots)
			merged[date] = append(merged[date], daySlots...)
		}
		report.Chunks = append(report.Chunks, result)
	}

	for date, daySlots := range merged {
		slices.Sort(daySlots)
		merged[date] = slices.Compact(daySlots)
	}
	report.Slots = merged

	available, missing := Reconcile(DateRange(start, end), merged)
	report.Available = available
	report.Missing = make([]string, 0, len(missing))
	for _, d := range missing {
		if failed[d] {
			report.Unknown = append(report.Unknown, d)
			continue
		}
		report.Missing = append(report.Missing, d)
	}

	return report, nil
}
