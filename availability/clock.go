package availability

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

var clockPattern = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?\s*([AaPp])\.?\s*[Mm]\.?$`)

// ParseClock parses a 12-hour time such as "9:00 AM", "09:30pm" or "9 a.m."
// into minutes after midnight.
func ParseClock(s string) (int, error) {
	m := clockPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, fmt.Errorf("invalid 12-hour time %q", s)
	}

	hour, _ := strconv.Atoi(m[1])
	minute := 0
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	if hour < 1 || hour > 12 || minute > 59 {
		return 0, fmt.Errorf("invalid 12-hour time %q", s)
	}

	hour %= 12
	if strings.EqualFold(m[3], "p") {
		hour += 12
	}
	return hour*60 + minute, nil
}

// FormatClock renders minutes after midnight as "h:mm AM".
func FormatClock(minutes int) string {
	minutes = ((minutes % 1440) + 1440) % 1440
	hour, minute := minutes/60, minutes%60

	suffix := "AM"
	if hour >= 12 {
		suffix = "PM"
	}
	hour %= 12
	if hour == 0 {
		hour = 12
	}
	return fmt.Sprintf("%d:%02d %s", hour, minute, suffix)
}

// SortClock deduplicates and chronologically sorts 12-hour time strings,
// normalising them to "h:mm AM". Unparseable values are dropped.
func SortClock(times []string) []string {
	minutes := make([]int, 0, len(times))
	for _, t := range times {
		if m, err := ParseClock(t); err == nil {
			minutes = append(minutes, m)
		}
	}
	return formatSorted(minutes)
}

// SlotTimes converts vendor slot values into sorted 12-hour times in loc.
// Values may be RFC3339 timestamps or already-formatted 12-hour strings.
func SlotTimes(slots []string, loc *time.Location) []string {
	if loc == nil {
		loc = time.UTC
	}

	minutes := make([]int, 0, len(slots))
	for _, s := range slots {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			local := t.In(loc)
			minutes = append(minutes, local.Hour()*60+local.Minute())
			continue
		}
		if m, err := ParseClock(s); err == nil {
			minutes = append(minutes, m)
		}
	}
	return formatSorted(minutes)
}

// SlotStart resolves a 12-hour time on date into an instant in loc.
func SlotStart(date, clock string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	day, err := ParseDate(date, loc)
	if err != nil {
		return time.Time{}, err
	}
	m, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), m/60, m%60, 0, 0, loc), nil
}

func formatSorted(minutes []int) []string {
	sort.Ints(minutes)
	out := make([]string, 0, len(minutes))
	last := -1
	for _, m := range minutes {
		if m == last {
			continue
		}
		last = m
		out = append(out, FormatClock(m))
	}
	return out
}
