package availability

import (
	"sort"
	"time"
)

const (
	// DefaultMaxAlternates caps how many alternate dates are suggested
	DefaultMaxAlternates = 3

	sameWeekdaySpan = 4  // weeks either side
	nearbySpan      = 14 // days either side
)

type alternate struct {
	date string
	rank int // 0 = same weekday, 1 = nearby, 2 = later
	dist int
}

// Alternates suggests other available dates when requested is not available.
// Same-weekday dates within four weeks come first, then any date within two
// weeks, ordered by distance with the earlier date winning ties. When neither
// heuristic finds anything, the next available dates after requested are used.
// Returns nil when requested is itself available.
func Alternates(requested string, available []string, max int) ([]string, error) {
	req, err := ParseDate(requested, time.UTC)
	if err != nil {
		return nil, err
	}
	if max <= 0 {
		max = DefaultMaxAlternates
	}

	open := make(map[string]bool, len(available))
	for _, d := range available {
		open[d] = true
	}
	if open[requested] {
		return nil, nil
	}

	picked := make(map[string]bool)
	var candidates []alternate
	add := func(t time.Time, rank int) {
		d := t.Format(DateLayout)
		if !open[d] || picked[d] {
			return
		}
		picked[d] = true
		candidates = append(candidates, alternate{date: d, rank: rank, dist: dayDistance(req, t)})
	}

	for w := 1; w <= sameWeekdaySpan; w++ {
		add(req.AddDate(0, 0, -7*w), 0)
		add(req.AddDate(0, 0, 7*w), 0)
	}
	for d := 1; d <= nearbySpan; d++ {
		add(req.AddDate(0, 0, -d), 1)
		add(req.AddDate(0, 0, d), 1)
	}

	if len(candidates) == 0 {
		later := make([]string, 0, len(available))
		for _, d := range available {
			if d > requested {
				later = append(later, d)
			}
		}
		sort.Strings(later)
		for _, d := range later {
			if picked[d] {
				continue
			}
			picked[d] = true
			t, _ := ParseDate(d, time.UTC)
			candidates = append(candidates, alternate{date: d, rank: 2, dist: dayDistance(req, t)})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.rank != b.rank {
			return a.rank < b.rank
		}
		if a.dist != b.dist {
			return a.dist < b.dist
		}
		return a.date < b.date
	})

	if len(candidates) > max {
		candidates = candidates[:max]
	}
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.date
	}
	return out, nil
}

func dayDistance(a, b time.Time) int {
	d := int(b.Sub(a).Hours() / 24)
	if d < 0 {
		return -d
	}
	return d
}
