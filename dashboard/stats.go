// Package dashboard computes the staff dashboard aggregates from booking lists.
package dashboard

import (
	"sort"
	"time"
)

const (
	DefaultUpcomingDays = 90
	MaxUpcoming         = 10
)

// Booking is the slice of a bookings record the dashboard needs
type Booking struct {
	ID         string
	ClientName string
	VenueID    string
	Status     string
	EventDate  time.Time // zero when not yet chosen
	Value      float64
}

// UpcomingEvent is a row in the "next events" panel
type UpcomingEvent struct {
	ID         string  `json:"id"`
	ClientName string  `json:"client_name"`
	VenueID    string  `json:"venue_id"`
	Status     string  `json:"status"`
	EventDate  string  `json:"event_date"`
	Value      float64 `json:"value"`
}

// Stats is the dashboard payload
type Stats struct {
	Total             int             `json:"total"`
	ByStatus          map[string]int  `json:"by_status"`
	ByVenue           map[string]int  `json:"by_venue"`
	UpcomingCount     int             `json:"upcoming_count"`
	Upcoming          []UpcomingEvent `json:"upcoming"`
	ConversionRate    float64         `json:"conversion_rate"`
	PipelineValue     float64         `json:"pipeline_value"`
	BookedValue       float64         `json:"booked_value"`
	BusiestMonth      string          `json:"busiest_month,omitempty"`
	BusiestMonthCount int             `json:"busiest_month_count"`
}

var (
	pipelineStatuses = map[string]bool{"inquiry": true, "tour_booked": true, "hold": true}
	bookedStatuses   = map[string]bool{"confirmed": true, "completed": true}
)

// Compute aggregates bookings relative to now. Cancelled bookings count in
// totals and conversion but never in upcoming, busiest month or value.
func Compute(bookings []Booking, now time.Time, upcomingDays int) Stats {
	if upcomingDays <= 0 {
		upcomingDays = DefaultUpcomingDays
	}

	s := Stats{
		Total:    len(bookings),
		ByStatus: map[string]int{},
		ByVenue:  map[string]int{},
		Upcoming: []UpcomingEvent{},
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	horizon := today.AddDate(0, 0, upcomingDays)
	months := map[string]int{}
	booked := 0

	for _, b := range bookings {
		s.ByStatus[b.Status]++
		if b.VenueID != "" {
			s.ByVenue[b.VenueID]++
		}

		switch {
		case bookedStatuses[b.Status]:
			booked++
			s.BookedValue += b.Value
		case pipelineStatuses[b.Status]:
			s.PipelineValue += b.Value
		}

		if b.Status == "cancelled" || b.EventDate.IsZero() {
			continue
		}

		months[b.EventDate.Format("2006-01")]++

		if !b.EventDate.Before(today) && b.EventDate.Before(horizon) {
			s.Upcoming = append(s.Upcoming, UpcomingEvent{
				ID:         b.ID,
				ClientName: b.ClientName,
				VenueID:    b.VenueID,
				Status:     b.Status,
				EventDate:  b.EventDate.Format("2006-01-02"),
				Value:      b.Value,
			})
		}
	}

	if s.Total > 0 {
		s.ConversionRate = float64(booked) / float64(s.Total)
	}

	sort.SliceStable(s.Upcoming, func(i, j int) bool {
		return s.Upcoming[i].EventDate < s.Upcoming[j].EventDate
	})
	s.UpcomingCount = len(s.Upcoming)
	if len(s.Upcoming) > MaxUpcoming {
		s.Upcoming = s.Upcoming[:MaxUpcoming]
	}

	// ties go to the earlier month
	for month, n := range months {
		if n > s.BusiestMonthCount || (n == s.BusiestMonthCount && month < s.BusiestMonth) {
			s.BusiestMonth = month
			s.BusiestMonthCount = n
		}
	}

	return s
}
