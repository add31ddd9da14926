package dashboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func d(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func TestCompute(t *testing.T) {
	now := time.Date(2025, 5, 1, 15, 0, 0, 0, time.UTC)
	bookings := []Booking{
		{ID: "1", VenueID: "v1", Status: "inquiry", Value: 10000},
		{ID: "2", VenueID: "v1", Status: "tour_booked", EventDate: d("2025-05-01"), Value: 12000},
		{ID: "3", VenueID: "v2", Status: "confirmed", EventDate: d("2025-06-14"), Value: 15000},
		{ID: "4", VenueID: "v2", Status: "completed", EventDate: d("2025-03-01"), Value: 9000},
		{ID: "5", VenueID: "v1", Status: "cancelled", EventDate: d("2025-06-21"), Value: 20000},
		{ID: "6", VenueID: "v1", Status: "hold", EventDate: d("2025-06-28"), Value: 11000},
		{ID: "7", VenueID: "v2", Status: "confirmed", EventDate: d("2025-12-06"), Value: 14000},
	}

	s := Compute(bookings, now, 90)

	assert.Equal(t, 7, s.Total)
	assert.Equal(t, 2, s.ByStatus["confirmed"])
	assert.Equal(t, 1, s.ByStatus["cancelled"])
	assert.Equal(t, 4, s.ByVenue["v1"])
	assert.InDelta(t, 3.0/7.0, s.ConversionRate, 1e-9)
	assert.Equal(t, 33000.0, s.PipelineValue)
	assert.Equal(t, 38000.0, s.BookedValue)

	assert.Equal(t, 3, s.UpcomingCount)
	ids := []string{}
	for _, u := range s.Upcoming {
		ids = append(ids, u.ID)
	}
	assert.Equal(t, []string{"2", "3", "6"}, ids)

	assert.Equal(t, "2025-06", s.BusiestMonth)
	assert.Equal(t, 2, s.BusiestMonthCount)
}

func TestCompute_Empty(t *testing.T) {
	s := Compute(nil, time.Now(), 0)
	assert.Equal(t, 0, s.Total)
	assert.Equal(t, 0.0, s.ConversionRate)
	assert.Empty(t, s.Upcoming)
	assert.Empty(t, s.BusiestMonth)
}

func TestCompute_BusiestMonthTieAndCap(t *testing.T) {
	now := d("2025-01-01")
	var bookings []Booking
	for i := 0; i < 12; i++ {
		bookings = append(bookings, Booking{ID: string(rune('a' + i)), Status: "confirmed", EventDate: now.AddDate(0, 0, i)})
	}
	bookings = append(bookings,
		Booking{Status: "confirmed", EventDate: d("2024-11-02")},
		Booking{Status: "confirmed", EventDate: d("2024-11-03")},
	)

	s := Compute(bookings, now, 30)
	assert.Equal(t, 12, s.UpcomingCount)
	assert.Len(t, s.Upcoming, MaxUpcoming)
	assert.Equal(t, "2025-01", s.BusiestMonth)
	assert.Equal(t, 12, s.BusiestMonthCount)

	tie := Compute([]Booking{
		{Status: "hold", EventDate: d("2025-09-01")},
		{Status: "hold", EventDate: d("2025-02-01")},
	}, now, 30)
	assert.Equal(t, "2025-02", tie.BusiestMonth)
}
