package main

import (
	"time"

	"github.com/grtshw/venue-bookings/dashboard"
	"github.com/grtshw/venue-bookings/utils"
	"github.com/pocketbase/pocketbase/core"
)

// handleDashboardStats aggregates bookings for the staff dashboard
func handleDashboardStats(re *core.RequestEvent, app core.App) error {
	records, err := app.FindAllRecords(utils.CollectionBookings)
	if err != nil {
		return utils.InternalErrorResponse(re, "Failed to load bookings")
	}

	bookings := make([]dashboard.Booking, len(records))
	for i, r := range records {
		bookings[i] = dashboard.Booking{
			ID:         r.Id,
			ClientName: r.GetString("client_name"),
			VenueID:    r.GetString("venue"),
			Status:     r.GetString(utils.FieldStatus),
			EventDate:  r.GetDateTime(utils.FieldEventDate).Time(),
			Value:      r.GetFloat("value"),
		}
	}

	stats := dashboard.Compute(bookings, time.Now(), dashboard.DefaultUpcomingDays)

	venues, _ := app.FindAllRecords(utils.CollectionVenues)
	names := make(map[string]string, len(venues))
	for _, v := range venues {
		names[v.Id] = v.GetString("name")
	}

	return utils.DataResponse(re, map[string]any{
		"stats":       stats,
		"venue_names": names,
	})
}
