package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// AppointmentInput books a slot on a calendar.
type AppointmentInput struct {
	CalendarID string
	ContactID  string
	Title      string
	Start      time.Time
	End        time.Time
	Address    string
	Notes      string
}

// Appointment is a booked calendar event.
type Appointment struct {
	ID         string `json:"id"`
	CalendarID string `json:"calendarId"`
	ContactID  string `json:"contactId"`
	Title      string `json:"title"`
	StartTime  string `json:"startTime"`
	EndTime    string `json:"endTime"`
	Status     string `json:"appointmentStatus"`
}

// CalendarEvent is an event returned by the calendar events listing.
type CalendarEvent struct {
	ID         string `json:"id"`
	CalendarID string `json:"calendarId"`
	ContactID  string `json:"contactId"`
	Title      string `json:"title"`
	StartTime  string `json:"startTime"`
	EndTime    string `json:"endTime"`
	Status     string `json:"appointmentStatus"`
	Deleted    bool   `json:"deleted"`
}

type appointmentRequest struct {
	CalendarID        string `json:"calendarId"`
	LocationID        string `json:"locationId"`
	ContactID         string `json:"contactId"`
	StartTime         string `json:"startTime"`
	EndTime           string `json:"endTime"`
	Title             string `json:"title,omitempty"`
	AppointmentStatus string `json:"appointmentStatus"`
	Address           string `json:"address,omitempty"`
	Notes             string `json:"notes,omitempty"`
	ToNotify          bool   `json:"toNotify"`
}

// BookAppointment books a confirmed appointment for a contact.
func (c *Client) BookAppointment(ctx context.Context, in AppointmentInput) (*Appointment, error) {
	calendarID := in.CalendarID
	if calendarID == "" {
		calendarID = c.cfg.CalendarID
	}
	if calendarID == "" || in.ContactID == "" {
		return nil, fmt.Errorf("crm: calendar and contact are required to book")
	}
	if !in.End.After(in.Start) {
		return nil, fmt.Errorf("crm: appointment end must be after start")
	}

	body := appointmentRequest{
		CalendarID:        calendarID,
		LocationID:        c.cfg.LocationID,
		ContactID:         in.ContactID,
		StartTime:         in.Start.Format(time.RFC3339),
		EndTime:           in.End.Format(time.RFC3339),
		Title:             in.Title,
		AppointmentStatus: "confirmed",
		Address:           in.Address,
		Notes:             in.Notes,
		ToNotify:          true,
	}

	var appt Appointment
	if err := c.do(ctx, "book_appointment", http.MethodPost, "/calendars/events/appointments", nil, body, &appt); err != nil {
		return nil, err
	}
	return &appt, nil
}

// FreeSlots returns open slot timestamps keyed by date for [start, end].
func (c *Client) FreeSlots(ctx context.Context, calendarID string, start, end time.Time, timezone string) (map[string][]string, error) {
	if calendarID == "" {
		calendarID = c.cfg.CalendarID
	}
	if calendarID == "" {
		return nil, fmt.Errorf("crm: calendar ID required")
	}
	if timezone == "" {
		timezone = c.cfg.Timezone
	}

	query := url.Values{}
	query.Set("startDate", millis(start))
	query.Set("endDate", millis(end))
	if timezone != "" {
		query.Set("timezone", timezone)
	}

	var raw map[string]json.RawMessage
	path := "/calendars/" + url.PathEscape(calendarID) + "/free-slots"
	if err := c.do(ctx, "free_slots", http.MethodGet, path, query, nil, &raw); err != nil {
		return nil, err
	}
	return parseFreeSlots(raw), nil
}

// parseFreeSlots keeps date-keyed entries and skips metadata such as traceId
func parseFreeSlots(raw map[string]json.RawMessage) map[string][]string {
	out := make(map[string][]string, len(raw))
	for key, value := range raw {
		if _, err := time.Parse("2006-01-02", key); err != nil {
			continue
		}
		var day struct {
			Slots []string `json:"slots"`
		}
		if err := json.Unmarshal(value, &day); err != nil {
			continue
		}
		out[key] = day.Slots
	}
	return out
}

// CalendarEvents lists events on a calendar between start and end.
func (c *Client) CalendarEvents(ctx context.Context, calendarID string, start, end time.Time) ([]CalendarEvent, error) {
	if calendarID == "" {
		calendarID = c.cfg.CalendarID
	}
	if calendarID == "" {
		return nil, fmt.Errorf("crm: calendar ID required")
	}

	query := url.Values{}
	query.Set("locationId", c.cfg.LocationID)
	query.Set("calendarId", calendarID)
	query.Set("startTime", millis(start))
	query.Set("endTime", millis(end))

	var resp struct {
		Events []CalendarEvent `json:"events"`
	}
	if err := c.do(ctx, "calendar_events", http.MethodGet, "/calendars/events", query, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Events, nil
}
