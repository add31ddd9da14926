package crm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/grtshw/venue-bookings/availability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ availability.SlotSource = (*Client)(nil)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{
		BaseURL:      srv.URL,
		APIKey:       "test-key",
		LocationID:   "loc-1",
		CalendarID:   "cal-default",
		Timezone:     "America/Chicago",
		RetryInitial: time.Millisecond,
	})
}

func TestClient_NotConfigured(t *testing.T) {
	c := New(Config{})
	assert.False(t, c.Configured())

	_, _, err := c.UpsertContact(context.Background(), ContactInput{Email: "a@b.co"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestUpsertContact_RemapsFields(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/contacts/upsert", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, DefaultAPIVersion, r.Header.Get("Version"))

		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"new":true,"contact":{"id":"ct_123","email":"sam@example.com"}}`)
	})

	contact, created, err := c.UpsertContact(context.Background(), ContactInput{
		FirstName:  " Sam ",
		LastName:   "Lee",
		Email:      " Sam@Example.com ",
		Phone:      "+15555550100",
		Tags:       []string{"Chatbot", "wedding-inquiry", ""},
		EventDate:  "2025-10-04",
		GuestCount: 120,
		Venue:      "The Barn",
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "ct_123", contact.ID)

	assert.Equal(t, "loc-1", got["locationId"])
	assert.Equal(t, "Sam", got["firstName"])
	assert.Equal(t, "Sam Lee", got["name"])
	assert.Equal(t, "sam@example.com", got["email"])
	assert.Equal(t, "website", got["source"])
	assert.Equal(t, []any{"wedding-inquiry", "chatbot"}, got["tags"])

	fields, ok := got["customFields"].([]any)
	require.True(t, ok)
	require.Len(t, fields, 3)
	first := fields[0].(map[string]any)
	assert.Equal(t, FieldEventDate, first["key"])
	assert.Equal(t, "2025-10-04", first["field_value"])
	second := fields[1].(map[string]any)
	assert.Equal(t, "120", second["field_value"])
}

func TestBookAppointment(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/calendars/events/appointments", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "cal-default", body["calendarId"])
		assert.Equal(t, "confirmed", body["appointmentStatus"])
		assert.Equal(t, "2025-06-14T14:00:00Z", body["startTime"])
		assert.Equal(t, true, body["toNotify"])
		io.WriteString(w, `{"id":"appt_1","calendarId":"cal-default","contactId":"ct_1","appointmentStatus":"confirmed"}`)
	})

	start := time.Date(2025, 6, 14, 14, 0, 0, 0, time.UTC)
	appt, err := c.BookAppointment(context.Background(), AppointmentInput{
		ContactID: "ct_1",
		Title:     "Venue tour",
		Start:     start,
		End:       start.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, "appt_1", appt.ID)
	assert.Equal(t, "confirmed", appt.Status)
}

func TestBookAppointment_Validates(t *testing.T) {
	c := New(Config{APIKey: "k", LocationID: "l", CalendarID: "c"})
	start := time.Now()

	_, err := c.BookAppointment(context.Background(), AppointmentInput{Start: start, End: start.Add(time.Hour)})
	assert.Error(t, err)

	_, err = c.BookAppointment(context.Background(), AppointmentInput{ContactID: "ct", Start: start, End: start})
	assert.Error(t, err)
}

func TestFreeSlots_SkipsMetadataKeys(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/calendars/cal-9/free-slots", r.URL.Path)
		assert.Equal(t, "1735689600000", r.URL.Query().Get("startDate"))
		assert.Equal(t, "America/Chicago", r.URL.Query().Get("timezone"))
		io.WriteString(w, `{
			"2025-01-01": {"slots": ["2025-01-01T10:00:00-06:00", "2025-01-01T14:00:00-06:00"]},
			"2025-01-02": {"slots": []},
			"traceId": "abc"
		}`)
	})

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	slots, err := c.FreeSlots(context.Background(), "cal-9", start, start.AddDate(0, 0, 2), "")
	require.NoError(t, err)
	assert.Len(t, slots, 2)
	assert.Len(t, slots["2025-01-01"], 2)
	assert.Empty(t, slots["2025-01-02"])
	_, hasTrace := slots["traceId"]
	assert.False(t, hasTrace)
}

func TestCalendarEvents(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/calendars/events", r.URL.Path)
		assert.Equal(t, "loc-1", r.URL.Query().Get("locationId"))
		assert.Equal(t, "cal-default", r.URL.Query().Get("calendarId"))
		io.WriteString(w, `{"events":[{"id":"ev1","title":"Tour","startTime":"2025-02-01T10:00:00-06:00","appointmentStatus":"confirmed"}]}`)
	})

	events, err := c.CalendarEvents(context.Background(), "", time.Now(), time.Now().Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "ev1", events[0].ID)
	assert.Equal(t, "confirmed", events[0].Status)
}

func TestDo_RetriesServerErrors(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		io.WriteString(w, `{"events":[]}`)
	})

	events, err := c.CalendarEvents(context.Background(), "", time.Now(), time.Now())
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestDo_GivesUpAfterMaxTries(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"message":"slow down"}`)
	})

	_, err := c.CalendarEvents(context.Background(), "", time.Now(), time.Now())
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestDo_ClientErrorsArePermanent(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		io.WriteString(w, `{"message":"email invalid"}`)
	})

	_, _, err := c.UpsertContact(context.Background(), ContactInput{Email: "nope"})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.False(t, apiErr.Retryable())
	assert.Contains(t, apiErr.Error(), "email invalid")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestAPIError_TruncatesAtRuneBoundary(t *testing.T) {
	// 299 ASCII bytes then a 3-byte rune straddling the limit
	body := strings.Repeat("a", 299) + "€" + strings.Repeat("b", 50)
	msg := (&APIError{Operation: "free_slots", StatusCode: 500, Body: body}).Error()

	assert.True(t, utf8.ValidString(msg))
	assert.True(t, strings.HasSuffix(msg, strings.Repeat("a", 299)+"..."))

	short := (&APIError{Operation: "free_slots", StatusCode: 400, Body: "bad request"}).Error()
	assert.Equal(t, "crm free_slots returned 400: bad request", short)
}
