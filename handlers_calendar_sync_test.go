package main

import (
	"testing"
	"time"

	"github.com/grtshw/venue-bookings/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapAppointmentStatus(t *testing.T) {
	tests := []struct {
		vendor  string
		deleted bool
		want    string
		ok      bool
	}{
		{"confirmed", false, utils.BookingTourBooked, true},
		{"Booked", false, utils.BookingTourBooked, true},
		{"showed", false, utils.BookingTourBooked, true},
		{"cancelled", false, utils.BookingCancelled, true},
		{"canceled", false, utils.BookingCancelled, true},
		{"noshow", false, utils.BookingCancelled, true},
		{"confirmed", true, utils.BookingCancelled, true},
		{"", true, utils.BookingCancelled, true},
		{"rescheduled", false, "", false},
		{"", false, "", false},
	}
	for _, tt := range tests {
		got, ok := mapAppointmentStatus(tt.vendor, tt.deleted)
		assert.Equal(t, tt.ok, ok, tt.vendor)
		assert.Equal(t, tt.want, got, tt.vendor)
	}
}

func TestNextBookingStatus(t *testing.T) {
	tests := []struct {
		current, fromAppt, want string
	}{
		{"", utils.BookingTourBooked, utils.BookingTourBooked},
		{utils.BookingInquiry, utils.BookingTourBooked, utils.BookingTourBooked},
		{utils.BookingTourBooked, utils.BookingCancelled, utils.BookingCancelled},
		{utils.BookingCancelled, utils.BookingTourBooked, utils.BookingTourBooked},
		{utils.BookingCancelled, utils.BookingCancelled, utils.BookingCancelled},
		// past the tour stage, the appointment no longer drives the booking
		{utils.BookingHold, utils.BookingCancelled, utils.BookingHold},
		{utils.BookingConfirmed, utils.BookingCancelled, utils.BookingConfirmed},
		{utils.BookingCompleted, utils.BookingTourBooked, utils.BookingCompleted},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, nextBookingStatus(tt.current, tt.fromAppt), "%s <- %s", tt.current, tt.fromAppt)
	}
}

func TestParseEventTime(t *testing.T) {
	loc := time.FixedZone("AEST", 10*3600)

	got, err := parseEventTime("2026-07-04T14:00:00+10:00", time.UTC)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2026, 7, 4, 4, 0, 0, 0, time.UTC)))

	got, err = parseEventTime("2026-07-04 14:00:00", loc)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2026, 7, 4, 4, 0, 0, 0, time.UTC)))

	_, err = parseEventTime("July 4th", loc)
	assert.Error(t, err)
}
