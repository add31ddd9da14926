package main

import (
	"testing"

	"github.com/grtshw/venue-bookings/chatflows"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeadForm(t *testing.T) {
	form, err := leadForm(chatflows.Answers{
		"first_name":  "Alex",
		"email":       "alex@example.com",
		"event_date":  "2027-02-14",
		"guest_count": "85",
		"venue":       "the-glass-house",
	})
	require.NoError(t, err)
	assert.Equal(t, "Alex", form.FirstName)
	assert.Equal(t, "alex@example.com", form.Email)
	assert.Equal(t, 85, form.GuestCount)
	assert.Equal(t, "the-glass-house", form.Venue)

	form, err = leadForm(chatflows.Answers{"first_name": "Alex"})
	require.NoError(t, err)
	assert.Zero(t, form.GuestCount)

	_, err = leadForm(chatflows.Answers{"guest_count": "about 80"})
	assert.Error(t, err)
}
