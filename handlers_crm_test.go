package main

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateInquiry(t *testing.T) {
	now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

	valid := func() inquiryForm {
		return inquiryForm{
			FirstName:  "  Sam ",
			LastName:   "Lee",
			Email:      " Sam@Example.COM ",
			EventDate:  "2027-03-20",
			GuestCount: 120,
		}
	}

	t.Run("normalizes", func(t *testing.T) {
		f := valid()
		require.NoError(t, validateInquiry(&f, time.UTC, now))
		assert.Equal(t, "Sam", f.FirstName)
		assert.Equal(t, "sam@example.com", f.Email)
		assert.Equal(t, "Sam Lee", f.clientName())
	})

	t.Run("event date optional", func(t *testing.T) {
		f := valid()
		f.EventDate = ""
		assert.NoError(t, validateInquiry(&f, time.UTC, now))
	})

	t.Run("today is allowed", func(t *testing.T) {
		f := valid()
		f.EventDate = "2026-06-01"
		assert.NoError(t, validateInquiry(&f, time.UTC, now))
	})

	tests := []struct {
		name   string
		mutate func(*inquiryForm)
		want   string
	}{
		{"missing first name", func(f *inquiryForm) { f.FirstName = " " }, "first_name"},
		{"bad email", func(f *inquiryForm) { f.Email = "not-an-email" }, "email"},
		{"negative guests", func(f *inquiryForm) { f.GuestCount = -1 }, "guest_count"},
		{"too many guests", func(f *inquiryForm) { f.GuestCount = maxGuestCount + 1 }, "guest_count"},
		{"long notes", func(f *inquiryForm) { f.Notes = strings.Repeat("x", maxNotesLen+1) }, "notes"},
		{"bad date", func(f *inquiryForm) { f.EventDate = "20/03/2027" }, "YYYY-MM-DD"},
		{"past date", func(f *inquiryForm) { f.EventDate = "2026-05-31" }, "past"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := valid()
			tt.mutate(&f)
			err := validateInquiry(&f, time.UTC, now)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateInquiry_VenueTimezone(t *testing.T) {
	// 22:00 UTC on the 1st is already the 2nd in Sydney
	now := time.Date(2026, 6, 1, 22, 0, 0, 0, time.UTC)
	sydney := time.FixedZone("AEST", 10*3600)

	f := inquiryForm{FirstName: "Sam", Email: "sam@example.com", EventDate: "2026-06-01"}
	assert.Error(t, validateInquiry(&f, sydney, now))

	f.EventDate = "2026-06-02"
	assert.NoError(t, validateInquiry(&f, sydney, now))
}
