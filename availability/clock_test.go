package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "9:00 AM", want: 540},
		{in: "09:00am", want: 540},
		{in: "9 a.m.", want: 540},
		{in: "12:00 AM", want: 0},
		{in: "12:30 PM", want: 750},
		{in: "11:59 pm", want: 1439},
		{in: " 4:15 PM ", want: 975},
		{in: "13:00 PM", wantErr: true},
		{in: "0:30 AM", wantErr: true},
		{in: "9:60 AM", wantErr: true},
		{in: "14:00", wantErr: true},
		{in: "noon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseClock(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "12:00 AM", FormatClock(0))
	assert.Equal(t, "9:05 AM", FormatClock(545))
	assert.Equal(t, "12:30 PM", FormatClock(750))
	assert.Equal(t, "11:59 PM", FormatClock(1439))
	assert.Equal(t, "12:00 AM", FormatClock(1440))
}

func TestSortClock(t *testing.T) {
	got := SortClock([]string{"2:00 PM", "9:00 AM", "09:00am", "bad", "12:15 PM"})
	assert.Equal(t, []string{"9:00 AM", "12:15 PM", "2:00 PM"}, got)
}

func TestSlotTimes(t *testing.T) {
	cdt := time.FixedZone("CDT", -5*3600)
	got := SlotTimes([]string{
		"2025-06-14T15:00:00Z",
		"2025-06-14T10:00:00-05:00",
		"1:30 PM",
		"garbage",
		"2025-06-14T08:30:00-05:00",
	}, cdt)
	assert.Equal(t, []string{"8:30 AM", "10:00 AM", "1:30 PM"}, got)
}

func TestSlotStart(t *testing.T) {
	cdt := time.FixedZone("CDT", -5*3600)
	start, err := SlotStart("2025-06-14", "2:30 PM", cdt)
	require.NoError(t, err)
	assert.Equal(t, "2025-06-14T14:30:00-05:00", start.Format(time.RFC3339))

	_, err = SlotStart("2025-06-14", "25:00", cdt)
	assert.Error(t, err)
}
