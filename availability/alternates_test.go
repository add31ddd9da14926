package availability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlternates_PrefersSameWeekday(t *testing.T) {
	available := []string{"2025-06-21", "2025-06-07", "2025-06-15", "2025-06-13"}

	got, err := Alternates("2025-06-14", available, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-06-07", "2025-06-21", "2025-06-13"}, got)
}

func TestAlternates_NearbyOnly(t *testing.T) {
	available := []string{"2025-06-20", "2025-06-12", "2025-06-16"}

	got, err := Alternates("2025-06-14", available, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-06-12", "2025-06-16", "2025-06-20"}, got)
}

func TestAlternates_FallsBackToLaterDates(t *testing.T) {
	available := []string{"2025-09-01", "2025-08-01", "2025-05-01"}

	got, err := Alternates("2025-06-14", available, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-08-01", "2025-09-01"}, got)
}

func TestAlternates_RequestedAvailable(t *testing.T) {
	got, err := Alternates("2025-06-14", []string{"2025-06-14", "2025-06-21"}, 3)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestAlternates_Caps(t *testing.T) {
	available := []string{"2025-06-07", "2025-06-21", "2025-05-31", "2025-06-28"}

	got, err := Alternates("2025-06-14", available, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-06-07", "2025-06-21"}, got)
}

func TestAlternates_InvalidDate(t *testing.T) {
	_, err := Alternates("14/06/2025", nil, 3)
	assert.Error(t, err)
}
