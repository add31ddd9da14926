package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotHold_RoundTrip(t *testing.T) {
	SetSessionSecret("hold-secret")
	t.Cleanup(func() { SetSessionSecret("") })

	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	token, err := CreateSlotHold(SlotHoldClaims{
		CalendarID: "cal1",
		Date:       "2025-06-14",
		Time:       "3:00 PM",
		Start:      "2025-06-14T15:00:00+10:00",
	}, 15*time.Minute, now)
	require.NoError(t, err)

	claims, err := ValidateSlotHold(token, now.Add(10*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "cal1", claims.CalendarID)
	assert.Equal(t, "2025-06-14", claims.Date)
	assert.Equal(t, "3:00 PM", claims.Time)
	assert.Equal(t, now.Add(15*time.Minute).Unix(), claims.ExpiresAt)

	_, err = ValidateSlotHold(token, now.Add(16*time.Minute))
	assert.ErrorIs(t, err, ErrHoldExpired)
}

func TestSlotHold_Rejects(t *testing.T) {
	SetSessionSecret("hold-secret")
	t.Cleanup(func() { SetSessionSecret("") })

	now := time.Now()
	token, err := CreateSlotHold(SlotHoldClaims{CalendarID: "cal1", Date: "2025-06-14"}, time.Minute, now)
	require.NoError(t, err)

	_, err = ValidateSlotHold("no-dot", now)
	assert.ErrorIs(t, err, ErrHoldFormat)

	parts := strings.SplitN(token, ".", 2)
	_, err = ValidateSlotHold(parts[0]+"x."+parts[1], now)
	assert.ErrorIs(t, err, ErrHoldSignature)

	SetSessionSecret("rotated")
	_, err = ValidateSlotHold(token, now)
	assert.ErrorIs(t, err, ErrHoldSignature)
}

func TestSessionSecretConfigured(t *testing.T) {
	t.Setenv("ENCRYPTION_KEY", "")
	SetSessionSecret("")
	t.Cleanup(func() { SetSessionSecret("") })

	assert.False(t, SessionSecretConfigured())
	key, configured := sessionKey()
	assert.Equal(t, devSessionKey, key)
	assert.False(t, configured)

	t.Setenv("ENCRYPTION_KEY", "from-env")
	assert.True(t, SessionSecretConfigured())

	SetSessionSecret("explicit")
	key, _ = sessionKey()
	assert.Equal(t, "explicit", key)
}
