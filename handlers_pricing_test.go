package main

import (
	"testing"

	"github.com/grtshw/venue-bookings/pricing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergePricing_KeepsAbsentFields(t *testing.T) {
	current := pricing.Default()

	merged, err := mergePricing(current, []byte(`{"base_price": 5200}`))
	require.NoError(t, err)
	assert.Equal(t, 5200.0, merged.BasePrice)
	assert.Equal(t, current.PeakMultiplier, merged.PeakMultiplier)
	assert.Equal(t, current.PeakMonths, merged.PeakMonths)
	assert.Equal(t, current.GuestTiers, merged.GuestTiers)
}

func TestMergePricing_ReplacesLists(t *testing.T) {
	current := pricing.Default()

	merged, err := mergePricing(current, []byte(`{"guest_tiers": [{"max_guests": 100}], "peak_months": [12]}`))
	require.NoError(t, err)
	assert.Equal(t, []pricing.GuestTier{{MaxGuests: 100}}, merged.GuestTiers)
	assert.Equal(t, []int{12}, merged.PeakMonths)

	// the stored config used for the audit "before" is untouched
	assert.Equal(t, pricing.Default().GuestTiers, current.GuestTiers)
	assert.Equal(t, pricing.Default().PeakMonths, current.PeakMonths)
}

func TestMergePricing_EmptyListClears(t *testing.T) {
	merged, err := mergePricing(pricing.Default(), []byte(`{"peak_months": []}`))
	require.NoError(t, err)
	assert.Empty(t, merged.PeakMonths)
}

func TestMergePricing_InvalidBody(t *testing.T) {
	current := pricing.Default()
	merged, err := mergePricing(current, []byte(`{"base_price": "lots"`))
	assert.Error(t, err)
	assert.Equal(t, current, merged)
}
