package main

import (
	"testing"

	"github.com/grtshw/venue-bookings/utils"
	"github.com/stretchr/testify/assert"
)

func TestBookingListFilter(t *testing.T) {
	filter, params := bookingListFilter("", "", "", "", "")
	assert.Empty(t, filter)
	assert.Empty(t, params)

	filter, params = bookingListFilter("inquiry", "v1", "2026-01-01", "2026-12-31", "")
	assert.Equal(t, "status = {:status} && venue = {:venue} && event_date >= {:from} && event_date <= {:to}", filter)
	assert.Equal(t, "inquiry", params["status"])
	assert.Equal(t, "v1", params["venue"])
	assert.Equal(t, "2026-01-01 00:00:00.000Z", params["from"])
	assert.Equal(t, "2026-12-31 23:59:59.999Z", params["to"])
}

func TestBookingListFilter_Search(t *testing.T) {
	t.Run("plaintext", func(t *testing.T) {
		utils.SetEncryptionKey("")
		filter, params := bookingListFilter("", "", "", "", " sam ")
		assert.Equal(t, "(client_name ~ {:search} || client_email ~ {:search})", filter)
		assert.Equal(t, "sam", params["search"])
	})

	t.Run("blind index", func(t *testing.T) {
		utils.SetEncryptionKey("filter-key")
		t.Cleanup(func() { utils.SetEncryptionKey("") })

		filter, params := bookingListFilter("", "", "", "", "Sam@Example.com")
		assert.Equal(t, "(client_name ~ {:search} || client_email_index = {:emailIdx})", filter)
		assert.Equal(t, utils.BlindIndex("sam@example.com"), params["emailIdx"])
	})
}
