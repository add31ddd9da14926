package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParsePagination(t *testing.T) {
	p := ParsePagination("", "")
	assert.Equal(t, Pagination{Page: 1, PerPage: 50}, p)
	assert.Equal(t, 0, p.Offset())

	p = ParsePagination("3", "20")
	assert.Equal(t, 40, p.Offset())
	assert.Equal(t, 3, p.TotalPages(41))

	assert.Equal(t, 50, ParsePagination("-1", "9999").PerPage)
}

func TestIsExpired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	assert.False(t, IsExpired("", now))
	assert.True(t, IsExpired("not a date", now))
	assert.True(t, IsExpired("2025-06-01 11:59:59.000Z", now))
	assert.False(t, IsExpired("2025-06-02T00:00:00Z", now))
}

func TestSafeFilterValue(t *testing.T) {
	v, err := SafeFilterValue("abc_123-x")
	assert.NoError(t, err)
	assert.Equal(t, "abc_123-x", v)

	_, err = SafeFilterValue("x' || 1=1")
	assert.Error(t, err)
}

func TestJoinFilters(t *testing.T) {
	assert.Equal(t, "a = 1 && b = 2", JoinFilters("a = 1", " ", "b = 2"))
	assert.Equal(t, "", JoinFilters())
}

func TestEmailHelpers(t *testing.T) {
	assert.Equal(t, "jane@example.com", NormalizeEmail("  Jane@Example.COM "))

	assert.True(t, IsValidEmail("a@b.co"))
	assert.False(t, IsValidEmail("nobody"))
	assert.False(t, IsValidEmail("a b@c.com"))
	assert.False(t, IsValidEmail("@example.com"))

	assert.Equal(t, "ja***@example.com", MaskEmail("jane@example.com"))
	assert.Equal(t, "j***@x.io", MaskEmail("j@x.io"))
	assert.Equal(t, "***", MaskEmail("broken"))
}

func TestIsValidBookingStatus(t *testing.T) {
	assert.True(t, IsValidBookingStatus(BookingHold))
	assert.False(t, IsValidBookingStatus("pending"))
	assert.True(t, IsValidRole(RoleCoordinator))
	assert.False(t, IsValidRole("guest"))
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"The Glass House", "the-glass-house"},
		{"  Bells @ Killcare!  ", "bells-killcare"},
		{"Vineyard--Estate", "vineyard-estate"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.in), tt.in)
	}
}
