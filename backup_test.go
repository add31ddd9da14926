package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextBackupTime(t *testing.T) {
	loc := time.FixedZone("AEST", 10*3600)

	before := time.Date(2026, 6, 1, 1, 15, 0, 0, loc)
	assert.Equal(t, time.Date(2026, 6, 1, 3, 0, 0, 0, loc), nextBackupTime(before, 3))

	after := time.Date(2026, 6, 1, 4, 0, 0, 0, loc)
	assert.Equal(t, time.Date(2026, 6, 2, 3, 0, 0, 0, loc), nextBackupTime(after, 3))

	exact := time.Date(2026, 6, 1, 3, 0, 0, 0, loc)
	assert.Equal(t, time.Date(2026, 6, 2, 3, 0, 0, 0, loc), nextBackupTime(exact, 3))

	monthEnd := time.Date(2026, 6, 30, 23, 0, 0, 0, loc)
	assert.Equal(t, time.Date(2026, 7, 1, 3, 0, 0, 0, loc), nextBackupTime(monthEnd, 3))
}

func TestBackupPrefix(t *testing.T) {
	assert.Equal(t, "venues/database/", backupPrefix())
}
