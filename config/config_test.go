package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CRM_BASE_URL", "")
	t.Setenv("AVAILABILITY_CHUNK_DAYS", "")
	t.Setenv("SLOT_HOLD_TTL", "")
	t.Setenv("MASK_ENDPOINT_URL", "")
	t.Setenv("BACKUP_ENDPOINT_URL", "https://fly.storage.tigris.dev")

	cfg := Load()

	assert.Equal(t, "https://services.leadconnectorhq.com", cfg.CRMBaseURL)
	assert.Equal(t, 30, cfg.AvailabilityChunkDays)
	assert.Equal(t, 15*time.Minute, cfg.HoldTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.InviteTTL)
	assert.Equal(t, uint(3), cfg.CRMMaxTries)
	assert.Equal(t, "https://fly.storage.tigris.dev", cfg.MaskEndpoint)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("AVAILABILITY_CHUNK_DAYS", "14")
	t.Setenv("AVAILABILITY_PACE", "1s")
	t.Setenv("CRM_MAX_TRIES", "5")
	t.Setenv("VENUE_TIMEZONE", "Europe/London")

	cfg := Load()

	assert.Equal(t, 14, cfg.AvailabilityChunkDays)
	assert.Equal(t, time.Second, cfg.AvailabilityPace)
	assert.Equal(t, uint(5), cfg.CRMMaxTries)
	assert.Equal(t, "Europe/London", cfg.Location().String())
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("AVAILABILITY_CHUNK_DAYS", "thirty")
	t.Setenv("SLOT_HOLD_TTL", "soon")
	t.Setenv("VENUE_TIMEZONE", "Mars/Olympus")

	cfg := Load()

	assert.Equal(t, 30, cfg.AvailabilityChunkDays)
	assert.Equal(t, 15*time.Minute, cfg.HoldTTL)
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestLoad_RetryCountClamped(t *testing.T) {
	t.Setenv("CRM_MAX_TRIES", "-1")
	assert.Equal(t, uint(1), Load().CRMMaxTries)

	t.Setenv("CRM_MAX_TRIES", "0")
	assert.Equal(t, uint(1), Load().CRMMaxTries)

	t.Setenv("CRM_MAX_TRIES", "4")
	assert.Equal(t, uint(4), Load().CRMMaxTries)
}

func TestConfigured(t *testing.T) {
	cfg := &Config{BackupBucket: "b", BackupAccessKey: "k"}
	assert.False(t, cfg.BackupConfigured())

	cfg.BackupSecretKey = "s"
	assert.True(t, cfg.BackupConfigured())
	assert.False(t, cfg.MaskUploadsConfigured())

	cfg.MaskBucket = "masks"
	assert.True(t, cfg.MaskUploadsConfigured())
}
