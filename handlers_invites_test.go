package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInviteState(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	future := "2026-06-08 12:00:00.000Z"
	past := "2026-05-31 12:00:00.000Z"

	assert.Equal(t, inviteValid, inviteState("pending", future, now))
	assert.Equal(t, inviteExpired, inviteState("pending", past, now))
	assert.Equal(t, inviteExpired, inviteState("pending", "", now))
	assert.Equal(t, inviteExpired, inviteState("pending", "garbage", now))
	assert.Equal(t, inviteAccepted, inviteState("accepted", past, now))
	assert.Equal(t, inviteRevoked, inviteState("revoked", future, now))
}
