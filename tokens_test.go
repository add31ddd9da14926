package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokens(t *testing.T) {
	token, err := generateToken()
	require.NoError(t, err)
	assert.Len(t, token, 64)

	other, err := generateToken()
	require.NoError(t, err)
	assert.NotEqual(t, token, other)

	hash := hashToken(token)
	assert.NotEqual(t, token, hash)
	assert.True(t, verifyToken(token, hash))
	assert.False(t, verifyToken(other, hash))
	assert.False(t, verifyToken(token, ""))
}
