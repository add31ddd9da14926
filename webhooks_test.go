package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"type":"AppointmentUpdate","appointment":{"id":"a1"}}`)
	sig := signBody(body, "whsec")

	assert.Len(t, sig, 64)
	assert.True(t, verifySignature(body, sig, "whsec"))

	t.Run("uppercase hex", func(t *testing.T) {
		upper := []byte(sig)
		for i, c := range upper {
			if c >= 'a' && c <= 'f' {
				upper[i] = c - 32
			}
		}
		assert.True(t, verifySignature(body, string(upper), "whsec"))
	})

	t.Run("rejects", func(t *testing.T) {
		assert.False(t, verifySignature(body, sig, "other"))
		assert.False(t, verifySignature(append(body, ' '), sig, "whsec"))
		assert.False(t, verifySignature(body, "", "whsec"))
		assert.False(t, verifySignature(body, sig, ""))
	})
}
