package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withKey(t *testing.T, secret string) {
	t.Helper()
	currentKey() // consume the lazy env init before overriding
	SetEncryptionKey(secret)
	t.Cleanup(func() { SetEncryptionKey("") })
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	withKey(t, "test-secret")

	enc, err := Encrypt("jane@example.com")
	require.NoError(t, err)
	assert.True(t, IsEncrypted(enc))
	assert.NotContains(t, enc, "jane")

	dec, err := Decrypt(enc)
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", dec)
}

func TestEncrypt_NonceVaries(t *testing.T) {
	withKey(t, "test-secret")

	a, err := Encrypt("same")
	require.NoError(t, err)
	b, err := Encrypt("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestEncrypt_Disabled(t *testing.T) {
	withKey(t, "")

	out, err := Encrypt("plain")
	require.NoError(t, err)
	assert.Equal(t, "plain", out)
	assert.False(t, IsEncryptionEnabled())
	assert.Empty(t, BlindIndex("plain@example.com"))
}

func TestDecrypt_LegacyAndTampered(t *testing.T) {
	withKey(t, "test-secret")

	out, err := Decrypt("legacy plaintext")
	require.NoError(t, err)
	assert.Equal(t, "legacy plaintext", out)

	_, err = Decrypt("enc:" + "AAAA")
	assert.ErrorIs(t, err, ErrDecryptFailed)

	enc, err := Encrypt("secret")
	require.NoError(t, err)
	SetEncryptionKey("other-key")
	_, err = Decrypt(enc)
	assert.ErrorIs(t, err, ErrDecryptFailed)
	assert.Equal(t, enc, DecryptField(enc))
}

func TestBlindIndex_Normalises(t *testing.T) {
	withKey(t, "test-secret")

	a := BlindIndex("Jane@Example.com ")
	b := BlindIndex("jane@example.com")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, BlindIndex("john@example.com"))
}

func TestEncryptPIIFields(t *testing.T) {
	withKey(t, "test-secret")

	data := map[string]any{
		"client_name":  "Jane",
		"client_email": "Jane@example.com",
		"client_phone": "0400 000 000",
		"notes":        "",
	}
	EncryptPIIFields(CollectionBookings, data)

	assert.Equal(t, "Jane", data["client_name"])
	assert.True(t, IsEncrypted(data["client_email"].(string)))
	assert.True(t, IsEncrypted(data["client_phone"].(string)))
	assert.Equal(t, "", data["notes"])
	assert.Equal(t, BlindIndex("jane@example.com"), data["client_email_index"])

	// second pass leaves ciphertext untouched
	email := data["client_email"]
	EncryptPIIFields(CollectionBookings, data)
	assert.Equal(t, email, data["client_email"])
}
