package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

var (
	ErrHoldFormat    = errors.New("invalid token format")
	ErrHoldSignature = errors.New("invalid signature")
	ErrHoldExpired   = errors.New("slot hold expired")

	sessionSecret   string
	sessionSecretMu sync.RWMutex
)

// SlotHoldClaims identifies a slot offered to a visitor by the availability
// endpoint. Bookings must present a valid hold.
type SlotHoldClaims struct {
	VenueID    string `json:"vid,omitempty"`
	CalendarID string `json:"cal"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	Start      string `json:"start"`
	IssuedAt   int64  `json:"iat"`
	ExpiresAt  int64  `json:"exp"`
}

// SetSessionSecret overrides the signing secret (defaults to ENCRYPTION_KEY)
func SetSessionSecret(secret string) {
	sessionSecretMu.Lock()
	defer sessionSecretMu.Unlock()
	sessionSecret = secret
}

// CreateSlotHold signs claims with a TTL starting now.
func CreateSlotHold(claims SlotHoldClaims, ttl time.Duration, now time.Time) (string, error) {
	claims.IssuedAt = now.Unix()
	claims.ExpiresAt = now.Add(ttl).Unix()

	payload, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}

	encoded := base64.RawURLEncoding.EncodeToString(payload)
	return encoded + "." + signSession(encoded), nil
}

// ValidateSlotHold verifies the signature and expiry of a hold token.
func ValidateSlotHold(token string, now time.Time) (*SlotHoldClaims, error) {
	parts := strings.SplitN(token, ".", 2)
	if len(parts) != 2 {
		return nil, ErrHoldFormat
	}

	encoded, sig := parts[0], parts[1]
	if !hmac.Equal([]byte(sig), []byte(signSession(encoded))) {
		return nil, ErrHoldSignature
	}

	payload, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrHoldFormat
	}

	var claims SlotHoldClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, ErrHoldFormat
	}

	if now.Unix() > claims.ExpiresAt {
		return nil, ErrHoldExpired
	}

	return &claims, nil
}

// devSessionKey signs holds when no secret is configured. Development only.
const devSessionKey = "dev-session-key"

// sessionKey returns the configured secret, then ENCRYPTION_KEY, then the dev key
func sessionKey() (key string, configured bool) {
	sessionSecretMu.RLock()
	key = sessionSecret
	sessionSecretMu.RUnlock()

	if key == "" {
		key = os.Getenv("ENCRYPTION_KEY")
	}
	if key == "" {
		return devSessionKey, false
	}
	return key, true
}

// SessionSecretConfigured reports whether slot holds are signed with a real secret
func SessionSecretConfigured() bool {
	_, configured := sessionKey()
	return configured
}

// signSession creates an HMAC-SHA256 signature with a domain separator so the
// encryption key is never used directly.
func signSession(payload string) string {
	key, _ := sessionKey()

	mac := hmac.New(sha256.New, []byte("slot-hold:"+key))
	mac.Write([]byte(payload))
	return fmt.Sprintf("%x", mac.Sum(nil))
}
