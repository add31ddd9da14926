package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

const encryptedPrefix = "enc:"

var (
	encryptionKey    []byte
	keyMu            sync.RWMutex
	keyOnce          sync.Once
	ErrNoKey         = errors.New("ENCRYPTION_KEY environment variable not set")
	ErrDecryptFailed = errors.New("decryption failed")
)

// PIIFields defines which fields are encrypted at rest per collection
var PIIFields = map[string][]string{
	CollectionBookings: {"client_email", "client_phone", "partner_name", "notes"},
}

// BlindIndexFields maps an encrypted field to its searchable index field
var BlindIndexFields = map[string]map[string]string{
	CollectionBookings: {"client_email": "client_email_index"},
}

// initKey derives a 32-byte key from the environment variable
func initKey() {
	keyStr := os.Getenv("ENCRYPTION_KEY")
	if keyStr == "" {
		log.Printf("[Crypto] Warning: ENCRYPTION_KEY not set, encryption disabled")
		return
	}
	SetEncryptionKey(keyStr)
	log.Printf("[Crypto] Encryption key initialized")
}

// SetEncryptionKey derives the AES key from secret. An empty secret disables encryption.
func SetEncryptionKey(secret string) {
	keyMu.Lock()
	defer keyMu.Unlock()
	if secret == "" {
		encryptionKey = nil
		return
	}
	hash := sha256.Sum256([]byte(secret))
	encryptionKey = hash[:]
}

func currentKey() []byte {
	keyOnce.Do(initKey)
	keyMu.RLock()
	defer keyMu.RUnlock()
	return encryptionKey
}

// IsEncryptionEnabled returns true if encryption is configured
func IsEncryptionEnabled() bool {
	return currentKey() != nil
}

// IsEncrypted reports whether a stored value carries the ciphertext prefix
func IsEncrypted(value string) bool {
	return strings.HasPrefix(value, encryptedPrefix)
}

// Encrypt encrypts plaintext using AES-256-GCM.
// Returns "enc:" + base64(nonce || ciphertext), or the input unchanged when
// encryption is not configured.
func Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	key := currentKey()
	if key == nil {
		return plaintext, nil
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return encryptedPrefix + base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt decrypts a value produced by Encrypt.
// Values without the prefix are returned as-is (legacy plaintext).
func Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}

	if !IsEncrypted(ciphertext) {
		return ciphertext, nil
	}

	key := currentKey()
	if key == nil {
		return ciphertext, ErrNoKey
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(ciphertext, encryptedPrefix))
	if err != nil {
		return ciphertext, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return ciphertext, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return ciphertext, err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return ciphertext, ErrDecryptFailed
	}

	nonce, sealed := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return ciphertext, ErrDecryptFailed
	}

	return string(plaintext), nil
}

// BlindIndex creates a deterministic HMAC-SHA256 of the normalised value
// so encrypted emails can still be looked up by equality.
func BlindIndex(value string) string {
	if value == "" {
		return ""
	}

	key := currentKey()
	if key == nil {
		return ""
	}

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(NormalizeEmail(value)))
	return hex.EncodeToString(mac.Sum(nil))
}

// DecryptField decrypts value, returning it unchanged on failure
func DecryptField(value string) string {
	if value == "" {
		return ""
	}
	decrypted, err := Decrypt(value)
	if err != nil {
		return value
	}
	return decrypted
}

// EncryptPIIFields encrypts the collection's PII fields in data and fills in
// blind indexes. Already-encrypted values are left alone.
func EncryptPIIFields(collectionName string, data map[string]any) map[string]any {
	for _, field := range PIIFields[collectionName] {
		strVal, ok := data[field].(string)
		if !ok || strVal == "" || IsEncrypted(strVal) {
			continue
		}
		if encrypted, err := Encrypt(strVal); err == nil {
			data[field] = encrypted
		}
	}

	for field, indexField := range BlindIndexFields[collectionName] {
		if strVal, ok := data[field].(string); ok && strVal != "" {
			data[indexField] = BlindIndex(DecryptField(strVal))
		}
	}

	return data
}
