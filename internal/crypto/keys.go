package crypto

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/hkdf"
)

// KeySize is the length of the master key and every derived key.
const KeySize = 32

// HKDF info strings for derived keys.
const (
	InfoSession = "nutritrack-session-v1"
	InfoBackup  = "nutritrack-backup-v1"
)

// ErrInvalidKeyLength is returned when a key is not KeySize bytes.
var ErrInvalidKeyLength = errors.New("invalid key length")

// ReadMasterKey loads the hex master key from MASTER_KEY_HEX, falling back
// to the file at path.
func ReadMasterKey(path string) ([]byte, error) {
	h := os.Getenv("MASTER_KEY_HEX")
	if h == "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("MASTER_KEY_HEX not set and %s not readable: %w", path, err)
		}
		h = string(data)
	}
	return ParseMasterKey(h)
}

// ParseMasterKey decodes a 64 character hex key.
func ParseMasterKey(h string) ([]byte, error) {
	b, err := hex.DecodeString(strings.TrimSpace(h))
	if err != nil {
		return nil, fmt.Errorf("master key hex decode error: %w", err)
	}
	if len(b) != KeySize {
		return nil, fmt.Errorf("%w: master key must be %d bytes (hex %d chars)", ErrInvalidKeyLength, KeySize, KeySize*2)
	}
	return b, nil
}

// DeriveKey expands master into a purpose-bound subkey using HKDF-SHA256.
func DeriveKey(master []byte, info string) ([]byte, error) {
	if len(master) != KeySize {
		return nil, ErrInvalidKeyLength
	}
	h := hkdf.New(sha256.New, master, nil, []byte(info))
	out := make([]byte, KeySize)
	if _, err := io.ReadFull(h, out); err != nil {
		return nil, err
	}
	return out, nil
}

// MustRandom returns n random bytes or panics.
func MustRandom(n int) []byte {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		panic(err)
	}
	return b
}

// NewToken returns a URL-safe random bearer token.
func NewToken() string {
	return base64.RawURLEncoding.EncodeToString(MustRandom(32))
}

// MAC returns hex(HMAC-SHA256(key, msg)).
func MAC(key []byte, msg string) string {
	m := hmac.New(sha256.New, key)
	m.Write([]byte(msg))
	return hex.EncodeToString(m.Sum(nil))
}
