package crypto

import (
	"crypto/hmac"
	"crypto/sha512"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// MACKeySize is the size in bytes of keys used for message authentication.
const MACKeySize = 32

// MACKey authenticates messages with HMAC-SHA512/256.
type MACKey [MACKeySize]byte

// DeriveMACKey derives a MACKey from secret using HKDF-SHA512/256. purpose is
// mixed into the derivation, so that keys derived from the same secret for
// different purposes are unrelated.
func DeriveMACKey(secret []byte, purpose string) (*MACKey, error) {
	if len(secret) == 0 {
		return nil, errors.New("secret must not be empty")
	}

	r := hkdf.New(sha512.New512_256, secret, nil, []byte(purpose))
	key := &MACKey{}
	if _, err := io.ReadFull(r, key[:]); err != nil {
		return nil, fmt.Errorf("failed deriving key: %w", err)
	}

	return key, nil
}

// Sign returns the MAC of data.
func (k *MACKey) Sign(data []byte) []byte {
	h := hmac.New(sha512.New512_256, k[:])
	h.Write(data)
	return h.Sum(nil)
}

// Verify reports whether mac is the MAC of data, in constant time.
func (k *MACKey) Verify(data, mac []byte) bool {
	return hmac.Equal(k.Sign(data), mac)
}
