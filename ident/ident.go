// Package ident converts instance identifiers between their external
// 32 character lowercase hex form and their 16 byte binary form.
package ident

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrInvalidIdentity is returned when an identifier is malformed.
var ErrInvalidIdentity = errors.New("invalid identity")

// Len is the length of an external identifier.
const Len = 32

// Key is the binary form of an identifier.
type Key = uuid.UUID

// Pack converts the external form s into its binary key.
// s must be exactly 32 lowercase hex characters.
func Pack(s string) (Key, error) {
	if len(s) != Len {
		return Key{}, fmt.Errorf("%w: length %d", ErrInvalidIdentity, len(s))
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9') && !(c >= 'a' && c <= 'f') {
			return Key{}, fmt.Errorf("%w: character %q at %d", ErrInvalidIdentity, c, i)
		}
	}
	// uuid.Parse accepts the bare 32 hex character form.
	k, err := uuid.Parse(s)
	if err != nil {
		return Key{}, fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
	}
	return k, nil
}

// Unpack converts k into its external form.
func Unpack(k Key) string {
	return hex.EncodeToString(k[:])
}

// PackBytes is like Pack but returns a byte slice suitable for storage.
func PackBytes(s string) ([]byte, error) {
	k, err := Pack(s)
	if err != nil {
		return nil, err
	}
	return k[:], nil
}

// UnpackBytes converts a 16 byte slice into its external form.
func UnpackBytes(b []byte) (string, error) {
	k, err := uuid.FromBytes(b)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
	}
	return Unpack(k), nil
}

// Valid reports whether s is a well-formed external identifier.
func Valid(s string) bool {
	_, err := Pack(s)
	return err == nil
}
