package crypto

import (
	"encoding/hex"
	"fmt"

	"ciphera/internal/ciphererr"
)

func errWrongLength(what string, want, got int) error {
	return ciphererr.New(ciphererr.Key, "crypto.parse",
		fmt.Sprintf("%s: want %d bytes, got %d", what, want, got))
}

// X25519Public is a Curve25519 public key.
type X25519Public [32]byte

// X25519Private is a clamped Curve25519 scalar.
type X25519Private [32]byte

// Ed25519Public is an Ed25519 verifying key.
type Ed25519Public [32]byte

// Ed25519Private is an Ed25519 signing key (seed || public, 64 bytes).
type Ed25519Private [64]byte

func (k X25519Public) Slice() []byte  { return k[:] }
func (k X25519Private) Slice() []byte { return k[:] }
func (k Ed25519Public) Slice() []byte { return k[:] }
func (k Ed25519Private) Slice() []byte { return k[:] }

func (k X25519Public) Hex() string  { return hex.EncodeToString(k[:]) }
func (k Ed25519Public) Hex() string { return hex.EncodeToString(k[:]) }

// IsZero reports whether k is the all-zero key, which Ciphera never treats
// as a valid public key.
func (k X25519Public) IsZero() bool {
	var zero X25519Public
	return k == zero
}

// ParseX25519Public decodes a 32-byte public key.
func ParseX25519Public(b []byte) (X25519Public, error) {
	var out X25519Public
	if len(b) != len(out) {
		return out, errWrongLength("X25519 public key", len(out), len(b))
	}
	copy(out[:], b)
	return out, nil
}

// ParseX25519PublicHex decodes a hex-encoded 32-byte public key.
func ParseX25519PublicHex(s string) (X25519Public, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return X25519Public{}, err
	}
	return ParseX25519Public(b)
}

// ParseEd25519Public decodes a 32-byte verifying key.
func ParseEd25519Public(b []byte) (Ed25519Public, error) {
	var out Ed25519Public
	if len(b) != len(out) {
		return out, errWrongLength("Ed25519 public key", len(out), len(b))
	}
	copy(out[:], b)
	return out, nil
}

// ParseEd25519PublicHex decodes a hex-encoded 32-byte verifying key.
func ParseEd25519PublicHex(s string) (Ed25519Public, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Ed25519Public{}, err
	}
	return ParseEd25519Public(b)
}
