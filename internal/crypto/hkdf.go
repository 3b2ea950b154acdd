package crypto

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"

	"ciphera/internal/ciphererr"
)

// HKDF derives length bytes from ikm using HKDF-SHA256 with the given salt
// and info. salt may be nil (treated as a zero-filled salt of hash length).
func HKDF(ikm, salt, info []byte, length int) ([]byte, error) {
	r := hkdf.New(sha256.New, ikm, salt, info)
	out := make([]byte, length)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, ciphererr.Wrap(ciphererr.Crypto, "crypto.HKDF", "expand", err)
	}
	return out, nil
}
