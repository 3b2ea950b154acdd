package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"

	"golang.org/x/crypto/chacha20poly1305"

	"ciphera/internal/ciphererr"
)

// Seal encrypts plaintext with ChaCha20-Poly1305 under key/nonce, binding aad.
func Seal(key [32]byte, nonce [12]byte, aad, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, ciphererr.Wrap(ciphererr.Crypto, "crypto.Seal", "construct AEAD", err)
	}
	return aead.Seal(nil, nonce[:], plaintext, aad), nil
}

// Open decrypts and authenticates ciphertext with ChaCha20-Poly1305 under
// key/nonce, checking aad.
func Open(key [32]byte, nonce [12]byte, aad, ciphertext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, ciphererr.Wrap(ciphererr.Crypto, "crypto.Open", "construct AEAD", err)
	}
	pt, err := aead.Open(nil, nonce[:], ciphertext, aad)
	if err != nil {
		return nil, ciphererr.Wrap(ciphererr.Crypto, "crypto.Open", "authentication failed", err)
	}
	return pt, nil
}

// DeriveNonce computes the 12-byte AEAD nonce for message number n under
// message key mk: the first 12 bytes of HMAC-SHA256(mk, leU64(n)).
func DeriveNonce(mk [32]byte, n uint64) [12]byte {
	var nonce [12]byte
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], n)

	mac := hmac.New(sha256.New, mk[:])
	mac.Write(buf[:])
	sum := mac.Sum(nil)
	copy(nonce[:], sum[:12])
	return nonce
}
