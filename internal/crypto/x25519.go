package crypto

import (
	"crypto/rand"

	"golang.org/x/crypto/curve25519"

	"ciphera/internal/ciphererr"
)

// GenerateX25519 generates a new X25519 keypair, clamping the private key
// per RFC 7748 and returning (priv, pub).
func GenerateX25519() (priv X25519Private, pub X25519Public, err error) {
	if _, err = rand.Read(priv[:]); err != nil {
		return priv, pub, ciphererr.Wrap(ciphererr.Crypto, "crypto.GenerateX25519", "read randomness", err)
	}
	ClampX25519PrivateKey(&priv)
	pubBytes, err := curve25519.X25519(priv.Slice(), curve25519.Basepoint)
	if err != nil {
		return priv, pub, ciphererr.Wrap(ciphererr.Crypto, "crypto.GenerateX25519", "derive public key", err)
	}
	copy(pub[:], pubBytes)
	return priv, pub, nil
}

// DH performs a Curve25519 Diffie-Hellman between priv and pub, returning a
// 32-byte shared secret. It rejects an all-zero peer public key, which would
// otherwise produce a degenerate shared secret.
func DH(priv X25519Private, pub X25519Public) (shared [32]byte, err error) {
	if pub.IsZero() {
		return shared, ciphererr.New(ciphererr.Key, "crypto.DH", "peer public key is zero")
	}
	secret, err := curve25519.X25519(priv.Slice(), pub.Slice())
	if err != nil {
		return shared, ciphererr.Wrap(ciphererr.Crypto, "crypto.DH", "scalar multiplication failed", err)
	}
	copy(shared[:], secret)
	return shared, nil
}

// ClampX25519PrivateKey applies RFC 7748 clamping to a 32-byte scalar in place.
func ClampX25519PrivateKey(k *X25519Private) {
	k[0] &= 248
	k[31] &= 127
	k[31] |= 64
}
