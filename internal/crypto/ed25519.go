package crypto

import (
	"crypto/ed25519"
	"crypto/rand"

	"ciphera/internal/ciphererr"
)

// GenerateEd25519 returns a new Ed25519 signing key pair.
func GenerateEd25519() (priv Ed25519Private, pub Ed25519Public, err error) {
	pk, sk, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return priv, pub, ciphererr.Wrap(ciphererr.Crypto, "crypto.GenerateEd25519", "generate key", err)
	}

	// write directly into the backing arrays
	copy(priv[:], sk)
	copy(pub[:], pk)

	return priv, pub, nil
}

// Sign signs msg with priv and returns the signature.
func Sign(priv Ed25519Private, msg []byte) []byte {
	return ed25519.Sign(ed25519.PrivateKey(priv.Slice()), msg)
}

// Verify reports whether sig is a valid signature over msg under pub.
func Verify(pub Ed25519Public, msg, sig []byte) bool {
	return ed25519.Verify(ed25519.PublicKey(pub.Slice()), msg, sig)
}
