package store

import (
	"crypto/rand"
	"encoding/json"
	"errors"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"ciphera/internal/ciphererr"
)

// blob is the on-disk JSON structure holding the ciphertext and KDF
// parameters for a passphrase-sealed secret.
type blob struct {
	V       int    `json:"v"`
	Salt    []byte `json:"salt"`
	Nonce   []byte `json:"nonce"`
	Time    uint32 `json:"argon2_time"`
	Memory  uint32 `json:"argon2_memory_kib"`
	Threads uint8  `json:"argon2_threads"`
	Cipher  []byte `json:"cipher"`
}

const blobVersion = 1

// argon2Params are the tunables for the Argon2id key derivation used to
// seal the identity's private material at rest.
type argon2Params struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
}

func argon2ParamsDefault() argon2Params {
	return argon2Params{Time: 3, Memory: 64 * 1024, Threads: 4}
}

// errWrongPassphrase is returned when the passphrase is incorrect or the
// ciphertext has been modified.
var errWrongPassphrase = errors.New("wrong passphrase or corrupted secret")

// seal derives a key from passphrase via Argon2id and encrypts raw with
// ChaCha20-Poly1305, returning a JSON-encoded blob.
func seal(passphrase string, raw []byte, params argon2Params) ([]byte, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, ciphererr.Wrap(ciphererr.Crypto, "store.seal", "read salt", err)
	}
	key := argon2.IDKey([]byte(passphrase), salt, params.Time, params.Memory, params.Threads, chacha20poly1305.KeySize)

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, ciphererr.Wrap(ciphererr.Crypto, "store.seal", "construct AEAD", err)
	}
	nonce := make([]byte, chacha20poly1305.NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, ciphererr.Wrap(ciphererr.Crypto, "store.seal", "read nonce", err)
	}
	ct := aead.Seal(nil, nonce, raw, salt)

	return json.Marshal(blob{
		V:       blobVersion,
		Salt:    salt,
		Nonce:   nonce,
		Time:    params.Time,
		Memory:  params.Memory,
		Threads: params.Threads,
		Cipher:  ct,
	})
}

// open decrypts a JSON blob previously produced by seal.
func open(passphrase string, b []byte) ([]byte, error) {
	var bl blob
	if err := json.Unmarshal(b, &bl); err != nil {
		return nil, ciphererr.Wrap(ciphererr.Serialization, "store.open", "unmarshal blob", err)
	}
	if bl.V > blobVersion {
		return nil, ciphererr.New(ciphererr.Serialization, "store.open", "unsupported blob version")
	}

	key := argon2.IDKey([]byte(passphrase), bl.Salt, bl.Time, bl.Memory, bl.Threads, chacha20poly1305.KeySize)
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, ciphererr.Wrap(ciphererr.Crypto, "store.open", "construct AEAD", err)
	}
	pt, err := aead.Open(nil, bl.Nonce, bl.Cipher, bl.Salt)
	if err != nil {
		return nil, ciphererr.Wrap(ciphererr.Key, "store.open", "", errWrongPassphrase)
	}
	return pt, nil
}
