package ratchet

import (
	"ciphera/internal/ciphererr"
	"ciphera/internal/crypto"
)

// EncryptWithSessionKey seals plaintext under key directly, without any DH
// ratchet: key is treated as a chain key, stepped once to derive a message
// key, exactly as the symmetric chain (see chain.go) does inside a full
// session. It exists for the encrypt/decrypt CLI subcommands, which operate
// on a bare session key rather than a live session, so the Double Ratchet's
// DH component never comes into play; the header's DH public key is left
// zeroed to mark that.
func EncryptWithSessionKey(key [32]byte, plaintext []byte) (Envelope, error) {
	chain := newChain(key)

	mk, err := chain.step()
	if err != nil {
		return Envelope{}, ciphererr.Wrap(ciphererr.Crypto, "ratchet.EncryptWithSessionKey", "advance chain", err)
	}
	defer crypto.Wipe(mk[:])

	nonce := crypto.DeriveNonce(mk, chain.counter)
	ct, err := crypto.Seal(mk, nonce, nil, plaintext)
	if err != nil {
		return Envelope{}, ciphererr.Wrap(ciphererr.Crypto, "ratchet.EncryptWithSessionKey", "seal", err)
	}

	return Envelope{
		Version:     1,
		MessageType: Regular,
		Ciphertext:  ct,
		Header: Header{
			DHPublicKey:   crypto.X25519Public{},
			MessageNumber: uint64(chain.counter),
		},
	}, nil
}

// DecryptWithSessionKey opens env against key using the same one-step chain
// derivation as EncryptWithSessionKey.
func DecryptWithSessionKey(key [32]byte, env Envelope) ([]byte, error) {
	if !env.Header.DHPublicKey.IsZero() {
		return nil, ciphererr.New(ciphererr.Protocol, "ratchet.DecryptWithSessionKey", "envelope carries a DH public key; not a bare session-key envelope")
	}

	chain := newChain(key)
	mk, err := chain.step()
	if err != nil {
		return nil, ciphererr.Wrap(ciphererr.Crypto, "ratchet.DecryptWithSessionKey", "advance chain", err)
	}
	defer crypto.Wipe(mk[:])

	nonce := crypto.DeriveNonce(mk, env.Header.MessageNumber)
	pt, err := crypto.Open(mk, nonce, nil, env.Ciphertext)
	if err != nil {
		return nil, err
	}
	return pt, nil
}
