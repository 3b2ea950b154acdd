package ratchet

import "ciphera/internal/crypto"

// Chain is a symmetric KDF chain: a 32-byte key advanced one step per
// message. The labels "mk" and "ck" are normative and bind this
// implementation; both peers must use the same labels.
type Chain struct {
	key     [32]byte
	counter uint32
	set     bool
}

func newChain(key [32]byte) Chain {
	return Chain{key: key, counter: 0, set: true}
}

// step emits the message key for the current position and advances the
// chain. The old chain key is overwritten and is not retrievable afterward.
func (c *Chain) step() (messageKey [32]byte, err error) {
	mk, err := crypto.HKDF(c.key[:], nil, []byte("mk"), 32)
	if err != nil {
		return messageKey, err
	}
	ck, err := crypto.HKDF(c.key[:], nil, []byte("ck"), 32)
	if err != nil {
		return messageKey, err
	}
	copy(messageKey[:], mk)

	old := c.key
	copy(c.key[:], ck)
	crypto.Wipe(old[:])
	c.counter++
	return messageKey, nil
}

// wipe zeroes the chain's key material.
func (c *Chain) wipe() {
	crypto.Wipe(c.key[:])
	c.set = false
}
