// Package ratchet implements the symmetric chain and Double Ratchet session
// that run on top of an X3DH shared secret.
//
// A Chain is a 32-byte seed advanced one step per message via HKDF-SHA256
// with the normative labels "mk" (message key) and "ck" (next chain key). A
// State wraps a sending and a receiving Chain, both derived directly from
// the shared secret at construction (no DH, no root key), and exposes
// Encrypt/Decrypt over Envelope, whose wire form is JSON-then-base64.
// The receiving chain is re-keyed via a fresh Curve25519 DH output only when
// an inbound envelope advertises a DH public key that differs from the one
// already on file; the first observation of the peer's key is recorded, not
// ratcheted against, so both sides make the same decision independently.
package ratchet
