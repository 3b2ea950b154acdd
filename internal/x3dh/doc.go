// Package x3dh implements the Extended Triple Diffie-Hellman handshake:
// the asynchronous key agreement that lets an initiator derive a shared
// 32-byte root secret from a responder's published prekey bundle without
// the responder being online.
//
// Both halves compute DH1..DH4 over Curve25519, concatenate them in a fixed
// order and run the result through HKDF-SHA256 to produce the shared
// secret. The package has no knowledge of transport, storage or the
// higher-level Double Ratchet session that consumes its output — see
// internal/ratchet for that.
package x3dh
