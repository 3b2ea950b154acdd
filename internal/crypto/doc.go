// Package crypto exposes the cryptographic primitives the rest of Ciphera
// is built from: X25519 key agreement, Ed25519 signatures, HKDF-SHA256
// derivation, AEAD sealing and best-effort key wiping.
//
// # Contents
//
//   - Fixed-size key types (X25519Public, X25519Private, Ed25519Public,
//     Ed25519Private) so callers never pass the wrong byte slice around.
//   - X25519 key generation, RFC 7748 clamping and Diffie-Hellman
//     (GenerateX25519, ClampX25519PrivateKey, DH).
//   - Ed25519 key generation, signing and verification (GenerateEd25519,
//     Sign, Verify).
//   - HKDF-SHA256 derivation (HKDF) and a chained message-key nonce
//     derivation (DeriveNonce).
//   - AEAD seal/open over ChaCha20-Poly1305 (Seal, Open).
//   - Best-effort memory wiping for sensitive byte slices (Wipe).
//   - Short public-key fingerprints for display/logging (Fingerprint).
//
// This package depends on no other Ciphera package except internal/ciphererr,
// for its error kinds: every other layer (x3dh, ratchet, domain, store,
// services) builds on top of it, never the other way around.
package crypto
