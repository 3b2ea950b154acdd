// Package domain defines Ciphera's shared data model and the interfaces
// that connect the X3DH/Double Ratchet core to its external collaborators:
// on-disk stores, the relay client, and the CLI's service layer.
//
// domain holds plain types and contracts only — no persistence, no
// transport, no cryptographic derivation. Those live in internal/store,
// internal/relay, and internal/crypto/internal/x3dh/internal/ratchet
// respectively.
package domain
