// Package store provides file-based persistence for Ciphera's local state:
// the identity keypair, prekey material, X3DH sessions, Double Ratchet
// conversations, published bundles, and per-relay account profiles.
//
// All data is serialised as JSON on disk under the user's configured home
// directory, written atomically via a temp-file-then-rename, and guarded by
// an in-process mutex per store. The identity's private keys are additionally
// sealed with an Argon2id-derived key before they touch disk; everything else,
// including prekey private keys, session root keys and ratchet state, is
// plaintext JSON.
//
// The package includes stores for:
//   - Identity keys (IdentityFileStore)
//   - Prekeys (PreKeyFileStore)
//   - Prekey bundles (BundleFileStore)
//   - X3DH sessions (SessionFileStore)
//   - Double Ratchet conversations (RatchetFileStore)
//   - Per-relay account profiles (AccountFileStore)
package store
