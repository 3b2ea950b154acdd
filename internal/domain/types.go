package domain

// Username identifies an account on a relay.
type Username string

// String returns u as a plain string.
func (u Username) String() string { return string(u) }

// ConversationID identifies a Double Ratchet conversation, currently the
// peer's Username.
type ConversationID string

// Fingerprint is a human-readable digest of an identity's X25519 public key.
type Fingerprint string
