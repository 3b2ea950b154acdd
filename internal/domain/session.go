package domain

import (
	"context"

	"ciphera/internal/crypto"
)

// Session records the outcome of an X3DH handshake: the derived root key
// and the metadata needed to hand it to internal/ratchet.
type Session struct {
	PeerUsername          Username
	RootKey               []byte
	PeerIdentityKey       crypto.X25519Public
	PeerSignedPreKey      crypto.X25519Public
	CreatedUTC            int64
	SignedPreKeyID        uint32
	OneTimePreKeyID       *uint32
	InitiatorEphemeralKey crypto.X25519Public
	// InitiatorEphemeralPriv is only populated, and only meaningful, on the
	// initiator's own copy of the session: it is the private half of
	// InitiatorEphemeralKey, reused as the first local ratchet keypair
	// instead of minting a second one.
	InitiatorEphemeralPriv crypto.X25519Private
	IsInitiator            bool
}

// SessionService runs X3DH against a peer's published bundle and persists
// the resulting Session.
type SessionService interface {
	InitiateSession(ctx context.Context, passphrase string, peer Username) (Session, error)
	GetSession(peer Username) (Session, bool, error)
}

// SessionStore persists X3DH session material.
type SessionStore interface {
	SaveSession(peer Username, s Session) error
	LoadSession(peer Username) (Session, bool, error)
}
