package domain

import (
	"errors"

	"ciphera/internal/crypto"
)

// Identity holds a long-term X25519 Diffie-Hellman keypair and a long-term
// Ed25519 signing keypair, generated independently of one another.
type Identity struct {
	XPriv crypto.X25519Private
	XPub  crypto.X25519Public

	EdPriv crypto.Ed25519Private
	EdPub  crypto.Ed25519Public
}

// ErrIdentityExists is returned when Generate is called but an identity is
// already present in the store.
var ErrIdentityExists = errors.New("identity already exists")

// IdentityService generates and reports on the local identity.
type IdentityService interface {
	// Generate creates a new Identity, persists it under passphrase, and
	// returns it along with its X25519 fingerprint.
	Generate(passphrase string) (Identity, Fingerprint, error)
	// Fingerprint returns the fingerprint of the stored identity.
	Fingerprint(passphrase string) (Fingerprint, error)
}

// IdentityStore persists the local identity, encrypted at rest under passphrase.
type IdentityStore interface {
	SaveIdentity(id Identity, passphrase string) error
	LoadIdentity(passphrase string) (Identity, error)
}
