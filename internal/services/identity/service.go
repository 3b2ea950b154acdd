package identity

import (
	"ciphera/internal/crypto"
	"ciphera/internal/domain"
)

// Service generates and reports on the local identity, persisting it
// through a domain.IdentityStore.
type Service struct {
	store domain.IdentityStore
}

// New constructs an identity Service backed by store.
func New(store domain.IdentityStore) *Service {
	return &Service{store: store}
}

var _ domain.IdentityService = (*Service)(nil)

// Generate creates a fresh identity and persists it under passphrase.
func (s *Service) Generate(passphrase string) (domain.Identity, domain.Fingerprint, error) {
	xPriv, xPub, err := crypto.GenerateX25519()
	if err != nil {
		return domain.Identity{}, "", err
	}
	edPriv, edPub, err := crypto.GenerateEd25519()
	if err != nil {
		return domain.Identity{}, "", err
	}

	id := domain.Identity{XPriv: xPriv, XPub: xPub, EdPriv: edPriv, EdPub: edPub}
	if err := s.store.SaveIdentity(id, passphrase); err != nil {
		return domain.Identity{}, "", err
	}
	return id, domain.Fingerprint(crypto.Fingerprint(id.XPub.Slice())), nil
}

// Fingerprint returns the fingerprint of the stored identity.
func (s *Service) Fingerprint(passphrase string) (domain.Fingerprint, error) {
	id, err := s.store.LoadIdentity(passphrase)
	if err != nil {
		return "", err
	}
	return domain.Fingerprint(crypto.Fingerprint(id.XPub.Slice())), nil
}
