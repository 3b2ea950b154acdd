package session

import (
	"context"
	"time"

	"ciphera/internal/domain"
	"ciphera/internal/x3dh"
)

// Service performs X3DH initiation and persists the resulting session.
//
//   - Load our own identity key pair from the identity store.
//   - Fetch the peer's prekey bundle from the relay.
//   - Run X3DH as the initiator to derive the root key and record which
//     prekeys were used.
//   - Persist the resulting Session for the message service.
type Service struct {
	idStore      domain.IdentityStore
	bundleStore  domain.PreKeyBundleStore
	sessionStore domain.SessionStore
	relayClient  domain.RelayClient
}

// New constructs a Session Service with the given stores and relay client.
func New(
	idStore domain.IdentityStore,
	bundleStore domain.PreKeyBundleStore,
	sessionStore domain.SessionStore,
	relayClient domain.RelayClient,
) *Service {
	return &Service{
		idStore:      idStore,
		bundleStore:  bundleStore,
		sessionStore: sessionStore,
		relayClient:  relayClient,
	}
}

var _ domain.SessionService = (*Service)(nil)

// InitiateSession fetches peer's bundle from the relay, runs X3DH as the
// initiator, and persists the resulting Session.
func (s *Service) InitiateSession(ctx context.Context, passphrase string, peer domain.Username) (domain.Session, error) {
	id, err := s.idStore.LoadIdentity(passphrase)
	if err != nil {
		return domain.Session{}, err
	}

	wireBundle, err := s.relayClient.FetchPreKeyBundle(ctx, peer)
	if err != nil {
		return domain.Session{}, err
	}
	_ = s.bundleStore.SavePreKeyBundle(wireBundle)

	bundle, err := wireBundle.ToX3DH()
	if err != nil {
		return domain.Session{}, err
	}

	rootKey, ephPriv, hs, err := x3dh.Initiate(id.XPriv, bundle)
	if err != nil {
		return domain.Session{}, err
	}

	sess := domain.Session{
		PeerUsername:           peer,
		RootKey:                rootKey[:],
		PeerIdentityKey:        bundle.IdentityKey,
		PeerSignedPreKey:       bundle.SignedPreKey,
		CreatedUTC:             time.Now().Unix(),
		SignedPreKeyID:         hs.SignedPreKeyID,
		OneTimePreKeyID:        hs.OneTimePreKeyID,
		InitiatorEphemeralKey:  hs.EphemeralPublic,
		InitiatorEphemeralPriv: ephPriv,
		IsInitiator:            true,
	}
	if err := s.sessionStore.SaveSession(peer, sess); err != nil {
		return domain.Session{}, err
	}
	return sess, nil
}

// GetSession retrieves a stored session for peer.
func (s *Service) GetSession(peer domain.Username) (domain.Session, bool, error) {
	return s.sessionStore.LoadSession(peer)
}
