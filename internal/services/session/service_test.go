package session_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"ciphera/internal/crypto"
	"ciphera/internal/domain"
	"ciphera/internal/services/session"
)

func TestInitiateSession_PersistsInitiatorSession(t *testing.T) {
	alice := domain.Identity{}
	alice.XPriv, alice.XPub, _ = crypto.GenerateX25519()

	bobX, bobXPub, err := crypto.GenerateX25519()
	require.NoError(t, err)
	bobEdPriv, bobEdPub, err := crypto.GenerateEd25519()
	require.NoError(t, err)
	spkPriv, spkPub, err := crypto.GenerateX25519()
	require.NoError(t, err)
	_ = spkPriv
	_ = bobX

	spk := domain.SignedPreKey{ID: 1, Key: spkPub, Sig: crypto.Sign(bobEdPriv, spkPub[:])}
	wireBundle := domain.PreKeyBundleFrom("bob", bobXPub, bobEdPub, spk, nil)

	idStore := &fakeIdentityStore{id: alice}
	bundleStore := &fakeBundleStore{}
	sessionStore := newFakeSessionStore()
	relay := &fakeRelayClient{bundle: wireBundle}

	svc := session.New(idStore, bundleStore, sessionStore, relay)

	sess, err := svc.InitiateSession(context.Background(), "pass", "bob")
	require.NoError(t, err)
	require.True(t, sess.IsInitiator)
	require.Len(t, sess.RootKey, 32)
	require.Equal(t, bobXPub, sess.PeerIdentityKey)
	require.NotEqual(t, crypto.X25519Private{}, sess.InitiatorEphemeralPriv)

	got, ok, err := sessionStore.LoadSession("bob")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, sess.RootKey, got.RootKey)

	require.Equal(t, domain.Username("bob"), bundleStore.saved.Username)
}

func TestInitiateSession_RejectsBadSignature(t *testing.T) {
	alice := domain.Identity{}
	alice.XPriv, alice.XPub, _ = crypto.GenerateX25519()

	bobXPub := crypto.X25519Public{1, 2, 3}
	_, bobEdPub, err := crypto.GenerateEd25519()
	require.NoError(t, err)
	_, spkPub, err := crypto.GenerateX25519()
	require.NoError(t, err)

	// Signature is garbage, not actually over spkPub.
	spk := domain.SignedPreKey{ID: 1, Key: spkPub, Sig: []byte("not a real signature")}
	wireBundle := domain.PreKeyBundleFrom("bob", bobXPub, bobEdPub, spk, nil)

	idStore := &fakeIdentityStore{id: alice}
	bundleStore := &fakeBundleStore{}
	sessionStore := newFakeSessionStore()
	relay := &fakeRelayClient{bundle: wireBundle}

	svc := session.New(idStore, bundleStore, sessionStore, relay)

	_, err = svc.InitiateSession(context.Background(), "pass", "bob")
	require.Error(t, err)
}

func TestGetSession_NotFound(t *testing.T) {
	svc := session.New(&fakeIdentityStore{}, &fakeBundleStore{}, newFakeSessionStore(), &fakeRelayClient{})

	_, ok, err := svc.GetSession("nobody")
	require.NoError(t, err)
	require.False(t, ok)
}
