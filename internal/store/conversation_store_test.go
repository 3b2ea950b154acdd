package store_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"ciphera/internal/crypto"
	"ciphera/internal/domain"
	"ciphera/internal/ratchet"
	"ciphera/internal/store"
)

func TestRatchet_SaveLoadConversation(t *testing.T) {
	s := store.NewRatchetFileStore(t.TempDir())

	_, ok, err := s.LoadConversation("bob")
	require.NoError(t, err)
	require.False(t, ok)

	sk := [32]byte{1, 2, 3}
	ephPriv, ephPub, err := crypto.GenerateX25519()
	require.NoError(t, err)

	sess, err := ratchet.NewInitiatorSession(sk[:], ephPriv, ephPub)
	require.NoError(t, err)

	conv := domain.Conversation{Peer: "bob", State: sess.Snapshot()}
	require.NoError(t, s.SaveConversation("bob", conv))

	got, ok, err := s.LoadConversation("bob")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, conv.State, got.State)
}

func TestSession_SaveLoad(t *testing.T) {
	s := store.NewSessionFileStore(t.TempDir())

	sess := domain.Session{
		PeerUsername:           "bob",
		RootKey:                []byte{1, 2, 3},
		PeerIdentityKey:        [32]byte{4},
		PeerSignedPreKey:       [32]byte{5},
		SignedPreKeyID:         7,
		InitiatorEphemeralKey:  [32]byte{6},
		InitiatorEphemeralPriv: [32]byte{7},
		IsInitiator:            true,
	}
	require.NoError(t, s.SaveSession("bob", sess))

	got, ok, err := s.LoadSession("bob")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, sess.RootKey, got.RootKey)
	require.Equal(t, sess.InitiatorEphemeralPriv, got.InitiatorEphemeralPriv)
	require.True(t, got.IsInitiator)

	_, ok, err = s.LoadSession("nobody")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestAccount_SaveLoad_KeyedByServerAndUsername(t *testing.T) {
	s := store.NewAccountFileStore(t.TempDir())

	profile := domain.AccountProfile{
		ServerURL: "http://127.0.0.1:8080",
		Username:  "alice",
		Canary:    "abc123",
	}
	require.NoError(t, s.SaveAccountProfile(profile))

	got, ok, err := s.LoadAccountProfile("http://127.0.0.1:8080", "alice")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "abc123", got.Canary)

	_, ok, err = s.LoadAccountProfile("http://127.0.0.1:8080", "bob")
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = s.LoadAccountProfile("http://other:1", "alice")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestBundle_SaveLoad(t *testing.T) {
	s := store.NewBundleFileStore(t.TempDir())

	_, ok, err := s.LoadPreKeyBundle("alice")
	require.NoError(t, err)
	require.False(t, ok)

	bundle := domain.PreKeyBundle{Username: "alice", IdentityKey: "aa"}
	require.NoError(t, s.SavePreKeyBundle(bundle))

	got, ok, err := s.LoadPreKeyBundle("alice")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "aa", got.IdentityKey)
}
