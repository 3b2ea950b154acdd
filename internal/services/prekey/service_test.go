package prekey_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ciphera/internal/domain"
	identitysvc "ciphera/internal/services/identity"
	"ciphera/internal/services/prekey"
	"ciphera/internal/store"
)

func newService(t *testing.T) (*prekey.Service, domain.PreKeyStore) {
	t.Helper()
	home := t.TempDir()
	idStore := store.NewIdentityFileStore(home)
	pkStore := store.NewPreKeyFileStore(home)

	_, _, err := identitysvc.New(idStore).Generate("pass")
	require.NoError(t, err)

	return prekey.New(idStore, pkStore), pkStore
}

func TestPreKey_GenerateAndStore_MintsSignedAndOneTime(t *testing.T) {
	svc, pkStore := newService(t)

	spk, otks, err := svc.GenerateAndStore("pass", 3)
	require.NoError(t, err)
	require.Equal(t, uint32(1), spk.ID)
	require.Len(t, otks, 3)

	currentID, ok, err := pkStore.CurrentSignedPreKeyID()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, spk.ID, currentID)

	publics, err := pkStore.ListOneTimePreKeyPublics()
	require.NoError(t, err)
	require.Len(t, publics, 3)
}

func TestPreKey_LoadBundle_AdvertisesLowestIDOneTimeKey(t *testing.T) {
	svc, _ := newService(t)

	_, _, err := svc.GenerateAndStore("pass", 2)
	require.NoError(t, err)

	bundle, err := svc.LoadBundle("pass", "alice")
	require.NoError(t, err)
	require.Equal(t, "alice", bundle.Username)
	require.NotNil(t, bundle.OneTimePreKeyID)
	require.Equal(t, uint32(1), *bundle.OneTimePreKeyID)

	x3dhBundle, err := bundle.ToX3DH()
	require.NoError(t, err)
	require.NotNil(t, x3dhBundle.OneTimePreKey)
}

func TestPreKey_Replenish_ToppsUpOneTimeKeysWithoutRotating(t *testing.T) {
	svc, pkStore := newService(t)

	_, _, err := svc.GenerateAndStore("pass", 1)
	require.NoError(t, err)

	require.NoError(t, svc.Replenish("pass", 5))

	publics, err := pkStore.ListOneTimePreKeyPublics()
	require.NoError(t, err)
	require.Len(t, publics, 5)

	// Freshly minted, so the signed prekey is nowhere near RotationDueAt:
	// Replenish must not have rotated it.
	currentID, ok, err := pkStore.CurrentSignedPreKeyID()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint32(1), currentID)
}

func TestPreKey_Replenish_RotatesSignedPreKeyPastDue(t *testing.T) {
	svc, pkStore := newService(t)

	spk, _, err := svc.GenerateAndStore("pass", 1)
	require.NoError(t, err)

	// Force the current signed prekey into the past so Replenish rotates it.
	priv, _, _, err := pkStore.LoadSignedPreKey(spk.ID)
	require.NoError(t, err)
	spk.RotationDueAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, pkStore.SaveSignedPreKey(spk, priv))

	require.NoError(t, svc.Replenish("pass", 1))

	currentID, ok, err := pkStore.CurrentSignedPreKeyID()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, spk.ID+1, currentID)

	_, newSPK, found, err := pkStore.LoadSignedPreKey(currentID)
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, newSPK.RotationDueAt.After(time.Now().UTC()))
}
