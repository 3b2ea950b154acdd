package store_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"ciphera/internal/domain"
	"ciphera/internal/store"
)

func TestIdentity_SaveLoad_OK(t *testing.T) {
	home := t.TempDir()
	pass := "correct horse battery staple"

	var ids domain.IdentityStore = store.NewIdentityFileStore(home)

	id := domain.Identity{
		XPub:   [32]byte{1},
		XPriv:  [32]byte{2},
		EdPub:  [32]byte{3},
		EdPriv: [64]byte{4},
	}
	require.NoError(t, ids.SaveIdentity(id, pass))

	got, err := ids.LoadIdentity(pass)
	require.NoError(t, err)
	require.Equal(t, id.XPub, got.XPub)
	require.Equal(t, id.EdPub, got.EdPub)
}

func TestIdentity_WrongPassphrase_Fails(t *testing.T) {
	home := t.TempDir()
	var ids domain.IdentityStore = store.NewIdentityFileStore(home)

	id := domain.Identity{XPub: [32]byte{1}, XPriv: [32]byte{2}}
	require.NoError(t, ids.SaveIdentity(id, "correct"))

	_, err := ids.LoadIdentity("wrong")
	require.Error(t, err)
}

func TestIdentity_SecondSave_Fails(t *testing.T) {
	home := t.TempDir()
	var ids domain.IdentityStore = store.NewIdentityFileStore(home)

	id := domain.Identity{XPub: [32]byte{9}}
	require.NoError(t, ids.SaveIdentity(id, "pass"))

	err := ids.SaveIdentity(id, "pass")
	require.ErrorIs(t, err, domain.ErrIdentityExists)
}
