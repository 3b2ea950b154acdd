package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"ciphera/internal/ciphererr"
	"ciphera/internal/domain"
)

const identityFile = "identity.json.enc"

// identityOnDisk is the plaintext shape sealed by seal/open.
type identityOnDisk struct {
	XPriv  [32]byte `json:"x_priv"`
	XPub   [32]byte `json:"x_pub"`
	EdPriv [64]byte `json:"ed_priv"`
	EdPub  [32]byte `json:"ed_pub"`
}

// IdentityFileStore persists the local identity, sealed under a
// passphrase-derived Argon2id key.
type IdentityFileStore struct {
	dir string
	mu  sync.Mutex
}

// NewIdentityFileStore returns an IdentityFileStore rooted at dir.
func NewIdentityFileStore(dir string) *IdentityFileStore {
	return &IdentityFileStore{dir: dir}
}

func (s *IdentityFileStore) path() string { return filepath.Join(s.dir, identityFile) }

// SaveIdentity seals and writes id. It refuses to overwrite an existing identity.
func (s *IdentityFileStore) SaveIdentity(id domain.Identity, passphrase string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path()); err == nil {
		return domain.ErrIdentityExists
	}

	raw, err := json.Marshal(identityOnDisk{
		XPriv:  id.XPriv,
		XPub:   id.XPub,
		EdPriv: id.EdPriv,
		EdPub:  id.EdPub,
	})
	if err != nil {
		return ciphererr.Wrap(ciphererr.Serialization, "store.IdentityFileStore.SaveIdentity", "marshal", err)
	}

	ct, err := seal(passphrase, raw, argon2ParamsDefault())
	if err != nil {
		return err
	}
	return writeFile(s.path(), ct, 0o600)
}

// LoadIdentity reads and unseals the identity.
func (s *IdentityFileStore) LoadIdentity(passphrase string) (domain.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path())
	if err != nil {
		return domain.Identity{}, ciphererr.Wrap(ciphererr.State, "store.IdentityFileStore.LoadIdentity", "read", err)
	}
	pt, err := open(passphrase, b)
	if err != nil {
		return domain.Identity{}, err
	}

	var v identityOnDisk
	if err := json.Unmarshal(pt, &v); err != nil {
		return domain.Identity{}, ciphererr.Wrap(ciphererr.Serialization, "store.IdentityFileStore.LoadIdentity", "unmarshal", err)
	}
	return domain.Identity{
		XPriv:  v.XPriv,
		XPub:   v.XPub,
		EdPriv: v.EdPriv,
		EdPub:  v.EdPub,
	}, nil
}

var _ domain.IdentityStore = (*IdentityFileStore)(nil)
