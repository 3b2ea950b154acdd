package store

import (
	"path/filepath"
	"sync"

	"ciphera/internal/ciphererr"
	"ciphera/internal/domain"
)

const bundleFile = "bundle.json"

// BundleFileStore caches the most recently saved prekey bundle (the session
// service saves each peer bundle it fetches).
type BundleFileStore struct {
	dir string
	mu  sync.Mutex
}

// NewBundleFileStore returns a BundleFileStore rooted at dir.
func NewBundleFileStore(dir string) *BundleFileStore {
	return &BundleFileStore{dir: dir}
}

func (s *BundleFileStore) path() string { return filepath.Join(s.dir, bundleFile) }

// SavePreKeyBundle writes the bundle to disk.
func (s *BundleFileStore) SavePreKeyBundle(bundle domain.PreKeyBundle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSON(s.path(), bundle, 0o600)
}

// LoadPreKeyBundle returns the cached bundle and whether it was present.
// username is accepted for interface symmetry with the relay-backed
// implementation; the local cache holds at most one bundle.
func (s *BundleFileStore) LoadPreKeyBundle(username domain.Username) (domain.PreKeyBundle, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var bundle domain.PreKeyBundle
	if err := readJSON(s.path(), &bundle); err != nil {
		return domain.PreKeyBundle{}, false, ciphererr.Wrap(ciphererr.State, "store.BundleFileStore.LoadPreKeyBundle", "read", err)
	}
	if bundle.Username == "" {
		return domain.PreKeyBundle{}, false, nil
	}
	return bundle, true, nil
}

var _ domain.PreKeyBundleStore = (*BundleFileStore)(nil)
