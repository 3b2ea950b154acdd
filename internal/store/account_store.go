package store

import (
	"fmt"
	"path/filepath"
	"sync"

	"ciphera/internal/ciphererr"
	"ciphera/internal/domain"
)

const accountsFile = "accounts.json"

// AccountFileStore persists per-relay account profiles to disk.
type AccountFileStore struct {
	dir string
	mu  sync.Mutex
}

// NewAccountFileStore returns an AccountFileStore rooted at dir.
func NewAccountFileStore(dir string) *AccountFileStore {
	return &AccountFileStore{dir: dir}
}

func (s *AccountFileStore) path() string { return filepath.Join(s.dir, accountsFile) }

func accountKey(serverURL string, username domain.Username) string {
	return fmt.Sprintf("%s|%s", serverURL, username.String())
}

// SaveAccountProfile stores or updates the given profile.
func (s *AccountFileStore) SaveAccountProfile(profile domain.AccountProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := map[string]domain.AccountProfile{}
	if err := readJSON(s.path(), &m); err != nil {
		return ciphererr.Wrap(ciphererr.State, "store.AccountFileStore.SaveAccountProfile", "read", err)
	}
	m[accountKey(profile.ServerURL, profile.Username)] = profile
	return writeJSON(s.path(), m, 0o600)
}

// LoadAccountProfile retrieves a profile for (serverURL, username).
func (s *AccountFileStore) LoadAccountProfile(serverURL string, username domain.Username) (domain.AccountProfile, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := map[string]domain.AccountProfile{}
	if err := readJSON(s.path(), &m); err != nil {
		return domain.AccountProfile{}, false, ciphererr.Wrap(ciphererr.State, "store.AccountFileStore.LoadAccountProfile", "read", err)
	}
	profile, ok := m[accountKey(serverURL, username)]
	return profile, ok, nil
}

var _ domain.AccountStore = (*AccountFileStore)(nil)
