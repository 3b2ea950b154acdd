package store

import (
	"path/filepath"
	"sync"
	"time"

	"ciphera/internal/ciphererr"
	"ciphera/internal/crypto"
	"ciphera/internal/domain"
)

const (
	spkFile = "signed_prekeys.json"
	otkFile = "one_time_prekeys.json"
	metaFile = "prekey_meta.json"
)

// PreKeyFileStore persists signed and one-time prekey pairs to disk.
type PreKeyFileStore struct {
	dir string
	mu  sync.Mutex
}

// NewPreKeyFileStore returns a PreKeyFileStore rooted at dir.
func NewPreKeyFileStore(dir string) *PreKeyFileStore {
	return &PreKeyFileStore{dir: dir}
}

type signedPreKeyRecord struct {
	ID            uint32            `json:"id"`
	Priv          crypto.X25519Private `json:"priv"`
	Pub           crypto.X25519Public  `json:"pub"`
	Sig           []byte             `json:"sig"`
	CreatedAt     time.Time          `json:"created_at"`
	RotationDueAt time.Time          `json:"rotation_due_at"`
}

type oneTimePreKeyRecord struct {
	ID   uint32             `json:"id"`
	Priv crypto.X25519Private `json:"priv"`
	Pub  crypto.X25519Public  `json:"pub"`
}

type prekeyMeta struct {
	CurrentSignedPreKeyID uint32 `json:"current_signed_prekey_id"`
	HasCurrent            bool   `json:"has_current"`
}

func (s *PreKeyFileStore) spkPath() string  { return filepath.Join(s.dir, spkFile) }
func (s *PreKeyFileStore) otkPath() string  { return filepath.Join(s.dir, otkFile) }
func (s *PreKeyFileStore) metaPath() string { return filepath.Join(s.dir, metaFile) }

// SaveSignedPreKey stores a signed prekey pair, keyed by ID.
func (s *PreKeyFileStore) SaveSignedPreKey(spk domain.SignedPreKey, priv crypto.X25519Private) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := map[uint32]signedPreKeyRecord{}
	if err := readJSON(s.spkPath(), &m); err != nil {
		return ciphererr.Wrap(ciphererr.State, "store.PreKeyFileStore.SaveSignedPreKey", "read", err)
	}
	m[spk.ID] = signedPreKeyRecord{
		ID: spk.ID, Priv: priv, Pub: spk.Key, Sig: spk.Sig,
		CreatedAt: spk.CreatedAt, RotationDueAt: spk.RotationDueAt,
	}
	return writeJSON(s.spkPath(), m, 0o600)
}

// LoadSignedPreKey retrieves a signed prekey pair by ID.
func (s *PreKeyFileStore) LoadSignedPreKey(id uint32) (priv crypto.X25519Private, spk domain.SignedPreKey, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := map[uint32]signedPreKeyRecord{}
	if err = readJSON(s.spkPath(), &m); err != nil {
		return priv, spk, false, ciphererr.Wrap(ciphererr.State, "store.PreKeyFileStore.LoadSignedPreKey", "read", err)
	}
	r, ok := m[id]
	if !ok {
		return priv, spk, false, nil
	}
	return r.Priv, domain.SignedPreKey{ID: r.ID, Key: r.Pub, Sig: r.Sig, CreatedAt: r.CreatedAt, RotationDueAt: r.RotationDueAt}, true, nil
}

// SetCurrentSignedPreKeyID records which signed prekey id is currently advertised.
func (s *PreKeyFileStore) SetCurrentSignedPreKeyID(id uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSON(s.metaPath(), prekeyMeta{CurrentSignedPreKeyID: id, HasCurrent: true}, 0o600)
}

// CurrentSignedPreKeyID returns the recorded current signed prekey id.
func (s *PreKeyFileStore) CurrentSignedPreKeyID() (uint32, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var meta prekeyMeta
	if err := readJSON(s.metaPath(), &meta); err != nil {
		return 0, false, ciphererr.Wrap(ciphererr.State, "store.PreKeyFileStore.CurrentSignedPreKeyID", "read", err)
	}
	return meta.CurrentSignedPreKeyID, meta.HasCurrent, nil
}

// SaveOneTimePreKeys merges pairs into the one-time prekey store.
func (s *PreKeyFileStore) SaveOneTimePreKeys(pairs []domain.OneTimePreKeyPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := map[uint32]oneTimePreKeyRecord{}
	if err := readJSON(s.otkPath(), &m); err != nil {
		return ciphererr.Wrap(ciphererr.State, "store.PreKeyFileStore.SaveOneTimePreKeys", "read", err)
	}
	for _, p := range pairs {
		m[p.ID] = oneTimePreKeyRecord{ID: p.ID, Priv: p.Priv, Pub: p.Pub}
	}
	return writeJSON(s.otkPath(), m, 0o600)
}

// ConsumeOneTimePreKey removes and returns a single one-time prekey pair by ID.
func (s *PreKeyFileStore) ConsumeOneTimePreKey(id uint32) (priv crypto.X25519Private, pub crypto.X25519Public, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := map[uint32]oneTimePreKeyRecord{}
	if err = readJSON(s.otkPath(), &m); err != nil {
		return priv, pub, false, ciphererr.Wrap(ciphererr.State, "store.PreKeyFileStore.ConsumeOneTimePreKey", "read", err)
	}
	r, ok := m[id]
	if !ok {
		return priv, pub, false, nil
	}
	delete(m, id)
	if err = writeJSON(s.otkPath(), m, 0o600); err != nil {
		return priv, pub, false, err
	}
	return r.Priv, r.Pub, true, nil
}

// ListOneTimePreKeyPublics exposes only the public halves, for bundling.
func (s *PreKeyFileStore) ListOneTimePreKeyPublics() ([]domain.OneTimePreKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := map[uint32]oneTimePreKeyRecord{}
	if err := readJSON(s.otkPath(), &m); err != nil {
		return nil, ciphererr.Wrap(ciphererr.State, "store.PreKeyFileStore.ListOneTimePreKeyPublics", "read", err)
	}
	out := make([]domain.OneTimePreKey, 0, len(m))
	for id, r := range m {
		out = append(out, domain.OneTimePreKey{ID: id, Key: r.Pub})
	}
	return out, nil
}

var _ domain.PreKeyStore = (*PreKeyFileStore)(nil)
