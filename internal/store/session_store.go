package store

import (
	"path/filepath"
	"sync"

	"ciphera/internal/ciphererr"
	"ciphera/internal/crypto"
	"ciphera/internal/domain"
)

const sessionsFile = "sessions.json"

type sessionRecord struct {
	RootKey                []byte              `json:"root_key"`
	PeerIdentityKey        crypto.X25519Public `json:"peer_identity_key"`
	PeerSignedPreKey       crypto.X25519Public `json:"peer_signed_prekey"`
	CreatedUTC             int64               `json:"created_utc"`
	SignedPreKeyID         uint32              `json:"signed_prekey_id"`
	OneTimePreKeyID        *uint32             `json:"one_time_prekey_id,omitempty"`
	InitiatorEphemeralKey  crypto.X25519Public `json:"initiator_ephemeral_key"`
	InitiatorEphemeralPriv crypto.X25519Private `json:"initiator_ephemeral_priv,omitempty"`
	IsInitiator            bool                `json:"is_initiator"`
}

// SessionFileStore persists X3DH session records, keyed by peer username.
type SessionFileStore struct {
	dir string
	mu  sync.Mutex
}

// NewSessionFileStore returns a SessionFileStore rooted at dir.
func NewSessionFileStore(dir string) *SessionFileStore {
	return &SessionFileStore{dir: dir}
}

func (s *SessionFileStore) path() string { return filepath.Join(s.dir, sessionsFile) }

// SaveSession persists sess under peer.
func (s *SessionFileStore) SaveSession(peer domain.Username, sess domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := map[string]sessionRecord{}
	if err := readJSON(s.path(), &m); err != nil {
		return ciphererr.Wrap(ciphererr.State, "store.SessionFileStore.SaveSession", "read", err)
	}
	m[peer.String()] = sessionRecord{
		RootKey:                sess.RootKey,
		PeerIdentityKey:        sess.PeerIdentityKey,
		PeerSignedPreKey:       sess.PeerSignedPreKey,
		CreatedUTC:             sess.CreatedUTC,
		SignedPreKeyID:         sess.SignedPreKeyID,
		OneTimePreKeyID:        sess.OneTimePreKeyID,
		InitiatorEphemeralKey:  sess.InitiatorEphemeralKey,
		InitiatorEphemeralPriv: sess.InitiatorEphemeralPriv,
		IsInitiator:            sess.IsInitiator,
	}
	return writeJSON(s.path(), m, 0o600)
}

// LoadSession retrieves the session stored for peer.
func (s *SessionFileStore) LoadSession(peer domain.Username) (domain.Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := map[string]sessionRecord{}
	if err := readJSON(s.path(), &m); err != nil {
		return domain.Session{}, false, ciphererr.Wrap(ciphererr.State, "store.SessionFileStore.LoadSession", "read", err)
	}
	r, ok := m[peer.String()]
	if !ok {
		return domain.Session{}, false, nil
	}
	return domain.Session{
		PeerUsername:           peer,
		RootKey:                r.RootKey,
		PeerIdentityKey:        r.PeerIdentityKey,
		PeerSignedPreKey:       r.PeerSignedPreKey,
		CreatedUTC:             r.CreatedUTC,
		SignedPreKeyID:         r.SignedPreKeyID,
		OneTimePreKeyID:        r.OneTimePreKeyID,
		InitiatorEphemeralKey:  r.InitiatorEphemeralKey,
		InitiatorEphemeralPriv: r.InitiatorEphemeralPriv,
		IsInitiator:            r.IsInitiator,
	}, true, nil
}

var _ domain.SessionStore = (*SessionFileStore)(nil)
