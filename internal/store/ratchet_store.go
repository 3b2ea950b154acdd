package store

import (
	"path/filepath"
	"sync"

	"ciphera/internal/ciphererr"
	"ciphera/internal/domain"
	"ciphera/internal/ratchet"
)

const conversationsFile = "conversations.json"

// RatchetFileStore persists Double Ratchet conversation snapshots, keyed by peer.
type RatchetFileStore struct {
	dir string
	mu  sync.Mutex
}

// NewRatchetFileStore returns a RatchetFileStore rooted at dir.
func NewRatchetFileStore(dir string) *RatchetFileStore {
	return &RatchetFileStore{dir: dir}
}

func (s *RatchetFileStore) path() string { return filepath.Join(s.dir, conversationsFile) }

// SaveConversation persists conv under peer.
func (s *RatchetFileStore) SaveConversation(peer domain.ConversationID, conv domain.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := map[string]ratchet.Snapshot{}
	if err := readJSON(s.path(), &m); err != nil {
		return ciphererr.Wrap(ciphererr.State, "store.RatchetFileStore.SaveConversation", "read", err)
	}
	m[string(peer)] = conv.State
	return writeJSON(s.path(), m, 0o600)
}

// LoadConversation retrieves the conversation stored for peer.
func (s *RatchetFileStore) LoadConversation(peer domain.ConversationID) (domain.Conversation, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := map[string]ratchet.Snapshot{}
	if err := readJSON(s.path(), &m); err != nil {
		return domain.Conversation{}, false, ciphererr.Wrap(ciphererr.State, "store.RatchetFileStore.LoadConversation", "read", err)
	}
	sn, ok := m[string(peer)]
	if !ok {
		return domain.Conversation{}, false, nil
	}
	return domain.Conversation{Peer: peer, State: sn}, true, nil
}

var _ domain.RatchetStore = (*RatchetFileStore)(nil)
