package session_test

import (
	"context"

	"ciphera/internal/domain"
)

type fakeIdentityStore struct {
	id domain.Identity
}

func (f *fakeIdentityStore) SaveIdentity(domain.Identity, string) error { return nil }
func (f *fakeIdentityStore) LoadIdentity(string) (domain.Identity, error) {
	return f.id, nil
}

type fakeBundleStore struct {
	saved domain.PreKeyBundle
}

func (f *fakeBundleStore) SavePreKeyBundle(b domain.PreKeyBundle) error {
	f.saved = b
	return nil
}
func (f *fakeBundleStore) LoadPreKeyBundle(domain.Username) (domain.PreKeyBundle, bool, error) {
	return f.saved, f.saved.Username != "", nil
}

type fakeSessionStore struct {
	sessions map[domain.Username]domain.Session
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[domain.Username]domain.Session)}
}
func (f *fakeSessionStore) SaveSession(peer domain.Username, s domain.Session) error {
	f.sessions[peer] = s
	return nil
}
func (f *fakeSessionStore) LoadSession(peer domain.Username) (domain.Session, bool, error) {
	s, ok := f.sessions[peer]
	return s, ok, nil
}

type fakeRelayClient struct {
	bundle domain.PreKeyBundle

	sent []domain.Envelope
	inbox []domain.Envelope
}

func (f *fakeRelayClient) RegisterPreKeyBundle(context.Context, domain.PreKeyBundle) (string, error) {
	return "canary", nil
}
func (f *fakeRelayClient) FetchPreKeyBundle(context.Context, domain.Username) (domain.PreKeyBundle, error) {
	return f.bundle, nil
}
func (f *fakeRelayClient) FetchAccountCanary(context.Context, domain.Username) (string, error) {
	return "canary", nil
}
func (f *fakeRelayClient) SendMessage(_ context.Context, env domain.Envelope) error {
	f.sent = append(f.sent, env)
	return nil
}
func (f *fakeRelayClient) FetchMessages(_ context.Context, _ domain.Username, limit int) ([]domain.Envelope, error) {
	if limit > 0 && limit < len(f.inbox) {
		return f.inbox[:limit], nil
	}
	return f.inbox, nil
}
func (f *fakeRelayClient) AckMessages(_ context.Context, _ domain.Username, count int) error {
	if count > len(f.inbox) {
		count = len(f.inbox)
	}
	f.inbox = f.inbox[count:]
	return nil
}

var (
	_ domain.IdentityStore     = (*fakeIdentityStore)(nil)
	_ domain.PreKeyBundleStore = (*fakeBundleStore)(nil)
	_ domain.SessionStore      = (*fakeSessionStore)(nil)
	_ domain.RelayClient       = (*fakeRelayClient)(nil)
)
