package message_test

import (
	"context"

	"ciphera/internal/crypto"
	"ciphera/internal/domain"
)

type fakeIdentityStore struct {
	id domain.Identity
}

func (f *fakeIdentityStore) SaveIdentity(domain.Identity, string) error { return nil }
func (f *fakeIdentityStore) LoadIdentity(string) (domain.Identity, error) {
	return f.id, nil
}

type fakePreKeyStore struct {
	signed map[uint32]signedEntry
	otk    map[uint32]otkEntry
}

type signedEntry struct {
	priv domain.SignedPreKey
	key  crypto.X25519Private
}

type otkEntry struct {
	priv crypto.X25519Private
	pub  crypto.X25519Public
}

func newFakePreKeyStore() *fakePreKeyStore {
	return &fakePreKeyStore{signed: map[uint32]signedEntry{}, otk: map[uint32]otkEntry{}}
}

func (f *fakePreKeyStore) SaveSignedPreKey(spk domain.SignedPreKey, priv crypto.X25519Private) error {
	f.signed[spk.ID] = signedEntry{priv: spk, key: priv}
	return nil
}
func (f *fakePreKeyStore) LoadSignedPreKey(id uint32) (crypto.X25519Private, domain.SignedPreKey, bool, error) {
	e, ok := f.signed[id]
	return e.key, e.priv, ok, nil
}
func (f *fakePreKeyStore) CurrentSignedPreKeyID() (uint32, bool, error) { return 0, false, nil }
func (f *fakePreKeyStore) SetCurrentSignedPreKeyID(uint32) error        { return nil }
func (f *fakePreKeyStore) SaveOneTimePreKeys(pairs []domain.OneTimePreKeyPair) error {
	for _, p := range pairs {
		f.otk[p.ID] = otkEntry{priv: p.Priv, pub: p.Pub}
	}
	return nil
}
func (f *fakePreKeyStore) ConsumeOneTimePreKey(id uint32) (crypto.X25519Private, crypto.X25519Public, bool, error) {
	e, ok := f.otk[id]
	if ok {
		delete(f.otk, id)
	}
	return e.priv, e.pub, ok, nil
}
func (f *fakePreKeyStore) ListOneTimePreKeyPublics() ([]domain.OneTimePreKey, error) {
	out := make([]domain.OneTimePreKey, 0, len(f.otk))
	for id, e := range f.otk {
		out = append(out, domain.OneTimePreKey{ID: id, Key: e.pub})
	}
	return out, nil
}

type fakeRatchetStore struct {
	conversations map[domain.ConversationID]domain.Conversation
}

func newFakeRatchetStore() *fakeRatchetStore {
	return &fakeRatchetStore{conversations: map[domain.ConversationID]domain.Conversation{}}
}
func (f *fakeRatchetStore) SaveConversation(peer domain.ConversationID, conv domain.Conversation) error {
	f.conversations[peer] = conv
	return nil
}
func (f *fakeRatchetStore) LoadConversation(peer domain.ConversationID) (domain.Conversation, bool, error) {
	c, ok := f.conversations[peer]
	return c, ok, nil
}

type fakeAccountStore struct {
	profiles map[string]domain.AccountProfile
}

func newFakeAccountStore() *fakeAccountStore {
	return &fakeAccountStore{profiles: map[string]domain.AccountProfile{}}
}
func (f *fakeAccountStore) SaveAccountProfile(p domain.AccountProfile) error {
	f.profiles[p.ServerURL+"|"+p.Username.String()] = p
	return nil
}
func (f *fakeAccountStore) LoadAccountProfile(serverURL string, username domain.Username) (domain.AccountProfile, bool, error) {
	p, ok := f.profiles[serverURL+"|"+username.String()]
	return p, ok, nil
}

// fakeRelayBus is a shared, in-memory stand-in for cmd/relay: both Alice's
// and Bob's message.Service in a test talk to the same bus, so a message one
// sends the other can receive.
type fakeRelayBus struct {
	bundles  map[domain.Username]domain.PreKeyBundle
	queues   map[domain.Username][]domain.Envelope
	canaries map[domain.Username]string
}

func newFakeRelayBus() *fakeRelayBus {
	return &fakeRelayBus{
		bundles:  map[domain.Username]domain.PreKeyBundle{},
		queues:   map[domain.Username][]domain.Envelope{},
		canaries: map[domain.Username]string{},
	}
}

type fakeRelayClient struct {
	bus *fakeRelayBus
}

func (c *fakeRelayClient) RegisterPreKeyBundle(_ context.Context, b domain.PreKeyBundle) (string, error) {
	c.bus.bundles[domain.Username(b.Username)] = b
	return c.bus.canaries[domain.Username(b.Username)], nil
}
func (c *fakeRelayClient) FetchPreKeyBundle(_ context.Context, username domain.Username) (domain.PreKeyBundle, error) {
	return c.bus.bundles[username], nil
}
func (c *fakeRelayClient) FetchAccountCanary(_ context.Context, username domain.Username) (string, error) {
	return c.bus.canaries[username], nil
}
func (c *fakeRelayClient) SendMessage(_ context.Context, env domain.Envelope) error {
	c.bus.queues[env.To] = append(c.bus.queues[env.To], env)
	return nil
}
func (c *fakeRelayClient) FetchMessages(_ context.Context, username domain.Username, limit int) ([]domain.Envelope, error) {
	q := c.bus.queues[username]
	if limit > 0 && limit < len(q) {
		return q[:limit], nil
	}
	return q, nil
}
func (c *fakeRelayClient) AckMessages(_ context.Context, username domain.Username, count int) error {
	q := c.bus.queues[username]
	if count > len(q) {
		count = len(q)
	}
	c.bus.queues[username] = q[count:]
	return nil
}

var (
	_ domain.IdentityStore = (*fakeIdentityStore)(nil)
	_ domain.PreKeyStore   = (*fakePreKeyStore)(nil)
	_ domain.RatchetStore  = (*fakeRatchetStore)(nil)
	_ domain.AccountStore  = (*fakeAccountStore)(nil)
	_ domain.RelayClient   = (*fakeRelayClient)(nil)
)
