package prekey

import (
	"time"

	"ciphera/internal/ciphererr"
	"ciphera/internal/crypto"
	"ciphera/internal/domain"
)

// rotationInterval is how long a signed prekey remains current before
// Replenish rotates it.
const rotationInterval = 30 * 24 * time.Hour

// Service mints signed and one-time prekeys and assembles public bundles.
type Service struct {
	idStore domain.IdentityStore
	pkStore domain.PreKeyStore
}

// New constructs a prekey Service.
func New(idStore domain.IdentityStore, pkStore domain.PreKeyStore) *Service {
	return &Service{idStore: idStore, pkStore: pkStore}
}

var _ domain.PreKeyService = (*Service)(nil)

// GenerateAndStore mints a fresh signed prekey (ID 1) and n one-time prekeys,
// signs the SPK with the identity's Ed25519 key, and persists both.
func (s *Service) GenerateAndStore(passphrase string, n int) (domain.SignedPreKey, []domain.OneTimePreKey, error) {
	id, err := s.idStore.LoadIdentity(passphrase)
	if err != nil {
		return domain.SignedPreKey{}, nil, err
	}

	spkPriv, spkPub, err := crypto.GenerateX25519()
	if err != nil {
		return domain.SignedPreKey{}, nil, err
	}
	sig := crypto.Sign(id.EdPriv, spkPub[:])

	now := time.Now().UTC()
	spk := domain.SignedPreKey{
		ID:            1,
		Key:           spkPub,
		Sig:           sig,
		CreatedAt:     now,
		RotationDueAt: now.Add(rotationInterval),
	}
	if err := s.pkStore.SaveSignedPreKey(spk, spkPriv); err != nil {
		return domain.SignedPreKey{}, nil, err
	}
	if err := s.pkStore.SetCurrentSignedPreKeyID(spk.ID); err != nil {
		return domain.SignedPreKey{}, nil, err
	}

	otks, err := s.mintOneTime(n)
	if err != nil {
		return domain.SignedPreKey{}, nil, err
	}
	return spk, otks, nil
}

func (s *Service) mintOneTime(n int) ([]domain.OneTimePreKey, error) {
	existing, err := s.pkStore.ListOneTimePreKeyPublics()
	if err != nil {
		return nil, err
	}
	var nextID uint32 = 1
	for _, e := range existing {
		if e.ID >= nextID {
			nextID = e.ID + 1
		}
	}

	pairs := make([]domain.OneTimePreKeyPair, 0, n)
	out := make([]domain.OneTimePreKey, 0, n)
	for i := 0; i < n; i++ {
		priv, pub, err := crypto.GenerateX25519()
		if err != nil {
			return nil, err
		}
		id := nextID + uint32(i)
		pairs = append(pairs, domain.OneTimePreKeyPair{ID: id, Priv: priv, Pub: pub})
		out = append(out, domain.OneTimePreKey{ID: id, Key: pub})
	}
	if len(pairs) > 0 {
		if err := s.pkStore.SaveOneTimePreKeys(pairs); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// LoadBundle assembles the current public bundle for username. If any
// one-time prekeys are on hand, the lowest-ID one is advertised.
func (s *Service) LoadBundle(passphrase, username string) (domain.PreKeyBundle, error) {
	id, err := s.idStore.LoadIdentity(passphrase)
	if err != nil {
		return domain.PreKeyBundle{}, err
	}

	currentID, ok, err := s.pkStore.CurrentSignedPreKeyID()
	if err != nil {
		return domain.PreKeyBundle{}, err
	}
	if !ok {
		return domain.PreKeyBundle{}, ciphererr.New(ciphererr.State, "prekey.Service.LoadBundle", "no signed prekey generated yet")
	}
	_, spk, found, err := s.pkStore.LoadSignedPreKey(currentID)
	if err != nil {
		return domain.PreKeyBundle{}, err
	}
	if !found {
		return domain.PreKeyBundle{}, ciphererr.New(ciphererr.State, "prekey.Service.LoadBundle", "current signed prekey missing from store")
	}

	var otk *domain.OneTimePreKey
	if publics, err := s.pkStore.ListOneTimePreKeyPublics(); err == nil && len(publics) > 0 {
		best := publics[0]
		for _, p := range publics[1:] {
			if p.ID < best.ID {
				best = p
			}
		}
		otk = &best
	}

	return domain.PreKeyBundleFrom(username, id.XPub, id.EdPub, spk, otk), nil
}

// Replenish mints additional one-time prekeys until target are on hand, and
// rotates the signed prekey if it is past RotationDueAt.
func (s *Service) Replenish(passphrase string, target int) error {
	publics, err := s.pkStore.ListOneTimePreKeyPublics()
	if err != nil {
		return err
	}
	if need := target - len(publics); need > 0 {
		if _, err := s.mintOneTime(need); err != nil {
			return err
		}
	}

	currentID, ok, err := s.pkStore.CurrentSignedPreKeyID()
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	_, spk, found, err := s.pkStore.LoadSignedPreKey(currentID)
	if err != nil {
		return err
	}
	if !found || time.Now().UTC().Before(spk.RotationDueAt) {
		return nil
	}

	id, err := s.idStore.LoadIdentity(passphrase)
	if err != nil {
		return err
	}
	spkPriv, spkPub, err := crypto.GenerateX25519()
	if err != nil {
		return err
	}
	sig := crypto.Sign(id.EdPriv, spkPub[:])
	now := time.Now().UTC()
	next := domain.SignedPreKey{
		ID:            currentID + 1,
		Key:           spkPub,
		Sig:           sig,
		CreatedAt:     now,
		RotationDueAt: now.Add(rotationInterval),
	}
	if err := s.pkStore.SaveSignedPreKey(next, spkPriv); err != nil {
		return err
	}
	return s.pkStore.SetCurrentSignedPreKeyID(next.ID)
}
