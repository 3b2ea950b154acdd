package domain

import (
	"encoding/hex"
	"time"

	"ciphera/internal/ciphererr"
	"ciphera/internal/crypto"
	"ciphera/internal/x3dh"
)

// SignedPreKey is a medium-term X25519 keypair signed by the owning
// identity's Ed25519 key, rotated periodically.
type SignedPreKey struct {
	ID            uint32
	Key           crypto.X25519Public
	Sig           []byte
	CreatedAt     time.Time
	RotationDueAt time.Time
}

// OneTimePreKey is a single-use X25519 public key offered in a bundle;
// stores delete the matching private key once it is consumed.
type OneTimePreKey struct {
	ID  uint32
	Key crypto.X25519Public
}

// OneTimePreKeyPair is the locally-held private half of an OneTimePreKey.
type OneTimePreKeyPair struct {
	ID   uint32
	Priv crypto.X25519Private
	Pub  crypto.X25519Public
}

// PreKeyBundle is the wire-format object a client registers with and fetches
// from the relay. Keys are hex-encoded, signatures base64, per spec.
type PreKeyBundle struct {
	Username        string  `json:"username"`
	IdentityKey     string  `json:"identity_key"`
	SignKey         string  `json:"sign_key"`
	SignedPreKeyID  uint32  `json:"signed_prekey_id"`
	SignedPreKey    string  `json:"signed_prekey"`
	SignedPreKeySig []byte  `json:"signed_prekey_sig"`
	OneTimePreKeyID *uint32 `json:"one_time_prekey_id,omitempty"`
	OneTimePreKey   string  `json:"one_time_prekey,omitempty"`
}

// ToX3DH converts b into the shape internal/x3dh expects, decoding its hex
// fields. The x3dh package never imports domain, so this conversion lives
// on the domain side of the boundary.
func (b PreKeyBundle) ToX3DH() (x3dh.Bundle, error) {
	ik, err := crypto.ParseX25519PublicHex(b.IdentityKey)
	if err != nil {
		return x3dh.Bundle{}, ciphererr.Wrap(ciphererr.Key, "domain.PreKeyBundle.ToX3DH", "identity_key", err)
	}
	vk, err := crypto.ParseEd25519PublicHex(b.SignKey)
	if err != nil {
		return x3dh.Bundle{}, ciphererr.Wrap(ciphererr.Key, "domain.PreKeyBundle.ToX3DH", "sign_key", err)
	}
	spk, err := crypto.ParseX25519PublicHex(b.SignedPreKey)
	if err != nil {
		return x3dh.Bundle{}, ciphererr.Wrap(ciphererr.Key, "domain.PreKeyBundle.ToX3DH", "signed_prekey", err)
	}

	bundle := x3dh.Bundle{
		IdentityKey:     ik,
		VerifyingKey:    vk,
		SignedPreKeyID:  b.SignedPreKeyID,
		SignedPreKey:    spk,
		SignedPreKeySig: b.SignedPreKeySig,
	}
	if b.OneTimePreKeyID != nil {
		otk, err := crypto.ParseX25519PublicHex(b.OneTimePreKey)
		if err != nil {
			return x3dh.Bundle{}, ciphererr.Wrap(ciphererr.Protocol, "domain.PreKeyBundle.ToX3DH", "one_time_prekey", err)
		}
		id := *b.OneTimePreKeyID
		bundle.OneTimePreKeyID = &id
		bundle.OneTimePreKey = &otk
	}
	return bundle, nil
}

// PreKeyBundleFrom hex-encodes the identity/prekey/bundle material for username
// into the wire format.
func PreKeyBundleFrom(
	username string,
	identityKey crypto.X25519Public,
	signKey crypto.Ed25519Public,
	spk SignedPreKey,
	otk *OneTimePreKey,
) PreKeyBundle {
	out := PreKeyBundle{
		Username:        username,
		IdentityKey:     hex.EncodeToString(identityKey[:]),
		SignKey:         hex.EncodeToString(signKey[:]),
		SignedPreKeyID:  spk.ID,
		SignedPreKey:    hex.EncodeToString(spk.Key[:]),
		SignedPreKeySig: spk.Sig,
	}
	if otk != nil {
		id := otk.ID
		out.OneTimePreKeyID = &id
		out.OneTimePreKey = hex.EncodeToString(otk.Key[:])
	}
	return out
}

// PreKeyService creates and rotates prekey material and assembles bundles.
type PreKeyService interface {
	// GenerateAndStore mints a fresh signed prekey and n one-time prekeys.
	GenerateAndStore(passphrase string, n int) (SignedPreKey, []OneTimePreKey, error)
	// LoadBundle assembles the current public bundle for username.
	LoadBundle(passphrase, username string) (PreKeyBundle, error)
	// Replenish mints additional one-time prekeys until target are on hand,
	// and rotates the signed prekey if it is past RotationDueAt.
	Replenish(passphrase string, target int) error
}

// PreKeyStore persists signed/one-time prekey PAIRS locally.
type PreKeyStore interface {
	SaveSignedPreKey(spk SignedPreKey, priv crypto.X25519Private) error
	LoadSignedPreKey(id uint32) (priv crypto.X25519Private, spk SignedPreKey, ok bool, err error)
	CurrentSignedPreKeyID() (uint32, bool, error)
	SetCurrentSignedPreKeyID(id uint32) error

	SaveOneTimePreKeys(pairs []OneTimePreKeyPair) error
	ConsumeOneTimePreKey(id uint32) (priv crypto.X25519Private, pub crypto.X25519Public, ok bool, err error)
	ListOneTimePreKeyPublics() ([]OneTimePreKey, error)
}

// PreKeyBundleStore caches the most recently saved bundle; the session
// service saves each peer bundle it fetches from the relay.
type PreKeyBundleStore interface {
	SavePreKeyBundle(b PreKeyBundle) error
	LoadPreKeyBundle(username Username) (PreKeyBundle, bool, error)
}
