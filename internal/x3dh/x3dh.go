package x3dh

import (
	"ciphera/internal/ciphererr"
	"ciphera/internal/crypto"
)

// infoSharedSecret is the HKDF info label normatively fixed by the wire
// protocol; both endpoints must derive SK with exactly this string.
const infoSharedSecret = "E2EE X3DH Shared Secret"

// Bundle is a responder's published prekey material, as fetched by an
// initiator ahead of the handshake.
type Bundle struct {
	IdentityKey     crypto.X25519Public
	VerifyingKey    crypto.Ed25519Public
	SignedPreKeyID  uint32
	SignedPreKey    crypto.X25519Public
	SignedPreKeySig []byte
	OneTimePreKeyID *uint32
	OneTimePreKey   *crypto.X25519Public
}

// Handshake is the subset of the initiator's first message the responder
// needs to recompute the shared secret: identity key, fresh ephemeral, and
// which of the responder's own prekeys were used.
type Handshake struct {
	InitiatorIdentityKey crypto.X25519Public
	EphemeralPublic      crypto.X25519Public
	SignedPreKeyID       uint32
	OneTimePreKeyID      *uint32
}

// VerifyBundle checks the signed prekey's signature under the bundle's
// verifying key. The signature is over the raw 32-byte public key.
func VerifyBundle(b Bundle) error {
	if b.IdentityKey.IsZero() || b.SignedPreKey.IsZero() {
		return ciphererr.New(ciphererr.Key, "x3dh.VerifyBundle", "identity or signed prekey is zero")
	}
	if !crypto.Verify(b.VerifyingKey, b.SignedPreKey[:], b.SignedPreKeySig) {
		return ciphererr.New(ciphererr.Crypto, "x3dh.VerifyBundle", "signed prekey signature invalid")
	}
	return nil
}

// Initiate runs the initiator half of X3DH against bundle, returning the
// 32-byte shared secret, the fresh ephemeral keypair it generated, and the
// Handshake to transmit to the responder on the first envelope.
//
// The ephemeral private key is handed back rather than discarded because the
// Double Ratchet session that follows reuses it as the initiator's first
// local ratchet keypair instead of minting a second one; callers that do not
// need that reuse may simply ignore it.
func Initiate(identityPriv crypto.X25519Private, bundle Bundle) (sk [32]byte, ephPriv crypto.X25519Private, hs Handshake, err error) {
	if err = VerifyBundle(bundle); err != nil {
		return sk, ephPriv, hs, err
	}

	ephPriv, ephPub, err := crypto.GenerateX25519()
	if err != nil {
		return sk, ephPriv, hs, ciphererr.Wrap(ciphererr.Crypto, "x3dh.Initiate", "generate ephemeral key", err)
	}

	dh1, err := crypto.DH(identityPriv, bundle.SignedPreKey)
	if err != nil {
		return sk, ephPriv, hs, ciphererr.Wrap(ciphererr.Crypto, "x3dh.Initiate", "DH1", err)
	}
	dh2, err := crypto.DH(ephPriv, bundle.IdentityKey)
	if err != nil {
		return sk, ephPriv, hs, ciphererr.Wrap(ciphererr.Crypto, "x3dh.Initiate", "DH2", err)
	}
	dh3, err := crypto.DH(ephPriv, bundle.SignedPreKey)
	if err != nil {
		return sk, ephPriv, hs, ciphererr.Wrap(ciphererr.Crypto, "x3dh.Initiate", "DH3", err)
	}

	ikm := concat(dh1, dh2, dh3)
	var usedOPK *uint32
	if bundle.OneTimePreKey != nil {
		dh4, derr := crypto.DH(ephPriv, *bundle.OneTimePreKey)
		if derr != nil {
			return sk, ephPriv, hs, ciphererr.Wrap(ciphererr.Crypto, "x3dh.Initiate", "DH4", derr)
		}
		ikm = append(ikm, dh4[:]...)
		usedOPK = bundle.OneTimePreKeyID
	}

	out, err := crypto.HKDF(ikm, make([]byte, 32), []byte(infoSharedSecret), 32)
	if err != nil {
		return sk, ephPriv, hs, ciphererr.Wrap(ciphererr.Crypto, "x3dh.Initiate", "derive SK", err)
	}
	copy(sk[:], out)
	crypto.Wipe(ikm)

	hs = Handshake{
		EphemeralPublic: ephPub,
		SignedPreKeyID:  bundle.SignedPreKeyID,
		OneTimePreKeyID: usedOPK,
	}
	return sk, ephPriv, hs, nil
}

// Respond runs the responder half of X3DH. oneTimePreKeyPriv must be
// non-nil exactly when hs.OneTimePreKeyID is non-nil; callers are expected
// to have already deleted the consumed one-time prekey from storage before
// calling Respond, per the durability requirement on OTPK consumption.
func Respond(
	identityPriv crypto.X25519Private,
	signedPreKeyPriv crypto.X25519Private,
	oneTimePreKeyPriv *crypto.X25519Private,
	initiatorIdentityKey crypto.X25519Public,
	hs Handshake,
) (sk [32]byte, err error) {
	if (hs.OneTimePreKeyID == nil) != (oneTimePreKeyPriv == nil) {
		return sk, ciphererr.New(ciphererr.Protocol, "x3dh.Respond", "one-time prekey presence mismatch")
	}

	dh1, err := crypto.DH(signedPreKeyPriv, initiatorIdentityKey)
	if err != nil {
		return sk, ciphererr.Wrap(ciphererr.Crypto, "x3dh.Respond", "DH1", err)
	}
	dh2, err := crypto.DH(identityPriv, hs.EphemeralPublic)
	if err != nil {
		return sk, ciphererr.Wrap(ciphererr.Crypto, "x3dh.Respond", "DH2", err)
	}
	dh3, err := crypto.DH(signedPreKeyPriv, hs.EphemeralPublic)
	if err != nil {
		return sk, ciphererr.Wrap(ciphererr.Crypto, "x3dh.Respond", "DH3", err)
	}

	ikm := concat(dh1, dh2, dh3)
	if oneTimePreKeyPriv != nil {
		dh4, derr := crypto.DH(*oneTimePreKeyPriv, hs.EphemeralPublic)
		if derr != nil {
			return sk, ciphererr.Wrap(ciphererr.Crypto, "x3dh.Respond", "DH4", derr)
		}
		ikm = append(ikm, dh4[:]...)
	}

	out, err := crypto.HKDF(ikm, make([]byte, 32), []byte(infoSharedSecret), 32)
	if err != nil {
		return sk, ciphererr.Wrap(ciphererr.Crypto, "x3dh.Respond", "derive SK", err)
	}
	copy(sk[:], out)
	crypto.Wipe(ikm)
	return sk, nil
}

func concat(parts ...[32]byte) []byte {
	out := make([]byte, 0, 32*len(parts))
	for _, p := range parts {
		out = append(out, p[:]...)
	}
	return out
}
