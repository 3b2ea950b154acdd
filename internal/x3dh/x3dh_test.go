package x3dh_test

import (
	"testing"

	"ciphera/internal/crypto"
	"ciphera/internal/x3dh"
)

type party struct {
	xPriv crypto.X25519Private
	xPub  crypto.X25519Public
	edPriv crypto.Ed25519Private
	edPub  crypto.Ed25519Public
}

func makeParty(t *testing.T) party {
	t.Helper()
	xPriv, xPub, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}
	edPriv, edPub, err := crypto.GenerateEd25519()
	if err != nil {
		t.Fatalf("GenerateEd25519: %v", err)
	}
	return party{xPriv: xPriv, xPub: xPub, edPriv: edPriv, edPub: edPub}
}

func signedPreKey(t *testing.T, bob party) (priv crypto.X25519Private, pub crypto.X25519Public, sig []byte) {
	t.Helper()
	priv, pub, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}
	sig = crypto.Sign(bob.edPriv, pub[:])
	return priv, pub, sig
}

func TestHandshake_NoOPK(t *testing.T) {
	alice := makeParty(t)
	bob := makeParty(t)
	spkPriv, spkPub, sig := signedPreKey(t, bob)

	bundle := x3dh.Bundle{
		IdentityKey:     bob.xPub,
		VerifyingKey:    bob.edPub,
		SignedPreKeyID:  1,
		SignedPreKey:    spkPub,
		SignedPreKeySig: sig,
	}

	skA, _, hs, err := x3dh.Initiate(alice.xPriv, bundle)
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	if hs.OneTimePreKeyID != nil {
		t.Fatalf("want nil OneTimePreKeyID, got %v", *hs.OneTimePreKeyID)
	}

	skB, err := x3dh.Respond(bob.xPriv, spkPriv, nil, alice.xPub, hs)
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if skA != skB {
		t.Fatal("shared secrets differ (no OPK)")
	}
}

func TestHandshake_WithOPK(t *testing.T) {
	alice := makeParty(t)
	bob := makeParty(t)
	spkPriv, spkPub, sig := signedPreKey(t, bob)
	opkPriv, opkPub, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519 (opk): %v", err)
	}
	opkID := uint32(7)

	bundle := x3dh.Bundle{
		IdentityKey:     bob.xPub,
		VerifyingKey:    bob.edPub,
		SignedPreKeyID:  1,
		SignedPreKey:    spkPub,
		SignedPreKeySig: sig,
		OneTimePreKeyID: &opkID,
		OneTimePreKey:   &opkPub,
	}

	skA, _, hs, err := x3dh.Initiate(alice.xPriv, bundle)
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	if hs.OneTimePreKeyID == nil || *hs.OneTimePreKeyID != opkID {
		t.Fatalf("want OneTimePreKeyID=%d, got %v", opkID, hs.OneTimePreKeyID)
	}

	skB, err := x3dh.Respond(bob.xPriv, spkPriv, &opkPriv, alice.xPub, hs)
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if skA != skB {
		t.Fatal("shared secrets differ (with OPK)")
	}
}

func TestVerifyBundle_WrongSigner(t *testing.T) {
	bob := makeParty(t)
	mallory := makeParty(t)
	_, spkPub, sig := signedPreKey(t, mallory) // signed by mallory, claimed as bob's

	bundle := x3dh.Bundle{
		IdentityKey:     bob.xPub,
		VerifyingKey:    bob.edPub, // wrong verifying key for this signature
		SignedPreKeyID:  1,
		SignedPreKey:    spkPub,
		SignedPreKeySig: sig,
	}

	if err := x3dh.VerifyBundle(bundle); err == nil {
		t.Fatal("expected signature verification failure")
	}
}

func TestRespond_OneTimePrekeyPresenceMismatch(t *testing.T) {
	alice := makeParty(t)
	bob := makeParty(t)
	spkPriv, spkPub, sig := signedPreKey(t, bob)

	bundle := x3dh.Bundle{
		IdentityKey:     bob.xPub,
		VerifyingKey:    bob.edPub,
		SignedPreKeyID:  1,
		SignedPreKey:    spkPub,
		SignedPreKeySig: sig,
	}

	_, _, hs, err := x3dh.Initiate(alice.xPriv, bundle)
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}

	opkID := uint32(3)
	hs.OneTimePreKeyID = &opkID // claim an OPK was used though none was provided

	if _, err := x3dh.Respond(bob.xPriv, spkPriv, nil, alice.xPub, hs); err == nil {
		t.Fatal("expected presence-mismatch error")
	}
}
