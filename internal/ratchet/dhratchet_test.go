package ratchet

import (
	"bytes"
	"testing"

	"ciphera/internal/crypto"
)

// TestDHRatchetReKeysReceivingChainOnly is a white-box test of dhRatchet
// itself: it must re-derive only the receiving chain from a plain
// hkdf(dh_out, info="receiving") call, mint a fresh local DH key pair, and
// leave the sending chain untouched.
func TestDHRatchetReKeysReceivingChainOnly(t *testing.T) {
	sk := bytes.Repeat([]byte{0x11}, 32)
	ephPriv, ephPub, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}

	s, err := NewInitiatorSession(append([]byte(nil), sk...), ephPriv, ephPub)
	if err != nil {
		t.Fatalf("NewInitiatorSession: %v", err)
	}

	prevSend := s.send
	prevDHPriv := s.dhPriv

	_, newRemotePub, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}

	if err := s.dhRatchet(newRemotePub); err != nil {
		t.Fatalf("dhRatchet: %v", err)
	}

	if s.send != prevSend {
		t.Fatal("dhRatchet must not touch the sending chain")
	}
	if s.peerDHPub != newRemotePub {
		t.Fatal("dhRatchet must record the new peer DH public key")
	}
	if s.dhPub == ephPub {
		t.Fatal("dhRatchet must mint a fresh local DH key pair")
	}
	if s.recv.counter != 0 {
		t.Fatalf("recv.counter = %d, want 0 after a fresh ratchet", s.recv.counter)
	}

	wantDHOut, err := crypto.DH(prevDHPriv, newRemotePub)
	if err != nil {
		t.Fatalf("DH: %v", err)
	}
	wantRecvKey, err := crypto.HKDF(wantDHOut[:], nil, []byte(labelReceiving), 32)
	if err != nil {
		t.Fatalf("HKDF: %v", err)
	}
	var wantArr [32]byte
	copy(wantArr[:], wantRecvKey)
	if s.recv.key != wantArr {
		t.Fatal("receiving chain key does not match hkdf(dh_out, info=\"receiving\")")
	}
}

// TestDecryptRecordsFirstPeerKeyWithoutRatcheting is a white-box check that
// the first inbound envelope's DH public key is only recorded: dhPriv/dhPub
// (and therefore the sending chain's future header value) must be
// unchanged afterward.
func TestDecryptRecordsFirstPeerKeyWithoutRatcheting(t *testing.T) {
	ephPriv, ephPub, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}
	alice, err := NewInitiatorSession(bytes.Repeat([]byte{0x42}, 32), ephPriv, ephPub)
	if err != nil {
		t.Fatalf("NewInitiatorSession: %v", err)
	}
	bob, err := NewResponderSession(bytes.Repeat([]byte{0x42}, 32))
	if err != nil {
		t.Fatalf("NewResponderSession: %v", err)
	}

	env, err := alice.Encrypt([]byte("hello"), Regular, nil)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	prevBobDHPriv, prevBobDHPub := bob.dhPriv, bob.dhPub
	if bob.peerDHSet {
		t.Fatal("peerDHSet must be false before the first decrypt")
	}

	if _, err := bob.Decrypt(env); err != nil {
		t.Fatalf("Decrypt: %v", err)
	}

	if !bob.peerDHSet || bob.peerDHPub != env.Header.DHPublicKey {
		t.Fatal("first observation of the peer's DH public key must be recorded")
	}
	if bob.dhPriv != prevBobDHPriv || bob.dhPub != prevBobDHPub {
		t.Fatal("first observation must not ratchet: local DH key pair must be unchanged")
	}
}
