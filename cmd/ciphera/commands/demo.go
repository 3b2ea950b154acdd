package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"ciphera/internal/crypto"
	"ciphera/internal/ratchet"
	"ciphera/internal/x3dh"
)

// demoCmd runs a local, in-process two-party handshake and a short
// back-and-forth exchange, without a relay or any on-disk state: Alice and
// Bob both live in this one process. Useful for exercising the X3DH
// handshake and the Double Ratchet's record-on-first-sight convention
// without standing up cmd/relay.
func demoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run a local two-party X3DH + Double Ratchet exchange",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			return runDemo(out)
		},
	}
}

func runDemo(out io.Writer) error {
	print := func(format string, a ...any) {
		fmt.Fprintf(out, format, a...)
	}

	// --- Bob's long-term identity and one published prekey bundle ---
	bobIK, bobIKPub, err := crypto.GenerateX25519()
	if err != nil {
		return fmt.Errorf("bob identity: %w", err)
	}
	bobSignPriv, bobSignPub, err := crypto.GenerateEd25519()
	if err != nil {
		return fmt.Errorf("bob signing key: %w", err)
	}
	bobSPKPriv, bobSPKPub, err := crypto.GenerateX25519()
	if err != nil {
		return fmt.Errorf("bob signed prekey: %w", err)
	}
	bobOTKPriv, bobOTKPub, err := crypto.GenerateX25519()
	if err != nil {
		return fmt.Errorf("bob one-time prekey: %w", err)
	}
	otkID := uint32(1)

	bundle := x3dh.Bundle{
		IdentityKey:     bobIKPub,
		VerifyingKey:    bobSignPub,
		SignedPreKeyID:  1,
		SignedPreKey:    bobSPKPub,
		SignedPreKeySig: crypto.Sign(bobSignPriv, bobSPKPub[:]),
		OneTimePreKeyID: &otkID,
		OneTimePreKey:   &bobOTKPub,
	}
	print("Bob published a prekey bundle (signed prekey id %d, one-time prekey id %d)\n", bundle.SignedPreKeyID, otkID)

	// --- Alice's identity, and the X3DH handshake against Bob's bundle ---
	aliceIK, aliceIKPub, err := crypto.GenerateX25519()
	if err != nil {
		return fmt.Errorf("alice identity: %w", err)
	}

	sk, ephPriv, hs, err := x3dh.Initiate(aliceIK, bundle)
	if err != nil {
		return fmt.Errorf("x3dh initiate: %w", err)
	}
	print("Alice ran X3DH against Bob's bundle and derived a shared secret\n")

	aliceSession, err := ratchet.NewInitiatorSession(sk[:], ephPriv, hs.EphemeralPublic)
	if err != nil {
		return fmt.Errorf("alice session: %w", err)
	}

	// --- Bob recomputes the same shared secret and builds his session ---
	bobSK, err := x3dh.Respond(bobIK, bobSPKPriv, &bobOTKPriv, aliceIKPub, hs)
	if err != nil {
		return fmt.Errorf("x3dh respond: %w", err)
	}
	bobSession, err := ratchet.NewResponderSession(bobSK[:])
	if err != nil {
		return fmt.Errorf("bob session: %w", err)
	}
	print("Bob recomputed the shared secret from the handshake fields\n\n")

	// --- Alice sends the first message; this is the PreKey-type envelope ---
	msg1 := []byte("hey bob")
	env1, err := aliceSession.Encrypt(msg1, ratchet.PreKey, &ratchet.PreKeyFields{
		InitiatorIdentityKey: aliceIKPub,
		InitiatorEphemeral:   hs.EphemeralPublic,
		SignedPreKeyID:       hs.SignedPreKeyID,
		OneTimePreKeyID:      hs.OneTimePreKeyID,
	})
	if err != nil {
		return fmt.Errorf("alice encrypt: %w", err)
	}
	pt1, err := bobSession.Decrypt(env1)
	if err != nil {
		return fmt.Errorf("bob decrypt: %w", err)
	}
	print("Alice -> Bob: %q\n", pt1)

	// --- Bob replies, using his own local DH key pair ---
	msg2 := []byte("hey alice")
	env2, err := bobSession.Encrypt(msg2, ratchet.Regular, nil)
	if err != nil {
		return fmt.Errorf("bob encrypt: %w", err)
	}
	pt2, err := aliceSession.Decrypt(env2)
	if err != nil {
		return fmt.Errorf("alice decrypt: %w", err)
	}
	print("Bob -> Alice: %q  (Alice sees Bob's DH key for the first time and records it; no ratchet yet)\n", pt2)

	// --- Alice replies again, still advertising her original ephemeral key ---
	msg3 := []byte("good to hear from you")
	env3, err := aliceSession.Encrypt(msg3, ratchet.Regular, nil)
	if err != nil {
		return fmt.Errorf("alice encrypt: %w", err)
	}
	pt3, err := bobSession.Decrypt(env3)
	if err != nil {
		return fmt.Errorf("bob decrypt: %w", err)
	}
	print("Alice -> Bob: %q  (matches Bob's recorded key; still no ratchet)\n", pt3)

	aliceSession.Close()
	bobSession.Close()
	return nil
}
