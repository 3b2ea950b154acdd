package ratchet

import (
	"ciphera/internal/ciphererr"
	"ciphera/internal/crypto"
)

// Phase tracks the session's position in the {Fresh, ActiveSending,
// ActiveReceivingWaiting, BiDir, Closed} state machine.
type Phase int

const (
	Fresh Phase = iota
	ActiveSending
	ActiveReceivingWaiting
	BiDir
	Closed
)

const (
	labelSending   = "sending"
	labelReceiving = "receiving"
)

// State is a Double Ratchet session. It is not safe for concurrent use:
// callers must serialize Encrypt/Decrypt on a given session themselves.
type State struct {
	send Chain
	recv Chain

	dhPriv    crypto.X25519Private
	dhPub     crypto.X25519Public
	peerDHPub crypto.X25519Public
	peerDHSet bool

	sendMessageNumber uint64
	phase             Phase
}

// NewInitiatorSession builds the initiator half of a Double Ratchet session
// from an X3DH shared secret. Both the sending and receiving chains are
// derived directly from sk; there is no DH and no root key at this stage.
// ratchetPriv/ratchetPub is the local DH keypair that will be advertised on
// outbound envelopes until the first ratchet; in practice this is the same
// ephemeral keypair x3dh.Initiate generated, reused here rather than minted
// twice. The peer's DH public key is unknown until the first inbound
// envelope: it is recorded then, not ratcheted against.
//
// sk is wiped before this function returns.
func NewInitiatorSession(sk []byte, ratchetPriv crypto.X25519Private, ratchetPub crypto.X25519Public) (*State, error) {
	send, recv, err := initialChains(sk, "ratchet.NewInitiatorSession")
	if err != nil {
		return nil, err
	}

	return &State{
		send:   send,
		recv:   recv,
		dhPriv: ratchetPriv,
		dhPub:  ratchetPub,
		phase:  Fresh,
	}, nil
}

// NewResponderSession builds the responder half of a Double Ratchet
// session. Its sending and receiving chains are the initiator's receiving
// and sending chains, swapped, so that each side's sending chain lines up
// with the other's receiving chain. A fresh local DH keypair is generated,
// since the responder has no X3DH ephemeral of its own to reuse. The
// peer's DH public key is recorded on the first inbound envelope, same as
// the initiator.
//
// sk is wiped before this function returns.
func NewResponderSession(sk []byte) (*State, error) {
	initSend, initRecv, err := initialChains(sk, "ratchet.NewResponderSession")
	if err != nil {
		return nil, err
	}

	dhPriv, dhPub, err := crypto.GenerateX25519()
	if err != nil {
		return nil, ciphererr.Wrap(ciphererr.Crypto, "ratchet.NewResponderSession", "generate local DH key pair", err)
	}

	return &State{
		send:   initRecv,
		recv:   initSend,
		dhPriv: dhPriv,
		dhPub:  dhPub,
		phase:  Fresh,
	}, nil
}

// initialChains derives CK_send_init and CK_recv_init directly from sk: one
// HKDF call per label, no salt, no DH. sk is wiped before returning.
func initialChains(sk []byte, op string) (send, recv Chain, err error) {
	if len(sk) != 32 {
		return Chain{}, Chain{}, ciphererr.New(ciphererr.InvalidInput, op, "shared secret must be 32 bytes")
	}
	defer crypto.Wipe(sk)

	sendKey, err := crypto.HKDF(sk, nil, []byte(labelSending), 32)
	if err != nil {
		return Chain{}, Chain{}, ciphererr.Wrap(ciphererr.Crypto, op, "derive CK_send_init", err)
	}
	recvKey, err := crypto.HKDF(sk, nil, []byte(labelReceiving), 32)
	if err != nil {
		return Chain{}, Chain{}, ciphererr.Wrap(ciphererr.Crypto, op, "derive CK_recv_init", err)
	}

	var sendArr, recvArr [32]byte
	copy(sendArr[:], sendKey)
	copy(recvArr[:], recvKey)
	return newChain(sendArr), newChain(recvArr), nil
}

// Encrypt advances the sending chain and seals plaintext into an envelope.
// msgType and preKey let the caller attach X3DH bootstrap fields to the
// first outbound envelope of a conversation (msgType == PreKey).
func (s *State) Encrypt(plaintext []byte, msgType MessageType, preKey *PreKeyFields) (Envelope, error) {
	if s.phase == Closed {
		return Envelope{}, ciphererr.New(ciphererr.State, "ratchet.State.Encrypt", "session is closed")
	}

	mk, err := s.send.step()
	if err != nil {
		return Envelope{}, ciphererr.Wrap(ciphererr.Crypto, "ratchet.State.Encrypt", "advance sending chain", err)
	}
	defer crypto.Wipe(mk[:])

	s.sendMessageNumber++
	nonce := crypto.DeriveNonce(mk, s.sendMessageNumber)

	ct, err := crypto.Seal(mk, nonce, nil, plaintext)
	if err != nil {
		return Envelope{}, ciphererr.Wrap(ciphererr.Crypto, "ratchet.State.Encrypt", "seal", err)
	}

	if s.phase == Fresh {
		s.phase = ActiveSending
	} else if s.phase == ActiveReceivingWaiting {
		s.phase = BiDir
	}

	return Envelope{
		Version:     1,
		MessageType: msgType,
		Ciphertext:  ct,
		Header: Header{
			DHPublicKey:         s.dhPub,
			PreviousChainLength: 0,
			MessageNumber:       s.sendMessageNumber,
		},
		PreKey: preKey,
	}, nil
}

// Decrypt validates and opens env, ratcheting the receiving chain if env
// advertises a peer DH public key that differs from the one already on
// file. The source ratchets only on an observed change: the first
// observation of the peer's key merely records it, since ratcheting on
// first sight would diverge from the peer's own symmetric decision.
func (s *State) Decrypt(env Envelope) ([]byte, error) {
	if s.phase == Closed {
		return nil, ciphererr.New(ciphererr.State, "ratchet.State.Decrypt", "session is closed")
	}
	if env.Header.DHPublicKey.IsZero() {
		return nil, ciphererr.New(ciphererr.Protocol, "ratchet.State.Decrypt", "malformed header: zero DH public key")
	}

	switch {
	case !s.peerDHSet:
		s.peerDHPub = env.Header.DHPublicKey
		s.peerDHSet = true
	case env.Header.DHPublicKey != s.peerDHPub:
		if err := s.dhRatchet(env.Header.DHPublicKey); err != nil {
			return nil, err
		}
	}

	mk, err := s.recv.step()
	if err != nil {
		return nil, ciphererr.Wrap(ciphererr.Crypto, "ratchet.State.Decrypt", "advance receiving chain", err)
	}
	defer crypto.Wipe(mk[:])

	nonce := crypto.DeriveNonce(mk, env.Header.MessageNumber)
	pt, err := crypto.Open(mk, nonce, nil, env.Ciphertext)
	if err != nil {
		return nil, err
	}

	if s.phase == Fresh {
		s.phase = ActiveReceivingWaiting
	} else if s.phase == ActiveSending {
		s.phase = BiDir
	}

	return pt, nil
}

// dhRatchet re-keys the receiving chain against the peer's new DH public
// key and mints a fresh local DH key pair for future outbound envelopes.
// The sending chain is left untouched; no step of this session re-keys it
// after construction.
func (s *State) dhRatchet(newRemotePub crypto.X25519Public) error {
	dhOut, err := crypto.DH(s.dhPriv, newRemotePub)
	if err != nil {
		return ciphererr.Wrap(ciphererr.Crypto, "ratchet.State.dhRatchet", "DH", err)
	}

	recvKey, err := crypto.HKDF(dhOut[:], nil, []byte(labelReceiving), 32)
	if err != nil {
		return ciphererr.Wrap(ciphererr.Crypto, "ratchet.State.dhRatchet", "derive receiving chain key", err)
	}
	var recvArr [32]byte
	copy(recvArr[:], recvKey)

	newPriv, newPub, err := crypto.GenerateX25519()
	if err != nil {
		return ciphererr.Wrap(ciphererr.Crypto, "ratchet.State.dhRatchet", "generate local DH key pair", err)
	}

	s.recv = newChain(recvArr)
	s.dhPriv, s.dhPub = newPriv, newPub
	s.peerDHPub = newRemotePub
	return nil
}

// Phase reports the session's current lifecycle state.
func (s *State) Phase() Phase { return s.phase }

// LocalPublic returns the DH public key currently advertised on outbound envelopes.
func (s *State) LocalPublic() crypto.X25519Public { return s.dhPub }

// Close zeroizes all key material and marks the session terminal.
func (s *State) Close() {
	s.send.wipe()
	s.recv.wipe()
	crypto.Wipe(s.dhPriv[:])
	s.phase = Closed
}
