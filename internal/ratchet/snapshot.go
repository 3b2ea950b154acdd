package ratchet

import "ciphera/internal/crypto"

// ChainSnapshot is the persistable form of a Chain.
type ChainSnapshot struct {
	Key     [32]byte
	Counter uint32
	Set     bool
}

// Snapshot is the persistable form of a Double Ratchet State, used by
// internal/store to save and reload a conversation across process restarts.
// Callers should treat it as opaque and round-trip it only through
// State.Snapshot/FromSnapshot.
type Snapshot struct {
	Send ChainSnapshot
	Recv ChainSnapshot

	DHPriv    crypto.X25519Private
	DHPub     crypto.X25519Public
	PeerDHPub crypto.X25519Public
	PeerDHSet bool

	SendMessageNumber uint64
	Phase             Phase
}

// Snapshot captures s's full internal state for persistence.
func (s *State) Snapshot() Snapshot {
	return Snapshot{
		Send:              ChainSnapshot{Key: s.send.key, Counter: s.send.counter, Set: s.send.set},
		Recv:              ChainSnapshot{Key: s.recv.key, Counter: s.recv.counter, Set: s.recv.set},
		DHPriv:            s.dhPriv,
		DHPub:             s.dhPub,
		PeerDHPub:         s.peerDHPub,
		PeerDHSet:         s.peerDHSet,
		SendMessageNumber: s.sendMessageNumber,
		Phase:             s.phase,
	}
}

// FromSnapshot restores a State previously captured with Snapshot.
func FromSnapshot(sn Snapshot) *State {
	return &State{
		send: Chain{key: sn.Send.Key, counter: sn.Send.Counter, set: sn.Send.Set},
		recv: Chain{key: sn.Recv.Key, counter: sn.Recv.Counter, set: sn.Recv.Set},

		dhPriv:    sn.DHPriv,
		dhPub:     sn.DHPub,
		peerDHPub: sn.PeerDHPub,
		peerDHSet: sn.PeerDHSet,

		sendMessageNumber: sn.SendMessageNumber,
		phase:             sn.Phase,
	}
}
