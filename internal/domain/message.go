package domain

import (
	"context"

	"ciphera/internal/ratchet"
)

// Conversation persists the Double Ratchet session state for a peer.
type Conversation struct {
	Peer  ConversationID
	State ratchet.Snapshot
}

// Envelope is the relay-transported message. Wire carries the
// already-encoded ratchet.Envelope (see ratchet.Envelope.Encode); the relay
// itself never decodes it, only Username/Timestamp are meaningful to it.
type Envelope struct {
	From      Username `json:"from"`
	To        Username `json:"to"`
	Timestamp int64    `json:"timestamp"`
	Wire      string   `json:"wire"`
}

// DecryptedMessage is a single plaintext message returned by MessageService.ReceiveMessage.
type DecryptedMessage struct {
	From      Username
	To        Username
	Plaintext []byte
	Timestamp int64
}

// MessageService sends and receives Double Ratchet-encrypted messages over a RelayClient.
type MessageService interface {
	SendMessage(ctx context.Context, passphrase string, from, to Username, plaintext []byte) error
	ReceiveMessage(ctx context.Context, passphrase string, me Username, limit int) ([]DecryptedMessage, error)
}

// RatchetStore persists per-peer Double Ratchet conversation state.
type RatchetStore interface {
	SaveConversation(peer ConversationID, conv Conversation) error
	LoadConversation(peer ConversationID) (Conversation, bool, error)
}
