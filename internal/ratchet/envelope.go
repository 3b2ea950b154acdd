package ratchet

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"

	"ciphera/internal/ciphererr"
	"ciphera/internal/crypto"
)

// MessageType identifies the kind of envelope on the wire.
type MessageType string

const (
	Regular     MessageType = "Regular"
	PreKey      MessageType = "PreKey"
	KeyExchange MessageType = "KeyExchange"
)

// wireHeader is the JSON shape of MessageEnvelope.Header.
type wireHeader struct {
	DHPublicKey         string `json:"dh_public_key"`
	PreviousChainLength uint32 `json:"previous_chain_length"`
	MessageNumber       uint64 `json:"message_number"`
}

// wireEnvelope is the JSON shape encoded then base64-standard wrapped.
type wireEnvelope struct {
	Version     uint32      `json:"version"`
	MessageType MessageType `json:"message_type"`
	Ciphertext  string      `json:"ciphertext"`
	Header      wireHeader  `json:"header"`

	InitiatorIdentityKey string  `json:"initiator_identity_public_hex,omitempty"`
	InitiatorEphemeral   string  `json:"initiator_ephemeral_public_hex,omitempty"`
	SignedPreKeyID       *uint32 `json:"responder_signed_prekey_id,omitempty"`
	OneTimePreKeyID      *uint32 `json:"responder_one_time_prekey_id,omitempty"`
}

// Header is the per-message ratchet header.
type Header struct {
	DHPublicKey         crypto.X25519Public
	PreviousChainLength uint32
	MessageNumber       uint64
}

// PreKeyFields carries the X3DH bootstrap material a PreKey-type envelope
// must transmit on the first outbound message of a conversation.
type PreKeyFields struct {
	InitiatorIdentityKey crypto.X25519Public
	InitiatorEphemeral   crypto.X25519Public
	SignedPreKeyID       uint32
	OneTimePreKeyID      *uint32
}

// Envelope is a single Double Ratchet message, wire-transportable as
// JSON-then-base64.
type Envelope struct {
	Version     uint32
	MessageType MessageType
	Ciphertext  []byte
	Header      Header
	PreKey      *PreKeyFields
}

// Encode serializes e as JSON, then base64-standard, per the wire format.
func (e Envelope) Encode() (string, error) {
	w := wireEnvelope{
		Version:     e.Version,
		MessageType: e.MessageType,
		Ciphertext:  base64.StdEncoding.EncodeToString(e.Ciphertext),
		Header: wireHeader{
			DHPublicKey:         hex.EncodeToString(e.Header.DHPublicKey[:]),
			PreviousChainLength: e.Header.PreviousChainLength,
			MessageNumber:       e.Header.MessageNumber,
		},
	}
	if e.PreKey != nil {
		w.InitiatorIdentityKey = hex.EncodeToString(e.PreKey.InitiatorIdentityKey[:])
		w.InitiatorEphemeral = hex.EncodeToString(e.PreKey.InitiatorEphemeral[:])
		spkID := e.PreKey.SignedPreKeyID
		w.SignedPreKeyID = &spkID
		w.OneTimePreKeyID = e.PreKey.OneTimePreKeyID
	}

	raw, err := json.Marshal(w)
	if err != nil {
		return "", ciphererr.Wrap(ciphererr.Serialization, "ratchet.Envelope.Encode", "marshal JSON", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// Decode parses the base64-then-JSON wire format into an Envelope.
func Decode(s string) (Envelope, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return Envelope{}, ciphererr.Wrap(ciphererr.Protocol, "ratchet.Decode", "base64 decode", err)
	}

	var w wireEnvelope
	if err := json.Unmarshal(raw, &w); err != nil {
		return Envelope{}, ciphererr.Wrap(ciphererr.Protocol, "ratchet.Decode", "unmarshal JSON", err)
	}

	ct, err := base64.StdEncoding.DecodeString(w.Ciphertext)
	if err != nil {
		return Envelope{}, ciphererr.Wrap(ciphererr.Protocol, "ratchet.Decode", "ciphertext base64", err)
	}

	dhPub, err := crypto.ParseX25519PublicHex(w.Header.DHPublicKey)
	if err != nil {
		return Envelope{}, ciphererr.Wrap(ciphererr.Protocol, "ratchet.Decode", "dh_public_key", err)
	}

	e := Envelope{
		Version:     w.Version,
		MessageType: w.MessageType,
		Ciphertext:  ct,
		Header: Header{
			DHPublicKey:         dhPub,
			PreviousChainLength: w.Header.PreviousChainLength,
			MessageNumber:       w.Header.MessageNumber,
		},
	}

	if w.MessageType == PreKey {
		initIK, err := crypto.ParseX25519PublicHex(w.InitiatorIdentityKey)
		if err != nil {
			return Envelope{}, ciphererr.Wrap(ciphererr.Protocol, "ratchet.Decode", "initiator identity key", err)
		}
		initEph, err := crypto.ParseX25519PublicHex(w.InitiatorEphemeral)
		if err != nil {
			return Envelope{}, ciphererr.Wrap(ciphererr.Protocol, "ratchet.Decode", "initiator ephemeral", err)
		}
		if w.SignedPreKeyID == nil {
			return Envelope{}, ciphererr.New(ciphererr.Protocol, "ratchet.Decode", "missing responder signed prekey id")
		}
		e.PreKey = &PreKeyFields{
			InitiatorIdentityKey: initIK,
			InitiatorEphemeral:   initEph,
			SignedPreKeyID:       *w.SignedPreKeyID,
			OneTimePreKeyID:      w.OneTimePreKeyID,
		}
	}

	return e, nil
}
