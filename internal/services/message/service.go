// Package message sends and receives Double Ratchet-encrypted envelopes
// over a relay, bootstrapping a session from X3DH on first contact in
// either direction.
package message

import (
	"context"
	"fmt"
	"time"

	"ciphera/internal/ciphererr"
	"ciphera/internal/crypto"
	"ciphera/internal/domain"
	"ciphera/internal/ratchet"
	"ciphera/internal/x3dh"
)

// Service sends and receives messages over the relay using Double Ratchet.
//
// High-level flow:
//   - Send: if no conversation exists, bootstrap one via X3DH and attach its
//     PreKey bootstrap fields so the receiver can do the same, then encrypt
//     with the ratchet and post via the relay.
//   - Receive: fetch envelopes, bootstrap a conversation if needed using the
//     sender's PreKey fields, decrypt in order, persist ratchet state, then
//     ack the envelopes actually processed.
type Service struct {
	idStore        domain.IdentityStore
	prekeyStore    domain.PreKeyStore
	ratchetStore   domain.RatchetStore
	sessionService domain.SessionService
	relayClient    domain.RelayClient
	accountStore   domain.AccountStore
	serverURL      string
}

// New constructs a message Service with the given stores and relay client.
// serverURL is used only to key AccountStore lookups for the canary check on
// Send, and must match whatever value the caller registered the account
// under; an empty value disables that check.
func New(
	idStore domain.IdentityStore,
	prekeyStore domain.PreKeyStore,
	ratchetStore domain.RatchetStore,
	sessionService domain.SessionService,
	relayClient domain.RelayClient,
	accountStore domain.AccountStore,
	serverURL string,
) *Service {
	return &Service{
		idStore:        idStore,
		prekeyStore:    prekeyStore,
		ratchetStore:   ratchetStore,
		sessionService: sessionService,
		relayClient:    relayClient,
		accountStore:   accountStore,
		serverURL:      serverURL,
	}
}

var _ domain.MessageService = (*Service)(nil)

// SendMessage encrypts plaintext under the to conversation's ratchet,
// bootstrapping a new session via X3DH if none exists yet, and posts the
// resulting envelope to the relay.
//
// If an account profile for fromUsername is on file, Send first confirms
// the relay's canary still matches it, so a relay that silently reset an
// account's message queue is caught before we ratchet forward against it.
func (s *Service) SendMessage(ctx context.Context, passphrase string, fromUsername, toUsername domain.Username, plaintext []byte) error {
	if s.serverURL != "" {
		profile, found, err := s.accountStore.LoadAccountProfile(s.serverURL, fromUsername)
		if err != nil {
			return err
		}
		if found {
			canary, err := s.relayClient.FetchAccountCanary(ctx, fromUsername)
			if err != nil {
				return ciphererr.Wrap(ciphererr.Protocol, "message.Service.SendMessage", "fetch account canary", err)
			}
			if canary != profile.Canary {
				return ciphererr.New(ciphererr.Protocol, "message.Service.SendMessage",
					fmt.Sprintf("relay canary mismatch for %s: expected %s got %s", fromUsername, profile.Canary, canary))
			}
		}
	}

	convID := domain.ConversationID(toUsername.String())
	conv, found, err := s.ratchetStore.LoadConversation(convID)
	if err != nil {
		return err
	}

	var (
		state   *ratchet.State
		msgType = ratchet.Regular
		preKey  *ratchet.PreKeyFields
	)

	if found {
		state = ratchet.FromSnapshot(conv.State)
	} else {
		id, err := s.idStore.LoadIdentity(passphrase)
		if err != nil {
			return err
		}

		sess, ok, err := s.sessionService.GetSession(toUsername)
		if err != nil {
			return err
		}
		if !ok {
			sess, err = s.sessionService.InitiateSession(ctx, passphrase, toUsername)
			if err != nil {
				return err
			}
		}
		if !sess.IsInitiator {
			return ciphererr.New(ciphererr.State, "message.Service.SendMessage", "stored session is not an initiator session")
		}

		state, err = ratchet.NewInitiatorSession(sess.RootKey, sess.InitiatorEphemeralPriv, sess.InitiatorEphemeralKey)
		if err != nil {
			return err
		}

		msgType = ratchet.PreKey
		preKey = &ratchet.PreKeyFields{
			InitiatorIdentityKey: id.XPub,
			InitiatorEphemeral:   sess.InitiatorEphemeralKey,
			SignedPreKeyID:       sess.SignedPreKeyID,
			OneTimePreKeyID:      sess.OneTimePreKeyID,
		}
	}

	env, err := state.Encrypt(plaintext, msgType, preKey)
	if err != nil {
		return err
	}

	// Persist updated ratchet state before sending to avoid message loss if
	// the process crashes between the two.
	if err := s.ratchetStore.SaveConversation(convID, domain.Conversation{Peer: convID, State: state.Snapshot()}); err != nil {
		return err
	}

	wire, err := env.Encode()
	if err != nil {
		return err
	}

	return s.relayClient.SendMessage(ctx, domain.Envelope{
		From:      fromUsername,
		To:        toUsername,
		Timestamp: time.Now().Unix(),
		Wire:      wire,
	})
}

// ReceiveMessage fetches up to limit queued envelopes for me, decrypts each
// against its conversation's ratchet (bootstrapping one via X3DH on a
// PreKey-type first message), and acknowledges only the envelopes it
// actually processed: a mid-stream decrypt failure stops processing and
// leaves the rest queued rather than acking past them.
func (s *Service) ReceiveMessage(ctx context.Context, passphrase string, me domain.Username, limit int) ([]domain.DecryptedMessage, error) {
	envs, err := s.relayClient.FetchMessages(ctx, me, limit)
	if err != nil {
		return nil, err
	}

	out := make([]domain.DecryptedMessage, 0, len(envs))
	processed := 0
	for _, env := range envs {
		pt, err := s.decryptOne(passphrase, env)
		if err != nil {
			break
		}
		out = append(out, domain.DecryptedMessage{
			From:      env.From,
			To:        env.To,
			Plaintext: pt,
			Timestamp: env.Timestamp,
		})
		processed++
	}

	if processed > 0 {
		if err := s.relayClient.AckMessages(ctx, me, processed); err != nil {
			return out, ciphererr.Wrap(ciphererr.Protocol, "message.Service.ReceiveMessage", "ack processed messages", err)
		}
	}
	return out, nil
}

func (s *Service) decryptOne(passphrase string, env domain.Envelope) ([]byte, error) {
	wire, err := ratchet.Decode(env.Wire)
	if err != nil {
		return nil, err
	}

	convID := domain.ConversationID(env.From.String())
	conv, found, err := s.ratchetStore.LoadConversation(convID)
	if err != nil {
		return nil, err
	}

	var state *ratchet.State
	switch {
	case found:
		state = ratchet.FromSnapshot(conv.State)
	case wire.MessageType == ratchet.PreKey:
		state, err = s.bootstrapResponder(passphrase, wire)
		if err != nil {
			return nil, err
		}
	default:
		return nil, ciphererr.New(ciphererr.Protocol, "message.Service.decryptOne", "no conversation on file and envelope is not a PreKey message")
	}

	pt, err := state.Decrypt(wire)
	if err != nil {
		return nil, err
	}

	if err := s.ratchetStore.SaveConversation(convID, domain.Conversation{Peer: convID, State: state.Snapshot()}); err != nil {
		return nil, err
	}
	return pt, nil
}

// bootstrapResponder runs the responder half of X3DH against the PreKey
// fields carried on a conversation's first inbound envelope, consuming the
// one-time prekey it names (if any), and builds the resulting ratchet
// session.
func (s *Service) bootstrapResponder(passphrase string, wire ratchet.Envelope) (*ratchet.State, error) {
	if wire.PreKey == nil {
		return nil, ciphererr.New(ciphererr.Protocol, "message.Service.bootstrapResponder", "PreKey envelope missing bootstrap fields")
	}

	id, err := s.idStore.LoadIdentity(passphrase)
	if err != nil {
		return nil, err
	}

	spkPriv, _, found, err := s.prekeyStore.LoadSignedPreKey(wire.PreKey.SignedPreKeyID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ciphererr.New(ciphererr.State, "message.Service.bootstrapResponder", "signed prekey named in envelope is not on file")
	}

	var otkPriv *crypto.X25519Private
	if wire.PreKey.OneTimePreKeyID != nil {
		priv, _, ok, err := s.prekeyStore.ConsumeOneTimePreKey(*wire.PreKey.OneTimePreKeyID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ciphererr.New(ciphererr.State, "message.Service.bootstrapResponder", "one-time prekey named in envelope already consumed or unknown")
		}
		otkPriv = &priv
	}

	hs := x3dh.Handshake{
		InitiatorIdentityKey: wire.PreKey.InitiatorIdentityKey,
		EphemeralPublic:      wire.PreKey.InitiatorEphemeral,
		SignedPreKeyID:       wire.PreKey.SignedPreKeyID,
		OneTimePreKeyID:      wire.PreKey.OneTimePreKeyID,
	}
	rootKey, err := x3dh.Respond(id.XPriv, spkPriv, otkPriv, wire.PreKey.InitiatorIdentityKey, hs)
	if err != nil {
		return nil, err
	}

	return ratchet.NewResponderSession(rootKey[:])
}
