// Package session establishes and tracks X3DH sessions.
//
// It performs the initiator half of the handshake, persists session material,
// and exposes lookups for the message service. The responder half runs in the
// message service, on the first inbound PreKey envelope.
package session
