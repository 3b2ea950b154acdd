// Package ciphererr defines the error taxonomy shared by every Ciphera
// package. Callers branch on Kind rather than on concrete error types or
// string matching, mirroring how the rest of the module reports failures
// (see the teacher's own internal/domain error sentinels).
package ciphererr

import (
	"errors"
	"fmt"
)

// Kind classifies an error into one of a small, stable set of categories.
type Kind int

const (
	// Crypto covers primitive failures: signature verification, AEAD
	// authentication, key agreement.
	Crypto Kind = iota
	// Key covers malformed, missing or mismatched key material.
	Key
	// Serialization covers wire/at-rest encoding and decoding failures.
	Serialization
	// Protocol covers violations of the X3DH/ratchet wire contract
	// (malformed envelope or header, missing PreKey bootstrap fields,
	// one-time prekey presence mismatch).
	Protocol
	// State covers operations attempted in the wrong lifecycle phase or
	// against missing local state (e.g. using a closed session, or naming a
	// one-time prekey that was already consumed).
	State
	// InvalidInput covers caller-supplied arguments that fail validation
	// before any cryptographic work is attempted.
	InvalidInput
)

func (k Kind) String() string {
	switch k {
	case Crypto:
		return "crypto"
	case Key:
		return "key"
	case Serialization:
		return "serialization"
	case Protocol:
		return "protocol"
	case State:
		return "state"
	case InvalidInput:
		return "invalid_input"
	default:
		return "unknown"
	}
}

// Error is a Kind-tagged error with an optional wrapped cause.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs an Error with no wrapped cause.
func New(kind Kind, op, msg string) error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// Wrap constructs an Error wrapping err, or returns nil if err is nil.
func Wrap(kind Kind, op, msg string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Msg: msg, Err: err}
}

// Is reports whether err carries the given Kind, unwrapping as needed.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
