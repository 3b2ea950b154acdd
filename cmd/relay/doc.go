// Package main runs the in-memory HTTP relay used by Ciphera during development
// and tests. It stores published prekey bundles and queues opaque, already
// ratchet-encrypted envelopes for recipients until they fetch them.
//
// HTTP API
//
//	POST /register
//	    Store a user's PreKeyBundle (identity key, signed prekey + sig, OTK).
//	    Responds with a bearer token and an account canary; the token must be
//	    presented on every authenticated route below, the canary lets the
//	    client detect a relay that silently reset its account.
//
//	GET /prekey/{username}
//	    Return the latest published PreKeyBundle for {username}. Public.
//
//	GET /account/{username}/canary
//	    Return the current canary for {username}. Requires a bearer token
//	    whose subject is {username}.
//
//	POST /msg/{user}
//	    Enqueue an Envelope destined to {user}. If Timestamp is zero, the
//	    server fills it with the current Unix time. Requires a bearer token
//	    for any registered user.
//
//	GET /msg/{user}?limit=N
//	    Return up to N queued Envelopes for {user}. Requires a bearer token
//	    whose subject is {user}.
//
//	POST /msg/{user}/ack { "count": N }
//	    Drop the first N queued envelopes for {user}. Requires a bearer token
//	    whose subject is {user}.
//
//	GET /metrics
//	    Prometheus exposition: request counts by route/status and a
//	    queue-depth gauge per user.
//
// Behaviour
//
//   - All state is held in memory and lost on process exit.
//   - Responses are JSON. Non-2xx statuses carry a short error message.
//   - When started with --log, a lightweight access log records method,
//     path, remote, status, bytes, duration and request ID for each request.
//   - The default listen address is :8080.
//
// This relay is intended for local use or as an untrusted middleman on a
// private network: it never sees plaintext or private keys, and cannot read
// the ratchet envelopes it stores, only their opaque wire encoding.
package main
