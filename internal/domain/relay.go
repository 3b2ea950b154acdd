package domain

import "context"

// RelayClient is the transport to a store-and-forward relay server.
type RelayClient interface {
	RegisterPreKeyBundle(ctx context.Context, b PreKeyBundle) (canary string, err error)
	FetchPreKeyBundle(ctx context.Context, username Username) (PreKeyBundle, error)
	FetchAccountCanary(ctx context.Context, username Username) (string, error)
	SendMessage(ctx context.Context, env Envelope) error
	FetchMessages(ctx context.Context, username Username, limit int) ([]Envelope, error)
	AckMessages(ctx context.Context, username Username, count int) error
}
