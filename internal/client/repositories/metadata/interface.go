// Package metadata stores small key/value settings of the local store, most
// notably the current session.
package metadata

import (
	"context"
)

// Session keys.
const (
	KeyEmail       = "session.email"
	KeyAccessToken = "session.access_token"
	KeyExpiresAt   = "session.expires_at"
	KeyFirstLogin  = "session.first_login"
	KeyVerified    = "session.verified"
)

type Repository interface {
	// Get returns (nil, nil) when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetMany(ctx context.Context, values map[string][]byte) error
	Delete(ctx context.Context, keys ...string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}
