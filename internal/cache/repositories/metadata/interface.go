// Package metadata keeps session bookkeeping in the local cache, such as
// when the last pull ran and for whom.
package metadata

import (
	"context"
	"time"
)

// Well-known keys.
const (
	KeyLastPullAt   = "last_pull_at"
	KeyPullIdentity = "pull_identity"
)

type Repository interface {
	// Get returns ("", false, nil) when the key is absent.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	GetTime(ctx context.Context, key string) (time.Time, bool, error)
	SetTime(ctx context.Context, key string, t time.Time) error
	Delete(ctx context.Context, key string) error
}
