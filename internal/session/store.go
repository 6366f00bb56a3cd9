package session

import (
	"context"
	"time"
)

// Store persists session data under an opaque token. The two backends
// (in-process memory, networked redis) expose identical semantics; only
// durability and cross-node sharing differ. Save resets the inactivity
// window; a Load after the window elapsed is a miss.
type Store interface {
	// Load returns the values stored under token, or nil for a miss.
	Load(ctx context.Context, token string) (map[string]string, error)
	// Save stores the values and restarts the expiry window.
	Save(ctx context.Context, token string, values map[string]string, ttl time.Duration) error
	// Delete removes the session, if present.
	Delete(ctx context.Context, token string) error
}
