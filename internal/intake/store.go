package intake

import (
	"context"
	"errors"
	"time"
)

// DefaultTTL is the sliding session lifetime.
const DefaultTTL = 30 * time.Minute

// ErrStoreUnavailable wraps failures of the persistence collaborator.
var ErrStoreUnavailable = errors.New("session store unavailable")

// StoreStats is a point-in-time count of stored sessions.
type StoreStats struct {
	// Active sessions have not expired.
	Active int `json:"active"`
	// Expired sessions are logically absent but not yet physically removed.
	Expired int `json:"expired"`
}

// Store is the persistence capability for intake sessions. Implementations
// own expiry: Get treats an expired record as absent and removes it, Set
// recomputes ExpiresAt from the call time on every write, and SweepExpired
// removes every record expired at now. Writes are full-record overwrites.
type Store interface {
	Get(ctx context.Context, sessionID string) (*Record, bool, error)
	Set(ctx context.Context, sessionID string, r *Record, userID string) error
	Delete(ctx context.Context, sessionID string) error
	SweepExpired(ctx context.Context, now time.Time) (int, error)
	Stats(ctx context.Context, now time.Time) (StoreStats, error)
}
