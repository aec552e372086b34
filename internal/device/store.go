// Package device maintains per-user fingerprint history and computes device
// trust scores.
//
// Trust blends three signals: the weighted change score from the fingerprint
// detector, a penalty for any suspicious pattern, and a bonus for historical
// consistency across the user's bounded fingerprint log. The read-then-append
// on a user's history is guarded by a per-user lock so concurrent requests
// for the same user cannot corrupt it; different users never contend.
package device

import (
	"context"

	"github.com/sentrasec/sentra/internal/fingerprint"
)

// MaxHistory bounds the per-user fingerprint log. Oldest entries are evicted
// FIFO once the bound is exceeded.
const MaxHistory = 10

// HistoryStore is the per-user ordered fingerprint log. Implementations must
// keep at most MaxHistory entries per user, oldest first.
type HistoryStore interface {
	// List returns the user's history ordered oldest to newest. An unknown
	// user yields an empty slice, not an error.
	List(ctx context.Context, userID string) ([]fingerprint.DeviceFingerprint, error)

	// Append adds a fingerprint to the user's history, evicting the oldest
	// entry if the bound would be exceeded.
	Append(ctx context.Context, userID string, fp fingerprint.DeviceFingerprint) error

	// Clear removes the user's entire history (privacy reset).
	Clear(ctx context.Context, userID string) error
}
