// Package nonce implements the replay validators: an in-process one for
// single-instance deployments and a redis-backed one for fleets.
package nonce

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/umagate/umagate/internal/clock"
	"github.com/umagate/umagate/internal/protocol"
)

// DefaultRetention bounds how long (domain, nonce) pairs are remembered.
const DefaultRetention = 48 * time.Hour

type memoryValidator struct {
	clk       clock.Clock
	retention time.Duration

	mu   sync.Mutex
	seen map[string]time.Time
}

// NewMemoryValidator returns an in-process replay validator.
func NewMemoryValidator(clk clock.Clock, retention time.Duration) protocol.NonceValidator {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &memoryValidator{
		clk:       clk,
		retention: retention,
		seen:      make(map[string]time.Time),
	}
}

func (v *memoryValidator) CheckAndSave(ctx context.Context, senderDomain, nonce string, timestamp time.Time) error {
	now := v.clk.Now()
	if timestamp.Before(now.Add(-v.retention)) {
		// Older than the retention window: the pair may already have been
		// evicted, so it cannot be trusted as fresh.
		return protocol.ErrReplayedNonce
	}

	key := senderDomain + "|" + nonce

	v.mu.Lock()
	defer v.mu.Unlock()

	for k, seenAt := range v.seen {
		if seenAt.Before(now.Add(-v.retention)) {
			delete(v.seen, k)
		}
	}

	if _, ok := v.seen[key]; ok {
		return fmt.Errorf("%w: %s", protocol.ErrReplayedNonce, nonce)
	}
	v.seen[key] = now
	return nil
}
