package webhooks

import (
	"context"
	"fmt"
	"time"
)

type redisStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

const defaultGuardTTL = 7 * 24 * time.Hour

// Guard short-circuits gateway webhook replays before they hit the wallet.
// The wallet ledger's unique reference is the durable backstop; this keeps
// replays from burning a verification round-trip.
type Guard struct {
	store redisStore
	ttl   time.Duration
}

func NewGuard(store redisStore, ttl time.Duration) (*Guard, error) {
	if store == nil {
		return nil, fmt.Errorf("webhook guard store required")
	}
	if ttl <= 0 {
		ttl = defaultGuardTTL
	}
	return &Guard{store: store, ttl: ttl}, nil
}

// CheckAndMark returns true when the reference was already handled.
func (g *Guard) CheckAndMark(ctx context.Context, provider, reference string) (bool, error) {
	key := g.store.IdempotencyKey("webhook:"+provider, reference)
	set, err := g.store.SetNX(ctx, key, "1", g.ttl)
	if err != nil {
		return false, err
	}
	return !set, nil
}

// Release drops the mark so a redelivery can retry after a failure.
func (g *Guard) Release(ctx context.Context, provider, reference string) error {
	key := g.store.IdempotencyKey("webhook:"+provider, reference)
	return g.store.Del(ctx, key)
}
