package session

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"marquee/cmd/internal/observability"
	"marquee/cmd/security/token"
)

// CachedRevocations fronts a RevocationList with a bounded, expiring cache
// of positive lookups.
//
// Revocation is monotonic, so a cached "revoked" answer can never go stale.
// Negative answers are not cached: a token revoked by another request is
// seen on its next check.
type CachedRevocations struct {
	next    RevocationList
	cache   *lru.LRU[string, struct{}]
	metrics *observability.Metrics
}

// NewCachedRevocations wraps next. size must be positive.
func NewCachedRevocations(next RevocationList, size int, ttl time.Duration, metrics *observability.Metrics) *CachedRevocations {
	if size <= 0 {
		size = 1
	}
	return &CachedRevocations{
		next:    next,
		cache:   lru.NewLRU[string, struct{}](size, nil, ttl),
		metrics: metrics,
	}
}

func (c *CachedRevocations) Revoke(ctx context.Context, tok string) error {
	err := c.next.Revoke(ctx, tok)
	if err == nil || err == ErrAlreadyRevoked {
		c.cache.Add(token.Fingerprint(tok), struct{}{})
	}
	return err
}

func (c *CachedRevocations) IsRevoked(ctx context.Context, tok string) (bool, error) {
	fp := token.Fingerprint(tok)
	if _, ok := c.cache.Get(fp); ok {
		c.metrics.RevocationCacheLookup("hit")
		return true, nil
	}
	c.metrics.RevocationCacheLookup("miss")

	revoked, err := c.next.IsRevoked(ctx, tok)
	if err != nil {
		return false, err
	}
	if revoked {
		c.cache.Add(fp, struct{}{})
	}
	return revoked, nil
}

var (
	_ RevocationList = (*MemoryRevocations)(nil)
	_ RevocationList = (*PostgresRevocations)(nil)
	_ RevocationList = (*CachedRevocations)(nil)
)
