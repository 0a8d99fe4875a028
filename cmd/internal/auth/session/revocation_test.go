package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marquee/cmd/internal/observability"
)

func TestMemoryRevocations_RevokeIsMonotonic(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryRevocations()

	revoked, err := m.IsRevoked(ctx, "tok-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, m.Revoke(ctx, "tok-1"))

	for i := 0; i < 3; i++ {
		revoked, err = m.IsRevoked(ctx, "tok-1")
		require.NoError(t, err)
		assert.True(t, revoked)
	}

	assert.ErrorIs(t, m.Revoke(ctx, "tok-1"), ErrAlreadyRevoked)
	assert.Equal(t, 1, m.Len())

	revoked, err = m.IsRevoked(ctx, "tok-2")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestMemoryRevocations_ConcurrentRevokeSingleWinner(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryRevocations()

	const n = 16
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := m.Revoke(ctx, "shared"); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestMemoryRevocations_RejectsBlank(t *testing.T) {
	assert.ErrorIs(t, NewMemoryRevocations().Revoke(context.Background(), "  "), ErrInvalidToken)
}

type countingRevocations struct {
	RevocationList
	lookups int
	fail    error
}

func (c *countingRevocations) IsRevoked(ctx context.Context, tok string) (bool, error) {
	c.lookups++
	if c.fail != nil {
		return false, c.fail
	}
	return c.RevocationList.IsRevoked(ctx, tok)
}

func TestCachedRevocations_CachesOnlyPositives(t *testing.T) {
	ctx := context.Background()
	inner := &countingRevocations{RevocationList: NewMemoryRevocations()}
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	c := NewCachedRevocations(inner, 16, time.Hour, metrics)

	// Negative answers always go to the backing list.
	for i := 0; i < 2; i++ {
		revoked, err := c.IsRevoked(ctx, "tok")
		require.NoError(t, err)
		assert.False(t, revoked)
	}
	assert.Equal(t, 2, inner.lookups)

	// A revocation made behind the cache's back is still seen.
	require.NoError(t, inner.RevocationList.Revoke(ctx, "tok"))
	revoked, err := c.IsRevoked(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.Equal(t, 3, inner.lookups)

	// Positive answers are served from the cache afterwards.
	revoked, err = c.IsRevoked(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.Equal(t, 3, inner.lookups)

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.RevocationCacheTotal.WithLabelValues("hit")))
	assert.Equal(t, float64(3), testutil.ToFloat64(metrics.RevocationCacheTotal.WithLabelValues("miss")))
}

func TestCachedRevocations_RevokePopulatesCache(t *testing.T) {
	ctx := context.Background()
	inner := &countingRevocations{RevocationList: NewMemoryRevocations()}
	c := NewCachedRevocations(inner, 16, time.Hour, nil)

	require.NoError(t, c.Revoke(ctx, "tok"))
	assert.ErrorIs(t, c.Revoke(ctx, "tok"), ErrAlreadyRevoked)

	revoked, err := c.IsRevoked(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.Equal(t, 0, inner.lookups)
}

func TestCachedRevocations_PropagatesErrors(t *testing.T) {
	boom := errors.New("db down")
	inner := &countingRevocations{RevocationList: NewMemoryRevocations(), fail: boom}
	c := NewCachedRevocations(inner, 16, time.Hour, nil)

	_, err := c.IsRevoked(context.Background(), "tok")
	assert.ErrorIs(t, err, boom)
}
