package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"schemagate/internal/auth/metrics"
	"schemagate/internal/auth/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestCache(t *testing.T, opts ...MemoryOption) (*MemoryCache, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	opts = append([]MemoryOption{WithClock(clock.Now), WithJanitorInterval(time.Hour)}, opts...)
	c := NewMemory(opts...)
	t.Cleanup(func() { _ = c.Close() })
	return c, clock
}

func testIdentity() *models.Identity {
	return &models.Identity{TokenID: "tok-1", OwnerID: "tenant-1", Scopes: []string{"extract"}, Active: true}
}

func TestMemoryCache_GetSet(t *testing.T) {
	ctx := context.Background()

	t.Run("miss on unknown key", func(t *testing.T) {
		c, _ := newTestCache(t)
		_, err := c.Get(ctx, "nope")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("returns positive entry until ttl elapses", func(t *testing.T) {
		c, clock := newTestCache(t)
		require.NoError(t, c.Set(ctx, "k", Positive(testIdentity(), clock.Now()), time.Minute))

		got, err := c.Get(ctx, "k")
		require.NoError(t, err)
		assert.False(t, got.Negative)
		assert.Equal(t, "tenant-1", got.Identity.OwnerID)

		clock.Advance(59 * time.Second)
		_, err = c.Get(ctx, "k")
		require.NoError(t, err)

		clock.Advance(time.Second)
		_, err = c.Get(ctx, "k")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("negative entry", func(t *testing.T) {
		c, clock := newTestCache(t)
		require.NoError(t, c.Set(ctx, "k", Negative(clock.Now()), 10*time.Second))

		got, err := c.Get(ctx, "k")
		require.NoError(t, err)
		assert.True(t, got.Negative)
		assert.Nil(t, got.Identity)
	})

	t.Run("set replaces previous entry", func(t *testing.T) {
		c, clock := newTestCache(t)
		require.NoError(t, c.Set(ctx, "k", Negative(clock.Now()), time.Minute))
		require.NoError(t, c.Set(ctx, "k", Positive(testIdentity(), clock.Now()), time.Minute))

		got, err := c.Get(ctx, "k")
		require.NoError(t, err)
		assert.False(t, got.Negative)
		assert.Equal(t, 1, c.Len())
	})

	t.Run("non-positive ttl deletes", func(t *testing.T) {
		c, clock := newTestCache(t)
		require.NoError(t, c.Set(ctx, "k", Negative(clock.Now()), time.Minute))
		require.NoError(t, c.Set(ctx, "k", Negative(clock.Now()), 0))
		assert.Equal(t, 0, c.Len())
	})

	t.Run("stored identity is isolated from callers", func(t *testing.T) {
		c, clock := newTestCache(t)
		identity := testIdentity()
		require.NoError(t, c.Set(ctx, "k", Positive(identity, clock.Now()), time.Minute))
		identity.Scopes[0] = "mutated"

		got, err := c.Get(ctx, "k")
		require.NoError(t, err)
		got.Identity.OwnerID = "other"

		again, err := c.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []string{"extract"}, again.Identity.Scopes)
		assert.Equal(t, "tenant-1", again.Identity.OwnerID)
	})

	t.Run("delete", func(t *testing.T) {
		c, clock := newTestCache(t)
		require.NoError(t, c.Set(ctx, "k", Negative(clock.Now()), time.Minute))
		require.NoError(t, c.Delete(ctx, "k"))
		require.NoError(t, c.Delete(ctx, "k"))
		_, err := c.Get(ctx, "k")
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMemoryCache_Sweep(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	c, clock := newTestCache(t, WithMetrics(m))
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "short", Negative(clock.Now()), time.Second))
	require.NoError(t, c.Set(ctx, "long", Negative(clock.Now()), time.Hour))

	clock.Advance(2 * time.Second)
	assert.Equal(t, 1, c.Sweep())
	assert.Equal(t, 1, c.Len())
	assert.InDelta(t, 1, testutil.ToFloat64(m.CacheEvictions), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.CacheEntries), 0)
}

func TestMemoryCache_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	c, clock := newTestCache(t, WithMetrics(m))
	ctx := context.Background()

	_, _ = c.Get(ctx, "missing")
	require.NoError(t, c.Set(ctx, "pos", Positive(testIdentity(), clock.Now()), time.Minute))
	require.NoError(t, c.Set(ctx, "neg", Negative(clock.Now()), time.Minute))
	_, _ = c.Get(ctx, "pos")
	_, _ = c.Get(ctx, "neg")

	assert.InDelta(t, 1, testutil.ToFloat64(m.CacheLookups.WithLabelValues("memory", metrics.ResultMiss)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.CacheLookups.WithLabelValues("memory", metrics.ResultHit)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.CacheLookups.WithLabelValues("memory", metrics.ResultNegativeHit)), 0)
}

func TestMemoryCache_JanitorEvicts(t *testing.T) {
	c := NewMemory(WithJanitorInterval(5 * time.Millisecond))
	defer func() { _ = c.Close() }()

	require.NoError(t, c.Set(context.Background(), "k", Negative(time.Now()), time.Millisecond))
	assert.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestMemoryCache_CloseIsIdempotent(t *testing.T) {
	c := NewMemory()
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
}
