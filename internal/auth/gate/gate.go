// Package gate verifies opaque API credentials against the credential store,
// caching results so that a hot key costs one store round trip per TTL.
package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"schemagate/internal/auth/cache"
	"schemagate/internal/auth/metrics"
	"schemagate/internal/auth/models"
	"schemagate/internal/auth/store"
	"schemagate/pkg/platform/tracer"
)

var (
	// ErrUnauthorized means the credential is unknown, inactive or expired.
	ErrUnauthorized = errors.New("credential rejected")
	// ErrStoreUnavailable means the store could not be consulted. It is never
	// cached and never reported as ErrUnauthorized.
	ErrStoreUnavailable = errors.New("credential store unavailable")
)

const (
	storeFound    = "found"
	storeNotFound = "not_found"
	storeRejected = "rejected"
	storeError    = "error"
)

// Default TTLs and store timeout used when Config leaves them zero.
const (
	DefaultCacheTTL         = 60 * time.Second
	DefaultNegativeCacheTTL = 10 * time.Second
	DefaultStoreTimeout     = 3 * time.Second
)

// Config controls cache lifetimes and the store lookup bound.
type Config struct {
	CacheTTL         time.Duration
	NegativeCacheTTL time.Duration
	StoreTimeout     time.Duration
}

// Gate is the credential verifier. It is safe for concurrent use.
type Gate struct {
	store CredentialStore
	cache Cache
	cfg   Config

	flights singleflight.Group
	now     func() time.Time
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  tracer.Tracer
}

// Option configures a Gate.
type Option func(*Gate)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) {
		if logger != nil {
			g.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gate) {
		g.metrics = m
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(g *Gate) {
		if t != nil {
			g.tracer = t
		}
	}
}

// WithClock overrides time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		if now != nil {
			g.now = now
		}
	}
}

// New constructs a Gate. Zero durations in cfg fall back to the defaults.
func New(credentials CredentialStore, entries Cache, cfg Config, opts ...Option) (*Gate, error) {
	if credentials == nil {
		return nil, errors.New("credential store is required")
	}
	if entries == nil {
		return nil, errors.New("credential cache is required")
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.NegativeCacheTTL <= 0 {
		cfg.NegativeCacheTTL = DefaultNegativeCacheTTL
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = DefaultStoreTimeout
	}

	g := &Gate{
		store:  credentials,
		cache:  entries,
		cfg:    cfg,
		now:    time.Now,
		logger: slog.Default(),
		tracer: tracer.NewNoop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Verify resolves a raw credential to its identity.
//
// Side effects: may populate, refresh or invalidate the cache entry for the
// credential's hash.
//
// Errors: models.ErrMalformedCredential (no store call), ErrUnauthorized,
// ErrStoreUnavailable, or the caller's context error.
func (g *Gate) Verify(ctx context.Context, raw string) (identity *models.Identity, err error) {
	ctx, span := g.tracer.Start(ctx, tracer.SpanGateVerify)
	defer func() {
		g.metrics.RecordVerification(outcome(err))
		span.End(err)
	}()

	cred, err := models.ParseCredential(raw)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := cred.Hash()

	entry, err := g.cache.Get(ctx, key)
	switch {
	case err == nil:
		span.SetAttributes(tracer.Bool(tracer.AttrCacheHit, true))
		if entry.Negative {
			return nil, ErrUnauthorized
		}
		if entry.Identity.Usable(g.now()) {
			return entry.Identity, nil
		}
		// Expired while cached.
		g.remember(ctx, key, cache.Negative(g.now()), g.cfg.NegativeCacheTTL)
		return nil, ErrUnauthorized
	case !errors.Is(err, cache.ErrNotFound):
		g.logger.WarnContext(ctx, "credential cache lookup failed, falling back to store",
			"error", err,
		)
	}
	span.SetAttributes(tracer.Bool(tracer.AttrCacheHit, false))

	return g.fetch(ctx, key)
}

// fetch queries the store once per key no matter how many callers miss at
// the same time. The shared lookup is detached from any single caller so one
// caller going away does not fail the others.
func (g *Gate) fetch(ctx context.Context, key string) (*models.Identity, error) {
	ch := g.flights.DoChan(key, func() (any, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.cfg.StoreTimeout)
		defer cancel()
		return g.lookup(lookupCtx, key)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			g.metrics.RecordSharedStoreCall()
		}
		if res.Err != nil {
			return nil, res.Err
		}
		identity, _ := res.Val.(*models.Identity)
		return identity.Clone(), nil
	}
}

func (g *Gate) lookup(ctx context.Context, key string) (*models.Identity, error) {
	start := time.Now()
	identity, err := g.store.FindByHash(ctx, key)
	elapsed := time.Since(start).Seconds()

	switch {
	case errors.Is(err, store.ErrNotFound):
		g.metrics.ObserveStoreLookup(storeNotFound, elapsed)
		g.remember(ctx, key, cache.Negative(g.now()), g.cfg.NegativeCacheTTL)
		return nil, ErrUnauthorized
	case err != nil:
		g.metrics.ObserveStoreLookup(storeError, elapsed)
		g.logger.ErrorContext(ctx, "credential store lookup failed",
			"error", err,
		)
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	if !identity.Usable(g.now()) {
		g.metrics.ObserveStoreLookup(storeRejected, elapsed)
		g.remember(ctx, key, cache.Negative(g.now()), g.cfg.NegativeCacheTTL)
		return nil, ErrUnauthorized
	}

	g.metrics.ObserveStoreLookup(storeFound, elapsed)
	g.remember(ctx, key, cache.Positive(identity, g.now()), g.cfg.CacheTTL)
	return identity, nil
}

// remember writes entry for key. Set replaces any previous entry, so a
// negative write also invalidates a stale positive one. Cache failures are
// logged and otherwise ignored: the next request simply misses.
func (g *Gate) remember(ctx context.Context, key string, entry cache.Entry, ttl time.Duration) {
	if err := g.cache.Set(ctx, key, entry, ttl); err != nil {
		g.logger.WarnContext(ctx, "failed to update credential cache",
			"negative", entry.Negative,
			"error", err,
		)
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeAccepted
	case errors.Is(err, models.ErrMalformedCredential):
		return metrics.OutcomeMalformed
	case errors.Is(err, ErrUnauthorized):
		return metrics.OutcomeUnauthorized
	case errors.Is(err, ErrStoreUnavailable):
		return metrics.OutcomeUnavailable
	default:
		return metrics.OutcomeCanceled
	}
}
