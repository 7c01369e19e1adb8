package gate

//go:generate mockgen -source=gate_deps.go -destination=mocks/mocks.go -package=mocks CredentialStore,Cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"schemagate/internal/auth/cache"
	"schemagate/internal/auth/gate/mocks"
	"schemagate/internal/auth/models"
	"schemagate/internal/auth/store"
	dErrors "schemagate/pkg/domain-errors"
	"schemagate/pkg/testutil"
)

type GateSuite struct {
	suite.Suite
	ctrl   *gomock.Controller
	store  *mocks.MockCredentialStore
	cache  *mocks.MockCache
	gate   *Gate
	now    time.Time
	rawKey string
	hash   string
}

func TestGateSuite(t *testing.T) {
	suite.Run(t, new(GateSuite))
}

func (s *GateSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = mocks.NewMockCredentialStore(s.ctrl)
	s.cache = mocks.NewMockCache(s.ctrl)
	s.now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.rawKey = testutil.CredentialKey("gate-suite-key")
	s.hash = models.HashKey(s.rawKey)

	g, err := New(s.store, s.cache, Config{
		CacheTTL:         time.Minute,
		NegativeCacheTTL: 10 * time.Second,
		StoreTimeout:     time.Second,
	},
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(func() time.Time { return s.now }),
	)
	s.Require().NoError(err)
	s.gate = g
}

func (s *GateSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *GateSuite) captureSet(ttl time.Duration, into *cache.Entry) *gomock.Call {
	return s.cache.EXPECT().Set(gomock.Any(), s.hash, gomock.Any(), ttl).
		DoAndReturn(func(_ context.Context, _ string, e cache.Entry, _ time.Duration) error {
			*into = e
			return nil
		})
}

func (s *GateSuite) TestMalformedCredentialSkipsCacheAndStore() {
	for _, raw := range []string{"", "Bearer", "waro_short", "sk_" + s.rawKey} {
		_, err := s.gate.Verify(context.Background(), raw)
		s.ErrorIs(err, models.ErrMalformedCredential, raw)
	}
}

func (s *GateSuite) TestCacheHits() {
	s.Run("positive entry within ttl", func() {
		identity := testutil.NewIdentityBuilder().Build()
		s.cache.EXPECT().Get(gomock.Any(), s.hash).Return(cache.Positive(identity, s.now), nil)

		got, err := s.gate.Verify(context.Background(), s.rawKey)
		s.Require().NoError(err)
		s.Equal(identity.OwnerID, got.OwnerID)
	})

	s.Run("negative entry", func() {
		s.cache.EXPECT().Get(gomock.Any(), s.hash).Return(cache.Negative(s.now), nil)

		_, err := s.gate.Verify(context.Background(), s.rawKey)
		s.ErrorIs(err, ErrUnauthorized)
	})

	s.Run("identity expired while cached is invalidated", func() {
		identity := testutil.NewIdentityBuilder().ExpiresAt(s.now.Add(-time.Second)).Build()
		s.cache.EXPECT().Get(gomock.Any(), s.hash).Return(cache.Positive(identity, s.now.Add(-time.Minute)), nil)
		var written cache.Entry
		s.captureSet(10*time.Second, &written)

		_, err := s.gate.Verify(context.Background(), s.rawKey)
		s.ErrorIs(err, ErrUnauthorized)
		s.True(written.Negative)
	})
}

func (s *GateSuite) TestStoreLookup() {
	s.Run("found identity is cached for the positive ttl", func() {
		identity := testutil.NewIdentityBuilder().WithOwner(testutil.TestIDs.TenantID2).Build()
		s.cache.EXPECT().Get(gomock.Any(), s.hash).Return(cache.Entry{}, cache.ErrNotFound)
		s.store.EXPECT().FindByHash(gomock.Any(), s.hash).Return(identity, nil)
		var written cache.Entry
		s.captureSet(time.Minute, &written)

		got, err := s.gate.Verify(context.Background(), s.rawKey)
		s.Require().NoError(err)
		s.Equal(testutil.TestIDs.TenantID2, got.OwnerID)
		s.False(written.Negative)
		s.Equal(s.now, written.FetchedAt)
	})

	s.Run("unknown credential is negatively cached", func() {
		s.cache.EXPECT().Get(gomock.Any(), s.hash).Return(cache.Entry{}, cache.ErrNotFound)
		s.store.EXPECT().FindByHash(gomock.Any(), s.hash).Return(nil, store.ErrNotFound)
		var written cache.Entry
		s.captureSet(10*time.Second, &written)

		_, err := s.gate.Verify(context.Background(), s.rawKey)
		s.ErrorIs(err, ErrUnauthorized)
		s.True(written.Negative)
	})

	s.Run("inactive credential is negatively cached", func() {
		s.cache.EXPECT().Get(gomock.Any(), s.hash).Return(cache.Entry{}, cache.ErrNotFound)
		s.store.EXPECT().FindByHash(gomock.Any(), s.hash).Return(testutil.NewIdentityBuilder().Inactive().Build(), nil)
		var written cache.Entry
		s.captureSet(10*time.Second, &written)

		_, err := s.gate.Verify(context.Background(), s.rawKey)
		s.ErrorIs(err, ErrUnauthorized)
		s.True(written.Negative)
	})

	s.Run("expired credential is rejected", func() {
		expired := testutil.NewIdentityBuilder().ExpiresAt(s.now).Build()
		s.cache.EXPECT().Get(gomock.Any(), s.hash).Return(cache.Entry{}, cache.ErrNotFound)
		s.store.EXPECT().FindByHash(gomock.Any(), s.hash).Return(expired, nil)
		s.cache.EXPECT().Set(gomock.Any(), s.hash, gomock.Any(), 10*time.Second).Return(nil)

		_, err := s.gate.Verify(context.Background(), s.rawKey)
		s.ErrorIs(err, ErrUnauthorized)
	})

	s.Run("store failure is unavailable and not cached", func() {
		s.cache.EXPECT().Get(gomock.Any(), s.hash).Return(cache.Entry{}, cache.ErrNotFound)
		s.store.EXPECT().FindByHash(gomock.Any(), s.hash).Return(nil, errors.New("connection refused"))

		_, err := s.gate.Verify(context.Background(), s.rawKey)
		s.ErrorIs(err, ErrStoreUnavailable)
		s.NotErrorIs(err, ErrUnauthorized)
	})
}

func (s *GateSuite) TestCacheFailuresDegradeToStore() {
	s.Run("get error falls back to store", func() {
		identity := testutil.NewIdentityBuilder().Build()
		s.cache.EXPECT().Get(gomock.Any(), s.hash).Return(cache.Entry{}, errors.New("redis down"))
		s.store.EXPECT().FindByHash(gomock.Any(), s.hash).Return(identity, nil)
		s.cache.EXPECT().Set(gomock.Any(), s.hash, gomock.Any(), time.Minute).Return(errors.New("redis down"))

		got, err := s.gate.Verify(context.Background(), s.rawKey)
		s.Require().NoError(err)
		s.Equal(identity.TokenID, got.TokenID)
	})
}

func (s *GateSuite) TestAuthenticateMapsErrors() {
	s.Run("accepted caller", func() {
		identity := testutil.NewIdentityBuilder().WithTokenID(testutil.TestIDs.TokenID1).Build()
		s.cache.EXPECT().Get(gomock.Any(), s.hash).Return(cache.Positive(identity, s.now), nil)

		caller, err := s.gate.Authenticate(context.Background(), s.rawKey)
		s.Require().NoError(err)
		s.Equal(testutil.TestIDs.TokenID1, caller.TokenID)
		s.Equal(testutil.TestIDs.TenantID1, caller.OwnerID)
	})

	s.Run("malformed is unauthorized", func() {
		_, err := s.gate.Authenticate(context.Background(), "nope")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("rejected is unauthorized", func() {
		s.cache.EXPECT().Get(gomock.Any(), s.hash).Return(cache.Negative(s.now), nil)

		_, err := s.gate.Authenticate(context.Background(), s.rawKey)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("store failure is unavailable", func() {
		s.cache.EXPECT().Get(gomock.Any(), s.hash).Return(cache.Entry{}, cache.ErrNotFound)
		s.store.EXPECT().FindByHash(gomock.Any(), s.hash).Return(nil, errors.New("timeout"))

		_, err := s.gate.Authenticate(context.Background(), s.rawKey)
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	s.Run("canceled caller", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := s.gate.Authenticate(ctx, s.rawKey)
		s.True(dErrors.HasCode(err, dErrors.CodeCanceled))
		s.ErrorIs(err, context.Canceled)
	})
}

func TestNewRequiresDependencies(t *testing.T) {
	c := cache.NewMemory()
	defer func() { _ = c.Close() }()

	if _, err := New(nil, c, Config{}); err == nil {
		t.Fatal("expected error for nil store")
	}
	if _, err := New(store.NewInMemory(), nil, Config{}); err == nil {
		t.Fatal("expected error for nil cache")
	}
	g, err := New(store.NewInMemory(), c, Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.cfg.CacheTTL != DefaultCacheTTL || g.cfg.NegativeCacheTTL != DefaultNegativeCacheTTL || g.cfg.StoreTimeout != DefaultStoreTimeout {
		t.Fatalf("defaults not applied: %+v", g.cfg)
	}
}
