package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echosys/storagecheck/internal/application/services"
	"github.com/echosys/storagecheck/internal/core/domain/user"
	"github.com/echosys/storagecheck/internal/core/ports"
)

type userStoreMock struct {
	versionFn        func(ctx context.Context) (string, error)
	countUsersFn     func(ctx context.Context) (int64, error)
	countDevicesFn   func(ctx context.Context) (int64, error)
	ensureSentinelFn func(ctx context.Context) (*uuid.UUID, bool, error)
	recentUsersFn    func(ctx context.Context, limit int) ([]user.User, error)
	closed           bool
}

func (m *userStoreMock) Version(ctx context.Context) (string, error) {
	if m.versionFn != nil {
		return m.versionFn(ctx)
	}
	return "PostgreSQL 15.4 on x86_64-pc-linux-gnu", nil
}

func (m *userStoreMock) CountUsers(ctx context.Context) (int64, error) {
	if m.countUsersFn != nil {
		return m.countUsersFn(ctx)
	}
	return 3, nil
}

func (m *userStoreMock) CountDevices(ctx context.Context) (int64, error) {
	if m.countDevicesFn != nil {
		return m.countDevicesFn(ctx)
	}
	return 1, nil
}

func (m *userStoreMock) EnsureSentinelUser(ctx context.Context) (*uuid.UUID, bool, error) {
	if m.ensureSentinelFn != nil {
		return m.ensureSentinelFn(ctx)
	}
	id := uuid.New()
	return &id, true, nil
}

func (m *userStoreMock) RecentUsers(ctx context.Context, limit int) ([]user.User, error) {
	if m.recentUsersFn != nil {
		return m.recentUsersFn(ctx, limit)
	}
	return nil, nil
}

func (m *userStoreMock) Close() error {
	m.closed = true
	return nil
}

type cacheMock struct {
	data    map[string][]byte
	pingErr error
	setErr  error
	getErr  error
	delErr  error
	closed  bool
}

func newCacheMock() *cacheMock {
	return &cacheMock{data: make(map[string][]byte)}
}

func (m *cacheMock) Ping(ctx context.Context) error {
	return m.pingErr
}

func (m *cacheMock) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	val, ok := m.data[key]
	return val, ok, nil
}

func (m *cacheMock) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	return nil
}

func (m *cacheMock) Delete(ctx context.Context, key string) error {
	if m.delErr != nil {
		return m.delErr
	}
	delete(m.data, key)
	return nil
}

func (m *cacheMock) Close() error {
	m.closed = true
	return nil
}

func openers(store *userStoreMock, cache *cacheMock) (services.StoreOpener, services.CacheOpener) {
	return func(ctx context.Context) (ports.UserStore, error) { return store, nil },
		func(ctx context.Context) (ports.Cache, error) { return cache, nil }
}

func sampleUsers(n int) []user.User {
	now := time.Now()
	users := make([]user.User, 0, n)
	for i := 0; i < n; i++ {
		createdAt := now.Add(-time.Duration(i) * time.Hour)
		users = append(users, user.User{
			ID:        uuid.New(),
			Username:  "user" + string(rune('a'+i)),
			Email:     "user@echo.local",
			Role:      user.RoleUser,
			CreatedAt: &createdAt,
		})
	}
	return users
}

func TestProbeRelationalStore_Pass(t *testing.T) {
	store := &userStoreMock{}
	openStore, openCache := openers(store, newCacheMock())
	checker := services.NewCheckerService(openStore, openCache, nil)

	res := checker.ProbeRelationalStore(context.Background())

	assert.True(t, res.Passed)
	assert.Equal(t, services.ProbeRelationalName, res.Name)
	assert.Contains(t, res.Detail, "PostgreSQL 15.4")
	assert.True(t, store.closed, "store must be closed after the probe")
}

func TestProbeRelationalStore_Unreachable(t *testing.T) {
	openStore := func(ctx context.Context) (ports.UserStore, error) {
		return nil, errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")
	}
	_, openCache := openers(nil, newCacheMock())
	checker := services.NewCheckerService(openStore, openCache, nil)

	res := checker.ProbeRelationalStore(context.Background())

	assert.False(t, res.Passed)
	assert.Contains(t, res.Detail, "connection refused")
}

func TestProbeRelationalStore_ZeroDevicesStillPasses(t *testing.T) {
	store := &userStoreMock{
		countDevicesFn: func(ctx context.Context) (int64, error) { return 0, nil },
	}
	openStore, openCache := openers(store, newCacheMock())
	checker := services.NewCheckerService(openStore, openCache, nil)

	res := checker.ProbeRelationalStore(context.Background())

	assert.True(t, res.Passed)
	assert.Contains(t, res.Detail, "devices=0")
}

func TestProbeRelationalStore_SentinelAlreadyPresent(t *testing.T) {
	store := &userStoreMock{
		ensureSentinelFn: func(ctx context.Context) (*uuid.UUID, bool, error) {
			return nil, false, nil
		},
	}
	openStore, openCache := openers(store, newCacheMock())
	checker := services.NewCheckerService(openStore, openCache, nil)

	res := checker.ProbeRelationalStore(context.Background())

	assert.True(t, res.Passed)
	assert.Contains(t, res.Detail, "sentinel_created=false")
}

func TestProbeRelationalStore_ClosesStoreOnFailure(t *testing.T) {
	store := &userStoreMock{
		versionFn: func(ctx context.Context) (string, error) {
			return "", errors.New("permission denied for function version")
		},
	}
	openStore, openCache := openers(store, newCacheMock())
	checker := services.NewCheckerService(openStore, openCache, nil)

	res := checker.ProbeRelationalStore(context.Background())

	assert.False(t, res.Passed)
	assert.True(t, store.closed, "store must be closed even when the probe fails")
}

func TestProbeCacheStore_RoundTripAndCleanup(t *testing.T) {
	cache := newCacheMock()
	openStore, openCache := openers(&userStoreMock{}, cache)
	checker := services.NewCheckerService(openStore, openCache, nil)

	res := checker.ProbeCacheStore(context.Background())

	assert.True(t, res.Passed)
	assert.Equal(t, services.ProbeCacheName, res.Name)
	assert.Empty(t, cache.data, "probe key must be deleted after the round trip")
	assert.True(t, cache.closed, "cache must be closed after the probe")
}

func TestProbeCacheStore_PingFailure(t *testing.T) {
	cache := newCacheMock()
	cache.pingErr = errors.New("NOAUTH Authentication required")
	openStore, openCache := openers(&userStoreMock{}, cache)
	checker := services.NewCheckerService(openStore, openCache, nil)

	res := checker.ProbeCacheStore(context.Background())

	assert.False(t, res.Passed)
	assert.Contains(t, res.Detail, "NOAUTH")
	assert.True(t, cache.closed, "cache must be closed even when the probe fails")
}

func TestProbeCacheStore_MissingAfterWrite(t *testing.T) {
	cache := newCacheMock()
	cache.getErr = errors.New("i/o timeout")
	openStore, openCache := openers(&userStoreMock{}, cache)
	checker := services.NewCheckerService(openStore, openCache, nil)

	res := checker.ProbeCacheStore(context.Background())

	assert.False(t, res.Passed)
	assert.Contains(t, res.Detail, "i/o timeout")
}

func TestProbeIntegration_CardinalityMatches(t *testing.T) {
	users := sampleUsers(3)
	store := &userStoreMock{
		recentUsersFn: func(ctx context.Context, limit int) ([]user.User, error) {
			require.Equal(t, 5, limit)
			return users, nil
		},
	}
	cache := newCacheMock()
	openStore, openCache := openers(store, cache)
	checker := services.NewCheckerService(openStore, openCache, nil)

	res := checker.ProbeIntegration(context.Background())

	assert.True(t, res.Passed)
	assert.Contains(t, res.Detail, "cached 3 recent users")
	assert.Contains(t, cache.data, "users:recent", "cached list is left in place to expire")
	assert.True(t, store.closed)
	assert.True(t, cache.closed)
}

func TestProbeIntegration_NilTimestampSerializedAsNull(t *testing.T) {
	users := sampleUsers(1)
	users[0].CreatedAt = nil
	store := &userStoreMock{
		recentUsersFn: func(ctx context.Context, limit int) ([]user.User, error) {
			return users, nil
		},
	}
	cache := newCacheMock()
	openStore, openCache := openers(store, cache)
	checker := services.NewCheckerService(openStore, openCache, nil)

	res := checker.ProbeIntegration(context.Background())

	assert.True(t, res.Passed)
	assert.Contains(t, string(cache.data["users:recent"]), `"created_at":null`)
}

func TestProbeIntegration_EmptyUserList(t *testing.T) {
	cache := newCacheMock()
	openStore, openCache := openers(&userStoreMock{}, cache)
	checker := services.NewCheckerService(openStore, openCache, nil)

	res := checker.ProbeIntegration(context.Background())

	assert.True(t, res.Passed)
	assert.Equal(t, "[]", string(cache.data["users:recent"]))
}

func TestRun_AllProbesPassInOrder(t *testing.T) {
	store := &userStoreMock{
		recentUsersFn: func(ctx context.Context, limit int) ([]user.User, error) {
			return sampleUsers(2), nil
		},
	}
	cache := newCacheMock()
	openStore, openCache := openers(store, cache)
	checker := services.NewCheckerService(openStore, openCache, nil)

	report := checker.Run(context.Background())

	require.Len(t, report, 3)
	assert.Equal(t, services.ProbeRelationalName, report[0].Name)
	assert.Equal(t, services.ProbeCacheName, report[1].Name)
	assert.Equal(t, services.ProbeIntegrationName, report[2].Name)
	assert.True(t, report.Passed())
}

func TestRun_AggregateFalseWhenAnyProbeFails(t *testing.T) {
	store := &userStoreMock{
		countUsersFn: func(ctx context.Context) (int64, error) {
			return 0, errors.New(`relation "users" does not exist`)
		},
	}
	cache := newCacheMock()
	openStore, openCache := openers(store, cache)
	checker := services.NewCheckerService(openStore, openCache, nil)

	report := checker.Run(context.Background())

	require.Len(t, report, 3)
	assert.False(t, report[0].Passed)
	assert.True(t, report[1].Passed)
	assert.False(t, report.Passed())
}
