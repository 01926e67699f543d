package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/echosys/storagecheck/internal/core/domain/probe"
	"github.com/echosys/storagecheck/internal/core/domain/user"
	"github.com/echosys/storagecheck/internal/core/ports"
)

const (
	ProbeRelationalName  = "postgresql"
	ProbeCacheName       = "redis"
	ProbeIntegrationName = "integration"

	// Cache keys and expirations used by the probes.
	cacheProbeKey  = "test:storage:check"
	cacheProbeTTL  = 60 * time.Second
	recentUsersKey = "users:recent"
	recentUsersTTL = 300 * time.Second

	recentUsersLimit = 5

	cacheProbeMessage = "Hello from storagecheck!"
)

// StoreOpener opens a fresh relational store connection.
type StoreOpener func(ctx context.Context) (ports.UserStore, error)

// CacheOpener opens a fresh cache connection.
type CacheOpener func(ctx context.Context) (ports.Cache, error)

// CheckerService runs the connectivity probes. Each probe opens its own
// connection(s) through the injected openers and closes them before
// returning, so probes stay independent of each other.
type CheckerService struct {
	openStore StoreOpener
	openCache CacheOpener
	logger    *logrus.Logger
}

// NewCheckerService creates a new checker service.
func NewCheckerService(openStore StoreOpener, openCache CacheOpener, logger *logrus.Logger) ports.Checker {
	return &CheckerService{
		openStore: openStore,
		openCache: openCache,
		logger:    logger,
	}
}

// ProbeRelationalStore verifies the relational store answers a version
// query, counts rows in the users and devices tables, and proves write
// capability with the conflict-skipped sentinel insert. An empty devices
// table is not a failure.
func (s *CheckerService) ProbeRelationalStore(ctx context.Context) probe.Result {
	start := time.Now()

	store, err := s.openStore(ctx)
	if err != nil {
		return s.fail(ProbeRelationalName, start, err)
	}
	defer store.Close()

	version, err := store.Version(ctx)
	if err != nil {
		return s.fail(ProbeRelationalName, start, err)
	}

	userCount, err := store.CountUsers(ctx)
	if err != nil {
		return s.fail(ProbeRelationalName, start, err)
	}

	deviceCount, err := store.CountDevices(ctx)
	if err != nil {
		return s.fail(ProbeRelationalName, start, err)
	}

	_, created, err := store.EnsureSentinelUser(ctx)
	if err != nil {
		return s.fail(ProbeRelationalName, start, err)
	}

	detail := fmt.Sprintf("%s; users=%d devices=%d sentinel_created=%t",
		version, userCount, deviceCount, created)
	return s.pass(ProbeRelationalName, start, detail)
}

// ProbeCacheStore verifies the cache answers a ping and round-trips a
// JSON payload under a short-lived key, then deletes the key so the
// probe is self-cleaning.
func (s *CheckerService) ProbeCacheStore(ctx context.Context) probe.Result {
	start := time.Now()

	cache, err := s.openCache(ctx)
	if err != nil {
		return s.fail(ProbeCacheName, start, err)
	}
	defer cache.Close()

	if err := cache.Ping(ctx); err != nil {
		return s.fail(ProbeCacheName, start, err)
	}

	payload := probe.TestPayload{
		Timestamp: time.Now().Format(time.RFC3339),
		Message:   cacheProbeMessage,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return s.fail(ProbeCacheName, start, err)
	}

	if err := cache.Set(ctx, cacheProbeKey, encoded, cacheProbeTTL); err != nil {
		return s.fail(ProbeCacheName, start, err)
	}

	raw, ok, err := cache.Get(ctx, cacheProbeKey)
	if err != nil {
		return s.fail(ProbeCacheName, start, err)
	}
	if !ok {
		return s.fail(ProbeCacheName, start, fmt.Errorf("key %q missing immediately after write", cacheProbeKey))
	}

	var got probe.TestPayload
	if err := json.Unmarshal(raw, &got); err != nil {
		return s.fail(ProbeCacheName, start, fmt.Errorf("failed to decode cached payload: %w", err))
	}
	if got != payload {
		return s.fail(ProbeCacheName, start, fmt.Errorf("cached payload mismatch: wrote %+v, read %+v", payload, got))
	}

	if err := cache.Delete(ctx, cacheProbeKey); err != nil {
		return s.fail(ProbeCacheName, start, err)
	}

	return s.pass(ProbeCacheName, start, fmt.Sprintf("round-tripped %q", got.Message))
}

// ProbeIntegration reads the most recent users from the relational store,
// republishes them into the cache as a JSON array, and confirms the
// read-back entry count matches. The cached list is left in place and
// expires on its own.
func (s *CheckerService) ProbeIntegration(ctx context.Context) probe.Result {
	start := time.Now()

	store, err := s.openStore(ctx)
	if err != nil {
		return s.fail(ProbeIntegrationName, start, err)
	}
	defer store.Close()

	cache, err := s.openCache(ctx)
	if err != nil {
		return s.fail(ProbeIntegrationName, start, err)
	}
	defer cache.Close()

	users, err := store.RecentUsers(ctx, recentUsersLimit)
	if err != nil {
		return s.fail(ProbeIntegrationName, start, err)
	}

	cached := make([]user.CachedUser, 0, len(users))
	for i := range users {
		cached = append(cached, users[i].ToCached())
	}

	encoded, err := json.Marshal(cached)
	if err != nil {
		return s.fail(ProbeIntegrationName, start, err)
	}

	if err := cache.Set(ctx, recentUsersKey, encoded, recentUsersTTL); err != nil {
		return s.fail(ProbeIntegrationName, start, err)
	}

	raw, ok, err := cache.Get(ctx, recentUsersKey)
	if err != nil {
		return s.fail(ProbeIntegrationName, start, err)
	}
	if !ok {
		return s.fail(ProbeIntegrationName, start, fmt.Errorf("key %q missing immediately after write", recentUsersKey))
	}

	var roundTripped []user.CachedUser
	if err := json.Unmarshal(raw, &roundTripped); err != nil {
		return s.fail(ProbeIntegrationName, start, fmt.Errorf("failed to decode cached user list: %w", err))
	}
	if len(roundTripped) != len(users) {
		return s.fail(ProbeIntegrationName, start,
			fmt.Errorf("cached user list has %d entries, fetched %d rows", len(roundTripped), len(users)))
	}

	return s.pass(ProbeIntegrationName, start, fmt.Sprintf("cached %d recent users under %q", len(users), recentUsersKey))
}

// Run executes the probes in fixed order: relational, cache, integration.
func (s *CheckerService) Run(ctx context.Context) probe.Report {
	report := probe.Report{
		s.ProbeRelationalStore(ctx),
		s.ProbeCacheStore(ctx),
		s.ProbeIntegration(ctx),
	}

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{
			"probes": len(report),
			"passed": report.Passed(),
		}).Info("checker: run complete")
	}
	return report
}

func (s *CheckerService) pass(name string, start time.Time, detail string) probe.Result {
	elapsed := time.Since(start)
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"probe": name, "elapsed": elapsed}).Info("checker: probe passed")
	}
	return probe.Result{Name: name, Passed: true, Detail: detail, Elapsed: elapsed}
}

func (s *CheckerService) fail(name string, start time.Time, err error) probe.Result {
	elapsed := time.Since(start)
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"probe": name, "elapsed": elapsed}).WithError(err).Error("checker: probe failed")
	}
	return probe.Result{Name: name, Passed: false, Detail: err.Error(), Elapsed: elapsed}
}
