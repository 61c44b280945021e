// Package services contains the business logic layer for the URL shortener application
package services

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/axellelanca/shortlink/internal/cache"
	"github.com/axellelanca/shortlink/internal/codec"
	customerrors "github.com/axellelanca/shortlink/internal/errors"
	"github.com/axellelanca/shortlink/internal/models"
	"github.com/axellelanca/shortlink/internal/repository"
	"github.com/axellelanca/shortlink/internal/stats"
	"github.com/axellelanca/shortlink/internal/telemetry"
	"github.com/axellelanca/shortlink/internal/workers"
)

// TaskSubmitter queues background work.
type TaskSubmitter interface {
	Submit(task workers.Task) error
}

// Option configures a LinkService.
type Option func(*LinkService)

// WithCounter counts creates and resolves on counter.
func WithCounter(counter *stats.Counter) Option {
	return func(s *LinkService) { s.counter = counter }
}

// WithRecorder reports latencies and errors to recorder.
func WithRecorder(recorder telemetry.Recorder) Option {
	return func(s *LinkService) { s.metrics = recorder }
}

// WithClock replaces time.Now for expiry decisions.
func WithClock(now func() time.Time) Option {
	return func(s *LinkService) { s.now = now }
}

// LinkService creates short links and resolves aliases. The store is the
// source of truth; the cache is only consulted to skip a store read.
type LinkService struct {
	linkRepo  repository.LinkRepository
	linkCache *cache.LinkCache
	allocator Allocator
	codec     *codec.Codec
	tasks     TaskSubmitter
	logger    *zap.Logger

	counter *stats.Counter
	metrics telemetry.Recorder
	now     func() time.Time
}

// NewLinkService wires the service. Cache writes and purges triggered by a
// resolve run on tasks.
func NewLinkService(linkRepo repository.LinkRepository, linkCache *cache.LinkCache, allocator Allocator,
	c *codec.Codec, tasks TaskSubmitter, logger *zap.Logger, options ...Option) *LinkService {
	s := &LinkService{
		linkRepo:  linkRepo,
		linkCache: linkCache,
		allocator: allocator,
		codec:     c,
		tasks:     tasks,
		logger:    logger,
		counter:   stats.NewCounter(time.Now()),
		metrics:   telemetry.Nop{},
		now:       time.Now,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// Create shortens longURL. expireSeconds nil or 0 means the link never
// expires. The returned link carries the assigned id and alias.
func (s *LinkService) Create(ctx context.Context, longURL string, expireSeconds *int64) (link *models.Link, err error) {
	start := time.Now()
	defer func() { s.metrics.ObserveCreate(time.Since(start), err) }()

	longURL = strings.TrimSpace(longURL)
	if longURL == "" {
		return nil, errors.Wrap(customerrors.ErrInvalidInput, "url is required")
	}
	link = &models.Link{URL: longURL}
	if expireSeconds != nil {
		if *expireSeconds < 0 {
			return nil, errors.Wrapf(customerrors.ErrInvalidInput, "expire must not be negative, got %d", *expireSeconds)
		}
		if *expireSeconds > 0 {
			expireAt := s.now().UTC().Add(time.Duration(*expireSeconds) * time.Second).Truncate(time.Millisecond)
			link.ExpireAt = &expireAt
		}
	}

	if err := s.allocator.Allocate(ctx, link); err != nil {
		s.logger.Warn("create link failed",
			zap.String("operation", "create"),
			zap.String("strategy", s.allocator.Name()),
			zap.String("category", customerrors.Category(err)),
			zap.Error(err))
		return nil, err
	}
	s.counter.IncCreate()

	if err := s.linkCache.SetLink(ctx, link); err != nil {
		s.cacheFailed("set", link.Alias, err)
	}
	s.logger.Debug("link created", zap.String("alias", link.Alias), zap.Uint64("id", link.ID))
	return link, nil
}

// Resolve returns the URL stored under alias. Unknown, malformed and expired
// aliases all yield ErrNotFound.
func (s *LinkService) Resolve(ctx context.Context, alias string) (url string, err error) {
	start := time.Now()
	cacheHit := false
	defer func() { s.metrics.ObserveResolve(time.Since(start), cacheHit, err) }()
	s.counter.IncResolve()

	id, err := s.codec.Decode(alias)
	if err != nil {
		return "", errors.Wrapf(customerrors.ErrNotFound, "alias %q: %v", alias, err)
	}
	now := s.now()

	entry, ok, err := s.linkCache.GetLink(ctx, alias)
	if err != nil {
		s.cacheFailed("get", alias, err)
	}
	if ok && entry.ID == id {
		if entry.ExpireAt != nil && !entry.ExpireAt.After(now) {
			s.purge(alias)
			return "", errors.Wrapf(customerrors.ErrNotFound, "alias %s expired", alias)
		}
		cacheHit = true
		return entry.URL, nil
	}

	link, err := s.linkRepo.GetLinkByAlias(ctx, alias)
	if err != nil {
		if !errors.Is(err, customerrors.ErrNotFound) && ctx.Err() == nil {
			s.logger.Error("store read failed",
				zap.String("operation", "resolve"),
				zap.String("alias", alias),
				zap.Error(err))
		}
		return "", err
	}
	if link.Expired(now) {
		s.purge(alias)
		return "", errors.Wrapf(customerrors.ErrNotFound, "alias %s expired", alias)
	}

	s.submit(workers.Task{Name: "cache.populate", Run: func(ctx context.Context) error {
		if err := s.linkCache.SetLink(ctx, link); err != nil {
			s.cacheFailed("set", link.Alias, err)
		}
		return nil
	}})
	return link.URL, nil
}

// Inspect returns the id decoded from alias and the stored record.
func (s *LinkService) Inspect(ctx context.Context, alias string) (uint64, *models.Link, error) {
	id, err := s.codec.Decode(alias)
	if err != nil {
		return 0, nil, err
	}
	link, err := s.linkRepo.GetLinkByAlias(ctx, alias)
	if err != nil {
		return id, nil, err
	}
	return id, link, nil
}

// PurgeExpired deletes every expired link from the store. Cached copies are
// bounded by their TTL and age out on their own.
func (s *LinkService) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.linkRepo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("purged expired links", zap.Int64("count", n))
	}
	return n, nil
}

// Stats returns the running counters.
func (s *LinkService) Stats() stats.Snapshot {
	return s.counter.Snapshot(time.Now())
}

// CountLinks returns the number of stored links.
func (s *LinkService) CountLinks(ctx context.Context) (int64, error) {
	return s.linkRepo.CountLinks(ctx)
}

// PingStore checks the durable store.
func (s *LinkService) PingStore(ctx context.Context) error {
	return s.linkRepo.Ping(ctx)
}

// PingCache checks the cache.
func (s *LinkService) PingCache(ctx context.Context) error {
	return s.linkCache.Ping(ctx)
}

// purge evicts alias from the cache and deletes it from the store, both in
// the background.
func (s *LinkService) purge(alias string) {
	s.submit(workers.Task{Name: "cache.evict", Run: func(ctx context.Context) error {
		if err := s.linkCache.RemoveLink(ctx, alias); err != nil {
			s.cacheFailed("delete", alias, err)
		}
		return nil
	}})
	s.submit(workers.Task{Name: "store.delete", Run: func(ctx context.Context) error {
		return s.linkRepo.DeleteLink(ctx, alias)
	}})
}

func (s *LinkService) submit(task workers.Task) {
	if err := s.tasks.Submit(task); err != nil {
		s.logger.Debug("background task not queued", zap.String("task", task.Name), zap.Error(err))
	}
}

func (s *LinkService) cacheFailed(operation, alias string, err error) {
	s.metrics.CacheError(operation)
	s.logger.Warn("cache unavailable",
		zap.String("operation", operation),
		zap.String("alias", alias),
		zap.Error(err))
}
