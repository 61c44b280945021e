package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	customerrors "github.com/axellelanca/shortlink/internal/errors"
	"github.com/axellelanca/shortlink/internal/models"
)

// KeyPrefix namespaces link entries inside a shared cache.
const KeyPrefix = "shortlink:"

// Entry is the cached projection of a stored link.
type Entry struct {
	ID       uint64     `json:"id"`
	URL      string     `json:"url"`
	ExpireAt *time.Time `json:"expire_at,omitempty"`
}

// Link rebuilds the stored record the entry was taken from.
func (e *Entry) Link(alias string) *models.Link {
	return &models.Link{ID: e.ID, Alias: alias, URL: e.URL, ExpireAt: e.ExpireAt}
}

// LinkCache stores link entries keyed by alias on top of a Cache.
type LinkCache struct {
	cache      Cache
	defaultTTL time.Duration
	now        func() time.Time
}

// NewLinkCache wraps c. Entries live for defaultTTL, or until the link
// expires if that comes first.
func NewLinkCache(c Cache, defaultTTL time.Duration) *LinkCache {
	return &LinkCache{cache: c, defaultTTL: defaultTTL, now: time.Now}
}

// Key returns the cache key for alias.
func Key(alias string) string {
	return KeyPrefix + alias
}

// GetLink returns the entry cached for alias. A miss is (nil, false, nil).
func (lc *LinkCache) GetLink(ctx context.Context, alias string) (*Entry, bool, error) {
	raw, ok, err := lc.cache.Get(ctx, Key(alias))
	if err != nil || !ok {
		return nil, false, err
	}
	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		// a corrupt entry is treated as a miss and dropped
		_ = lc.cache.Delete(ctx, Key(alias))
		return nil, false, errors.Wrapf(customerrors.ErrCacheUnavailable, "decode entry %s: %v", alias, err)
	}
	return &entry, true, nil
}

// SetLink caches link. Already expired links are not written.
func (lc *LinkCache) SetLink(ctx context.Context, link *models.Link) error {
	ttl, alive := link.TTL(lc.now(), lc.defaultTTL)
	if !alive {
		return nil
	}
	raw, err := json.Marshal(Entry{ID: link.ID, URL: link.URL, ExpireAt: link.ExpireAt})
	if err != nil {
		return errors.Wrapf(customerrors.ErrCacheUnavailable, "encode entry %s: %v", link.Alias, err)
	}
	return lc.cache.Set(ctx, Key(link.Alias), raw, ttl)
}

// RemoveLink evicts alias.
func (lc *LinkCache) RemoveLink(ctx context.Context, alias string) error {
	return lc.cache.Delete(ctx, Key(alias))
}

// Ping checks the underlying cache.
func (lc *LinkCache) Ping(ctx context.Context) error {
	return lc.cache.Ping(ctx)
}
