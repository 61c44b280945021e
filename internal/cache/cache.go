// Package cache holds the best-effort lookup caches sitting in front of the
// link store.
package cache

import (
	"context"
	"time"

	"github.com/pkg/errors"

	customerrors "github.com/axellelanca/shortlink/internal/errors"
)

const (
	DriverRedis  = "redis"
	DriverBolt   = "bolt"
	DriverMemory = "memory"
	DriverNone   = "none"
)

// Cache is a key/value store with per-key expiry. Implementations report
// misses as (nil, false, nil) and wrap failures with ErrCacheUnavailable.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Ping(ctx context.Context) error
	Close() error
}

// Options selects and configures a Cache implementation.
type Options struct {
	Driver   string
	Addr     string
	Password string
	DB       int
	Path     string
}

// Open returns the Cache named by opt.Driver. The returned Cache is nil
// whenever err is not.
func Open(opt Options) (Cache, error) {
	switch opt.Driver {
	case DriverRedis:
		r, err := NewRedis(opt.Addr, opt.Password, opt.DB)
		if err != nil {
			return nil, err
		}
		return r, nil
	case DriverBolt:
		b, err := NewBolt(opt.Path)
		if err != nil {
			return nil, err
		}
		return b, nil
	case DriverMemory, "":
		return NewMemory(), nil
	case DriverNone:
		return Nop{}, nil
	default:
		return nil, errors.Wrapf(customerrors.ErrConfiguration, "unknown cache driver %q", opt.Driver)
	}
}

func unavailable(err error, format string, args ...interface{}) error {
	return errors.Wrapf(customerrors.ErrCacheUnavailable, format+": %v", append(args, err)...)
}

// Nop is a disabled cache: every lookup misses and every write succeeds.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (Nop) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (Nop) Delete(context.Context, string) error { return nil }

func (Nop) Exists(context.Context, string) (bool, error) { return false, nil }

func (Nop) Ping(context.Context) error { return nil }

func (Nop) Close() error { return nil }

// Unavailable stands in for a backend that could not be reached at startup.
// Lookups miss and writes are dropped; Ping keeps reporting the cause so
// health checks show the cache as down.
type Unavailable struct {
	Err error
}

func (Unavailable) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (Unavailable) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (Unavailable) Delete(context.Context, string) error { return nil }

func (Unavailable) Exists(context.Context, string) (bool, error) { return false, nil }

// Ping reports the startup failure as ErrCacheUnavailable.
func (u Unavailable) Ping(context.Context) error {
	if errors.Is(u.Err, customerrors.ErrCacheUnavailable) {
		return u.Err
	}
	return errors.Wrapf(customerrors.ErrCacheUnavailable, "%v", u.Err)
}

func (Unavailable) Close() error { return nil }
