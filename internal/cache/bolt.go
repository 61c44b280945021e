package cache

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.etcd.io/bbolt"
)

const (
	boltFileName      = "shortlink-cache.db"
	boltSweepInterval = 10 * time.Minute
)

var (
	valueBucketName  = []byte("links")
	expireBucketName = []byte("expire")
)

// Bolt is an on-disk Cache for single-node deployments that want cached
// entries to survive a restart. Deadlines live in a separate bucket and are
// enforced on read; a background sweep drops stale keys.
type Bolt struct {
	db        *bbolt.DB
	closedC   chan struct{}
	closeOnce sync.Once
	now       func() time.Time
}

// NewBolt opens (or creates) the cache file under dir.
func NewBolt(dir string) (*Bolt, error) {
	if dir == "" {
		dir = "cache"
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, unavailable(err, "create cache dir %s", dir)
	}
	db, err := bbolt.Open(filepath.Join(dir, boltFileName), 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, unavailable(err, "open bolt cache")
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(valueBucketName); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(expireBucketName)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, unavailable(err, "create bolt buckets")
	}

	b := &Bolt{db: db, closedC: make(chan struct{}), now: time.Now}
	go b.sweepLoop(boltSweepInterval)
	return b, nil
}

func (b *Bolt) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, unavailable(err, "get %s", key)
	}
	var (
		value   []byte
		expired bool
	)
	err := b.db.View(func(tx *bbolt.Tx) error {
		if deadline := tx.Bucket(expireBucketName).Get([]byte(key)); deadline != nil {
			if b.now().UnixNano() >= int64(binary.BigEndian.Uint64(deadline)) {
				expired = true
				return nil
			}
		}
		if v := tx.Bucket(valueBucketName).Get([]byte(key)); v != nil {
			// bolt values are only valid inside the transaction
			value = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, unavailable(err, "get %s", key)
	}
	if expired {
		_ = b.Delete(ctx, key)
		return nil, false, nil
	}
	return value, value != nil, nil
}

// Set stores value under key. A non-positive ttl keeps the entry until deleted.
func (b *Bolt) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return unavailable(err, "set %s", key)
	}
	err := b.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(valueBucketName).Put([]byte(key), value); err != nil {
			return err
		}
		expireBucket := tx.Bucket(expireBucketName)
		if ttl <= 0 {
			return expireBucket.Delete([]byte(key))
		}
		deadline := make([]byte, 8)
		binary.BigEndian.PutUint64(deadline, uint64(b.now().Add(ttl).UnixNano()))
		return expireBucket.Put([]byte(key), deadline)
	})
	if err != nil {
		return unavailable(err, "set %s", key)
	}
	return nil
}

func (b *Bolt) Delete(_ context.Context, key string) error {
	err := b.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(valueBucketName).Delete([]byte(key)); err != nil {
			return err
		}
		return tx.Bucket(expireBucketName).Delete([]byte(key))
	})
	if err != nil {
		return unavailable(err, "delete %s", key)
	}
	return nil
}

func (b *Bolt) Exists(ctx context.Context, key string) (bool, error) {
	_, ok, err := b.Get(ctx, key)
	return ok, err
}

func (b *Bolt) Ping(context.Context) error {
	if err := b.db.View(func(*bbolt.Tx) error { return nil }); err != nil {
		return unavailable(err, "ping")
	}
	return nil
}

func (b *Bolt) Close() error {
	var err error
	b.closeOnce.Do(func() {
		close(b.closedC)
		err = b.db.Close()
	})
	return err
}

// Sweep deletes every entry whose deadline has passed and returns how many
// were removed.
func (b *Bolt) Sweep() (int, error) {
	now := b.now().UnixNano()
	var stale [][]byte
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(expireBucketName).ForEach(func(k, v []byte) error {
			if now >= int64(binary.BigEndian.Uint64(v)) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
	})
	if err != nil || len(stale) == 0 {
		return 0, err
	}
	err = b.db.Update(func(tx *bbolt.Tx) error {
		values, expire := tx.Bucket(valueBucketName), tx.Bucket(expireBucketName)
		for _, k := range stale {
			if err := values.Delete(k); err != nil {
				return err
			}
			if err := expire.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(stale), nil
}

func (b *Bolt) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			_, _ = b.Sweep()
		case <-b.closedC:
			return
		}
	}
}
