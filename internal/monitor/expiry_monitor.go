package monitor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Purger deletes expired links.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Status describes the monitor's progress.
type Status struct {
	Runs      int
	Purged    int64
	LastRun   time.Time
	LastError error
	Interval  time.Duration
}

// ExpiryMonitor periodically removes expired links from the store, so that
// links nobody resolves again do not linger.
type ExpiryMonitor struct {
	purger   Purger
	interval time.Duration
	logger   *zap.Logger

	mu     sync.Mutex // protects status
	status Status
}

// NewExpiryMonitor creates a monitor purging every interval.
func NewExpiryMonitor(purger Purger, interval time.Duration, logger *zap.Logger) *ExpiryMonitor {
	return &ExpiryMonitor{
		purger:   purger,
		interval: interval,
		logger:   logger,
		status:   Status{Interval: interval},
	}
}

// Run purges once immediately, then on every tick until ctx is cancelled.
func (m *ExpiryMonitor) Run(ctx context.Context) error {
	m.logger.Info("starting expiry monitor", zap.Duration("interval", m.interval))
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.purge(ctx)
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("expiry monitor stopped")
			return nil
		case <-ticker.C:
			m.purge(ctx)
		}
	}
}

// Status returns a copy of the current status.
func (m *ExpiryMonitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *ExpiryMonitor) purge(ctx context.Context) {
	n, err := m.purger.PurgeExpired(ctx)
	if err != nil && ctx.Err() == nil {
		m.logger.Error("purge expired links failed", zap.Error(err))
	}

	m.mu.Lock()
	m.status.Runs++
	m.status.Purged += n
	m.status.LastRun = time.Now()
	m.status.LastError = err
	m.mu.Unlock()
}
