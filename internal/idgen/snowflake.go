// Package idgen generates time-ordered 63-bit identifiers.
//
// An identifier packs, from the most significant bit down, the milliseconds
// elapsed since a custom epoch, a datacenter id, a worker id and a
// per-millisecond sequence. Uniqueness across processes relies only on every
// process running with a distinct (datacenter, worker) pair.
package idgen

import (
	"runtime"
	"sync"
	"time"

	"github.com/pkg/errors"

	customerrors "github.com/axellelanca/shortlink/internal/errors"
)

// DefaultEpoch is 2010-11-04T01:42:54.657Z in Unix milliseconds.
const DefaultEpoch int64 = 1288834974657

// Layout describes the bit widths of an identifier.
type Layout struct {
	TimestampBits  uint
	DatacenterBits uint
	WorkerBits     uint
	SequenceBits   uint
}

// DefaultLayout is 41 bits of time, 5 of datacenter, 5 of worker and 12 of
// sequence: 4096 ids per millisecond per worker for about 69 years.
var DefaultLayout = Layout{TimestampBits: 41, DatacenterBits: 5, WorkerBits: 5, SequenceBits: 12}

func (l Layout) validate() error {
	if l.TimestampBits == 0 || l.SequenceBits == 0 {
		return errors.Wrap(customerrors.ErrConfiguration, "timestamp and sequence widths must be positive")
	}
	if total := l.TimestampBits + l.DatacenterBits + l.WorkerBits + l.SequenceBits; total > 63 {
		return errors.Wrapf(customerrors.ErrConfiguration, "layout uses %d bits, at most 63 allowed", total)
	}
	return nil
}

// Parts is an identifier split into its fields.
type Parts struct {
	Time         time.Time
	Timestamp    int64
	DatacenterID int64
	WorkerID     int64
	Sequence     int64
}

// Option configures a Generator.
type Option func(*Generator)

// WithEpoch sets the custom epoch in Unix milliseconds.
func WithEpoch(epochMillis int64) Option {
	return func(g *Generator) {
		g.epoch = epochMillis
	}
}

// WithLayout overrides DefaultLayout.
func WithLayout(layout Layout) Option {
	return func(g *Generator) {
		g.layout = layout
	}
}

// WithClock replaces the wall clock, which must return Unix milliseconds.
func WithClock(clock func() int64) Option {
	return func(g *Generator) {
		g.clock = clock
	}
}

// Generator hands out identifiers for one (datacenter, worker) identity.
// It is safe for concurrent use.
type Generator struct {
	epoch        int64
	layout       Layout
	clock        func() int64
	workerID     int64
	datacenterID int64

	maxTimestamp   int64
	sequenceMask   int64
	workerShift    uint
	dcShift        uint
	timestampShift uint

	mu            sync.Mutex
	lastTimestamp int64
	sequence      int64
}

// New validates the identity and layout and returns a Generator.
func New(workerID, datacenterID int64, options ...Option) (*Generator, error) {
	g := &Generator{
		epoch:         DefaultEpoch,
		layout:        DefaultLayout,
		clock:         func() int64 { return time.Now().UnixMilli() },
		lastTimestamp: -1,
	}
	for _, option := range options {
		option(g)
	}
	if err := g.layout.validate(); err != nil {
		return nil, err
	}

	maxWorker := int64(1)<<g.layout.WorkerBits - 1
	maxDatacenter := int64(1)<<g.layout.DatacenterBits - 1
	if workerID < 0 || workerID > maxWorker {
		return nil, errors.Wrapf(customerrors.ErrConfiguration, "worker id must be between 0 and %d, got %d", maxWorker, workerID)
	}
	if datacenterID < 0 || datacenterID > maxDatacenter {
		return nil, errors.Wrapf(customerrors.ErrConfiguration, "datacenter id must be between 0 and %d, got %d", maxDatacenter, datacenterID)
	}
	if g.epoch < 0 || g.epoch > g.clock() {
		return nil, errors.Wrapf(customerrors.ErrConfiguration, "epoch %d is not in the past", g.epoch)
	}

	g.workerID = workerID
	g.datacenterID = datacenterID
	g.sequenceMask = int64(1)<<g.layout.SequenceBits - 1
	g.maxTimestamp = int64(1)<<g.layout.TimestampBits - 1
	g.workerShift = g.layout.SequenceBits
	g.dcShift = g.layout.SequenceBits + g.layout.WorkerBits
	g.timestampShift = g.layout.SequenceBits + g.layout.WorkerBits + g.layout.DatacenterBits
	return g, nil
}

// WorkerID returns the worker part of the identity.
func (g *Generator) WorkerID() int64 { return g.workerID }

// DatacenterID returns the datacenter part of the identity.
func (g *Generator) DatacenterID() int64 { return g.datacenterID }

// NextID returns the next identifier. It fails with ErrClockRegression when
// the clock went backwards since the previous call; the generator state is
// left untouched so a later call can succeed once the clock catches up.
func (g *Generator) NextID() (uint64, error) {
	for {
		id, exhausted, err := g.next()
		if err != nil {
			return 0, err
		}
		if !exhausted {
			return id, nil
		}
		// 4096 ids were handed out this millisecond; wait for the next one
		// without holding the lock.
		runtime.Gosched()
	}
}

func (g *Generator) next() (id uint64, exhausted bool, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	timestamp := g.clock()
	var sequence int64
	switch {
	case timestamp < g.lastTimestamp:
		return 0, false, errors.Wrapf(customerrors.ErrClockRegression,
			"refusing to generate id for %d milliseconds", g.lastTimestamp-timestamp)
	case timestamp == g.lastTimestamp:
		if g.sequence == g.sequenceMask {
			return 0, true, nil
		}
		sequence = g.sequence + 1
	}

	elapsed := timestamp - g.epoch
	if elapsed > g.maxTimestamp {
		return 0, false, errors.Wrapf(customerrors.ErrConfiguration,
			"timestamp overflows %d bits, epoch %d is too old", g.layout.TimestampBits, g.epoch)
	}
	// state only changes once the id is known to be valid
	g.lastTimestamp = timestamp
	g.sequence = sequence

	return uint64(elapsed<<g.timestampShift |
		g.datacenterID<<g.dcShift |
		g.workerID<<g.workerShift |
		sequence), false, nil
}

// MaxID returns the largest identifier the layout can represent.
func (g *Generator) MaxID() uint64 {
	return uint64(1)<<(g.timestampShift+g.layout.TimestampBits) - 1
}

// Decompose splits id using the generator's epoch and layout.
func (g *Generator) Decompose(id uint64) Parts {
	return Decompose(id, g.epoch, g.layout)
}

// Decompose splits id into its fields for the given epoch and layout.
func Decompose(id uint64, epochMillis int64, layout Layout) Parts {
	v := int64(id)
	seqMask := int64(1)<<layout.SequenceBits - 1
	workerMask := int64(1)<<layout.WorkerBits - 1
	dcMask := int64(1)<<layout.DatacenterBits - 1

	timestamp := v>>(layout.SequenceBits+layout.WorkerBits+layout.DatacenterBits) + epochMillis
	return Parts{
		Time:         time.UnixMilli(timestamp).UTC(),
		Timestamp:    timestamp,
		DatacenterID: v >> (layout.SequenceBits + layout.WorkerBits) & dcMask,
		WorkerID:     v >> layout.SequenceBits & workerMask,
		Sequence:     v & seqMask,
	}
}
