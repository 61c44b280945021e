package idgen

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	customerrors "github.com/axellelanca/shortlink/internal/errors"
)

func TestNewValidatesIdentity(t *testing.T) {
	for _, testCase := range []struct {
		name         string
		workerID     int64
		datacenterID int64
		options      []Option
		valid        bool
	}{
		{name: "zero", workerID: 0, datacenterID: 0, valid: true},
		{name: "max", workerID: 31, datacenterID: 31, valid: true},
		{name: "worker too large", workerID: 32, datacenterID: 0},
		{name: "negative worker", workerID: -1, datacenterID: 0},
		{name: "datacenter too large", workerID: 0, datacenterID: 32},
		{name: "negative datacenter", workerID: 0, datacenterID: -1},
		{
			name:    "layout too wide",
			options: []Option{WithLayout(Layout{TimestampBits: 42, DatacenterBits: 5, WorkerBits: 5, SequenceBits: 12})},
		},
		{
			name:    "future epoch",
			options: []Option{WithEpoch(time.Now().Add(time.Hour).UnixMilli())},
		},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			g, err := New(testCase.workerID, testCase.datacenterID, testCase.options...)
			if testCase.valid {
				require.NoError(t, err)
				assert.Equal(t, testCase.workerID, g.WorkerID())
				assert.Equal(t, testCase.datacenterID, g.DatacenterID())
				return
			}
			assert.True(t, errors.Is(err, customerrors.ErrConfiguration), "got %v", err)
		})
	}
}

func TestNextIDLayout(t *testing.T) {
	now := DefaultEpoch + 1000
	g, err := New(7, 3, WithClock(func() int64 { return now }))
	require.NoError(t, err)

	first, err := g.NextID()
	require.NoError(t, err)
	second, err := g.NextID()
	require.NoError(t, err)

	assert.Equal(t, uint64(1000<<22|3<<17|7<<12|0), first)
	assert.Equal(t, first+1, second)

	parts := g.Decompose(second)
	assert.Equal(t, now, parts.Timestamp)
	assert.Equal(t, int64(3), parts.DatacenterID)
	assert.Equal(t, int64(7), parts.WorkerID)
	assert.Equal(t, int64(1), parts.Sequence)
	assert.Equal(t, time.UnixMilli(now).UTC(), parts.Time)
}

func TestSequenceResetsOnNewMillisecond(t *testing.T) {
	now := DefaultEpoch + 50
	g, err := New(1, 1, WithClock(func() int64 { return now }))
	require.NoError(t, err)

	_, err = g.NextID()
	require.NoError(t, err)
	_, err = g.NextID()
	require.NoError(t, err)

	now++
	id, err := g.NextID()
	require.NoError(t, err)
	assert.Equal(t, int64(0), g.Decompose(id).Sequence)
	assert.Equal(t, now, g.Decompose(id).Timestamp)
}

func TestSequenceExhaustionWaitsForNextMillisecond(t *testing.T) {
	base := DefaultEpoch + 10
	var calls int64
	// The first 4097 samples land in the same millisecond: 4096 ids fill the
	// sequence and the 4097th sample finds it exhausted.
	clock := func() int64 {
		if atomic.AddInt64(&calls, 1) <= 4097 {
			return base
		}
		return base + 1
	}
	g, err := New(0, 0, WithClock(clock))
	require.NoError(t, err)
	// New samples the clock once to validate the epoch.
	atomic.StoreInt64(&calls, 0)

	var last uint64
	for i := 0; i < 4097; i++ {
		id, err := g.NextID()
		require.NoError(t, err)
		if i > 0 {
			require.Greater(t, id, last)
		}
		last = id
	}

	parts := g.Decompose(last)
	assert.Equal(t, base+1, parts.Timestamp)
	assert.Equal(t, int64(0), parts.Sequence)
}

func TestClockRegression(t *testing.T) {
	now := DefaultEpoch + 5000
	g, err := New(2, 2, WithClock(func() int64 { return now }))
	require.NoError(t, err)

	before, err := g.NextID()
	require.NoError(t, err)

	now -= 10
	_, err = g.NextID()
	assert.True(t, errors.Is(err, customerrors.ErrClockRegression))
	assert.True(t, customerrors.Retryable(err))

	// Not fatal: once the clock catches up the generator resumes.
	now += 11
	after, err := g.NextID()
	require.NoError(t, err)
	assert.Greater(t, after, before)
}

func TestMonotonicSequential(t *testing.T) {
	g, err := New(0, 0)
	require.NoError(t, err)

	var last uint64
	for i := 0; i < 20000; i++ {
		id, err := g.NextID()
		require.NoError(t, err)
		require.Greater(t, id, last)
		last = id
	}
}

func TestUniqueUnderConcurrency(t *testing.T) {
	g, err := New(5, 9)
	require.NoError(t, err)

	const goroutines = 16
	const perGoroutine = 5000

	results := make([][]uint64, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids := make([]uint64, 0, perGoroutine)
			for j := 0; j < perGoroutine; j++ {
				id, err := g.NextID()
				if err != nil {
					t.Error(err)
					return
				}
				ids = append(ids, id)
			}
			results[i] = ids
		}(i)
	}
	wg.Wait()

	seen := make(map[uint64]struct{}, goroutines*perGoroutine)
	for _, ids := range results {
		for j, id := range ids {
			if j > 0 {
				// each caller observes a strictly increasing sequence
				require.Greater(t, id, ids[j-1])
			}
			seen[id] = struct{}{}
		}
	}
	assert.Len(t, seen, goroutines*perGoroutine)
}

func TestFitsIn63Bits(t *testing.T) {
	g, err := New(31, 31)
	require.NoError(t, err)
	id, err := g.NextID()
	require.NoError(t, err)
	assert.Zero(t, id>>63)
}

func TestTimestampOverflowLeavesStateUntouched(t *testing.T) {
	base := DefaultEpoch + 5
	now := base
	layout := Layout{TimestampBits: 10, DatacenterBits: 5, WorkerBits: 5, SequenceBits: 12}
	g, err := New(0, 0, WithLayout(layout), WithClock(func() int64 { return now }))
	require.NoError(t, err)

	first, err := g.NextID()
	require.NoError(t, err)
	second, err := g.NextID()
	require.NoError(t, err)

	// 10 bits hold at most 1023 milliseconds past the epoch
	now = DefaultEpoch + 2000
	_, err = g.NextID()
	assert.True(t, errors.Is(err, customerrors.ErrConfiguration), "got %v", err)

	now = base
	third, err := g.NextID()
	require.NoError(t, err)
	assert.Greater(t, third, second)
	assert.Greater(t, second, first)
	assert.Equal(t, int64(2), g.Decompose(third).Sequence)
}

func TestMaxID(t *testing.T) {
	g, err := New(0, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1)<<63-1, g.MaxID())

	g, err = New(0, 0, WithLayout(Layout{TimestampBits: 30, DatacenterBits: 2, WorkerBits: 3, SequenceBits: 10}))
	require.NoError(t, err)
	assert.Equal(t, uint64(1)<<45-1, g.MaxID())
}
