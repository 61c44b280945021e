package stats

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestCounterSample(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewCounter(start)

	for i := 0; i < 20; i++ {
		c.IncCreate()
	}
	for i := 0; i < 50; i++ {
		c.IncResolve()
	}

	s := c.Sample(start.Add(10 * time.Second))
	assert.Equal(t, uint64(20), s.Created)
	assert.Equal(t, uint64(50), s.Resolved)
	assert.InDelta(t, 2.0, s.CreateQPS, 1e-9)
	assert.InDelta(t, 5.0, s.ResolveQPS, 1e-9)
	assert.Equal(t, 10*time.Second, s.Period)
	assert.Equal(t, int64(-1), s.Links)

	c.IncResolve()
	s = c.Sample(start.Add(20 * time.Second))
	assert.Equal(t, uint64(0), s.Created)
	assert.Equal(t, uint64(1), s.Resolved)
	assert.Equal(t, uint64(20), s.CreateTotal)
	assert.Equal(t, uint64(51), s.ResolveTotal)

	snap := c.Snapshot(start.Add(time.Minute))
	assert.Equal(t, uint64(20), snap.CreateTotal)
	assert.Equal(t, uint64(51), snap.ResolveTotal)
	assert.Equal(t, time.Minute, snap.Uptime)
}

func TestCounterConcurrentIncrements(t *testing.T) {
	c := NewCounter(time.Now())
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				c.IncCreate()
				c.IncResolve()
			}
		}()
	}
	wg.Wait()
	snap := c.Snapshot(time.Now())
	assert.Equal(t, uint64(8000), snap.CreateTotal)
	assert.Equal(t, uint64(8000), snap.ResolveTotal)
}

func TestSamplerFeedsSinks(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewCounter(start)
	c.IncCreate()

	var got []Sample
	sampler := NewSampler(c, time.Second, func(context.Context) (int64, error) { return 7, nil },
		zaptest.NewLogger(t), SinkFunc(func(s Sample) { got = append(got, s) }))
	sampler.now = func() time.Time { return start.Add(time.Second) }

	s := sampler.SampleOnce(context.Background())
	require.Len(t, got, 1)
	assert.Equal(t, s, got[0])
	assert.Equal(t, int64(7), s.Links)
	assert.Equal(t, uint64(1), s.Created)
}

func TestSamplerToleratesLinkCountFailure(t *testing.T) {
	c := NewCounter(time.Now())
	sampler := NewSampler(c, time.Second, func(context.Context) (int64, error) { return 0, errors.New("down") },
		zaptest.NewLogger(t))
	s := sampler.SampleOnce(context.Background())
	assert.Equal(t, int64(-1), s.Links)
}

func TestSamplerRunStopsOnCancel(t *testing.T) {
	c := NewCounter(time.Now())
	samples := make(chan Sample, 16)
	sampler := NewSampler(c, 10*time.Millisecond, nil, zaptest.NewLogger(t),
		SinkFunc(func(s Sample) {
			select {
			case samples <- s:
			default:
			}
		}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sampler.Run(ctx) }()

	select {
	case <-samples:
	case <-time.After(2 * time.Second):
		t.Fatal("no sample taken")
	}
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("sampler did not stop")
	}
}
