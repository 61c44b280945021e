package stats

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sink receives every sample the Sampler takes.
type Sink interface {
	Record(Sample)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Sample)

func (f SinkFunc) Record(s Sample) { f(s) }

// LinkCounter reports the number of stored links.
type LinkCounter func(ctx context.Context) (int64, error)

// Sampler samples a Counter on a fixed interval.
type Sampler struct {
	counter  *Counter
	interval time.Duration
	links    LinkCounter
	sinks    []Sink
	logger   *zap.Logger
	now      func() time.Time
}

func NewSampler(counter *Counter, interval time.Duration, links LinkCounter, logger *zap.Logger, sinks ...Sink) *Sampler {
	return &Sampler{
		counter:  counter,
		interval: interval,
		links:    links,
		sinks:    sinks,
		logger:   logger,
		now:      time.Now,
	}
}

// Run samples until ctx is cancelled.
func (s *Sampler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.SampleOnce(ctx)
		}
	}
}

// SampleOnce takes one sample and hands it to every sink.
func (s *Sampler) SampleOnce(ctx context.Context) Sample {
	sample := s.counter.Sample(s.now())
	if s.links != nil {
		n, err := s.links(ctx)
		if err != nil {
			s.logger.Warn("count links failed", zap.Error(err))
		} else {
			sample.Links = n
		}
	}

	s.logger.Info("stats",
		zap.Float64("create_qps", sample.CreateQPS),
		zap.Float64("resolve_qps", sample.ResolveQPS),
		zap.Uint64("create_total", sample.CreateTotal),
		zap.Uint64("resolve_total", sample.ResolveTotal),
		zap.Int64("links", sample.Links),
	)
	for _, sink := range s.sinks {
		sink.Record(sample)
	}
	return sample
}
