package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
	"go.uber.org/zap/zaptest"

	customerrors "github.com/axellelanca/shortlink/internal/errors"
)

func TestPoolRunsEveryTask(t *testing.T) {
	p := NewPool(4, 100, time.Second, zaptest.NewLogger(t))
	p.Start()

	var done atomic.Int64
	for i := 0; i < 100; i++ {
		require.NoError(t, p.Submit(Task{Name: "count", Run: func(context.Context) error {
			done.Inc()
			return nil
		}}))
	}
	p.Stop()
	assert.Equal(t, int64(100), done.Load())
}

func TestPoolSubmitDropsWhenFull(t *testing.T) {
	p := NewPool(1, 1, time.Second, zaptest.NewLogger(t))
	release := make(chan struct{})
	started := make(chan struct{})
	p.Start()

	require.NoError(t, p.Submit(Task{Name: "block", Run: func(context.Context) error {
		close(started)
		<-release
		return nil
	}}))
	<-started
	require.NoError(t, p.Submit(Task{Name: "queued", Run: func(context.Context) error { return nil }}))

	err := p.Submit(Task{Name: "dropped", Run: func(context.Context) error { return nil }})
	var rejected customerrors.ErrTaskRejected
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, "dropped", rejected.Task)
	assert.Equal(t, "queue full", rejected.Reason)

	close(release)
	p.Stop()
}

func TestPoolSubmitAfterStop(t *testing.T) {
	p := NewPool(1, 1, time.Second, zaptest.NewLogger(t))
	p.Start()
	p.Stop()
	p.Stop()

	err := p.Submit(Task{Name: "late", Run: func(context.Context) error { return nil }})
	var rejected customerrors.ErrTaskRejected
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, "pool stopped", rejected.Reason)
}

func TestPoolTaskContextHasDeadline(t *testing.T) {
	p := NewPool(1, 1, 50*time.Millisecond, zaptest.NewLogger(t))
	p.Start()

	var ctxErr error
	require.NoError(t, p.Submit(Task{Name: "slow", Run: func(ctx context.Context) error {
		<-ctx.Done()
		ctxErr = ctx.Err()
		return ctxErr
	}}))
	p.Stop()
	assert.Equal(t, context.DeadlineExceeded, ctxErr)
}

func TestPoolSurvivesPanicsAndErrors(t *testing.T) {
	p := NewPool(1, 10, time.Second, zaptest.NewLogger(t))
	p.Start()

	var wg sync.WaitGroup
	wg.Add(1)
	require.NoError(t, p.Submit(Task{Name: "panic", Run: func(context.Context) error { panic("boom") }}))
	require.NoError(t, p.Submit(Task{Name: "error", Run: func(context.Context) error { return errors.New("failed") }}))
	require.NoError(t, p.Submit(Task{Name: "ok", Run: func(context.Context) error {
		wg.Done()
		return nil
	}}))
	wg.Wait()
	p.Stop()
}
