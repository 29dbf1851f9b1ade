package syncer

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingRunner records drain runs and optionally blocks each one
// until released, so tests can control run boundaries.
type countingRunner struct {
	runs    atomic.Int64
	release chan struct{} // nil means run returns immediately
}

func (r *countingRunner) Run(ctx context.Context) error {
	r.runs.Add(1)
	if r.release != nil {
		select {
		case <-r.release:
		case <-ctx.Done():
		}
	}
	return nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatal("condition never became true")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestTriggerSyncRunsDrain(t *testing.T) {
	runner := &countingRunner{}
	s := NewScheduler(runner, WithInterval(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	s.TriggerSync()
	waitFor(t, func() bool { return runner.runs.Load() == 1 })
}

func TestTriggerSyncCoalescesBursts(t *testing.T) {
	runner := &countingRunner{release: make(chan struct{})}
	s := NewScheduler(runner, WithInterval(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	// First trigger starts a drain that blocks; the burst behind it
	// must collapse into exactly one follow-up run.
	s.TriggerSync()
	waitFor(t, func() bool { return runner.runs.Load() == 1 })
	for i := 0; i < 10; i++ {
		s.TriggerSync()
	}
	runner.release <- struct{}{} // finish run 1
	waitFor(t, func() bool { return runner.runs.Load() == 2 })
	runner.release <- struct{}{} // finish run 2

	// No third run: the burst was fully absorbed.
	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 2, runner.runs.Load())
}

func TestSchedulerSkipsDrainWhileOffline(t *testing.T) {
	runner := &countingRunner{}
	var online atomic.Bool
	s := NewScheduler(runner,
		WithInterval(time.Hour),
		WithNetwork(NetworkFunc(online.Load)))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	s.TriggerSync()
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, runner.runs.Load(), "offline trigger must not drain")

	online.Store(true)
	s.TriggerSync()
	waitFor(t, func() bool { return runner.runs.Load() == 1 })
}

func TestSchedulerPeriodicSafetyNet(t *testing.T) {
	runner := &countingRunner{}
	s := NewScheduler(runner, WithInterval(20*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	// No triggers at all; the ticker alone must drive drains.
	waitFor(t, func() bool { return runner.runs.Load() >= 2 })
}

func TestSchedulerStartIsIdempotent(t *testing.T) {
	runner := &countingRunner{}
	s := NewScheduler(runner, WithInterval(30*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	s.Start(ctx) // second start must not add a second loop
	s.Start(ctx)

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler loop never exited")
	}

	// With one loop, ~3 ticks fit in 100ms. Duplicate loops would
	// roughly double that.
	runs := runner.runs.Load()
	require.GreaterOrEqual(t, runs, int64(1))
	assert.LessOrEqual(t, runs, int64(5))
}
