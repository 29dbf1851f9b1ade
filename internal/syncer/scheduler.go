package syncer

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultPeriodicInterval is the safety-net drain cadence.
const DefaultPeriodicInterval = 15 * time.Minute

// Network reports whether the remote store is reachable. Drains are
// skipped while offline; the queued actions wait for the next trigger
// or tick.
type Network interface {
	Online() bool
}

// NetworkFunc adapts a func to the Network interface.
type NetworkFunc func() bool

func (f NetworkFunc) Online() bool { return f() }

// Runner is the drain entry point the scheduler invokes.
type Runner interface {
	Run(ctx context.Context) error
}

// Scheduler coordinates drain runs: an on-demand trigger fired after
// every local mutation, and a periodic ticker as a safety net. All runs
// execute on one goroutine, so at most one drain is in flight; triggers
// arriving mid-drain coalesce into a single follow-up run.
type Scheduler struct {
	worker   Runner
	network  Network
	interval time.Duration
	logger   *slog.Logger

	// signal carries coalesced trigger requests. Buffered size 1: a
	// pending request absorbs all further triggers until consumed.
	signal chan struct{}

	mu      sync.Mutex
	started bool
	done    chan struct{}
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithNetwork sets the reachability gate. Without one, drains always run.
func WithNetwork(n Network) SchedulerOption {
	return func(s *Scheduler) { s.network = n }
}

// WithInterval overrides the periodic drain cadence.
func WithInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithSchedulerLogger sets the scheduler's logger.
func WithSchedulerLogger(logger *slog.Logger) SchedulerOption {
	return func(s *Scheduler) { s.logger = logger }
}

// NewScheduler creates a scheduler around the given drain runner.
func NewScheduler(worker Runner, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		worker:   worker,
		interval: DefaultPeriodicInterval,
		logger:   slog.Default(),
		signal:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TriggerSync requests a drain. Non-blocking; requests arriving while
// one is already pending coalesce into a single run.
func (s *Scheduler) TriggerSync() {
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

// Start launches the drain loop. Calling Start on a running scheduler
// is a no-op, so the periodic loop exists at most once per process.
// The loop stops when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.loop(ctx)
}

// Done returns a channel closed when the drain loop has exited.
// Returns nil before Start.
func (s *Scheduler) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("sync scheduler started", "interval", s.interval)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sync scheduler stopping", "reason", ctx.Err())
			return
		case <-s.signal:
			s.runOnce(ctx, "trigger")
		case <-ticker.C:
			s.runOnce(ctx, "periodic")
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, reason string) {
	if s.network != nil && !s.network.Online() {
		s.logger.Debug("skipping drain, offline", "reason", reason)
		return
	}
	if err := s.worker.Run(ctx); err != nil {
		s.logger.Warn("sync run failed", "reason", reason, "error", err)
	}
}
