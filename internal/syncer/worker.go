// Package syncer drains the pending-action outbox against the remote
// document store.
//
// The worker replays queued mutations strictly oldest first. Each
// action is removed from the outbox only after its remote apply
// succeeded, so a crash mid-drain re-processes at worst actions that
// were applied but not yet removed. That replay is harmless: CREATE and
// UPDATE are full-document overwrites and DELETE deletes if present.
//
// A failed action is logged and left queued, and the drain moves on to
// the next action. Only a systemic failure (the outbox fetch itself)
// fails the run; Run retries such failures with exponential backoff up
// to three attempts, then reports a SyncRunError. The outbox survives
// every failure mode.
package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/ebrangerieau/bandtrack/internal/localstore"
	"github.com/ebrangerieau/bandtrack/internal/model"
	"github.com/ebrangerieau/bandtrack/internal/remote"
)

// DefaultMaxAttempts bounds whole-run retries inside one Run call.
const DefaultMaxAttempts = 3

// Worker replays the outbox against the remote store.
type Worker struct {
	local       *localstore.Store
	remote      remote.Store
	logger      *slog.Logger
	maxAttempts int
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithLogger sets the worker's logger.
func WithLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) { w.logger = logger }
}

// WithMaxAttempts overrides the whole-run retry budget.
func WithMaxAttempts(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.maxAttempts = n
		}
	}
}

// NewWorker creates a drain worker over the given stores.
func NewWorker(local *localstore.Store, rs remote.Store, opts ...WorkerOption) *Worker {
	w := &Worker{
		local:       local,
		remote:      rs,
		logger:      slog.Default(),
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Drain processes every currently queued action in insertion order.
// An empty outbox is a successful drain. Per-action remote failures are
// logged and skipped; the action stays queued for the next drain. The
// returned error is non-nil only for systemic failures, which leave the
// whole queue untouched.
func (w *Worker) Drain(ctx context.Context) error {
	actions, err := w.local.PendingActions(ctx)
	if err != nil {
		return fmt.Errorf("fetch pending actions: %w", err)
	}
	if len(actions) == 0 {
		return nil
	}

	w.logger.Debug("draining outbox", "pending", len(actions))

	applied := 0
	for _, a := range actions {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.apply(ctx, a); err != nil {
			// Leave it queued and keep going. Later actions for other
			// entities must not starve behind one broken document.
			w.logger.Warn("outbox action failed, leaving queued", "error", err)
			continue
		}
		if err := w.local.DeleteAction(ctx, a.ID); err != nil {
			return fmt.Errorf("remove applied action %d: %w", a.ID, err)
		}
		applied++
	}

	w.logger.Info("drain finished", "applied", applied, "skipped", len(actions)-applied)
	return nil
}

// apply replays one action against its remote collection.
func (w *Worker) apply(ctx context.Context, a localstore.PendingAction) error {
	coll := w.remote.Collection(a.ParentID, a.EntityType)

	switch a.ActionType {
	case model.ActionCreate, model.ActionUpdate:
		if err := coll.Set(ctx, a.EntityID, a.Payload); err != nil {
			return &RemoteApplyError{
				ActionID: a.ID,
				Op:       "set",
				Entity:   string(a.EntityType),
				EntityID: a.EntityID,
				Err:      err,
			}
		}
	case model.ActionDelete:
		if err := coll.Delete(ctx, a.EntityID); err != nil {
			return &RemoteApplyError{
				ActionID: a.ID,
				Op:       "delete",
				Entity:   string(a.EntityType),
				EntityID: a.EntityID,
				Err:      err,
			}
		}
	default:
		return fmt.Errorf("action %d: unknown action type %q", a.ID, a.ActionType)
	}
	return nil
}

// Run executes a drain with bounded retry. Systemic drain failures are
// retried with exponential backoff up to the attempt budget; exhausting
// it returns a SyncRunError with the queue intact.
func (w *Worker) Run(ctx context.Context) error {
	attempts := 0
	op := func() error {
		attempts++
		if err := w.Drain(ctx); err != nil {
			w.logger.Warn("drain attempt failed", "attempt", attempts, "error", err)
			return err
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 30 * time.Second

	err := backoff.Retry(op, backoff.WithContext(
		backoff.WithMaxRetries(bo, uint64(w.maxAttempts-1)), ctx))
	if err != nil {
		return &SyncRunError{Attempts: attempts, Err: err}
	}
	return nil
}
