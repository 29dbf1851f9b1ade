// Package repo implements the offline-first entity repositories.
//
// Each repository mediates between the local cache, the remote document
// store, and the pending-action outbox:
//
//	UI mutation -> optimistic local write -> outbox enqueue -> sync trigger
//
// Reads come from the local cache only; a remote snapshot listener (the
// reconciler) independently overwrites the cache per group. The local
// cache is the single source of truth for callers - a write appears to
// succeed immediately, and persistent remote failure shows up only as
// stale state for other group members until a later drain succeeds.
//
// When no local store is configured the repositories degrade to a
// pure-remote mode: writes go straight to the document store and reads
// come from its snapshot subscriptions. This mode exists for minimal
// configurations and tests and gives up offline availability.
package repo

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ebrangerieau/bandtrack/internal/localstore"
	"github.com/ebrangerieau/bandtrack/internal/model"
	"github.com/ebrangerieau/bandtrack/internal/remote"
)

// Trigger requests a sync worker run. Repositories call it after every
// successful outbox enqueue; implementations coalesce bursts.
type Trigger interface {
	TriggerSync()
}

// Config carries the collaborators shared by all three repositories.
type Config struct {
	// Remote is the cloud document store. Required.
	Remote remote.Store

	// Local is the offline-first cache and outbox. Nil selects the
	// pure-remote fallback mode.
	Local *localstore.Store

	// Trigger schedules the sync worker after enqueued mutations.
	// Optional; nil means mutations wait for the periodic drain.
	Trigger Trigger

	// Now returns the current time in unix millis. Defaults to the wall
	// clock; tests inject a deterministic clock.
	Now func() int64

	// NewID mints entity ids for creates. Defaults to random UUIDs.
	NewID func() string

	// Logger receives reconciler and teardown diagnostics.
	// Defaults to slog.Default().
	Logger *slog.Logger
}

// normalized fills defaults so call sites never nil-check.
func (c Config) normalized() Config {
	if c.Now == nil {
		c.Now = func() int64 { return time.Now().UnixMilli() }
	}
	if c.NewID == nil {
		c.NewID = uuid.NewString
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// localFirst reports whether the offline-first path is active.
func (c Config) localFirst() bool {
	return c.Local != nil
}

// trigger requests a sync run if a trigger is wired.
func (c Config) trigger() {
	if c.Trigger != nil {
		c.Trigger.TriggerSync()
	}
}

// enqueue appends a pending action to the outbox after the matching
// local-cache write has committed.
func (c Config) enqueue(ctx context.Context, op string, entity model.EntityType, action model.ActionType, groupID, entityID string, payload []byte) error {
	_, err := c.Local.AppendAction(ctx, localstore.PendingAction{
		ActionType: action,
		EntityType: entity,
		EntityID:   entityID,
		ParentID:   groupID,
		Payload:    payload,
		CreatedAt:  c.Now(),
	})
	if err != nil {
		return persistenceErr(op, err)
	}
	c.trigger()
	return nil
}
