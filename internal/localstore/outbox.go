package localstore

import (
	"context"
	"fmt"
	"time"

	"github.com/ebrangerieau/bandtrack/internal/model"
)

// PendingAction is a durably queued mutation intent awaiting remote
// replay. Payload holds the full serialized entity snapshot for CREATE
// and UPDATE; it is empty for DELETE (only the id is needed remotely).
type PendingAction struct {
	ID         int64
	ActionType model.ActionType
	EntityType model.EntityType
	EntityID   string
	ParentID   string // group id
	Payload    []byte
	CreatedAt  int64 // unix millis
}

// AppendAction inserts a pending action at the back of the outbox and
// returns its assigned id. CreatedAt is stamped with the current time
// when zero.
//
// The caller commits the matching local-cache write before appending; the
// design tolerates the cache being correct slightly before the action is
// durably queued, never the reverse.
func (s *Store) AppendAction(ctx context.Context, a PendingAction) (int64, error) {
	if !a.ActionType.Valid() {
		return 0, fmt.Errorf("append action: invalid action type %q", a.ActionType)
	}
	if !a.EntityType.Valid() {
		return 0, fmt.Errorf("append action: invalid entity type %q", a.EntityType)
	}
	if a.EntityID == "" {
		return 0, fmt.Errorf("append action: empty entity id")
	}
	if a.ParentID == "" {
		return 0, fmt.Errorf("append action: empty parent id")
	}
	if a.ActionType.NeedsPayload() && len(a.Payload) == 0 {
		return 0, fmt.Errorf("append action: %s requires a payload", a.ActionType)
	}
	if a.CreatedAt == 0 {
		a.CreatedAt = time.Now().UnixMilli()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO pending_actions
		(action_type, entity_type, entity_id, parent_id, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		string(a.ActionType),
		string(a.EntityType),
		a.EntityID,
		a.ParentID,
		string(a.Payload),
		a.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("append action: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("append action: last insert id: %w", err)
	}
	return id, nil
}

// PendingActions returns all queued actions in strict insertion order:
// created_at ascending with id breaking ties. The sync worker replays
// them sequentially; reordering here would corrupt remote state (an
// UPDATE must never be replayed before its preceding CREATE).
//
// Returns an empty slice (not nil) when the outbox is empty.
func (s *Store) PendingActions(ctx context.Context) ([]PendingAction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, action_type, entity_type, entity_id, parent_id, payload, created_at
		FROM pending_actions
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list pending actions: %w", err)
	}
	defer rows.Close()

	var actions []PendingAction
	for rows.Next() {
		var (
			a          PendingAction
			actionType string
			entityType string
			payload    string
		)
		if err := rows.Scan(&a.ID, &actionType, &entityType, &a.EntityID, &a.ParentID, &payload, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending action: %w", err)
		}
		a.ActionType = model.ActionType(actionType)
		a.EntityType = model.EntityType(entityType)
		a.Payload = []byte(payload)
		actions = append(actions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending actions: %w", err)
	}

	if actions == nil {
		actions = []PendingAction{}
	}
	return actions, nil
}

// DeleteAction removes a replayed action from the outbox.
// Deleting a missing id is a no-op - a concurrent drain may already have
// confirmed the same action.
func (s *Store) DeleteAction(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM pending_actions WHERE id = ?
	`, id); err != nil {
		return fmt.Errorf("delete action %d: %w", id, err)
	}
	return nil
}

// PendingCount returns the number of queued actions.
func (s *Store) PendingCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM pending_actions
	`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count pending actions: %w", err)
	}
	return n, nil
}
