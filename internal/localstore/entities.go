package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ebrangerieau/bandtrack/internal/model"
)

// ErrNotFound is returned when an entity id has no row in the cache.
var ErrNotFound = errors.New("localstore: not found")

// ErrClosed is returned when a reactive query is requested after Close.
var ErrClosed = errors.New("localstore: store closed")

// row is a raw cache row: an entity id plus its serialized document.
type row struct {
	id       string
	groupID  string
	document []byte
}

// put inserts or replaces a single cache row and notifies group watchers.
func (s *Store) put(ctx context.Context, entity model.EntityType, id, groupID string, document []byte) error {
	if id == "" {
		return fmt.Errorf("put %s: empty id", entity)
	}
	if groupID == "" {
		return fmt.Errorf("put %s: empty group id", entity)
	}

	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT OR REPLACE INTO %s (id, group_id, document)
		VALUES (?, ?, ?)
	`, entity.Collection()),
		id, groupID, string(document),
	)
	if err != nil {
		return fmt.Errorf("put %s: %w", entity, err)
	}

	s.notifier.notify(entity, groupID)
	return nil
}

// get returns the serialized document for an entity id.
// Returns ErrNotFound if the row does not exist.
func (s *Store) get(ctx context.Context, entity model.EntityType, id string) ([]byte, error) {
	var document string
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT document FROM %s WHERE id = ?
	`, entity.Collection()), id).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get %s %q: %w", entity, id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", entity, err)
	}
	return []byte(document), nil
}

// deleteByID removes a single cache row. Deleting a missing id is a no-op.
func (s *Store) deleteByID(ctx context.Context, entity model.EntityType, id string) error {
	// Look up the group first so watchers can be notified.
	var groupID string
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT group_id FROM %s WHERE id = ?
	`, entity.Collection()), id).Scan(&groupID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete %s: %w", entity, err)
	}

	_, err = s.db.ExecContext(ctx, fmt.Sprintf(`
		DELETE FROM %s WHERE id = ?
	`, entity.Collection()), id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", entity, err)
	}

	s.notifier.notify(entity, groupID)
	return nil
}

// listByGroup returns all documents for a group in deterministic id order.
// Entity-specific presentation ordering is applied by the typed wrappers.
func (s *Store) listByGroup(ctx context.Context, entity model.EntityType, groupID string) ([][]byte, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT document FROM %s
		WHERE group_id = ?
		ORDER BY id ASC
	`, entity.Collection()), groupID)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", entity, err)
	}
	defer rows.Close()

	var documents [][]byte
	for rows.Next() {
		var document string
		if err := rows.Scan(&document); err != nil {
			return nil, fmt.Errorf("scan %s: %w", entity, err)
		}
		documents = append(documents, []byte(document))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", entity, err)
	}

	return documents, nil
}

// replaceGroup atomically swaps all rows for a group: delete-by-group then
// insert, in a single transaction. This is the reconciler's bulk overwrite -
// the remote snapshot is authoritative truth for the group at that instant.
func (s *Store) replaceGroup(ctx context.Context, entity model.EntityType, groupID string, rows []row) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("replace %s group: begin tx: %w", entity, err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`
		DELETE FROM %s WHERE group_id = ?
	`, entity.Collection()), groupID); err != nil {
		return fmt.Errorf("replace %s group: clear: %w", entity, err)
	}

	for _, r := range rows {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`
			INSERT INTO %s (id, group_id, document)
			VALUES (?, ?, ?)
		`, entity.Collection()), r.id, groupID, string(r.document)); err != nil {
			return fmt.Errorf("replace %s group: insert %q: %w", entity, r.id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("replace %s group: commit: %w", entity, err)
	}

	s.notifier.notify(entity, groupID)
	return nil
}

// CountEntities returns per-entity row counts across all groups.
// Used by the status command.
func (s *Store) CountEntities(ctx context.Context) (map[model.EntityType]int, error) {
	counts := make(map[model.EntityType]int, 3)
	for _, entity := range []model.EntityType{model.EntitySong, model.EntitySuggestion, model.EntityPerformance} {
		var n int
		err := s.db.QueryRowContext(ctx, fmt.Sprintf(`
			SELECT COUNT(*) FROM %s
		`, entity.Collection())).Scan(&n)
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", entity, err)
		}
		counts[entity] = n
	}
	return counts, nil
}
