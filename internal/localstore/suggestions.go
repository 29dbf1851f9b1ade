package localstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ebrangerieau/bandtrack/internal/model"
)

// PutSuggestion inserts or replaces a cached suggestion.
func (s *Store) PutSuggestion(ctx context.Context, sug model.Suggestion) error {
	document, err := json.Marshal(sug)
	if err != nil {
		return fmt.Errorf("marshal suggestion: %w", err)
	}
	return s.put(ctx, model.EntitySuggestion, sug.ID, sug.GroupID, document)
}

// GetSuggestion returns a cached suggestion by id, or ErrNotFound.
func (s *Store) GetSuggestion(ctx context.Context, id string) (model.Suggestion, error) {
	document, err := s.get(ctx, model.EntitySuggestion, id)
	if err != nil {
		return model.Suggestion{}, err
	}
	var sug model.Suggestion
	if err := json.Unmarshal(document, &sug); err != nil {
		return model.Suggestion{}, fmt.Errorf("unmarshal suggestion %q: %w", id, err)
	}
	return sug, nil
}

// DeleteSuggestion removes a cached suggestion. Missing ids are a no-op.
func (s *Store) DeleteSuggestion(ctx context.Context, id string) error {
	return s.deleteByID(ctx, model.EntitySuggestion, id)
}

// ListSuggestionsByGroup returns a group's cached suggestions ordered by
// vote count descending, then creation time, then id.
func (s *Store) ListSuggestionsByGroup(ctx context.Context, groupID string) ([]model.Suggestion, error) {
	documents, err := s.listByGroup(ctx, model.EntitySuggestion, groupID)
	if err != nil {
		return nil, err
	}

	suggestions := make([]model.Suggestion, 0, len(documents))
	for _, document := range documents {
		var sug model.Suggestion
		if err := json.Unmarshal(document, &sug); err != nil {
			return nil, fmt.Errorf("unmarshal suggestion: %w", err)
		}
		suggestions = append(suggestions, sug)
	}

	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].VoteCount != suggestions[j].VoteCount {
			return suggestions[i].VoteCount > suggestions[j].VoteCount
		}
		if suggestions[i].CreatedAt != suggestions[j].CreatedAt {
			return suggestions[i].CreatedAt < suggestions[j].CreatedAt
		}
		return suggestions[i].ID < suggestions[j].ID
	})
	return suggestions, nil
}

// ReplaceGroupSuggestions atomically replaces all cached suggestions for
// a group with the given remote snapshot.
func (s *Store) ReplaceGroupSuggestions(ctx context.Context, groupID string, suggestions []model.Suggestion) error {
	rows := make([]row, 0, len(suggestions))
	for _, sug := range suggestions {
		document, err := json.Marshal(sug)
		if err != nil {
			return fmt.Errorf("marshal suggestion %q: %w", sug.ID, err)
		}
		rows = append(rows, row{id: sug.ID, groupID: groupID, document: document})
	}
	return s.replaceGroup(ctx, model.EntitySuggestion, groupID, rows)
}

// WatchSuggestionsByGroup emits the group's suggestions immediately and
// after every local mutation of that group.
func (s *Store) WatchSuggestionsByGroup(ctx context.Context, groupID string) (<-chan []model.Suggestion, error) {
	return watchGroup(ctx, s, model.EntitySuggestion, groupID, s.ListSuggestionsByGroup)
}
