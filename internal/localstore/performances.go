package localstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ebrangerieau/bandtrack/internal/model"
)

// PutPerformance inserts or replaces a cached performance.
func (s *Store) PutPerformance(ctx context.Context, perf model.Performance) error {
	document, err := json.Marshal(perf)
	if err != nil {
		return fmt.Errorf("marshal performance: %w", err)
	}
	return s.put(ctx, model.EntityPerformance, perf.ID, perf.GroupID, document)
}

// GetPerformance returns a cached performance by id, or ErrNotFound.
func (s *Store) GetPerformance(ctx context.Context, id string) (model.Performance, error) {
	document, err := s.get(ctx, model.EntityPerformance, id)
	if err != nil {
		return model.Performance{}, err
	}
	var perf model.Performance
	if err := json.Unmarshal(document, &perf); err != nil {
		return model.Performance{}, fmt.Errorf("unmarshal performance %q: %w", id, err)
	}
	return perf, nil
}

// DeletePerformance removes a cached performance. Missing ids are a no-op.
func (s *Store) DeletePerformance(ctx context.Context, id string) error {
	return s.deleteByID(ctx, model.EntityPerformance, id)
}

// ListPerformancesByGroup returns a group's cached performances ordered by
// event date ascending, then id.
func (s *Store) ListPerformancesByGroup(ctx context.Context, groupID string) ([]model.Performance, error) {
	documents, err := s.listByGroup(ctx, model.EntityPerformance, groupID)
	if err != nil {
		return nil, err
	}

	performances := make([]model.Performance, 0, len(documents))
	for _, document := range documents {
		var perf model.Performance
		if err := json.Unmarshal(document, &perf); err != nil {
			return nil, fmt.Errorf("unmarshal performance: %w", err)
		}
		performances = append(performances, perf)
	}

	sort.Slice(performances, func(i, j int) bool {
		if performances[i].Date != performances[j].Date {
			return performances[i].Date < performances[j].Date
		}
		return performances[i].ID < performances[j].ID
	})
	return performances, nil
}

// ReplaceGroupPerformances atomically replaces all cached performances for
// a group with the given remote snapshot.
func (s *Store) ReplaceGroupPerformances(ctx context.Context, groupID string, performances []model.Performance) error {
	rows := make([]row, 0, len(performances))
	for _, perf := range performances {
		document, err := json.Marshal(perf)
		if err != nil {
			return fmt.Errorf("marshal performance %q: %w", perf.ID, err)
		}
		rows = append(rows, row{id: perf.ID, groupID: groupID, document: document})
	}
	return s.replaceGroup(ctx, model.EntityPerformance, groupID, rows)
}

// WatchPerformancesByGroup emits the group's performances immediately and
// after every local mutation of that group.
func (s *Store) WatchPerformancesByGroup(ctx context.Context, groupID string) (<-chan []model.Performance, error) {
	return watchGroup(ctx, s, model.EntityPerformance, groupID, s.ListPerformancesByGroup)
}
