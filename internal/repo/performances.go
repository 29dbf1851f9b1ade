package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ebrangerieau/bandtrack/internal/localstore"
	"github.com/ebrangerieau/bandtrack/internal/model"
	"github.com/ebrangerieau/bandtrack/internal/remote"
)

// Performances is the rehearsal and gig repository.
type Performances struct {
	cfg Config
}

// NewPerformances creates the performance repository from shared collaborators.
func NewPerformances(cfg Config) *Performances {
	return &Performances{cfg: cfg.normalized()}
}

func (r *Performances) collection(groupID string) remote.Collection {
	return r.cfg.Remote.Collection(groupID, model.EntityPerformance)
}

// Create schedules a performance and returns its new id.
func (r *Performances) Create(ctx context.Context, groupID string, draft model.Performance, actorID string) (string, error) {
	const op = "performances.create"

	perf := draft
	perf.ID = r.cfg.NewID()
	perf.GroupID = groupID
	perf.CreatedBy = actorID
	if perf.DurationMinutes == 0 {
		perf.DurationMinutes = model.DefaultPerformanceMinutes
	}

	payload, err := json.Marshal(perf)
	if err != nil {
		return "", persistenceErr(op, err)
	}

	if !r.cfg.localFirst() {
		if err := r.collection(groupID).Set(ctx, perf.ID, payload); err != nil {
			return "", remoteErr(op, err)
		}
		return perf.ID, nil
	}

	if err := r.cfg.Local.PutPerformance(ctx, perf); err != nil {
		return "", persistenceErr(op, err)
	}
	if err := r.cfg.enqueue(ctx, op, model.EntityPerformance, model.ActionCreate, groupID, perf.ID, payload); err != nil {
		return "", err
	}
	return perf.ID, nil
}

// Observe emits the group's performances in date order until ctx is
// cancelled.
func (r *Performances) Observe(ctx context.Context, groupID string) (<-chan []model.Performance, error) {
	const op = "performances.observe"

	decode := func(data []byte) (model.Performance, error) {
		var perf model.Performance
		if err := json.Unmarshal(data, &perf); err != nil {
			return model.Performance{}, fmt.Errorf("decode performance: %w", err)
		}
		return perf, nil
	}

	if !r.cfg.localFirst() {
		return observeRemote(ctx, r.cfg, r.collection(groupID), op, decode,
			func(a, b model.Performance) bool {
				if a.Date != b.Date {
					return a.Date < b.Date
				}
				return a.ID < b.ID
			})
	}

	ch, err := r.cfg.Local.WatchPerformancesByGroup(ctx, groupID)
	if err != nil {
		return nil, persistenceErr(op, err)
	}

	cancelReconcile := reconcile(ctx, r.cfg, r.collection(groupID), op, decode,
		func(ctx context.Context, perfs []model.Performance) error {
			return r.cfg.Local.ReplaceGroupPerformances(ctx, groupID, perfs)
		})
	go func() {
		<-ctx.Done()
		cancelReconcile()
	}()

	return ch, nil
}

func (r *Performances) update(ctx context.Context, op, groupID, perfID string, mutate func(model.Performance) model.Performance) error {
	perf, err := r.cfg.Local.GetPerformance(ctx, perfID)
	if errors.Is(err, localstore.ErrNotFound) {
		return notFoundErr(op, err)
	}
	if err != nil {
		return persistenceErr(op, err)
	}

	mutated := mutate(perf)

	payload, err := json.Marshal(mutated)
	if err != nil {
		return persistenceErr(op, err)
	}
	if err := r.cfg.Local.PutPerformance(ctx, mutated); err != nil {
		return persistenceErr(op, err)
	}
	return r.cfg.enqueue(ctx, op, model.EntityPerformance, model.ActionUpdate, groupID, perfID, payload)
}

// UpdateDetails patches a performance's shared fields.
func (r *Performances) UpdateDetails(ctx context.Context, groupID, perfID string, u model.PerformanceUpdate) error {
	const op = "performances.update"

	if !r.cfg.localFirst() {
		fields := u.Fields()
		if len(fields) == 0 {
			return nil
		}
		if err := r.collection(groupID).Update(ctx, perfID, fields); err != nil {
			return remoteErr(op, err)
		}
		return nil
	}

	return r.update(ctx, op, groupID, perfID, u.Apply)
}

// UpdateSetlist replaces the ordered setlist of a performance.
func (r *Performances) UpdateSetlist(ctx context.Context, groupID, perfID string, songIDs []string) error {
	const op = "performances.updateSetlist"

	if !r.cfg.localFirst() {
		setlist := make([]string, len(songIDs))
		copy(setlist, songIDs)
		if err := r.collection(groupID).Update(ctx, perfID, map[string]any{"setlist": setlist}); err != nil {
			return remoteErr(op, err)
		}
		return nil
	}

	return r.update(ctx, op, groupID, perfID, func(perf model.Performance) model.Performance {
		return perf.WithSetlist(songIDs)
	})
}

// Delete removes a performance.
func (r *Performances) Delete(ctx context.Context, groupID, perfID string) error {
	const op = "performances.delete"

	if !r.cfg.localFirst() {
		if err := r.collection(groupID).Delete(ctx, perfID); err != nil {
			return remoteErr(op, err)
		}
		return nil
	}

	if err := r.cfg.Local.DeletePerformance(ctx, perfID); err != nil {
		return persistenceErr(op, err)
	}
	return r.cfg.enqueue(ctx, op, model.EntityPerformance, model.ActionDelete, groupID, perfID, nil)
}
