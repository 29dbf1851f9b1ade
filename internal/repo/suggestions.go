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

// Suggestions is the song-suggestion repository.
type Suggestions struct {
	cfg Config
}

// NewSuggestions creates the suggestion repository from shared collaborators.
func NewSuggestions(cfg Config) *Suggestions {
	return &Suggestions{cfg: cfg.normalized()}
}

func (r *Suggestions) collection(groupID string) remote.Collection {
	return r.cfg.Remote.Collection(groupID, model.EntitySuggestion)
}

// Create proposes a new song to the group and returns the suggestion id.
func (r *Suggestions) Create(ctx context.Context, groupID string, draft model.Suggestion, actorID, actorName string) (string, error) {
	const op = "suggestions.create"

	sug := draft
	sug.ID = r.cfg.NewID()
	sug.GroupID = groupID
	sug.CreatedBy = actorID
	sug.CreatedByName = actorName
	sug.CreatedAt = r.cfg.Now()
	if sug.Status == "" {
		sug.Status = model.SuggestionPending
	}

	payload, err := json.Marshal(sug)
	if err != nil {
		return "", persistenceErr(op, err)
	}

	if !r.cfg.localFirst() {
		if err := r.collection(groupID).Set(ctx, sug.ID, payload); err != nil {
			return "", remoteErr(op, err)
		}
		return sug.ID, nil
	}

	if err := r.cfg.Local.PutSuggestion(ctx, sug); err != nil {
		return "", persistenceErr(op, err)
	}
	if err := r.cfg.enqueue(ctx, op, model.EntitySuggestion, model.ActionCreate, groupID, sug.ID, payload); err != nil {
		return "", err
	}
	return sug.ID, nil
}

// Observe emits the group's suggestions, most voted first, until ctx is
// cancelled.
func (r *Suggestions) Observe(ctx context.Context, groupID string) (<-chan []model.Suggestion, error) {
	const op = "suggestions.observe"

	decode := func(data []byte) (model.Suggestion, error) {
		var sug model.Suggestion
		if err := json.Unmarshal(data, &sug); err != nil {
			return model.Suggestion{}, fmt.Errorf("decode suggestion: %w", err)
		}
		return sug, nil
	}

	if !r.cfg.localFirst() {
		return observeRemote(ctx, r.cfg, r.collection(groupID), op, decode,
			func(a, b model.Suggestion) bool {
				if a.VoteCount != b.VoteCount {
					return a.VoteCount > b.VoteCount
				}
				if a.CreatedAt != b.CreatedAt {
					return a.CreatedAt < b.CreatedAt
				}
				return a.ID < b.ID
			})
	}

	ch, err := r.cfg.Local.WatchSuggestionsByGroup(ctx, groupID)
	if err != nil {
		return nil, persistenceErr(op, err)
	}

	cancelReconcile := reconcile(ctx, r.cfg, r.collection(groupID), op, decode,
		func(ctx context.Context, sugs []model.Suggestion) error {
			return r.cfg.Local.ReplaceGroupSuggestions(ctx, groupID, sugs)
		})
	go func() {
		<-ctx.Done()
		cancelReconcile()
	}()

	return ch, nil
}

func (r *Suggestions) update(ctx context.Context, op, groupID, sugID string, mutate func(model.Suggestion) model.Suggestion) error {
	sug, err := r.cfg.Local.GetSuggestion(ctx, sugID)
	if errors.Is(err, localstore.ErrNotFound) {
		return notFoundErr(op, err)
	}
	if err != nil {
		return persistenceErr(op, err)
	}

	mutated := mutate(sug)

	payload, err := json.Marshal(mutated)
	if err != nil {
		return persistenceErr(op, err)
	}
	if err := r.cfg.Local.PutSuggestion(ctx, mutated); err != nil {
		return persistenceErr(op, err)
	}
	return r.cfg.enqueue(ctx, op, model.EntitySuggestion, model.ActionUpdate, groupID, sugID, payload)
}

// remoteReadModifyWrite applies mutate inside a remote transaction, for
// fallback-mode operations that depend on the current document.
func (r *Suggestions) remoteReadModifyWrite(ctx context.Context, op, groupID, sugID string, mutate func(model.Suggestion) model.Suggestion) error {
	err := r.collection(groupID).RunTransaction(ctx, func(tx remote.Tx) error {
		data, err := tx.Get(sugID)
		if err != nil {
			return err
		}
		var sug model.Suggestion
		if err := json.Unmarshal(data, &sug); err != nil {
			return err
		}
		payload, err := json.Marshal(mutate(sug))
		if err != nil {
			return err
		}
		tx.Set(sugID, payload)
		return nil
	})
	if err != nil {
		return remoteErr(op, err)
	}
	return nil
}

// ToggleVote adds or removes the member's vote on a suggestion.
func (r *Suggestions) ToggleVote(ctx context.Context, groupID, sugID, userID string) error {
	const op = "suggestions.toggleVote"

	mutate := func(sug model.Suggestion) model.Suggestion {
		return sug.WithVoteToggled(userID)
	}
	if !r.cfg.localFirst() {
		return r.remoteReadModifyWrite(ctx, op, groupID, sugID, mutate)
	}
	return r.update(ctx, op, groupID, sugID, mutate)
}

// Accept marks a suggestion accepted and links the song it became.
func (r *Suggestions) Accept(ctx context.Context, groupID, sugID, songID string) error {
	const op = "suggestions.accept"

	mutate := func(sug model.Suggestion) model.Suggestion {
		return sug.WithStatus(model.SuggestionAccepted, songID)
	}
	if !r.cfg.localFirst() {
		return r.remoteReadModifyWrite(ctx, op, groupID, sugID, mutate)
	}
	return r.update(ctx, op, groupID, sugID, mutate)
}

// Reject marks a suggestion rejected.
func (r *Suggestions) Reject(ctx context.Context, groupID, sugID string) error {
	const op = "suggestions.reject"

	mutate := func(sug model.Suggestion) model.Suggestion {
		return sug.WithStatus(model.SuggestionRejected, "")
	}
	if !r.cfg.localFirst() {
		return r.remoteReadModifyWrite(ctx, op, groupID, sugID, mutate)
	}
	return r.update(ctx, op, groupID, sugID, mutate)
}

// Delete removes a suggestion.
func (r *Suggestions) Delete(ctx context.Context, groupID, sugID string) error {
	const op = "suggestions.delete"

	if !r.cfg.localFirst() {
		if err := r.collection(groupID).Delete(ctx, sugID); err != nil {
			return remoteErr(op, err)
		}
		return nil
	}

	if err := r.cfg.Local.DeleteSuggestion(ctx, sugID); err != nil {
		return persistenceErr(op, err)
	}
	return r.cfg.enqueue(ctx, op, model.EntitySuggestion, model.ActionDelete, groupID, sugID, nil)
}
