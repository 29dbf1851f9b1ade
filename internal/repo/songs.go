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

// Songs is the repertoire repository.
type Songs struct {
	cfg Config
}

// NewSongs creates the song repository from shared collaborators.
func NewSongs(cfg Config) *Songs {
	return &Songs{cfg: cfg.normalized()}
}

func (r *Songs) collection(groupID string) remote.Collection {
	return r.cfg.Remote.Collection(groupID, model.EntitySong)
}

// Create adds a song to the group's repertoire and returns its new id.
//
// Local-first: the song is committed to the cache, a CREATE action is
// queued, and the call returns without touching the network. Fallback:
// the document is written synchronously to the remote store.
func (r *Songs) Create(ctx context.Context, groupID string, draft model.Song, actorID string) (string, error) {
	const op = "songs.create"

	song := draft
	song.ID = r.cfg.NewID()
	song.GroupID = groupID
	song.AddedBy = actorID
	song.AddedAt = r.cfg.Now()

	payload, err := json.Marshal(song)
	if err != nil {
		return "", persistenceErr(op, err)
	}

	if !r.cfg.localFirst() {
		if err := r.collection(groupID).Set(ctx, song.ID, payload); err != nil {
			return "", remoteErr(op, err)
		}
		return song.ID, nil
	}

	if err := r.cfg.Local.PutSong(ctx, song); err != nil {
		return "", persistenceErr(op, err)
	}
	if err := r.cfg.enqueue(ctx, op, model.EntitySong, model.ActionCreate, groupID, song.ID, payload); err != nil {
		return "", err
	}
	return song.ID, nil
}

// CreateFromSuggestion converts an accepted suggestion into a song.
func (r *Songs) CreateFromSuggestion(ctx context.Context, groupID string, sug model.Suggestion, actorID string) (string, error) {
	return r.Create(ctx, groupID, model.SongFromSuggestion(sug, actorID), actorID)
}

// Observe emits the group's songs, sorted by title, until ctx is
// cancelled. Local-first mode emits from the cache while the reconciler
// mirrors remote snapshots into it; fallback mode streams straight from
// the remote subscription.
func (r *Songs) Observe(ctx context.Context, groupID string) (<-chan []model.Song, error) {
	const op = "songs.observe"

	decode := func(data []byte) (model.Song, error) {
		var song model.Song
		if err := json.Unmarshal(data, &song); err != nil {
			return model.Song{}, fmt.Errorf("decode song: %w", err)
		}
		return song, nil
	}

	if !r.cfg.localFirst() {
		return observeRemote(ctx, r.cfg, r.collection(groupID), op, decode,
			func(a, b model.Song) bool {
				if a.Title != b.Title {
					return a.Title < b.Title
				}
				return a.ID < b.ID
			})
	}

	ch, err := r.cfg.Local.WatchSongsByGroup(ctx, groupID)
	if err != nil {
		return nil, persistenceErr(op, err)
	}

	cancelReconcile := reconcile(ctx, r.cfg, r.collection(groupID), op, decode,
		func(ctx context.Context, songs []model.Song) error {
			return r.cfg.Local.ReplaceGroupSongs(ctx, groupID, songs)
		})
	go func() {
		<-ctx.Done()
		cancelReconcile()
	}()

	return ch, nil
}

// update is the shared local-first read-modify-write path: load from
// cache (never from remote), mutate, write back, queue the new snapshot.
func (r *Songs) update(ctx context.Context, op, groupID, songID string, mutate func(model.Song) (model.Song, error)) error {
	song, err := r.cfg.Local.GetSong(ctx, songID)
	if errors.Is(err, localstore.ErrNotFound) {
		return notFoundErr(op, err)
	}
	if err != nil {
		return persistenceErr(op, err)
	}

	mutated, err := mutate(song)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(mutated)
	if err != nil {
		return persistenceErr(op, err)
	}
	if err := r.cfg.Local.PutSong(ctx, mutated); err != nil {
		return persistenceErr(op, err)
	}
	return r.cfg.enqueue(ctx, op, model.EntitySong, model.ActionUpdate, groupID, songID, payload)
}

// UpdateDetails patches a song's shared fields.
func (r *Songs) UpdateDetails(ctx context.Context, groupID, songID string, u model.SongUpdate, actorID string) error {
	const op = "songs.update"

	if !r.cfg.localFirst() {
		fields := u.Fields()
		if len(fields) == 0 {
			return nil
		}
		if err := r.collection(groupID).Update(ctx, songID, fields); err != nil {
			return remoteErr(op, err)
		}
		return nil
	}

	return r.update(ctx, op, groupID, songID, func(song model.Song) (model.Song, error) {
		return u.Apply(song), nil
	})
}

// UpdateMasteryLevel records a member's mastery level for a song.
// Levels outside [0,10] fail with a validation error before any side
// effect: no local write, no outbox entry, no sync trigger.
func (r *Songs) UpdateMasteryLevel(ctx context.Context, groupID, songID, userID string, level int) error {
	const op = "songs.updateMastery"

	if level < model.MasteryMin || level > model.MasteryMax {
		return validationErr(op, fmt.Errorf("%w: %d", model.ErrMasteryOutOfRange, level))
	}

	if !r.cfg.localFirst() {
		err := r.collection(groupID).RunTransaction(ctx, func(tx remote.Tx) error {
			data, err := tx.Get(songID)
			if err != nil {
				return err
			}
			var song model.Song
			if err := json.Unmarshal(data, &song); err != nil {
				return err
			}
			updated, err := song.WithMasteryLevel(userID, level)
			if err != nil {
				return err
			}
			payload, err := json.Marshal(updated)
			if err != nil {
				return err
			}
			tx.Set(songID, payload)
			return nil
		})
		if err != nil {
			return remoteErr(op, err)
		}
		return nil
	}

	return r.update(ctx, op, groupID, songID, func(song model.Song) (model.Song, error) {
		updated, err := song.WithMasteryLevel(userID, level)
		if err != nil {
			return model.Song{}, validationErr(op, err)
		}
		return updated, nil
	})
}

// UpdateMemberConfig records a member's personal instrument config.
func (r *Songs) UpdateMemberConfig(ctx context.Context, groupID, songID, userID, config string) error {
	const op = "songs.updateMemberConfig"

	if !r.cfg.localFirst() {
		fields := map[string]any{"memberInstrumentConfigs": map[string]any{userID: config}}
		if err := r.collection(groupID).Update(ctx, songID, fields); err != nil {
			return remoteErr(op, err)
		}
		return nil
	}

	return r.update(ctx, op, groupID, songID, func(song model.Song) (model.Song, error) {
		return song.WithMemberConfig(userID, config), nil
	})
}

// UpdateMemberNotes records a member's personal notes on a song.
func (r *Songs) UpdateMemberNotes(ctx context.Context, groupID, songID, userID, notes string) error {
	const op = "songs.updateMemberNotes"

	if !r.cfg.localFirst() {
		fields := map[string]any{"memberPersonalNotes": map[string]any{userID: notes}}
		if err := r.collection(groupID).Update(ctx, songID, fields); err != nil {
			return remoteErr(op, err)
		}
		return nil
	}

	return r.update(ctx, op, groupID, songID, func(song model.Song) (model.Song, error) {
		return song.WithMemberNotes(userID, notes), nil
	})
}

// Delete removes a song from the repertoire.
func (r *Songs) Delete(ctx context.Context, groupID, songID string) error {
	const op = "songs.delete"

	if !r.cfg.localFirst() {
		if err := r.collection(groupID).Delete(ctx, songID); err != nil {
			return remoteErr(op, err)
		}
		return nil
	}

	if err := r.cfg.Local.DeleteSong(ctx, songID); err != nil {
		return persistenceErr(op, err)
	}
	return r.cfg.enqueue(ctx, op, model.EntitySong, model.ActionDelete, groupID, songID, nil)
}
