package localstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ebrangerieau/bandtrack/internal/model"
)

// PutSong inserts or replaces a cached song.
func (s *Store) PutSong(ctx context.Context, song model.Song) error {
	document, err := json.Marshal(song)
	if err != nil {
		return fmt.Errorf("marshal song: %w", err)
	}
	return s.put(ctx, model.EntitySong, song.ID, song.GroupID, document)
}

// GetSong returns a cached song by id, or ErrNotFound.
func (s *Store) GetSong(ctx context.Context, id string) (model.Song, error) {
	document, err := s.get(ctx, model.EntitySong, id)
	if err != nil {
		return model.Song{}, err
	}
	var song model.Song
	if err := json.Unmarshal(document, &song); err != nil {
		return model.Song{}, fmt.Errorf("unmarshal song %q: %w", id, err)
	}
	return song, nil
}

// DeleteSong removes a cached song. Missing ids are a no-op.
func (s *Store) DeleteSong(ctx context.Context, id string) error {
	return s.deleteByID(ctx, model.EntitySong, id)
}

// ListSongsByGroup returns a group's cached songs ordered by title, then
// id for ties. Returns an empty slice (not nil) for unknown groups.
func (s *Store) ListSongsByGroup(ctx context.Context, groupID string) ([]model.Song, error) {
	documents, err := s.listByGroup(ctx, model.EntitySong, groupID)
	if err != nil {
		return nil, err
	}

	songs := make([]model.Song, 0, len(documents))
	for _, document := range documents {
		var song model.Song
		if err := json.Unmarshal(document, &song); err != nil {
			return nil, fmt.Errorf("unmarshal song: %w", err)
		}
		songs = append(songs, song)
	}

	sort.Slice(songs, func(i, j int) bool {
		if songs[i].Title != songs[j].Title {
			return songs[i].Title < songs[j].Title
		}
		return songs[i].ID < songs[j].ID
	})
	return songs, nil
}

// ReplaceGroupSongs atomically replaces all cached songs for a group with
// the given remote snapshot.
func (s *Store) ReplaceGroupSongs(ctx context.Context, groupID string, songs []model.Song) error {
	rows := make([]row, 0, len(songs))
	for _, song := range songs {
		document, err := json.Marshal(song)
		if err != nil {
			return fmt.Errorf("marshal song %q: %w", song.ID, err)
		}
		rows = append(rows, row{id: song.ID, groupID: groupID, document: document})
	}
	return s.replaceGroup(ctx, model.EntitySong, groupID, rows)
}

// WatchSongsByGroup emits the group's songs immediately and after every
// local mutation of that group. The channel closes on ctx cancellation.
func (s *Store) WatchSongsByGroup(ctx context.Context, groupID string) (<-chan []model.Song, error) {
	return watchGroup(ctx, s, model.EntitySong, groupID, s.ListSongsByGroup)
}
