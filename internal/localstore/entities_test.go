package localstore

import (
	"context"
	"errors"
	"testing"

	"github.com/ebrangerieau/bandtrack/internal/model"
)

func TestPutGetDeleteSong(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	song := model.Song{ID: "s1", GroupID: "g1", Title: "Zombie", Artist: "The Cranberries"}
	if err := s.PutSong(ctx, song); err != nil {
		t.Fatalf("PutSong() failed: %v", err)
	}

	got, err := s.GetSong(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSong() failed: %v", err)
	}
	if got.Title != "Zombie" || got.Artist != "The Cranberries" {
		t.Errorf("round-trip mismatch: %+v", got)
	}

	if err := s.DeleteSong(ctx, "s1"); err != nil {
		t.Fatalf("DeleteSong() failed: %v", err)
	}
	if _, err := s.GetSong(ctx, "s1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	// Deleting a missing id is a no-op.
	if err := s.DeleteSong(ctx, "s1"); err != nil {
		t.Errorf("double delete should be a no-op: %v", err)
	}
}

func TestPutSong_RejectsEmptyID(t *testing.T) {
	s := openTestStore(t)

	if err := s.PutSong(context.Background(), model.Song{GroupID: "g1"}); err == nil {
		t.Error("expected error for empty id")
	}
	if err := s.PutSong(context.Background(), model.Song{ID: "s1"}); err == nil {
		t.Error("expected error for empty group id")
	}
}

func TestListSongsByGroup_SortedByTitle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, song := range []model.Song{
		{ID: "s3", GroupID: "g1", Title: "Creep"},
		{ID: "s1", GroupID: "g1", Title: "Zombie"},
		{ID: "s2", GroupID: "g1", Title: "Alive"},
		{ID: "s4", GroupID: "g2", Title: "Believer"}, // other group, excluded
	} {
		if err := s.PutSong(ctx, song); err != nil {
			t.Fatalf("PutSong() failed: %v", err)
		}
	}

	songs, err := s.ListSongsByGroup(ctx, "g1")
	if err != nil {
		t.Fatalf("ListSongsByGroup() failed: %v", err)
	}

	wantTitles := []string{"Alive", "Creep", "Zombie"}
	if len(songs) != len(wantTitles) {
		t.Fatalf("got %d songs, expected %d", len(songs), len(wantTitles))
	}
	for i, want := range wantTitles {
		if songs[i].Title != want {
			t.Errorf("song %d = %q, expected %q", i, songs[i].Title, want)
		}
	}
}

func TestListSuggestionsByGroup_SortedByVotesDescending(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, sug := range []model.Suggestion{
		{ID: "a", GroupID: "g1", Title: "One", VoteCount: 1, CreatedAt: 10},
		{ID: "b", GroupID: "g1", Title: "Three", VoteCount: 3, CreatedAt: 30},
		{ID: "c", GroupID: "g1", Title: "Two", VoteCount: 2, CreatedAt: 20},
	} {
		if err := s.PutSuggestion(ctx, sug); err != nil {
			t.Fatalf("PutSuggestion() failed: %v", err)
		}
	}

	suggestions, err := s.ListSuggestionsByGroup(ctx, "g1")
	if err != nil {
		t.Fatalf("ListSuggestionsByGroup() failed: %v", err)
	}

	wantOrder := []string{"b", "c", "a"}
	for i, want := range wantOrder {
		if suggestions[i].ID != want {
			t.Errorf("suggestion %d = %q, expected %q", i, suggestions[i].ID, want)
		}
	}
}

func TestListPerformancesByGroup_SortedByDate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, perf := range []model.Performance{
		{ID: "p2", GroupID: "g1", Date: 200},
		{ID: "p1", GroupID: "g1", Date: 100},
	} {
		if err := s.PutPerformance(ctx, perf); err != nil {
			t.Fatalf("PutPerformance() failed: %v", err)
		}
	}

	performances, err := s.ListPerformancesByGroup(ctx, "g1")
	if err != nil {
		t.Fatalf("ListPerformancesByGroup() failed: %v", err)
	}
	if performances[0].ID != "p1" || performances[1].ID != "p2" {
		t.Errorf("wrong date order: %+v", performances)
	}
}

func TestReplaceGroupSongs_BulkOverwriteNotMerge(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// Local cache holds {A, B}.
	s.PutSong(ctx, model.Song{ID: "A", GroupID: "g1", Title: "Alpha"})
	s.PutSong(ctx, model.Song{ID: "B", GroupID: "g1", Title: "Beta"})

	// Remote snapshot arrives with {B, C}.
	err := s.ReplaceGroupSongs(ctx, "g1", []model.Song{
		{ID: "B", GroupID: "g1", Title: "Beta"},
		{ID: "C", GroupID: "g1", Title: "Gamma"},
	})
	if err != nil {
		t.Fatalf("ReplaceGroupSongs() failed: %v", err)
	}

	songs, err := s.ListSongsByGroup(ctx, "g1")
	if err != nil {
		t.Fatalf("ListSongsByGroup() failed: %v", err)
	}

	ids := make(map[string]bool, len(songs))
	for _, song := range songs {
		ids[song.ID] = true
	}
	if len(ids) != 2 || !ids["B"] || !ids["C"] {
		t.Errorf("cache after replace = %v, expected exactly {B, C}", ids)
	}
}

func TestReplaceGroupSongs_DoesNotTouchOtherGroups(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	s.PutSong(ctx, model.Song{ID: "A", GroupID: "g1", Title: "Alpha"})
	s.PutSong(ctx, model.Song{ID: "Z", GroupID: "g2", Title: "Zeta"})

	if err := s.ReplaceGroupSongs(ctx, "g1", nil); err != nil {
		t.Fatalf("ReplaceGroupSongs() failed: %v", err)
	}

	g2, err := s.ListSongsByGroup(ctx, "g2")
	if err != nil {
		t.Fatalf("ListSongsByGroup(g2) failed: %v", err)
	}
	if len(g2) != 1 || g2[0].ID != "Z" {
		t.Errorf("group g2 was disturbed by g1 replace: %+v", g2)
	}
}

func TestCountEntities(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	s.PutSong(ctx, model.Song{ID: "s1", GroupID: "g1"})
	s.PutSong(ctx, model.Song{ID: "s2", GroupID: "g1"})
	s.PutSuggestion(ctx, model.Suggestion{ID: "sg1", GroupID: "g1"})

	counts, err := s.CountEntities(ctx)
	if err != nil {
		t.Fatalf("CountEntities() failed: %v", err)
	}
	if counts[model.EntitySong] != 2 {
		t.Errorf("song count = %d, expected 2", counts[model.EntitySong])
	}
	if counts[model.EntitySuggestion] != 1 {
		t.Errorf("suggestion count = %d, expected 1", counts[model.EntitySuggestion])
	}
	if counts[model.EntityPerformance] != 0 {
		t.Errorf("performance count = %d, expected 0", counts[model.EntityPerformance])
	}
}
