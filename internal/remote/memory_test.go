package remote

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ebrangerieau/bandtrack/internal/model"
)

func TestMemory_SetGetRoundTrip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	coll := m.Collection("g1", model.EntitySong)

	require.NoError(t, coll.Set(ctx, "s1", []byte(`{"title":"Zombie"}`)))

	doc, err := coll.Get(ctx, "s1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"Zombie"}`, string(doc))

	_, err = coll.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestMemory_SetIsIdempotentOverwrite(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	coll := m.Collection("g1", model.EntitySong)

	payload := []byte(`{"title":"Zombie","tempo":84}`)
	require.NoError(t, coll.Set(ctx, "s1", payload))
	require.NoError(t, coll.Set(ctx, "s1", payload))

	doc, err := coll.Get(ctx, "s1")
	require.NoError(t, err)
	assert.JSONEq(t, string(payload), string(doc), "replaying the same Set must not change final state")
}

func TestMemory_DeleteIfExists(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	coll := m.Collection("g1", model.EntitySong)

	require.NoError(t, coll.Set(ctx, "s1", []byte(`{}`)))
	require.NoError(t, coll.Delete(ctx, "s1"))
	require.NoError(t, coll.Delete(ctx, "s1"), "deleting a missing id succeeds")

	_, err := coll.Get(ctx, "s1")
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestMemory_UpdateMergesFields(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	coll := m.Collection("g1", model.EntityPerformance)

	require.NoError(t, coll.Set(ctx, "p1", []byte(`{"title":"Old","location":"Garage"}`)))
	require.NoError(t, coll.Update(ctx, "p1", map[string]any{"title": "New"}))

	doc, err := coll.Get(ctx, "p1")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(doc, &got))
	assert.Equal(t, "New", got["title"])
	assert.Equal(t, "Garage", got["location"], "untouched fields survive a partial update")

	err = coll.Update(ctx, "nope", map[string]any{"title": "X"})
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestMemory_GroupAndEntityIsolation(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Collection("g1", model.EntitySong).Set(ctx, "x", []byte(`{"a":1}`)))

	_, err := m.Collection("g2", model.EntitySong).Get(ctx, "x")
	assert.ErrorIs(t, err, ErrDocumentNotFound, "groups are isolated")

	_, err = m.Collection("g1", model.EntitySuggestion).Get(ctx, "x")
	assert.ErrorIs(t, err, ErrDocumentNotFound, "entity collections are isolated")
}

func TestMemory_SnapshotsDeliverImmediatelyAndOnChange(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	coll := m.Collection("g1", model.EntitySong)
	require.NoError(t, coll.Set(ctx, "s1", []byte(`{"v":1}`)))

	var (
		mu        sync.Mutex
		snapshots [][]Document
	)
	sub, err := coll.Snapshots(ctx, func(docs []Document) {
		mu.Lock()
		defer mu.Unlock()
		snapshots = append(snapshots, docs)
	})
	require.NoError(t, err)
	defer sub.Cancel()

	mu.Lock()
	require.Len(t, snapshots, 1, "listener receives current state on registration")
	assert.Equal(t, "s1", snapshots[0][0].ID)
	mu.Unlock()

	require.NoError(t, coll.Set(ctx, "s2", []byte(`{"v":2}`)))

	mu.Lock()
	require.Len(t, snapshots, 2)
	assert.Len(t, snapshots[1], 2)
	assert.Equal(t, "s1", snapshots[1][0].ID, "snapshots are sorted by id")
	assert.Equal(t, "s2", snapshots[1][1].ID)
	mu.Unlock()
}

func TestMemory_CancelStopsCallbacks(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	coll := m.Collection("g1", model.EntitySong)

	var count int
	sub, err := coll.Snapshots(ctx, func([]Document) { count++ })
	require.NoError(t, err)
	require.Equal(t, 1, count)

	sub.Cancel()
	sub.Cancel() // idempotent

	require.NoError(t, coll.Set(ctx, "s1", []byte(`{}`)))
	assert.Equal(t, 1, count, "no callbacks after cancel")
}

func TestMemory_UnreachableFailsEverything(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	coll := m.Collection("g1", model.EntitySong)
	require.NoError(t, coll.Set(ctx, "s1", []byte(`{}`)))

	m.SetUnreachable(true)

	assert.ErrorIs(t, coll.Set(ctx, "s2", []byte(`{}`)), ErrUnreachable)
	assert.ErrorIs(t, coll.Delete(ctx, "s1"), ErrUnreachable)
	_, err := coll.Get(ctx, "s1")
	assert.ErrorIs(t, err, ErrUnreachable)
	_, err = coll.Snapshots(ctx, func([]Document) {})
	assert.ErrorIs(t, err, ErrUnreachable)

	m.SetUnreachable(false)
	require.NoError(t, coll.Set(ctx, "s2", []byte(`{}`)))
}

func TestMemory_InjectErrorPerDocument(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	coll := m.Collection("g1", model.EntitySong)

	boom := errors.New("permission denied")
	m.InjectError("bad", boom)

	assert.ErrorIs(t, coll.Set(ctx, "bad", []byte(`{}`)), boom)
	assert.NoError(t, coll.Set(ctx, "good", []byte(`{}`)), "other documents unaffected")

	m.ClearError("bad")
	assert.NoError(t, coll.Set(ctx, "bad", []byte(`{}`)))
}

func TestMemory_RecordsCallOrder(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	m.Collection("g1", model.EntitySong).Set(ctx, "x", []byte(`{}`))
	m.Collection("g1", model.EntitySuggestion).Set(ctx, "y", []byte(`{}`))
	m.Collection("g1", model.EntitySong).Delete(ctx, "x")

	assert.Equal(t, []string{
		"set groups/g1/songs/x",
		"set groups/g1/suggestions/y",
		"delete groups/g1/songs/x",
	}, m.Calls())
}

func TestMemory_RunTransaction(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	coll := m.Collection("g1", model.EntitySong)
	require.NoError(t, coll.Set(ctx, "s1", []byte(`{"count":1}`)))

	err := coll.RunTransaction(ctx, func(tx Tx) error {
		doc, err := tx.Get("s1")
		if err != nil {
			return err
		}
		var v map[string]any
		if err := json.Unmarshal(doc, &v); err != nil {
			return err
		}
		v["count"] = 2
		updated, err := json.Marshal(v)
		if err != nil {
			return err
		}
		tx.Set("s1", updated)
		return nil
	})
	require.NoError(t, err)

	doc, err := coll.Get(ctx, "s1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"count":2}`, string(doc))

	// A failing transaction func discards staged writes.
	boom := errors.New("abort")
	err = coll.RunTransaction(ctx, func(tx Tx) error {
		tx.Set("s1", []byte(`{"count":99}`))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	doc, _ = coll.Get(ctx, "s1")
	assert.JSONEq(t, `{"count":2}`, string(doc))
}
