package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/ebrangerieau/bandtrack/internal/model"
)

// StateSnapshot captures the end-of-scenario state for golden
// comparison: every remote document (decoded, so map keys serialize in
// sorted order) and the number of actions left in the outbox.
type StateSnapshot struct {
	Remote          map[string]map[string]interface{} `json:"remote"`
	OutboxRemaining int                               `json:"outbox_remaining"`
}

// snapshot builds the state snapshot for the scenario's group.
func (h *Harness) snapshot(ctx context.Context) (*StateSnapshot, error) {
	snap := &StateSnapshot{Remote: make(map[string]map[string]interface{})}

	for _, entity := range []model.EntityType{model.EntitySong, model.EntitySuggestion, model.EntityPerformance} {
		for _, doc := range h.remote.Documents(h.scenario.Group, entity) {
			var fields map[string]interface{}
			if err := json.Unmarshal(doc.Data, &fields); err != nil {
				return nil, fmt.Errorf("decode %s/%s: %w", entity.Collection(), doc.ID, err)
			}
			path := fmt.Sprintf("groups/%s/%s/%s", h.scenario.Group, entity.Collection(), doc.ID)
			snap.Remote[path] = fields
		}
	}

	pending, err := h.local.PendingCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("read outbox: %w", err)
	}
	snap.OutboxRemaining = pending
	return snap, nil
}

// RunWithGolden executes a scenario and compares its final state
// against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, snap, err := runWithSnapshot(scenario)
	if err != nil {
		return err
	}
	for _, msg := range result.Errors {
		t.Error(msg)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
	return nil
}

// runWithSnapshot is Run plus a state snapshot taken before teardown.
func runWithSnapshot(scenario *Scenario) (*Result, *StateSnapshot, error) {
	h, cleanup, err := newHarness(scenario)
	if err != nil {
		return nil, nil, err
	}
	defer cleanup()

	ctx := context.Background()
	if err := h.execute(ctx); err != nil {
		return nil, nil, err
	}
	snap, err := h.snapshot(ctx)
	if err != nil {
		return nil, nil, err
	}
	return h.result, snap, nil
}
