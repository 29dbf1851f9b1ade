package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/ebrangerieau/bandtrack/internal/model"
)

func entityType(name string) (model.EntityType, error) {
	for _, e := range []model.EntityType{model.EntitySong, model.EntitySuggestion, model.EntityPerformance} {
		if e.Collection() == name {
			return e, nil
		}
	}
	return "", fmt.Errorf("unknown entity %q", name)
}

func (h *Harness) evalAssertion(ctx context.Context, n int, a Assertion) {
	switch a.Type {
	case AssertOutboxCount:
		got, err := h.local.PendingCount(ctx)
		if err != nil {
			h.result.AddError("assertion %d: read outbox: %v", n, err)
			return
		}
		if got != a.Count {
			h.result.AddError("assertion %d: outbox has %d actions, want %d", n, got, a.Count)
		}

	case AssertLocalCount:
		entity, err := entityType(a.Entity)
		if err != nil {
			h.result.AddError("assertion %d: %v", n, err)
			return
		}
		counts, err := h.local.CountEntities(ctx)
		if err != nil {
			h.result.AddError("assertion %d: count entities: %v", n, err)
			return
		}
		if got := counts[entity]; got != a.Count {
			h.result.AddError("assertion %d: local %s has %d rows, want %d", n, a.Entity, got, a.Count)
		}

	case AssertRemoteCount:
		entity, err := entityType(a.Entity)
		if err != nil {
			h.result.AddError("assertion %d: %v", n, err)
			return
		}
		docs := h.remote.Documents(h.scenario.Group, entity)
		if len(docs) != a.Count {
			h.result.AddError("assertion %d: remote %s has %d docs, want %d", n, a.Entity, len(docs), a.Count)
		}

	case AssertRemoteDoc:
		entity, err := entityType(a.Entity)
		if err != nil {
			h.result.AddError("assertion %d: %v", n, err)
			return
		}
		id, err := h.resolveID(a.ID)
		if err != nil {
			h.result.AddError("assertion %d: %v", n, err)
			return
		}

		var fields map[string]interface{}
		for _, doc := range h.remote.Documents(h.scenario.Group, entity) {
			if doc.ID == id {
				if err := json.Unmarshal(doc.Data, &fields); err != nil {
					h.result.AddError("assertion %d: decode remote %s/%s: %v", n, a.Entity, id, err)
					return
				}
				break
			}
		}
		if fields == nil {
			h.result.AddError("assertion %d: remote %s/%s not found", n, a.Entity, id)
			return
		}

		for field, want := range a.Expect {
			if s, ok := want.(string); ok {
				want = h.resolveRefs(s)
			}
			got, ok := fields[field]
			if !ok {
				h.result.AddError("assertion %d: remote %s/%s missing field %q", n, a.Entity, id, field)
				continue
			}
			if !looseEqual(got, want) {
				h.result.AddError("assertion %d: remote %s/%s field %q = %v, want %v",
					n, a.Entity, id, field, got, want)
			}
		}

	case AssertCallOrder:
		// The remote store records every write attempt, including ones
		// that failed while unreachable.
		got := h.remote.Calls()
		want := make([]string, len(a.Calls))
		for i, call := range a.Calls {
			want[i] = h.resolveRefs(call)
		}
		if !reflect.DeepEqual(got, want) {
			h.result.AddError("assertion %d: call order %v, want %v", n, got, want)
		}
	}
}

// looseEqual compares a JSON-decoded value with a YAML-decoded one.
// Numbers arrive as float64 from JSON and as int from YAML.
func looseEqual(got, want interface{}) bool {
	if f, ok := got.(float64); ok {
		switch w := want.(type) {
		case int:
			return f == float64(w)
		case int64:
			return f == float64(w)
		case float64:
			return f == w
		}
	}
	return reflect.DeepEqual(got, want)
}

// resolveRefs substitutes "@N" id references inside a call pattern.
// Higher indexes go first so "@12" is not clipped by "@1".
func (h *Harness) resolveRefs(s string) string {
	for i := len(h.result.CreatedIDs); i >= 1; i-- {
		s = strings.ReplaceAll(s, fmt.Sprintf("@%d", i), h.result.CreatedIDs[i-1])
	}
	return s
}
