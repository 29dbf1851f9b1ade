// Package harness provides a YAML-driven conformance harness for the
// sync layer. A scenario scripts repository mutations, network state
// changes, and outbox drains against a real SQLite cache and the
// in-memory remote store, then asserts on the final local, remote, and
// outbox state. Golden files capture the full remote document state for
// end-to-end scenarios.
package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines one conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Group is the band group id the scenario operates in.
	Group string `yaml:"group"`

	// User is the default acting user id for steps that do not set one.
	User string `yaml:"user"`

	// Steps is the scripted flow, executed in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final local, remote, and outbox state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one scripted operation.
//
// Supported actions:
//   - create_song, create_suggestion, create_performance: repository
//     creates; args carry the entity fields. The minted id is recorded
//     and later steps reference it positionally as "@1", "@2", ...
//   - update_mastery (id, level), update_setlist (id, songs),
//     toggle_vote (id), accept_suggestion (id, song_id),
//     delete_song (id): composite repository operations.
//   - network_offline, network_online: flip remote reachability.
//   - drain: run the sync worker once.
type Step struct {
	Do   string                 `yaml:"do"`
	User string                 `yaml:"user,omitempty"`
	ID   string                 `yaml:"id,omitempty"`
	Args map[string]interface{} `yaml:"args,omitempty"`

	// ExpectError names the error class the step must fail with:
	// "validation" or "not_found". Empty means the step must succeed.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Assertion validates final state.
type Assertion struct {
	// Type is one of outbox_count, local_count, remote_count,
	// remote_doc, call_order.
	Type string `yaml:"type"`

	// Entity selects the collection: songs, suggestions, performances.
	Entity string `yaml:"entity,omitempty"`

	// ID selects a document for remote_doc; "@N" references the Nth
	// created entity.
	ID string `yaml:"id,omitempty"`

	// Expect holds expected field values for remote_doc, subset match.
	Expect map[string]interface{} `yaml:"expect,omitempty"`

	// Count is the expected number for the *_count assertions.
	Count int `yaml:"count,omitempty"`

	// Calls is the expected remote write sequence for call_order.
	Calls []string `yaml:"calls,omitempty"`
}

// Assertion type constants.
const (
	AssertOutboxCount = "outbox_count"
	AssertLocalCount  = "local_count"
	AssertRemoteCount = "remote_count"
	AssertRemoteDoc   = "remote_doc"
	AssertCallOrder   = "call_order"
)

// LoadScenario reads and validates a scenario YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return &s, nil
}

// LoadScenarios loads every *.yaml scenario in a directory, sorted by
// file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}

	scenarios := make([]*Scenario, 0, len(paths))
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// Validate checks scenario structure before execution.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("scenario name is required")
	}
	if s.Group == "" {
		return fmt.Errorf("scenario group is required")
	}
	if s.User == "" {
		return fmt.Errorf("scenario user is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("scenario needs at least one step")
	}
	for i, step := range s.Steps {
		if step.Do == "" {
			return fmt.Errorf("step %d: missing do", i+1)
		}
	}
	for i, a := range s.Assertions {
		switch a.Type {
		case AssertOutboxCount, AssertLocalCount, AssertRemoteCount, AssertRemoteDoc, AssertCallOrder:
		default:
			return fmt.Errorf("assertion %d: unknown type %q", i+1, a.Type)
		}
	}
	return nil
}
