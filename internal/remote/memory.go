package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/ebrangerieau/bandtrack/internal/model"
)

// collKey addresses one group's sub-collection for one entity type.
type collKey struct {
	group  string
	entity model.EntityType
}

// Memory is an in-process Store implementation. It backs the demo daemon
// and doubles as the test collaborator for the sync layer: every write
// attempt is recorded in order, and faults can be injected per document
// or store-wide.
type Memory struct {
	mu          sync.Mutex
	collections map[collKey]map[string][]byte
	subs        map[collKey]map[*memorySub]struct{}
	calls       []string
	failures    map[string]error // doc id -> error for write ops
	unreachable bool
}

// NewMemory creates an empty in-memory document store.
func NewMemory() *Memory {
	return &Memory{
		collections: make(map[collKey]map[string][]byte),
		subs:        make(map[collKey]map[*memorySub]struct{}),
		failures:    make(map[string]error),
	}
}

// SetUnreachable toggles store-wide failure: every operation returns
// ErrUnreachable while set. Simulates network loss.
func (m *Memory) SetUnreachable(down bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unreachable = down
}

// InjectError makes every write op targeting the document id fail with
// err until ClearError is called. Simulates per-document permission or
// conflict failures.
func (m *Memory) InjectError(id string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[id] = err
}

// ClearError removes an injected per-document failure.
func (m *Memory) ClearError(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.failures, id)
}

// Calls returns every write attempt in arrival order, formatted as
// "op groups/<group>/<collection>/<id>". Used by ordering assertions.
func (m *Memory) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	calls := make([]string, len(m.calls))
	copy(calls, m.calls)
	return calls
}

// Collection returns the sub-collection handle for a group and entity
// type. Handles are cheap and may be created per call.
func (m *Memory) Collection(groupID string, entity model.EntityType) Collection {
	return &memoryCollection{store: m, key: collKey{group: groupID, entity: entity}}
}

// Documents returns the current sorted contents of one collection,
// ignoring reachability. Inspection aid for tests and the harness.
func (m *Memory) Documents(groupID string, entity model.EntityType) []Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked(collKey{group: groupID, entity: entity})
}

// snapshotLocked builds the sorted full-collection snapshot.
// Caller must hold m.mu.
func (m *Memory) snapshotLocked(key collKey) []Document {
	docs := m.collections[key]
	snapshot := make([]Document, 0, len(docs))
	for id, data := range docs {
		copied := make([]byte, len(data))
		copy(copied, data)
		snapshot = append(snapshot, Document{ID: id, Data: copied})
	}
	sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].ID < snapshot[j].ID })
	return snapshot
}

// notify delivers the current snapshot to every listener of the
// collection. Callbacks run outside the store lock.
func (m *Memory) notify(key collKey) {
	m.mu.Lock()
	snapshot := m.snapshotLocked(key)
	listeners := make([]*memorySub, 0, len(m.subs[key]))
	for sub := range m.subs[key] {
		listeners = append(listeners, sub)
	}
	m.mu.Unlock()

	for _, sub := range listeners {
		sub.deliver(snapshot)
	}
}

type memoryCollection struct {
	store *Memory
	key   collKey
}

// record appends a call-log entry. Caller must hold store.mu.
func (c *memoryCollection) record(op, id string) {
	c.store.calls = append(c.store.calls,
		fmt.Sprintf("%s groups/%s/%s/%s", op, c.key.group, c.key.entity.Collection(), id))
}

// checkWrite validates reachability and injected faults for a write op.
// Caller must hold store.mu.
func (c *memoryCollection) checkWrite(op, id string) error {
	c.record(op, id)
	if c.store.unreachable {
		return ErrUnreachable
	}
	if err := c.store.failures[id]; err != nil {
		return err
	}
	return nil
}

func (c *memoryCollection) Set(ctx context.Context, id string, doc []byte) error {
	c.store.mu.Lock()
	if err := c.checkWrite("set", id); err != nil {
		c.store.mu.Unlock()
		return err
	}
	if c.store.collections[c.key] == nil {
		c.store.collections[c.key] = make(map[string][]byte)
	}
	copied := make([]byte, len(doc))
	copy(copied, doc)
	c.store.collections[c.key][id] = copied
	c.store.mu.Unlock()

	c.store.notify(c.key)
	return nil
}

func (c *memoryCollection) Update(ctx context.Context, id string, fields map[string]any) error {
	c.store.mu.Lock()
	if err := c.checkWrite("update", id); err != nil {
		c.store.mu.Unlock()
		return err
	}
	existing, ok := c.store.collections[c.key][id]
	if !ok {
		c.store.mu.Unlock()
		return fmt.Errorf("update %q: %w", id, ErrDocumentNotFound)
	}

	var doc map[string]any
	if err := json.Unmarshal(existing, &doc); err != nil {
		c.store.mu.Unlock()
		return fmt.Errorf("update %q: decode: %w", id, err)
	}
	for field, value := range fields {
		doc[field] = value
	}
	merged, err := json.Marshal(doc)
	if err != nil {
		c.store.mu.Unlock()
		return fmt.Errorf("update %q: encode: %w", id, err)
	}
	c.store.collections[c.key][id] = merged
	c.store.mu.Unlock()

	c.store.notify(c.key)
	return nil
}

func (c *memoryCollection) Delete(ctx context.Context, id string) error {
	c.store.mu.Lock()
	if err := c.checkWrite("delete", id); err != nil {
		c.store.mu.Unlock()
		return err
	}
	// Delete-if-exists: removing a missing id succeeds.
	delete(c.store.collections[c.key], id)
	c.store.mu.Unlock()

	c.store.notify(c.key)
	return nil
}

func (c *memoryCollection) Get(ctx context.Context, id string) ([]byte, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	if c.store.unreachable {
		return nil, ErrUnreachable
	}
	doc, ok := c.store.collections[c.key][id]
	if !ok {
		return nil, fmt.Errorf("get %q: %w", id, ErrDocumentNotFound)
	}
	copied := make([]byte, len(doc))
	copy(copied, doc)
	return copied, nil
}

func (c *memoryCollection) Snapshots(ctx context.Context, fn func([]Document)) (Subscription, error) {
	c.store.mu.Lock()
	if c.store.unreachable {
		c.store.mu.Unlock()
		return nil, ErrUnreachable
	}

	sub := &memorySub{store: c.store, key: c.key, fn: fn}
	if c.store.subs[c.key] == nil {
		c.store.subs[c.key] = make(map[*memorySub]struct{})
	}
	c.store.subs[c.key][sub] = struct{}{}
	initial := c.store.snapshotLocked(c.key)
	c.store.mu.Unlock()

	// Listeners receive the current state immediately on registration.
	sub.deliver(initial)
	return sub, nil
}

func (c *memoryCollection) RunTransaction(ctx context.Context, fn func(Tx) error) error {
	c.store.mu.Lock()
	if c.store.unreachable {
		c.store.mu.Unlock()
		return ErrUnreachable
	}

	tx := &memoryTx{coll: c, staged: make(map[string][]byte)}
	if err := fn(tx); err != nil {
		c.store.mu.Unlock()
		return err
	}

	for id, doc := range tx.staged {
		if err := c.checkWrite("txn-set", id); err != nil {
			c.store.mu.Unlock()
			return err
		}
		if c.store.collections[c.key] == nil {
			c.store.collections[c.key] = make(map[string][]byte)
		}
		c.store.collections[c.key][id] = doc
	}
	c.store.mu.Unlock()

	if len(tx.staged) > 0 {
		c.store.notify(c.key)
	}
	return nil
}

// memoryTx stages writes until the transaction func succeeds.
// Runs entirely under the store lock, so reads are consistent.
type memoryTx struct {
	coll   *memoryCollection
	staged map[string][]byte
}

func (tx *memoryTx) Get(id string) ([]byte, error) {
	if doc, ok := tx.staged[id]; ok {
		return doc, nil
	}
	doc, ok := tx.coll.store.collections[tx.coll.key][id]
	if !ok {
		return nil, fmt.Errorf("txn get %q: %w", id, ErrDocumentNotFound)
	}
	return doc, nil
}

func (tx *memoryTx) Set(id string, doc []byte) {
	copied := make([]byte, len(doc))
	copy(copied, doc)
	tx.staged[id] = copied
}

// memorySub is a registered snapshot listener. deliver serializes
// callbacks so snapshots arrive in commit order.
type memorySub struct {
	store *Memory
	key   collKey
	fn    func([]Document)

	mu        sync.Mutex
	cancelled bool
}

func (s *memorySub) deliver(snapshot []Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelled {
		return
	}
	s.fn(snapshot)
}

func (s *memorySub) Cancel() {
	s.mu.Lock()
	s.cancelled = true
	s.mu.Unlock()

	s.store.mu.Lock()
	if set, ok := s.store.subs[s.key]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(s.store.subs, s.key)
		}
	}
	s.store.mu.Unlock()
}
