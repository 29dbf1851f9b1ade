package localstore

import (
	"context"
	"sync"

	"github.com/ebrangerieau/bandtrack/internal/model"
)

// watchKey identifies the scope of a reactive query: one entity type
// within one group.
type watchKey struct {
	entity model.EntityType
	group  string
}

// notifier fans out change signals to group watchers.
//
// Each subscriber holds a buffered signal channel of size 1: multiple
// notifications while the watcher is busy coalesce into a single re-query,
// so the watcher always reads the latest state and never falls behind.
type notifier struct {
	mu     sync.Mutex
	subs   map[watchKey]map[chan struct{}]struct{}
	closed bool
}

func newNotifier() *notifier {
	return &notifier{subs: make(map[watchKey]map[chan struct{}]struct{})}
}

// subscribe registers a signal channel for the key and returns it together
// with an unsubscribe func. Returns ok=false if the notifier is closed.
func (n *notifier) subscribe(key watchKey) (signal chan struct{}, cancel func(), ok bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return nil, nil, false
	}

	signal = make(chan struct{}, 1)
	if n.subs[key] == nil {
		n.subs[key] = make(map[chan struct{}]struct{})
	}
	n.subs[key][signal] = struct{}{}

	cancel = func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if set, exists := n.subs[key]; exists {
			delete(set, signal)
			if len(set) == 0 {
				delete(n.subs, key)
			}
		}
	}
	return signal, cancel, true
}

// notify signals every watcher of the (entity, group) scope.
// Non-blocking: a full signal buffer means a re-query is already pending.
func (n *notifier) notify(entity model.EntityType, groupID string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return
	}
	for signal := range n.subs[watchKey{entity: entity, group: groupID}] {
		select {
		case signal <- struct{}{}:
		default:
		}
	}
}

// close wakes and detaches all watchers. Subsequent subscribes fail.
func (n *notifier) close() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return
	}
	n.closed = true
	for _, set := range n.subs {
		for signal := range set {
			close(signal)
		}
	}
	n.subs = nil
}

// watchGroup runs the reactive query loop shared by the typed Watch
// methods. It emits the current snapshot immediately, then a fresh one
// after every change signal. The returned channel has capacity 1 with
// latest-wins delivery and closes when ctx is cancelled or the store
// closes.
func watchGroup[T any](
	ctx context.Context,
	s *Store,
	entity model.EntityType,
	groupID string,
	list func(context.Context, string) ([]T, error),
) (<-chan []T, error) {
	// Subscribe before the initial query so a mutation landing in between
	// leaves a signal behind instead of being missed.
	signal, cancel, ok := s.notifier.subscribe(watchKey{entity: entity, group: groupID})
	if !ok {
		return nil, ErrClosed
	}

	initial, err := list(ctx, groupID)
	if err != nil {
		cancel()
		return nil, err
	}

	out := make(chan []T, 1)
	out <- initial

	go func() {
		defer close(out)
		defer cancel()

		for {
			select {
			case <-ctx.Done():
				return
			case _, open := <-signal:
				if !open {
					return
				}
				snapshot, err := list(ctx, groupID)
				if err != nil {
					// The store is closing or the context died mid-query;
					// either way the watch is over.
					return
				}
				sendLatest(out, snapshot)
			}
		}
	}()

	return out, nil
}

// sendLatest delivers a snapshot with latest-wins semantics: if the
// consumer has not drained the previous snapshot, it is replaced.
// Safe because this goroutine is the only sender.
func sendLatest[T any](out chan []T, snapshot []T) {
	for {
		select {
		case out <- snapshot:
			return
		default:
			select {
			case <-out:
			default:
			}
		}
	}
}
