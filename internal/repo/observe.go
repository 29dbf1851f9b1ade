package repo

import (
	"context"
	"sort"
	"sync"

	"github.com/ebrangerieau/bandtrack/internal/remote"
)

// snapshotSink bridges snapshot callbacks to a receive channel with
// latest-wins delivery: a consumer that falls behind only ever misses
// intermediate states, never the newest one.
type snapshotSink[T any] struct {
	mu     sync.Mutex
	ch     chan []T
	closed bool
}

func newSnapshotSink[T any]() *snapshotSink[T] {
	return &snapshotSink[T]{ch: make(chan []T, 1)}
}

func (s *snapshotSink[T]) send(snapshot []T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for {
		select {
		case s.ch <- snapshot:
			return
		default:
			select {
			case <-s.ch:
			default:
			}
		}
	}
}

func (s *snapshotSink[T]) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

// observeRemote implements the pure-remote observe path: decode every
// snapshot, apply the entity-specific ordering, and emit until ctx is
// cancelled. Teardown cancels the remote subscription.
func observeRemote[T any](
	ctx context.Context,
	cfg Config,
	coll remote.Collection,
	op string,
	decode func([]byte) (T, error),
	less func(a, b T) bool,
) (<-chan []T, error) {
	sink := newSnapshotSink[T]()

	sub, err := coll.Snapshots(ctx, func(docs []remote.Document) {
		items := make([]T, 0, len(docs))
		for _, doc := range docs {
			item, err := decode(doc.Data)
			if err != nil {
				// A malformed document must not take down the stream.
				cfg.Logger.Warn("skipping undecodable remote document",
					"op", op, "doc", doc.ID, "error", err)
				continue
			}
			items = append(items, item)
		}
		sort.Slice(items, func(i, j int) bool { return less(items[i], items[j]) })
		sink.send(items)
	})
	if err != nil {
		return nil, remoteErr(op, err)
	}

	go func() {
		<-ctx.Done()
		sub.Cancel()
		sink.close()
	}()

	return sink.ch, nil
}

// reconcile starts the remote-to-local reconciler for a local-first
// observe: every remote snapshot triggers a full bulk replace of the
// group's local rows. The replace runs detached from the listener
// callback so a slow local write never stalls delivery of the next
// snapshot. Returns a teardown func.
//
// A subscribe failure (e.g. remote unreachable) is logged, not
// surfaced: local-first reads stay available offline, and the next
// Observe call retries the subscription.
func reconcile[T any](
	ctx context.Context,
	cfg Config,
	coll remote.Collection,
	op string,
	decode func([]byte) (T, error),
	replace func(context.Context, []T) error,
) func() {
	sub, err := coll.Snapshots(ctx, func(docs []remote.Document) {
		items := make([]T, 0, len(docs))
		for _, doc := range docs {
			item, err := decode(doc.Data)
			if err != nil {
				cfg.Logger.Warn("skipping undecodable remote document",
					"op", op, "doc", doc.ID, "error", err)
				continue
			}
			items = append(items, item)
		}

		// Fire-and-forget: the listener must not block on local I/O.
		go func() {
			if err := replace(context.WithoutCancel(ctx), items); err != nil {
				cfg.Logger.Warn("reconcile bulk replace failed",
					"op", op, "error", err)
			}
		}()
	})
	if err != nil {
		cfg.Logger.Warn("remote subscription unavailable; observing local cache only",
			"op", op, "error", err)
		return func() {}
	}

	return sub.Cancel
}
