// Package localstore provides SQLite-backed durable storage for the
// offline-first cache and the pending-action outbox.
//
// One table per entity type (songs, suggestions, performances) mirrors
// the remote documents, keyed by entity id with a group_id column for
// bulk replace-by-group operations. A separate pending_actions table is
// the ordered outbox the sync worker drains.
//
// # Critical patterns
//
// Outbox ordering
//   - Drain order is created_at ASC, id ASC - strict insertion order.
//   - The queue is global, not partitioned per entity: a CREATE for an
//     entity is always visible to the worker before any later UPDATE for
//     the same entity.
//
// Bulk replace
//   - Reconciliation replaces a group's rows inside one transaction
//     (delete-by-group then insert), never a field-level merge.
//
// Reactive queries
//   - Watch methods emit the current rows immediately, then a fresh
//     snapshot after every mutation touching the watched group. Signals
//     coalesce; a slow consumer only ever sees the latest state.
//
// # Database configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON
package localstore
