// Package model defines the BandTrack domain entities and the mutation
// intents that flow through the sync layer.
//
// Entities (Song, Suggestion, Performance) are immutable value snapshots:
// every mutator returns a new copy, never modifies in place. The struct
// JSON tags define the remote document schema and MUST remain stable
// across client versions - other clients decode the same documents.
//
// All entities are scoped to exactly one group (the band). Cross-group
// references never occur.
package model
