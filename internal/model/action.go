package model

// EntityType identifies which entity table and remote sub-collection a
// record or pending action refers to.
type EntityType string

const (
	EntitySong        EntityType = "SONG"
	EntitySuggestion  EntityType = "SUGGESTION"
	EntityPerformance EntityType = "PERFORMANCE"
)

// Collection returns the remote sub-collection name for the entity type.
// These names are part of the wire contract shared with other clients.
func (t EntityType) Collection() string {
	switch t {
	case EntitySong:
		return "songs"
	case EntitySuggestion:
		return "suggestions"
	case EntityPerformance:
		return "performances"
	default:
		return ""
	}
}

// Valid reports whether t is one of the known entity types.
func (t EntityType) Valid() bool {
	return t == EntitySong || t == EntitySuggestion || t == EntityPerformance
}

// ActionType identifies the kind of mutation a pending action replays.
type ActionType string

const (
	ActionCreate ActionType = "CREATE"
	ActionUpdate ActionType = "UPDATE"
	ActionDelete ActionType = "DELETE"
)

// Valid reports whether t is one of the known action types.
func (t ActionType) Valid() bool {
	return t == ActionCreate || t == ActionUpdate || t == ActionDelete
}

// NeedsPayload reports whether the action carries a serialized entity
// snapshot. DELETE only needs the entity id.
func (t ActionType) NeedsPayload() bool {
	return t == ActionCreate || t == ActionUpdate
}
