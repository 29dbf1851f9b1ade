package model

// Typed partial updates for the pure-remote fallback path. Each struct
// names only the fields that may be patched for its entity type; nil
// pointers mean "leave untouched". Unknown fields cannot be expressed,
// so a typo fails at compile time instead of silently writing a stray
// key into the remote document.

// SongUpdate describes a partial edit of a song's shared fields.
type SongUpdate struct {
	Title     *string
	Artist    *string
	Duration  *int
	Structure *string
	Key       *string
	Tempo     *int
	Notes     *string
	Link      *string
}

// Apply returns a copy of the song with the set fields replaced.
func (u SongUpdate) Apply(s Song) Song {
	if u.Title != nil {
		s.Title = *u.Title
	}
	if u.Artist != nil {
		s.Artist = *u.Artist
	}
	if u.Duration != nil {
		s.Duration = *u.Duration
	}
	if u.Structure != nil {
		s.Structure = *u.Structure
	}
	if u.Key != nil {
		s.Key = *u.Key
	}
	if u.Tempo != nil {
		s.Tempo = *u.Tempo
	}
	if u.Notes != nil {
		s.Notes = *u.Notes
	}
	if u.Link != nil {
		s.Link = *u.Link
	}
	return s
}

// Fields returns the remote field map for the set fields, keyed by the
// wire schema names.
func (u SongUpdate) Fields() map[string]any {
	fields := make(map[string]any)
	if u.Title != nil {
		fields["title"] = *u.Title
	}
	if u.Artist != nil {
		fields["artist"] = *u.Artist
	}
	if u.Duration != nil {
		fields["duration"] = *u.Duration
	}
	if u.Structure != nil {
		fields["structure"] = *u.Structure
	}
	if u.Key != nil {
		fields["key"] = *u.Key
	}
	if u.Tempo != nil {
		fields["tempo"] = *u.Tempo
	}
	if u.Notes != nil {
		fields["notes"] = *u.Notes
	}
	if u.Link != nil {
		fields["link"] = *u.Link
	}
	return fields
}

// PerformanceUpdate describes a partial edit of a performance.
type PerformanceUpdate struct {
	Title           *string
	Location        *string
	Notes           *string
	Date            *int64
	DurationMinutes *int
}

// Apply returns a copy of the performance with the set fields replaced.
func (u PerformanceUpdate) Apply(p Performance) Performance {
	if u.Title != nil {
		p.Title = *u.Title
	}
	if u.Location != nil {
		p.Location = *u.Location
	}
	if u.Notes != nil {
		p.Notes = *u.Notes
	}
	if u.Date != nil {
		p.Date = *u.Date
	}
	if u.DurationMinutes != nil {
		p.DurationMinutes = *u.DurationMinutes
	}
	return p
}

// Fields returns the remote field map for the set fields.
func (u PerformanceUpdate) Fields() map[string]any {
	fields := make(map[string]any)
	if u.Title != nil {
		fields["title"] = *u.Title
	}
	if u.Location != nil {
		fields["location"] = *u.Location
	}
	if u.Notes != nil {
		fields["notes"] = *u.Notes
	}
	if u.Date != nil {
		fields["date"] = *u.Date
	}
	if u.DurationMinutes != nil {
		fields["durationMinutes"] = *u.DurationMinutes
	}
	return fields
}
