package model

// PerformanceType distinguishes rehearsals from gigs.
type PerformanceType string

const (
	PerformanceRehearsal PerformanceType = "REHEARSAL"
	PerformanceGig       PerformanceType = "GIG"
	PerformanceOther     PerformanceType = "OTHER"
)

// DefaultPerformanceMinutes is the assumed duration when none is given.
const DefaultPerformanceMinutes = 120

// Performance is a scheduled rehearsal or gig with an ordered setlist of
// song ids.
type Performance struct {
	ID              string          `json:"id"`
	GroupID         string          `json:"groupId"`
	Type            PerformanceType `json:"type"`
	Date            int64           `json:"date"` // unix millis, event start
	DurationMinutes int             `json:"durationMinutes"`
	Location        string          `json:"location"`
	Title           string          `json:"title"`
	Notes           string          `json:"notes"`
	Setlist         []string        `json:"setlist,omitempty"` // song ids, in play order
	CreatedBy       string          `json:"createdBy"`
}

// WithSetlist returns a copy with the setlist replaced. The slice is
// copied so later caller mutation cannot leak into the snapshot.
func (p Performance) WithSetlist(songIDs []string) Performance {
	setlist := make([]string, len(songIDs))
	copy(setlist, songIDs)
	p.Setlist = setlist
	return p
}

// DisplayName returns the title, or a generic name derived from the type
// when no title was set.
func (p Performance) DisplayName() string {
	if p.Title != "" {
		return p.Title
	}
	switch p.Type {
	case PerformanceGig:
		return "Gig"
	case PerformanceOther:
		return "Event"
	default:
		return "Rehearsal"
	}
}
