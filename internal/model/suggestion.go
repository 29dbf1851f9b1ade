package model

// SuggestionStatus tracks the lifecycle of a proposed song.
type SuggestionStatus string

const (
	SuggestionPending  SuggestionStatus = "PENDING"
	SuggestionAccepted SuggestionStatus = "ACCEPTED"
	SuggestionRejected SuggestionStatus = "REJECTED"
)

// Suggestion is a proposed song the band members vote on.
type Suggestion struct {
	ID            string `json:"id"`
	GroupID       string `json:"groupId"`
	Title         string `json:"title"`
	Artist        string `json:"artist"`
	Link          string `json:"link,omitempty"`
	CreatedBy     string `json:"createdBy"`
	CreatedByName string `json:"createdByName"`
	CreatedAt     int64  `json:"createdAt"` // unix millis

	// Votes maps user id to true for members that voted. Removing a vote
	// deletes the key rather than storing false.
	Votes     map[string]bool  `json:"votes,omitempty"`
	VoteCount int              `json:"voteCount"`
	Status    SuggestionStatus `json:"status"`

	ConvertedToSongID string `json:"convertedToSongId,omitempty"`
}

// HasVoted reports whether the member currently has a vote on this suggestion.
func (s Suggestion) HasVoted(userID string) bool {
	return s.Votes[userID]
}

// WithVoteToggled returns a copy with the member's vote added or removed,
// keeping VoteCount consistent with the vote map.
func (s Suggestion) WithVoteToggled(userID string) Suggestion {
	votes := make(map[string]bool, len(s.Votes)+1)
	for k, v := range s.Votes {
		votes[k] = v
	}
	if votes[userID] {
		delete(votes, userID)
		s.VoteCount--
	} else {
		votes[userID] = true
		s.VoteCount++
	}
	s.Votes = votes
	return s
}

// WithStatus returns a copy with the status updated. The converted song
// id is only meaningful for SuggestionAccepted and may be empty otherwise.
func (s Suggestion) WithStatus(status SuggestionStatus, convertedToSongID string) Suggestion {
	s.Status = status
	s.ConvertedToSongID = convertedToSongID
	return s
}
