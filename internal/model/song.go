package model

import (
	"errors"
	"fmt"
)

// Mastery levels range from 0 (never played) to 10 (stage-ready).
const (
	MasteryMin = 0
	MasteryMax = 10
)

// WellMasteredThreshold is the average mastery at which the whole band
// considers a song ready.
const WellMasteredThreshold = 7.0

// ErrMasteryOutOfRange is returned when a mastery level falls outside [0,10].
var ErrMasteryOutOfRange = errors.New("mastery level out of range")

// Song is a repertoire entry. Each band member tracks an individual
// mastery level plus optional per-member instrument config and notes.
type Song struct {
	ID        string `json:"id"`
	GroupID   string `json:"groupId"`
	Title     string `json:"title"`
	Artist    string `json:"artist"`
	Duration  int    `json:"duration"` // seconds
	Structure string `json:"structure"`
	Key       string `json:"key,omitempty"`   // e.g. "Am", "G", "C#m"
	Tempo     int    `json:"tempo,omitempty"` // BPM
	Notes     string `json:"notes"`

	// MasteryLevels maps member user id to mastery level in [0,10].
	MasteryLevels map[string]int `json:"masteryLevels,omitempty"`

	AddedBy                   string `json:"addedBy"`
	AddedAt                   int64  `json:"addedAt"` // unix millis
	ConvertedFromSuggestionID string `json:"convertedFromSuggestionId,omitempty"`
	Link                      string `json:"link,omitempty"`

	// Per-member personal state, keyed by user id.
	MemberInstrumentConfigs map[string]string `json:"memberInstrumentConfigs,omitempty"`
	MemberPersonalNotes     map[string]string `json:"memberPersonalNotes,omitempty"`
}

// SongFromSuggestion builds a new Song from an accepted suggestion,
// carrying over title, artist, and link, and recording the origin.
func SongFromSuggestion(s Suggestion, addedBy string) Song {
	return Song{
		GroupID:                   s.GroupID,
		Title:                     s.Title,
		Artist:                    s.Artist,
		Link:                      s.Link,
		AddedBy:                   addedBy,
		ConvertedFromSuggestionID: s.ID,
	}
}

// MasteryLevel returns the member's recorded level, or 0 if unset.
func (s Song) MasteryLevel(userID string) int {
	return s.MasteryLevels[userID]
}

// WithMasteryLevel returns a copy with the member's level set.
// Levels outside [MasteryMin, MasteryMax] are rejected.
func (s Song) WithMasteryLevel(userID string, level int) (Song, error) {
	if level < MasteryMin || level > MasteryMax {
		return Song{}, fmt.Errorf("%w: %d not in [%d,%d]", ErrMasteryOutOfRange, level, MasteryMin, MasteryMax)
	}
	levels := make(map[string]int, len(s.MasteryLevels)+1)
	for k, v := range s.MasteryLevels {
		levels[k] = v
	}
	levels[userID] = level
	s.MasteryLevels = levels
	return s, nil
}

// WithMemberConfig returns a copy with the member's instrument config set.
func (s Song) WithMemberConfig(userID, config string) Song {
	configs := make(map[string]string, len(s.MemberInstrumentConfigs)+1)
	for k, v := range s.MemberInstrumentConfigs {
		configs[k] = v
	}
	configs[userID] = config
	s.MemberInstrumentConfigs = configs
	return s
}

// WithMemberNotes returns a copy with the member's personal notes set.
func (s Song) WithMemberNotes(userID, notes string) Song {
	personal := make(map[string]string, len(s.MemberPersonalNotes)+1)
	for k, v := range s.MemberPersonalNotes {
		personal[k] = v
	}
	personal[userID] = notes
	s.MemberPersonalNotes = personal
	return s
}

// AverageMastery returns the mean mastery level across members that have
// recorded one, or 0 when nobody has.
func (s Song) AverageMastery() float64 {
	if len(s.MasteryLevels) == 0 {
		return 0
	}
	var sum int
	for _, level := range s.MasteryLevels {
		sum += level
	}
	return float64(sum) / float64(len(s.MasteryLevels))
}

// WellMastered reports whether the band's average mastery meets the threshold.
func (s Song) WellMastered() bool {
	return s.AverageMastery() >= WellMasteredThreshold
}
