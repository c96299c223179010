package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/snesjhon/playlist-gen/internal/shared"
)

// SessionSong is a [Song] without its derived catalog match.
type SessionSong struct {
	Candidate     Candidate      `json:"candidate"`
	Status        Status         `json:"status"`
	KeepReasons   []KeepReason   `json:"keepReasons"`
	RemoveReasons []RemoveReason `json:"removeReasons"`
}

// NewSessionSong drops the match from s.
func NewSessionSong(s Song) SessionSong {
	return SessionSong{
		Candidate:     s.Candidate,
		Status:        s.Status,
		KeepReasons:   cloneOrNil(s.KeepReasons),
		RemoveReasons: cloneOrNil(s.RemoveReasons),
	}
}

// Restore reattaches a freshly derived match to the persisted annotations.
func (s SessionSong) Restore(m *CatalogMatch) Song {
	return Song{
		Candidate:     s.Candidate,
		Match:         m,
		Status:        s.Status,
		KeepReasons:   cloneOrNil(s.KeepReasons),
		RemoveReasons: cloneOrNil(s.RemoveReasons),
	}
}

// SessionSnapshot is the durable replica of one prompt's review state.
type SessionSnapshot struct {
	Prompt      string          `json:"prompt"`
	Suggestions []SessionSong   `json:"suggestions"`
	SavedSongs  []SessionSong   `json:"savedSongs"`
	AllRemoved  []FeedbackEntry `json:"allRemoved"`
	UpdatedAt   int64           `json:"updatedAt"` // unix milliseconds
}

// NewSnapshot captures the persistable part of a review state at now.
func NewSnapshot(prompt string, suggestions, saved []Song, allRemoved []FeedbackEntry, now time.Time) SessionSnapshot {
	snap := SessionSnapshot{
		Prompt:      prompt,
		Suggestions: make([]SessionSong, 0, len(suggestions)),
		SavedSongs:  make([]SessionSong, 0, len(saved)),
		AllRemoved:  append([]FeedbackEntry{}, allRemoved...),
		UpdatedAt:   now.UnixMilli(),
	}
	for _, s := range suggestions {
		snap.Suggestions = append(snap.Suggestions, NewSessionSong(s))
	}
	for _, s := range saved {
		snap.SavedSongs = append(snap.SavedSongs, NewSessionSong(s))
	}
	return snap
}

// Validate checks the snapshot's shape. Failures wrap [shared.ErrSessionCorrupt].
func (s SessionSnapshot) Validate() error {
	if s.Prompt == "" {
		return fmt.Errorf("%w: missing prompt", shared.ErrSessionCorrupt)
	}
	if s.Suggestions == nil {
		return fmt.Errorf("%w: missing suggestions", shared.ErrSessionCorrupt)
	}

	check := func(kind string, songs []SessionSong) error {
		for i, song := range songs {
			if !song.Status.Valid() {
				return fmt.Errorf("%w: %s[%d] has unknown status %q", shared.ErrSessionCorrupt, kind, i, song.Status)
			}
			for _, r := range song.KeepReasons {
				if !r.Valid() {
					return fmt.Errorf("%w: %s[%d] has unknown keep reason %q", shared.ErrSessionCorrupt, kind, i, r)
				}
			}
			for _, r := range song.RemoveReasons {
				if !r.Valid() {
					return fmt.Errorf("%w: %s[%d] has unknown remove reason %q", shared.ErrSessionCorrupt, kind, i, r)
				}
			}
		}
		return nil
	}

	if err := check("suggestions", s.Suggestions); err != nil {
		return err
	}
	return check("savedSongs", s.SavedSongs)
}

// Time returns UpdatedAt as a [time.Time].
func (s SessionSnapshot) Time() time.Time {
	return time.UnixMilli(s.UpdatedAt)
}

// MarshalSnapshot encodes a snapshot as JSON.
func MarshalSnapshot(s SessionSnapshot) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session snapshot: %w", err)
	}
	return data, nil
}

// ParseSnapshot decodes and validates a persisted snapshot.
func ParseSnapshot(data []byte) (*SessionSnapshot, error) {
	var snap SessionSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrSessionCorrupt, err)
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return &snap, nil
}

func cloneOrNil[T any](in []T) []T {
	if len(in) == 0 {
		return nil
	}
	return append([]T(nil), in...)
}
