package models

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/snesjhon/playlist-gen/internal/shared"
)

// Candidate is raw generator output. Fields are unvalidated and may be empty.
type Candidate struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Reason string `json:"reason"`
}

// Ref returns the (title, artist) identity of the candidate.
func (c Candidate) Ref() SongRef {
	return SongRef{Title: c.Title, Artist: c.Artist}
}

// CatalogMatch is a resolved catalog entry.
type CatalogMatch struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Artist     string  `json:"artist"`
	Album      string  `json:"album"`
	ArtworkURL string  `json:"artworkUrl"`
	PreviewURL string  `json:"previewUrl,omitempty"` // empty when the catalog has no preview
	Confidence float64 `json:"confidence"`           // similarity of the match to the query, display only
}

// SongRef identifies a song by title and artist.
type SongRef struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

// Key returns the normalized lookup key for the reference.
func (r SongRef) Key() string {
	return shared.NormalizeTrackKey(r.Title, r.Artist)
}

func (r SongRef) String() string {
	return fmt.Sprintf("%q by %s", r.Title, r.Artist)
}

// Status is the curation state of a [Song].
type Status string

const (
	StatusPending Status = "pending"
	StatusKept    Status = "kept"
	StatusRemoved Status = "removed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusKept, StatusRemoved:
		return true
	}
	return false
}

// Song pairs a candidate with its catalog match and the user's curation.
//
// KeepReasons is only meaningful while Status is [StatusKept] and RemoveReasons
// only while Status is [StatusRemoved].
type Song struct {
	Candidate     Candidate
	Match         *CatalogMatch
	Status        Status
	KeepReasons   []KeepReason
	RemoveReasons []RemoveReason
}

// NewSong returns a pending song with no reasons.
func NewSong(c Candidate, m *CatalogMatch) Song {
	return Song{Candidate: c, Match: m, Status: StatusPending}
}

// Matched reports whether the song has a playable catalog identity.
func (s Song) Matched() bool {
	return s.Match != nil && s.Match.ID != ""
}

// Ref returns the candidate identity of the song.
func (s Song) Ref() SongRef {
	return s.Candidate.Ref()
}

// Title prefers the catalog title and falls back to the candidate's.
func (s Song) Title() string {
	if s.Match != nil && s.Match.Title != "" {
		return s.Match.Title
	}
	return s.Candidate.Title
}

// Artist prefers the catalog artist and falls back to the candidate's.
func (s Song) Artist() string {
	if s.Match != nil && s.Match.Artist != "" {
		return s.Match.Artist
	}
	return s.Candidate.Artist
}

// Album returns the catalog album or an empty string.
func (s Song) Album() string {
	if s.Match == nil {
		return ""
	}
	return s.Match.Album
}

// ToggleKeep moves a pending or removed song to kept, or a kept song back to pending.
//
// Leaving kept clears the keep reasons; leaving removed clears the remove
// reasons. A song without a match can never become kept.
func (s Song) ToggleKeep() (Song, error) {
	if s.Status == StatusKept {
		s.Status = StatusPending
		s.KeepReasons = nil
		return s, nil
	}
	if !s.Matched() {
		return s, fmt.Errorf("%w: %s has no catalog match", shared.ErrInvalidTransition, s.Ref())
	}
	s.Status = StatusKept
	s.RemoveReasons = nil
	return s, nil
}

// ToggleRemove moves a pending or kept song to removed, or a removed song back to pending.
func (s Song) ToggleRemove() Song {
	if s.Status == StatusRemoved {
		s.Status = StatusPending
		s.RemoveReasons = nil
		return s
	}
	s.Status = StatusRemoved
	s.KeepReasons = nil
	return s
}

// ToggleKeepReason adds r to, or drops it from, a kept song's reasons.
func (s Song) ToggleKeepReason(r KeepReason) (Song, error) {
	if !r.Valid() {
		return s, fmt.Errorf("%w: unknown keep reason %q", shared.ErrInvalidArgument, r)
	}
	if s.Status != StatusKept {
		return s, fmt.Errorf("%w: keep reasons require a kept song", shared.ErrInvalidTransition)
	}
	s.KeepReasons = toggle(s.KeepReasons, r)
	return s, nil
}

// ToggleRemoveReason adds r to, or drops it from, a removed song's reasons.
func (s Song) ToggleRemoveReason(r RemoveReason) (Song, error) {
	if !r.Valid() {
		return s, fmt.Errorf("%w: unknown remove reason %q", shared.ErrInvalidArgument, r)
	}
	if s.Status != StatusRemoved {
		return s, fmt.Errorf("%w: remove reasons require a removed song", shared.ErrInvalidTransition)
	}
	s.RemoveReasons = toggle(s.RemoveReasons, r)
	return s, nil
}

// Feedback snapshots the song's identity and the reasons matching its status.
func (s Song) Feedback() FeedbackEntry {
	entry := FeedbackEntry{Title: s.Candidate.Title, Artist: s.Candidate.Artist}
	switch s.Status {
	case StatusKept:
		for _, r := range s.KeepReasons {
			entry.Reasons = append(entry.Reasons, string(r))
		}
	case StatusRemoved:
		for _, r := range s.RemoveReasons {
			entry.Reasons = append(entry.Reasons, string(r))
		}
	}
	return entry
}

// toggle returns a copy of list with r removed if present, otherwise appended.
// The input slice is never modified.
func toggle[T comparable](list []T, r T) []T {
	if i := slices.Index(list, r); i >= 0 {
		out := slices.Delete(slices.Clone(list), i, i+1)
		if len(out) == 0 {
			return nil
		}
		return out
	}
	out := make([]T, 0, len(list)+1)
	out = append(out, list...)
	return append(out, r)
}

// FeedbackEntry is an immutable record of a kept or removed song and its tags.
type FeedbackEntry struct {
	Title   string   `json:"title"`
	Artist  string   `json:"artist"`
	Reasons []string `json:"reasons"`
}

// Ref returns the identity of the entry.
func (f FeedbackEntry) Ref() SongRef {
	return SongRef{Title: f.Title, Artist: f.Artist}
}

// ArtworkURL fills the catalog's "{w}x{h}" artwork template with a square size.
func ArtworkURL(template string, size int) string {
	if size <= 0 {
		size = 80
	}
	px := strconv.Itoa(size)
	return strings.NewReplacer("{w}", px, "{h}", px).Replace(template)
}
