package models

import (
	"fmt"

	"github.com/snesjhon/playlist-gen/internal/shared"
)

// KeepReason tags why a user kept a song.
type KeepReason string

const (
	KeepPerfectMood   KeepReason = "perfect-mood"
	KeepLoveGenre     KeepReason = "love-genre"
	KeepGreatTempo    KeepReason = "great-tempo"
	KeepLoveArtist    KeepReason = "love-artist"
	KeepGoodDiscovery KeepReason = "good-discovery"
	KeepNostalgic     KeepReason = "nostalgic"
)

// RemoveReason tags why a user removed a song.
type RemoveReason string

const (
	RemoveWrongMood     RemoveReason = "wrong-mood"
	RemoveWrongGenre    RemoveReason = "wrong-genre"
	RemoveWrongEra      RemoveReason = "wrong-era"
	RemoveTooPopular    RemoveReason = "too-popular"
	RemoveTooObscure    RemoveReason = "too-obscure"
	RemoveDislikeArtist RemoveReason = "dislike-artist"
	RemoveTooFast       RemoveReason = "too-fast"
	RemoveTooSlow       RemoveReason = "too-slow"
	RemoveTooIntense    RemoveReason = "too-intense"
	RemoveTooSoft       RemoveReason = "too-soft"
)

// KeepReasons lists every keep reason in display order.
var KeepReasons = []KeepReason{
	KeepPerfectMood, KeepLoveGenre, KeepGreatTempo, KeepLoveArtist, KeepGoodDiscovery, KeepNostalgic,
}

// RemoveReasons lists every remove reason in display order.
var RemoveReasons = []RemoveReason{
	RemoveWrongMood, RemoveWrongGenre, RemoveWrongEra, RemoveTooPopular, RemoveTooObscure,
	RemoveDislikeArtist, RemoveTooFast, RemoveTooSlow, RemoveTooIntense, RemoveTooSoft,
}

var keepLabels = map[KeepReason]string{
	KeepPerfectMood:   "Perfect mood",
	KeepLoveGenre:     "Love the genre",
	KeepGreatTempo:    "Great tempo",
	KeepLoveArtist:    "Love artist",
	KeepGoodDiscovery: "Good discovery",
	KeepNostalgic:     "Nostalgic",
}

var removeLabels = map[RemoveReason]string{
	RemoveWrongMood:     "Wrong mood",
	RemoveWrongGenre:    "Wrong genre",
	RemoveWrongEra:      "Wrong era",
	RemoveTooPopular:    "Too popular",
	RemoveTooObscure:    "Too obscure",
	RemoveDislikeArtist: "Don't like artist",
	RemoveTooFast:       "Too fast",
	RemoveTooSlow:       "Too slow",
	RemoveTooIntense:    "Too intense",
	RemoveTooSoft:       "Too soft",
}

func (r KeepReason) Valid() bool { _, ok := keepLabels[r]; return ok }
func (r KeepReason) Label() string { return keepLabels[r] }

func (r RemoveReason) Valid() bool { _, ok := removeLabels[r]; return ok }
func (r RemoveReason) Label() string { return removeLabels[r] }

// ParseKeepReason validates a keep reason string.
func ParseKeepReason(s string) (KeepReason, error) {
	r := KeepReason(s)
	if !r.Valid() {
		return "", fmt.Errorf("%w: unknown keep reason %q", shared.ErrInvalidArgument, s)
	}
	return r, nil
}

// ParseRemoveReason validates a remove reason string.
func ParseRemoveReason(s string) (RemoveReason, error) {
	r := RemoveReason(s)
	if !r.Valid() {
		return "", fmt.Errorf("%w: unknown remove reason %q", shared.ErrInvalidArgument, s)
	}
	return r, nil
}
