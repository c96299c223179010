// package services defines the generator and catalog collaborators
package services

import (
	"context"

	"github.com/snesjhon/playlist-gen/internal/models"
)

// Generator produces candidate songs for a prompt.
type Generator interface {
	// Generate returns up to req.Count candidates. Implementations must not retry.
	Generate(ctx context.Context, req GenerateRequest) ([]models.Candidate, error)
}

// Catalog resolves candidates to catalog entries.
type Catalog interface {
	// SearchSong returns the top-ranked catalog song for title and artist,
	// nil when the catalog has no result, or an error when the lookup failed.
	SearchSong(ctx context.Context, title, artist string) (*models.CatalogMatch, error)
}

// PlaylistCreator commits a named playlist to a user's library.
type PlaylistCreator interface {
	CreateLibraryPlaylist(ctx context.Context, userToken string, req PlaylistRequest) (*LibraryPlaylist, error)
}

// GenerateRequest describes one generator call.
//
// A nil Feedback means an initial generation: only Exclude steers the model.
// With Feedback set, the request is a regeneration; Exclude entries are sent
// as removed songs without reasons.
type GenerateRequest struct {
	Prompt   string
	Count    int
	Exclude  []models.SongRef
	Feedback *Feedback
}

// Feedback carries the user's kept and removed songs into a regeneration.
type Feedback struct {
	Kept    []models.FeedbackEntry
	Removed []models.FeedbackEntry
}

// PlaylistRequest is the payload for a new library playlist.
type PlaylistRequest struct {
	Name        string
	Description string
	SongIDs     []string
}

// LibraryPlaylist is the vendor's view of a created playlist.
type LibraryPlaylist struct {
	ID   string
	Name string
}
