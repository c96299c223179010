package tasks

import (
	"context"

	"github.com/snesjhon/playlist-gen/internal/models"
)

// SongMatcher turns candidates into songs with catalog matches resolved.
//
// Implementations must preserve order and length and must not fail as a whole.
type SongMatcher interface {
	MatchMany(ctx context.Context, candidates []models.Candidate, progress chan<- ProgressUpdate) []models.Song
}

// Authorizer provides the user-scoped catalog credential needed to export.
type Authorizer interface {
	UserToken(ctx context.Context) (string, error)
}

// AuthorizerFunc adapts a function to [Authorizer].
type AuthorizerFunc func(ctx context.Context) (string, error)

func (f AuthorizerFunc) UserToken(ctx context.Context) (string, error) {
	return f(ctx)
}
