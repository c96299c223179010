package tasks

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/snesjhon/playlist-gen/internal/models"
	"github.com/snesjhon/playlist-gen/internal/services"
	"github.com/snesjhon/playlist-gen/internal/shared"
)

// DefaultMatchDelay is the pause between consecutive catalog lookups.
const DefaultMatchDelay = 300 * time.Millisecond

// Pause blocks between two catalog lookups.
type Pause interface {
	Wait(ctx context.Context) error
}

// PauseFunc adapts a function to [Pause].
type PauseFunc func(ctx context.Context) error

func (f PauseFunc) Wait(ctx context.Context) error {
	return f(ctx)
}

// NoDelay never blocks.
var NoDelay Pause = PauseFunc(func(context.Context) error { return nil })

// FixedDelay waits d, returning early if ctx is done. A non-positive d is [NoDelay].
func FixedDelay(d time.Duration) Pause {
	if d <= 0 {
		return NoDelay
	}
	return PauseFunc(func(ctx context.Context) error {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}

// Matcher resolves candidates against a catalog sequentially.
type Matcher struct {
	catalog services.Catalog
	pause   Pause
	logger  *log.Logger
}

// NewMatcher creates a matcher. A nil pause means [NoDelay].
func NewMatcher(catalog services.Catalog, pause Pause, logger *log.Logger) *Matcher {
	if pause == nil {
		pause = NoDelay
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Matcher{catalog: catalog, pause: pause, logger: logger}
}

// MatchOne returns the top catalog entry for title and artist, or nil.
//
// Lookup errors are logged and reported as no match.
func (m *Matcher) MatchOne(ctx context.Context, title, artist string) *models.CatalogMatch {
	match, err := m.catalog.SearchSong(ctx, title, artist)
	if err != nil {
		m.logger.Warn("catalog lookup failed", "title", title, "artist", artist, "error", err)
		return nil
	}
	if match == nil || match.ID == "" {
		m.logger.Debug("no catalog match", "title", title, "artist", artist)
		return nil
	}
	return match
}

// MatchMany resolves each candidate in order. The result has one pending
// song per candidate, with a nil match where the lookup missed or failed.
func (m *Matcher) MatchMany(ctx context.Context, candidates []models.Candidate, progress chan<- ProgressUpdate) []models.Song {
	songs := make([]models.Song, len(candidates))
	total := len(candidates)

	for i, c := range candidates {
		if i > 0 {
			if err := m.pause.Wait(ctx); err != nil {
				m.logger.Debug("match delay interrupted", "error", err)
			}
		}

		match := m.MatchOne(ctx, c.Title, c.Artist)
		songs[i] = models.NewSong(c, match)
		sendProgress(progress, matchUpdate(i+1, total, c, match))
	}
	return songs
}
