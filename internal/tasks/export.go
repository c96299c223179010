package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/snesjhon/playlist-gen/internal/models"
	"github.com/snesjhon/playlist-gen/internal/services"
	"github.com/snesjhon/playlist-gen/internal/shared"
)

const maxPlaylistNameLength = 60

// Exporter commits a finished song set as a library playlist.
type Exporter struct {
	creator    services.PlaylistCreator
	authorizer Authorizer
	logger     *log.Logger
}

// NewExporter creates an exporter.
func NewExporter(creator services.PlaylistCreator, authorizer Authorizer, logger *log.Logger) *Exporter {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Exporter{creator: creator, authorizer: authorizer, logger: logger}
}

// Export authorizes and creates the playlist. It makes a single attempt; a
// any failure to create the playlist is returned as [shared.ErrExportFailed].
func (e *Exporter) Export(ctx context.Context, name, description string, songIDs []string, progress chan<- ProgressUpdate) (*services.LibraryPlaylist, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: playlist name is required", shared.ErrInvalidArgument)
	}
	if len(songIDs) == 0 {
		return nil, fmt.Errorf("%w: no matched songs to export", shared.ErrInvalidInput)
	}

	sendProgress(progress, authorizeUpdate())
	token, err := e.authorizer.UserToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrNotAuthorized, err)
	}
	if token == "" {
		return nil, fmt.Errorf("%w: no music user token", shared.ErrNotAuthorized)
	}

	sendProgress(progress, exportingUpdate(name, len(songIDs)))
	pl, err := e.creator.CreateLibraryPlaylist(ctx, token, services.PlaylistRequest{
		Name:        name,
		Description: description,
		SongIDs:     songIDs,
	})
	if err != nil {
		e.logger.Error("export failed", "name", name, "songs", len(songIDs), "error", err)
		if !errors.Is(err, shared.ErrExportFailed) {
			err = fmt.Errorf("%w: %w", shared.ErrExportFailed, err)
		}
		return nil, err
	}

	sendProgress(progress, exportedUpdate(pl))
	return pl, nil
}

// ExportableIDs returns the catalog ids of matched songs in input order.
func ExportableIDs(songs []models.Song) []string {
	ids := make([]string, 0, len(songs))
	for _, s := range songs {
		if s.Matched() {
			ids = append(ids, s.Match.ID)
		}
	}
	return ids
}

// DefaultPlaylistName is the prompt cut to the vendor-friendly name length.
func DefaultPlaylistName(prompt string) string {
	return shared.Truncate(strings.TrimSpace(prompt), maxPlaylistNameLength)
}

// DefaultDescription records which prompt produced the playlist.
func DefaultDescription(prompt string) string {
	return "Generated from: " + strings.TrimSpace(prompt)
}
