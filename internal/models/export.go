package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/snesjhon/playlist-gen/internal/shared"
)

// ExportRecord is the history entry of a committed playlist.
type ExportRecord struct {
	ID          string
	SessionID   string
	PlaylistID  string
	Name        string
	Description string
	SongIDs     []string
	CreatedAt   time.Time
}

// NewExportRecord stamps a record for a playlist created now.
func NewExportRecord(sessionID, playlistID, name, description string, songIDs []string, now time.Time) *ExportRecord {
	return &ExportRecord{
		ID:          shared.GenerateID(),
		SessionID:   sessionID,
		PlaylistID:  playlistID,
		Name:        name,
		Description: description,
		SongIDs:     append([]string(nil), songIDs...),
		CreatedAt:   now,
	}
}

// Validate checks the fields required for persistence.
func (r *ExportRecord) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: export name is required", shared.ErrInvalidInput)
	}
	if len(r.SongIDs) == 0 {
		return fmt.Errorf("%w: export has no songs", shared.ErrInvalidInput)
	}
	return nil
}
