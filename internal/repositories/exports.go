package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/snesjhon/playlist-gen/internal/models"
)

// ExportRepository records playlists committed to the user's library.
type ExportRepository struct {
	db *sql.DB
}

// NewExportRepository creates a new [ExportRepository] with the given database connection
func NewExportRepository(db *sql.DB) *ExportRepository {
	return &ExportRepository{db: db}
}

// Create inserts a new export record.
func (r *ExportRepository) Create(rec *models.ExportRecord) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	ids, err := json.Marshal(rec.SongIDs)
	if err != nil {
		return fmt.Errorf("failed to encode song ids: %w", err)
	}

	query := `
		INSERT INTO exports (id, session_id, playlist_id, name, description, song_ids, song_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.Exec(query, rec.ID, rec.SessionID, rec.PlaylistID, rec.Name, rec.Description,
		string(ids), len(rec.SongIDs), rec.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert export: %w", err)
	}
	return nil
}

// List returns up to limit records, newest first. A non-positive limit returns all.
func (r *ExportRepository) List(limit int) ([]*models.ExportRecord, error) {
	query := `
		SELECT id, session_id, playlist_id, name, description, song_ids, created_at
		FROM exports
		ORDER BY created_at DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query exports: %w", err)
	}
	defer rows.Close()

	var records []*models.ExportRecord
	for rows.Next() {
		var (
			rec       models.ExportRecord
			ids       string
			createdAt time.Time
		)
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.PlaylistID, &rec.Name, &rec.Description, &ids, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan export: %w", err)
		}
		if err := json.Unmarshal([]byte(ids), &rec.SongIDs); err != nil {
			return nil, fmt.Errorf("failed to decode song ids for export %s: %w", rec.ID, err)
		}
		rec.CreatedAt = createdAt
		records = append(records, &rec)
	}
	return records, rows.Err()
}
