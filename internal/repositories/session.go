package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/snesjhon/playlist-gen/internal/models"
	"github.com/snesjhon/playlist-gen/internal/shared"
)

// StoredSession is the persisted snapshot and the id of the session it belongs to.
type StoredSession struct {
	ID       string
	Snapshot models.SessionSnapshot
}

// SessionRepository persists the single active review session.
type SessionRepository struct {
	db     *sql.DB
	logger *log.Logger
}

// NewSessionRepository creates a new [SessionRepository] with the given database connection
func NewSessionRepository(db *sql.DB, logger *log.Logger) *SessionRepository {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &SessionRepository{db: db, logger: logger}
}

// Save replaces the active snapshot.
func (r *SessionRepository) Save(id string, snap models.SessionSnapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}

	data, err := models.MarshalSnapshot(snap)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO session_snapshots (slot, session_id, prompt, data, updated_at) VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET
			session_id = excluded.session_id,
			prompt = excluded.prompt,
			data = excluded.data,
			updated_at = excluded.updated_at
	`
	if _, err := r.db.Exec(query, id, snap.Prompt, string(data), snap.Time().UTC()); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Load returns the active snapshot, or nil when there is none.
//
// A corrupt snapshot is logged, deleted and reported as absent.
func (r *SessionRepository) Load() (*StoredSession, error) {
	var id, data string
	err := r.db.QueryRow(`SELECT session_id, data FROM session_snapshots WHERE slot = 1`).Scan(&id, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	snap, err := models.ParseSnapshot([]byte(data))
	if err != nil {
		r.logger.Warn("discarding unreadable session", "session", id, "error", err)
		if clearErr := r.Clear(); clearErr != nil {
			return nil, clearErr
		}
		return nil, nil
	}
	return &StoredSession{ID: id, Snapshot: *snap}, nil
}

// Prompt returns the prompt of the active session without decoding it, or "".
func (r *SessionRepository) Prompt() (string, error) {
	var prompt string
	err := r.db.QueryRow(`SELECT prompt FROM session_snapshots WHERE slot = 1`).Scan(&prompt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query session prompt: %w", err)
	}
	return prompt, nil
}

// Clear deletes the active snapshot.
func (r *SessionRepository) Clear() error {
	if _, err := r.db.Exec(`DELETE FROM session_snapshots`); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
