// Package review holds the curation state of one prompt session.
//
// A [Session] owns the current suggestions, the saved songs carried across
// regenerations and the accumulated removed feedback. Curation methods
// replace songs by index using the value transitions in package models.
//
// Regeneration is split in two so callers can run the slow part elsewhere:
// [Session.PlanRegeneration] computes the next state and the reconcile request
// without touching the session, and [Session.Apply] installs it once the new
// songs arrive. [Session.Regenerate] does both and leaves the session
// unchanged when reconciliation fails.
package review

import (
	"context"
	"fmt"
	"time"

	"github.com/snesjhon/playlist-gen/internal/models"
	"github.com/snesjhon/playlist-gen/internal/shared"
	"github.com/snesjhon/playlist-gen/internal/tasks"
)

// Reconciler produces catalog-verified songs.
type Reconciler interface {
	Reconcile(ctx context.Context, req tasks.ReconcileRequest, progress chan<- tasks.ProgressUpdate) ([]models.Song, error)
}

// Session is the review state for one prompt.
type Session struct {
	ID          string
	Prompt      string
	Suggestions []models.Song
	Saved       []models.Song
	AllRemoved  []models.FeedbackEntry
}

// New returns an empty session for prompt.
func New(prompt string) *Session {
	return &Session{ID: shared.GenerateID(), Prompt: prompt}
}

// Start runs the initial reconciliation for prompt.
func Start(ctx context.Context, r Reconciler, prompt string, count, maxRetries int, progress chan<- tasks.ProgressUpdate) (*Session, error) {
	if prompt == "" {
		return nil, fmt.Errorf("%w: prompt is required", shared.ErrMissingArgument)
	}

	songs, err := r.Reconcile(ctx, tasks.ReconcileRequest{
		Prompt:     prompt,
		Count:      count,
		Initial:    true,
		MaxRetries: maxRetries,
	}, progress)
	if err != nil {
		return nil, err
	}

	s := New(prompt)
	s.Suggestions = songs
	return s, nil
}

func (s *Session) suggestion(i int) (models.Song, error) {
	if i < 0 || i >= len(s.Suggestions) {
		return models.Song{}, fmt.Errorf("%w: suggestion %d of %d", shared.ErrIndexOutOfRange, i+1, len(s.Suggestions))
	}
	return s.Suggestions[i], nil
}

// Keep toggles suggestion i between kept and pending.
func (s *Session) Keep(i int) error {
	song, err := s.suggestion(i)
	if err != nil {
		return err
	}
	song, err = song.ToggleKeep()
	if err != nil {
		return err
	}
	s.Suggestions[i] = song
	return nil
}

// Remove toggles suggestion i between removed and pending.
func (s *Session) Remove(i int) error {
	song, err := s.suggestion(i)
	if err != nil {
		return err
	}
	s.Suggestions[i] = song.ToggleRemove()
	return nil
}

// ToggleKeepReason tags or untags kept suggestion i.
func (s *Session) ToggleKeepReason(i int, r models.KeepReason) error {
	song, err := s.suggestion(i)
	if err != nil {
		return err
	}
	if song, err = song.ToggleKeepReason(r); err != nil {
		return err
	}
	s.Suggestions[i] = song
	return nil
}

// ToggleRemoveReason tags or untags removed suggestion i.
func (s *Session) ToggleRemoveReason(i int, r models.RemoveReason) error {
	song, err := s.suggestion(i)
	if err != nil {
		return err
	}
	if song, err = song.ToggleRemoveReason(r); err != nil {
		return err
	}
	s.Suggestions[i] = song
	return nil
}

// RemoveSaved drops saved song i.
func (s *Session) RemoveSaved(i int) error {
	if i < 0 || i >= len(s.Saved) {
		return fmt.Errorf("%w: saved song %d of %d", shared.ErrIndexOutOfRange, i+1, len(s.Saved))
	}
	saved := make([]models.Song, 0, len(s.Saved)-1)
	saved = append(saved, s.Saved[:i]...)
	s.Saved = append(saved, s.Saved[i+1:]...)
	return nil
}

// Counts returns the number of kept, removed and pending suggestions.
func (s *Session) Counts() (kept, removed, pending int) {
	for _, song := range s.Suggestions {
		switch song.Status {
		case models.StatusKept:
			kept++
		case models.StatusRemoved:
			removed++
		default:
			pending++
		}
	}
	return kept, removed, pending
}

// Plan is the state a regeneration will install.
type Plan struct {
	Saved      []models.Song
	AllRemoved []models.FeedbackEntry
}

// PlanRegeneration moves kept suggestions into saved and removed ones into
// the removed feedback. Pending suggestions are dropped. The session itself
// is not modified.
func (s *Session) PlanRegeneration() Plan {
	plan := Plan{
		Saved:      append([]models.Song{}, s.Saved...),
		AllRemoved: append([]models.FeedbackEntry{}, s.AllRemoved...),
	}
	for _, song := range s.Suggestions {
		switch song.Status {
		case models.StatusKept:
			plan.Saved = append(plan.Saved, song)
		case models.StatusRemoved:
			plan.AllRemoved = append(plan.AllRemoved, song.Feedback())
		}
	}
	return plan
}

// Request builds the reconcile request carrying all accumulated feedback.
func (p Plan) Request(prompt string, count, maxRetries int) tasks.ReconcileRequest {
	kept := make([]models.FeedbackEntry, 0, len(p.Saved))
	for _, song := range p.Saved {
		kept = append(kept, song.Feedback())
	}
	return tasks.ReconcileRequest{
		Prompt:     prompt,
		Kept:       kept,
		Removed:    append([]models.FeedbackEntry{}, p.AllRemoved...),
		Count:      count,
		Initial:    false,
		MaxRetries: maxRetries,
	}
}

// Apply installs plan and the freshly reconciled suggestions.
func (s *Session) Apply(plan Plan, suggestions []models.Song) {
	s.Saved = plan.Saved
	s.AllRemoved = plan.AllRemoved
	s.Suggestions = suggestions
}

// Regenerate replaces the suggestions with count new songs. On error the
// session is left as it was.
func (s *Session) Regenerate(ctx context.Context, r Reconciler, count, maxRetries int, progress chan<- tasks.ProgressUpdate) error {
	plan := s.PlanRegeneration()

	songs, err := r.Reconcile(ctx, plan.Request(s.Prompt, count, maxRetries), progress)
	if err != nil {
		return err
	}
	s.Apply(plan, songs)
	return nil
}

// Exportable lists the catalog ids of the saved songs, skipping any without a match.
// Kept suggestions are saved by the next regeneration.
func (s *Session) Exportable() []string {
	return tasks.ExportableIDs(s.Saved)
}

// Snapshot captures the persistable state.
func (s *Session) Snapshot(now time.Time) models.SessionSnapshot {
	return models.NewSnapshot(s.Prompt, s.Suggestions, s.Saved, s.AllRemoved, now)
}

// Resume rebuilds a session from snap by re-matching every persisted song.
// Statuses and reasons are reapplied positionally; the generator is not used.
func Resume(ctx context.Context, m tasks.SongMatcher, id string, snap models.SessionSnapshot, progress chan<- tasks.ProgressUpdate) (*Session, error) {
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	if id == "" {
		id = shared.GenerateID()
	}

	return &Session{
		ID:          id,
		Prompt:      snap.Prompt,
		Suggestions: rematch(ctx, m, snap.Suggestions, progress),
		Saved:       rematch(ctx, m, snap.SavedSongs, progress),
		AllRemoved:  append([]models.FeedbackEntry{}, snap.AllRemoved...),
	}, nil
}

func rematch(ctx context.Context, m tasks.SongMatcher, persisted []models.SessionSong, progress chan<- tasks.ProgressUpdate) []models.Song {
	candidates := make([]models.Candidate, len(persisted))
	for i, p := range persisted {
		candidates[i] = p.Candidate
	}

	matched := m.MatchMany(ctx, candidates, progress)
	songs := make([]models.Song, len(persisted))
	for i, p := range persisted {
		var match *models.CatalogMatch
		if i < len(matched) {
			match = matched[i].Match
		}
		songs[i] = p.Restore(match)
	}
	return songs
}
