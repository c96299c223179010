package tasks

import (
	"fmt"

	"github.com/snesjhon/playlist-gen/internal/models"
	"github.com/snesjhon/playlist-gen/internal/services"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	Generate Phase = iota
	Match
	Reconcile
	Authorize
	Export
)

func (p Phase) String() string {
	switch p {
	case Generate:
		return "generate"
	case Match:
		return "match"
	case Reconcile:
		return "reconcile"
	case Authorize:
		return "authorize"
	case Export:
		return "export"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func attemptUpdate(attempt, total, remaining int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Reconcile,
		Step:    attempt,
		Total:   total,
		Message: fmt.Sprintf("Attempt %d/%d: asking for %d songs...", attempt, total, remaining),
	}
}

func generatedUpdate(attempt, total, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Generate,
		Step:    attempt,
		Total:   total,
		Message: fmt.Sprintf("Received %d suggestions", count),
	}
}

func matchUpdate(step, total int, c models.Candidate, m *models.CatalogMatch) ProgressUpdate {
	mark := "✗"
	if m != nil {
		mark = "✓"
	}
	return ProgressUpdate{
		Phase:   Match,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s %s - %s", step, total, mark, c.Artist, c.Title),
		Data:    m,
	}
}

func reconciledUpdate(accepted, target int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Reconcile,
		Step:    accepted,
		Total:   target,
		Message: fmt.Sprintf("Matched %d of %d songs", accepted, target),
	}
}

func authorizeUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   Authorize,
		Step:    1,
		Total:   1,
		Message: "Authorizing with Apple Music...",
	}
}

func exportingUpdate(name string, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Export,
		Step:    0,
		Total:   1,
		Message: fmt.Sprintf("Creating playlist %q with %d songs...", name, count),
	}
}

func exportedUpdate(pl *services.LibraryPlaylist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Export,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Playlist created: %s (ID: %s)", pl.Name, pl.ID),
		Data:    pl,
	}
}
