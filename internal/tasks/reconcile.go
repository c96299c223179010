package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/snesjhon/playlist-gen/internal/models"
	"github.com/snesjhon/playlist-gen/internal/services"
	"github.com/snesjhon/playlist-gen/internal/shared"
)

// DefaultMaxRetries is the number of attempts after the first.
const DefaultMaxRetries = 3

// ReconcileRequest describes one reconciliation.
type ReconcileRequest struct {
	Prompt     string
	Kept       []models.FeedbackEntry // ignored when Initial
	Removed    []models.FeedbackEntry // ignored when Initial
	Count      int
	Initial    bool
	MaxRetries int // negative is treated as 0
}

// Reconciler drives the generator and matcher until enough songs match.
type Reconciler struct {
	generator services.Generator
	matcher   SongMatcher
	logger    *log.Logger
}

// NewReconciler creates a reconciler.
func NewReconciler(generator services.Generator, matcher SongMatcher, logger *log.Logger) *Reconciler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Reconciler{generator: generator, matcher: matcher, logger: logger}
}

// avoidList is an insertion-ordered set of song identities.
type avoidList struct {
	seen map[string]bool
	refs []models.SongRef
}

func (a *avoidList) add(ref models.SongRef) {
	if a.seen == nil {
		a.seen = make(map[string]bool)
	}
	if key := ref.Key(); !a.seen[key] {
		a.seen[key] = true
		a.refs = append(a.refs, ref)
	}
}

func (a *avoidList) list() []models.SongRef {
	return append([]models.SongRef(nil), a.refs...)
}

// Reconcile returns at most req.Count songs, every one with a catalog match.
//
// A short result is a normal outcome when the retry budget runs out. A
// generator error aborts the call and discards everything accepted so far.
func (r *Reconciler) Reconcile(ctx context.Context, req ReconcileRequest, progress chan<- ProgressUpdate) ([]models.Song, error) {
	maxRetries := max(req.MaxRetries, 0)
	attempts := maxRetries + 1

	accepted := make([]models.Song, 0, max(req.Count, 0))
	var avoid avoidList

	for attempt := 0; attempt <= maxRetries && len(accepted) < req.Count; attempt++ {
		remaining := req.Count - len(accepted)
		sendProgress(progress, attemptUpdate(attempt+1, attempts, remaining))

		candidates, err := r.generator.Generate(ctx, r.request(req, remaining, avoid.list()))
		if err != nil {
			r.logger.Error("generation failed", "attempt", attempt, "error", err)
			return nil, fmt.Errorf("generate attempt %d: %w", attempt+1, err)
		}
		sendProgress(progress, generatedUpdate(attempt+1, attempts, len(candidates)))

		songs := r.matcher.MatchMany(ctx, candidates, progress)

		matched := 0
		for _, song := range songs {
			if song.Matched() {
				accepted = append(accepted, song)
				matched++
				continue
			}
			avoid.add(song.Ref())
		}

		r.logger.Info("reconcile attempt",
			"attempt", attempt, "remaining", remaining, "matched", matched, "unmatched", len(songs)-matched)
	}

	if len(accepted) > req.Count {
		accepted = accepted[:max(req.Count, 0)]
	}
	sendProgress(progress, reconciledUpdate(len(accepted), req.Count))
	return accepted, nil
}

func (r *Reconciler) request(req ReconcileRequest, remaining int, avoid []models.SongRef) services.GenerateRequest {
	gen := services.GenerateRequest{Prompt: req.Prompt, Count: remaining, Exclude: avoid}
	if !req.Initial {
		gen.Feedback = &services.Feedback{Kept: req.Kept, Removed: req.Removed}
	}
	return gen
}
