package main

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/snesjhon/playlist-gen/internal/formatter"
	"github.com/snesjhon/playlist-gen/internal/models"
	"github.com/snesjhon/playlist-gen/internal/review"
	"github.com/snesjhon/playlist-gen/internal/shared"
	"github.com/snesjhon/playlist-gen/internal/tasks"
)

// songView is the JSON shape of a song in command output.
type songView struct {
	Number     int      `json:"number"`
	Title      string   `json:"title"`
	Artist     string   `json:"artist"`
	Album      string   `json:"album,omitempty"`
	Reason     string   `json:"reason,omitempty"`
	Status     string   `json:"status"`
	Tags       []string `json:"tags,omitempty"`
	CatalogID  string   `json:"catalogId,omitempty"`
	Artwork    string   `json:"artworkUrl,omitempty"`
	PreviewURL string   `json:"previewUrl,omitempty"`
}

type sessionView struct {
	ID          string     `json:"id"`
	Prompt      string     `json:"prompt"`
	Suggestions []songView `json:"suggestions"`
	Saved       []songView `json:"saved"`
	Removed     int        `json:"removedFeedback"`
}

func newSongView(i int, s models.Song) songView {
	v := songView{
		Number: i + 1,
		Title:  s.Title(),
		Artist: s.Artist(),
		Album:  s.Album(),
		Reason: s.Candidate.Reason,
		Status: string(s.Status),
		Tags:   s.Feedback().Reasons,
	}
	if s.Match != nil {
		v.CatalogID = s.Match.ID
		v.Artwork = s.Match.ArtworkURL
		v.PreviewURL = s.Match.PreviewURL
	}
	return v
}

func newSessionView(s *review.Session) sessionView {
	v := sessionView{ID: s.ID, Prompt: s.Prompt, Removed: len(s.AllRemoved)}
	for i, song := range s.Suggestions {
		v.Suggestions = append(v.Suggestions, newSongView(i, song))
	}
	for i, song := range s.Saved {
		v.Saved = append(v.Saved, newSongView(i, song))
	}
	return v
}

// offlineMatcher restores songs without contacting the catalog.
type offlineMatcher struct{}

func (offlineMatcher) MatchMany(ctx context.Context, candidates []models.Candidate, progress chan<- tasks.ProgressUpdate) []models.Song {
	songs := make([]models.Song, len(candidates))
	for i, c := range candidates {
		songs[i] = models.NewSong(c, nil)
	}
	return songs
}

// loadSession restores the stored session. With rematch the catalog is queried
// again for every song; otherwise songs come back without matches.
func (r *Runner) loadSession(ctx context.Context, rematch bool) (*review.Session, error) {
	stored, err := r.sessions.Load()
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, shared.ErrNoSession
	}

	if !rematch {
		return review.Resume(ctx, offlineMatcher{}, stored.ID, stored.Snapshot, nil)
	}

	matcher, err := r.matcher()
	if err != nil {
		return nil, err
	}

	var s *review.Session
	err = r.withProgress(func(progress chan<- tasks.ProgressUpdate) error {
		s, err = review.Resume(ctx, matcher, stored.ID, stored.Snapshot, progress)
		return err
	})
	return s, err
}

func (r *Runner) saveSession(s *review.Session) error {
	return r.sessions.Save(s.ID, s.Snapshot(r.now()))
}

func (r *Runner) count(cmd *cli.Command) int {
	if n := int(cmd.Int("count")); n > 0 {
		return n
	}
	return r.config.Generation.Count
}

func (r *Runner) retries(cmd *cli.Command) int {
	if n := int(cmd.Int("retries")); n >= 0 {
		return n
	}
	return r.config.Generation.MaxRetries
}

// Generate discards the stored session and starts a new one for the prompt.
func (r *Runner) Generate(ctx context.Context, cmd *cli.Command) error {
	prompt := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if prompt == "" {
		return fmt.Errorf("%w: prompt is required", shared.ErrMissingArgument)
	}

	// A new prompt ends the previous session even if generation fails.
	if err := r.sessions.Clear(); err != nil {
		return err
	}

	reconciler, err := r.reconciler()
	if err != nil {
		return err
	}

	r.logger.Info("generating playlist", "count", r.count(cmd))
	var s *review.Session
	err = r.withProgress(func(progress chan<- tasks.ProgressUpdate) error {
		s, err = review.Start(ctx, reconciler, prompt, r.count(cmd), r.retries(cmd), progress)
		return err
	})
	if err != nil {
		return err
	}

	if err := r.saveSession(s); err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(newSessionView(s), true)
	}
	r.printSession(s)
	return nil
}

// SessionShow prints the stored session from the snapshot alone.
func (r *Runner) SessionShow(ctx context.Context, cmd *cli.Command) error {
	s, err := r.loadSession(ctx, false)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(newSessionView(s), true)
	}
	r.printSession(s)
	return nil
}

// SessionResume re-matches the stored session and prints it with fresh catalog data.
func (r *Runner) SessionResume(ctx context.Context, cmd *cli.Command) error {
	s, err := r.loadSession(ctx, true)
	if err != nil {
		return err
	}
	if err := r.saveSession(s); err != nil {
		return err
	}
	r.printSession(s)
	return nil
}

// SessionKeep toggles keep on the numbered suggestions, then toggles any reasons on those now kept.
//
// Keeping needs catalog matches, so the session is re-matched first.
func (r *Runner) SessionKeep(ctx context.Context, cmd *cli.Command) error {
	indices, err := parseIndices(cmd.Args().Slice())
	if err != nil {
		return err
	}
	reasons, err := parseKeepReasons(cmd.StringSlice("reason"))
	if err != nil {
		return err
	}

	s, err := r.loadSession(ctx, true)
	if err != nil {
		return err
	}
	for _, i := range indices {
		if err := s.Keep(i); err != nil {
			return err
		}
		if s.Suggestions[i].Status != models.StatusKept {
			continue
		}
		for _, reason := range reasons {
			if err := s.ToggleKeepReason(i, reason); err != nil {
				return err
			}
		}
	}
	return r.commit(s)
}

// SessionRemove toggles remove on the numbered suggestions, then toggles any reasons on those now removed.
func (r *Runner) SessionRemove(ctx context.Context, cmd *cli.Command) error {
	indices, err := parseIndices(cmd.Args().Slice())
	if err != nil {
		return err
	}
	reasons, err := parseRemoveReasons(cmd.StringSlice("reason"))
	if err != nil {
		return err
	}

	s, err := r.loadSession(ctx, false)
	if err != nil {
		return err
	}
	for _, i := range indices {
		if err := s.Remove(i); err != nil {
			return err
		}
		if s.Suggestions[i].Status != models.StatusRemoved {
			continue
		}
		for _, reason := range reasons {
			if err := s.ToggleRemoveReason(i, reason); err != nil {
				return err
			}
		}
	}
	return r.commit(s)
}

// SessionTag toggles reasons on kept or removed suggestions according to their status.
func (r *Runner) SessionTag(ctx context.Context, cmd *cli.Command) error {
	indices, err := parseIndices(cmd.Args().Slice())
	if err != nil {
		return err
	}
	tags := cmd.StringSlice("reason")
	if len(tags) == 0 {
		return fmt.Errorf("%w: at least one --reason is required", shared.ErrMissingArgument)
	}

	s, err := r.loadSession(ctx, false)
	if err != nil {
		return err
	}
	for _, i := range indices {
		if i >= len(s.Suggestions) {
			return fmt.Errorf("%w: suggestion %d of %d", shared.ErrIndexOutOfRange, i+1, len(s.Suggestions))
		}
		switch s.Suggestions[i].Status {
		case models.StatusKept:
			reasons, err := parseKeepReasons(tags)
			if err != nil {
				return err
			}
			for _, reason := range reasons {
				if err := s.ToggleKeepReason(i, reason); err != nil {
					return err
				}
			}
		case models.StatusRemoved:
			reasons, err := parseRemoveReasons(tags)
			if err != nil {
				return err
			}
			for _, reason := range reasons {
				if err := s.ToggleRemoveReason(i, reason); err != nil {
					return err
				}
			}
		default:
			return fmt.Errorf("%w: keep or remove suggestion %d before tagging it", shared.ErrInvalidTransition, i+1)
		}
	}
	return r.commit(s)
}

// SessionUnsave drops numbered songs from the saved set, highest number first.
func (r *Runner) SessionUnsave(ctx context.Context, cmd *cli.Command) error {
	indices, err := parseIndices(cmd.Args().Slice())
	if err != nil {
		return err
	}

	s, err := r.loadSession(ctx, false)
	if err != nil {
		return err
	}
	for _, i := range descending(indices) {
		if err := s.RemoveSaved(i); err != nil {
			return err
		}
	}
	return r.commit(s)
}

// SessionReasons lists the reason tags accepted by --reason.
func (r *Runner) SessionReasons(ctx context.Context, cmd *cli.Command) error {
	r.writePlainHeader("Keep reasons")
	for _, reason := range models.KeepReasons {
		r.writePlain("  %-16s %s\n", reason, reason.Label())
	}
	r.writePlainHeader("Remove reasons")
	for _, reason := range models.RemoveReasons {
		r.writePlain("  %-16s %s\n", reason, reason.Label())
	}
	return nil
}

// SessionRegenerate carries kept songs into the saved set and asks for a new batch.
// The stored session is unchanged when generation fails.
func (r *Runner) SessionRegenerate(ctx context.Context, cmd *cli.Command) error {
	reconciler, err := r.reconciler()
	if err != nil {
		return err
	}
	s, err := r.loadSession(ctx, false)
	if err != nil {
		return err
	}

	kept, removed, _ := s.Counts()
	r.logger.Info("regenerating", "kept", kept, "removed", removed, "saved", len(s.Saved))

	err = r.withProgress(func(progress chan<- tasks.ProgressUpdate) error {
		return s.Regenerate(ctx, reconciler, r.count(cmd), r.retries(cmd), progress)
	})
	if err != nil {
		return err
	}
	return r.commit(s)
}

// SessionWrite writes the saved songs to a local file.
func (r *Runner) SessionWrite(ctx context.Context, cmd *cli.Command) error {
	s, err := r.loadSession(ctx, true)
	if err != nil {
		return err
	}
	if len(s.Saved) == 0 {
		return fmt.Errorf("%w: no saved songs, keep some and regenerate first", shared.ErrInvalidInput)
	}

	format := cmd.String("format")
	pl := &formatter.Playlist{
		Name:        tasks.DefaultPlaylistName(s.Prompt),
		Description: tasks.DefaultDescription(s.Prompt),
		Songs:       s.Saved,
	}

	path := cmd.String("output")
	if path == "" {
		path = defaultOutput(format, pl.Name)
	}

	files, err := formatter.Write(format, pl, path, func(err error) {
		r.logger.Warn("skipping cover artwork", "error", err)
	})
	if err != nil {
		return err
	}
	for _, f := range files {
		r.writePlain("✓ Wrote %s\n", f)
	}
	return nil
}

// SessionClear discards the stored session.
func (r *Runner) SessionClear(ctx context.Context, cmd *cli.Command) error {
	if err := r.sessions.Clear(); err != nil {
		return err
	}
	return r.writePlain("✓ Session cleared\n")
}

// Export creates a library playlist from the saved songs and records it.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	exporter, err := r.exporter()
	if err != nil {
		return err
	}
	s, err := r.loadSession(ctx, true)
	if err != nil {
		return err
	}

	name := strings.TrimSpace(cmd.String("name"))
	if name == "" {
		name = tasks.DefaultPlaylistName(s.Prompt)
	}
	description := cmd.String("description")
	if description == "" {
		description = tasks.DefaultDescription(s.Prompt)
	}

	ids := s.Exportable()
	if skipped := len(s.Saved) - len(ids); skipped > 0 {
		r.logger.Warn("skipping saved songs without a catalog match", "count", skipped)
	}

	err = r.withProgress(func(progress chan<- tasks.ProgressUpdate) error {
		pl, err := exporter.Export(ctx, name, description, ids, progress)
		if err != nil {
			return err
		}
		rec := models.NewExportRecord(s.ID, pl.ID, pl.Name, description, ids, r.now())
		if err := r.exports.Create(rec); err != nil {
			r.logger.Warn("could not record export", "error", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return r.writePlain("✓ Created %q with %d songs in your Apple Music library\n", name, len(ids))
}

// Exports lists the export history, newest first.
func (r *Runner) Exports(ctx context.Context, cmd *cli.Command) error {
	records, err := r.exports.List(int(cmd.Int("limit")))
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(records, true)
	}
	if len(records) == 0 {
		return r.writePlain("No exports yet\n")
	}

	r.writePlainHeader("Exports")
	for _, rec := range records {
		r.writePlain("%s  %-40s %3d songs  %s\n", rec.CreatedAt.Local().Format(time.DateTime), rec.Name, len(rec.SongIDs), rec.PlaylistID)
	}
	return nil
}

// Search looks up one song and reports its catalog match.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	title, artist := cmd.StringArg("title"), cmd.StringArg("artist")
	if title == "" || artist == "" {
		return fmt.Errorf("%w: title and artist are required", shared.ErrMissingArgument)
	}

	catalog, err := r.catalogService()
	if err != nil {
		return err
	}
	match, err := catalog.SearchSong(ctx, title, artist)
	if err != nil {
		return err
	}
	if match == nil {
		return fmt.Errorf("%w: %s by %s", shared.ErrNoMatch, title, artist)
	}

	if cmd.Bool("json") {
		return r.writeJSON(match, true)
	}
	r.writePlain("%s - %s\n", match.Title, match.Artist)
	r.writePlain("  Album:      %s\n", match.Album)
	r.writePlain("  ID:         %s\n", match.ID)
	r.writePlain("  Confidence: %.2f\n", match.Confidence)
	if match.PreviewURL != "" {
		r.writePlain("  Preview:    %s\n", match.PreviewURL)
	}
	return nil
}

// commit saves the session and prints it.
func (r *Runner) commit(s *review.Session) error {
	if err := r.saveSession(s); err != nil {
		return err
	}
	r.printSession(s)
	return nil
}

func (r *Runner) printSession(s *review.Session) {
	kept, removed, pending := s.Counts()
	r.writePlainHeader(fmt.Sprintf("%q", s.Prompt))
	r.writePlain("%d kept, %d removed, %d pending, %d saved\n\n", kept, removed, pending, len(s.Saved))

	if len(s.Suggestions) == 0 {
		r.writePlain("No catalog-verified suggestions. Try `playlist-gen session regenerate`.\n")
	}
	for i, song := range s.Suggestions {
		r.writePlain("%2d. %s %s - %s%s\n", i+1, statusMark(song.Status), song.Title(), song.Artist(), tagSuffix(song))
		if song.Candidate.Reason != "" {
			r.writePlain("      %s\n", song.Candidate.Reason)
		}
	}

	if len(s.Saved) > 0 {
		r.writePlainln("Saved")
		for i, song := range s.Saved {
			r.writePlain("%2d. %s - %s\n", i+1, song.Title(), song.Artist())
		}
	}
}

func statusMark(s models.Status) string {
	switch s {
	case models.StatusKept:
		return "✓"
	case models.StatusRemoved:
		return "✗"
	default:
		return "·"
	}
}

func tagSuffix(s models.Song) string {
	tags := s.Feedback().Reasons
	if len(tags) == 0 {
		return ""
	}
	return " [" + strings.Join(tags, ", ") + "]"
}

// parseIndices converts 1-based arguments to 0-based indices.
func parseIndices(args []string) ([]int, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: at least one song number is required", shared.ErrMissingArgument)
	}
	indices := make([]int, 0, len(args))
	for _, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%w: %q is not a song number", shared.ErrInvalidArgument, a)
		}
		indices = append(indices, n-1)
	}
	return indices, nil
}

// descending returns a copy of indices sorted high to low so removals do not shift later ones.
func descending(indices []int) []int {
	out := slices.Clone(indices)
	slices.Sort(out)
	slices.Reverse(out)
	return out
}

func parseKeepReasons(tags []string) ([]models.KeepReason, error) {
	out := make([]models.KeepReason, 0, len(tags))
	for _, t := range tags {
		r, err := models.ParseKeepReason(t)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func parseRemoveReasons(tags []string) ([]models.RemoveReason, error) {
	out := make([]models.RemoveReason, 0, len(tags))
	for _, t := range tags {
		r, err := models.ParseRemoveReason(t)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

var unsafeName = regexp.MustCompile(`[^a-z0-9]+`)

// defaultOutput derives a file or directory name from the playlist name.
func defaultOutput(format, name string) string {
	slug := strings.Trim(unsafeName.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if slug == "" {
		slug = "playlist"
	}
	switch strings.ToLower(format) {
	case formatter.FormatCSV:
		return slug + ".csv"
	case formatter.FormatText:
		return slug + ".txt"
	default:
		return filepath.Clean(slug)
	}
}
