package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/snesjhon/playlist-gen/internal/models"
	"github.com/snesjhon/playlist-gen/internal/repositories"
	"github.com/snesjhon/playlist-gen/internal/review"
	"github.com/snesjhon/playlist-gen/internal/services"
	"github.com/snesjhon/playlist-gen/internal/shared"
	"github.com/snesjhon/playlist-gen/internal/tasks"
)

// ViewState represents the current screen in the TUI.
type ViewState int

const (
	PromptView ViewState = iota
	WorkingView
	ReviewView
	ExportView
)

type focus int

const (
	focusSuggestions focus = iota
	focusSaved
)

// Exporter creates a library playlist from catalog IDs.
type Exporter interface {
	Export(ctx context.Context, name, description string, songIDs []string, progress chan<- tasks.ProgressUpdate) (*services.LibraryPlaylist, error)
}

// SessionStore persists the single resumable session.
type SessionStore interface {
	Save(id string, snap models.SessionSnapshot) error
	Clear() error
}

// ExportStore records completed exports.
type ExportStore interface {
	Create(rec *models.ExportRecord) error
}

// Options wires the TUI to the application services.
//
// Sessions, Exports and Stored are optional.
type Options struct {
	Reconciler review.Reconciler
	Matcher    tasks.SongMatcher
	Exporter   Exporter
	Sessions   SessionStore
	Exports    ExportStore
	Stored     *repositories.StoredSession
	Count      int
	MaxRetries int
	Theme      string
	Logger     *log.Logger
	Now        func() time.Time
}

// Model is the bubbletea model for the review workflow.
type Model struct {
	ctx  context.Context
	opts Options

	view     ViewState
	back     ViewState
	session  *review.Session
	focus    focus
	savedIdx int

	prompt      textinput.Model
	name        textinput.Model
	suggestions list.Model
	spinner     spinner.Model
	help        help.Model
	keys        keyMap
	styles      *Palette

	busy         string
	progress     string
	progressChan chan tasks.ProgressUpdate
	doneChan     chan Msg

	status string
	err    error
	width  int
	height int
}

// NewModel creates the initial model with the prompt view active.
func NewModel(ctx context.Context, opts Options) Model {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	styles := ThemePalette(opts.Theme)

	prompt := textinput.New()
	prompt.Placeholder = "chill lofi beats for studying"
	prompt.CharLimit = 500
	prompt.Width = 60
	prompt.Focus()

	name := textinput.New()
	name.CharLimit = 100
	name.Width = 60

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.title.UnsetMarginBottom()

	l := list.New(nil, songDelegate{palette: styles}, 60, 20)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)

	return Model{
		ctx:         ctx,
		opts:        opts,
		view:        PromptView,
		prompt:      prompt,
		name:        name,
		suggestions: l,
		spinner:     s,
		help:        help.New(),
		keys:        newKeyMap(),
		styles:      styles,
	}
}

// Session returns the session under review, or nil.
func (m Model) Session() *review.Session { return m.session }

// ViewState returns the active screen.
func (m Model) ViewState() ViewState { return m.view }

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles incoming messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.suggestions.SetSize(m.listWidth(), max(msg.Height-12, 6))
		return m, nil
	case spinner.TickMsg:
		if m.view != WorkingView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		return m.handleKey(msg)
	case Msg:
		return m.handleMsg(msg)
	}
	return m, nil
}

func (m Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgProgressUpdate:
		if update, ok := msg.data.(tasks.ProgressUpdate); ok {
			m.progress = update.Message
		}
		return m, m.waitForProgress()
	case MsgSessionReady:
		res := msg.data.(sessionResult)
		m.clearWork()
		if res.err != nil {
			m.err = res.err
			m.view = m.back
			return m, nil
		}
		m.session = res.session
		m.opts.Stored = nil
		m.focus, m.savedIdx = focusSuggestions, 0
		m.refresh()
		m.persist()
		m.view = ReviewView
		return m, nil
	case MsgRegenerated:
		res := msg.data.(regenerateResult)
		m.clearWork()
		m.view = ReviewView
		if res.err != nil {
			m.err = res.err
			return m, nil
		}
		m.session.Apply(res.plan, res.songs)
		m.savedIdx = 0
		m.refresh()
		m.suggestions.Select(0)
		m.persist()
		m.status = fmt.Sprintf("%d new suggestions, %d saved", len(res.songs), len(m.session.Saved))
		return m, nil
	case MsgExported:
		res := msg.data.(exportResult)
		m.clearWork()
		if res.err != nil {
			m.err = res.err
			m.name.Focus()
			m.view = ExportView
			return m, textinput.Blink
		}
		m.record(res)
		m.view = ReviewView
		m.status = fmt.Sprintf("Created %q with %d songs", res.playlist.Name, len(res.ids))
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	switch m.view {
	case PromptView:
		return m.handlePromptKey(msg)
	case ReviewView:
		return m.handleReviewKey(msg)
	case ExportView:
		return m.handleExportKey(msg)
	}
	return m, nil
}

func (m Model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		return m, tea.Quit
	case key.Matches(msg, m.keys.resume):
		if m.opts.Stored == nil {
			return m, nil
		}
		return m, m.startResume(*m.opts.Stored)
	case key.Matches(msg, m.keys.enter):
		prompt := strings.TrimSpace(m.prompt.Value())
		if prompt == "" {
			m.err = fmt.Errorf("%w: enter a prompt", shared.ErrMissingArgument)
			return m, nil
		}
		return m, m.startGenerate(prompt)
	}

	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	return m, cmd
}

func (m Model) handleReviewKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status, m.err = "", nil

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.discard()
		return m, textinput.Blink
	case key.Matches(msg, m.keys.focus):
		if m.focus == focusSuggestions && len(m.session.Saved) > 0 {
			m.focus = focusSaved
		} else {
			m.focus = focusSuggestions
		}
	case key.Matches(msg, m.keys.up):
		m.move(-1)
	case key.Matches(msg, m.keys.down):
		m.move(1)
	case key.Matches(msg, m.keys.keep):
		m.apply(m.session.Keep)
	case key.Matches(msg, m.keys.remove):
		m.apply(m.session.Remove)
	case key.Matches(msg, m.keys.reason):
		m.toggleReason(msg.String())
	case key.Matches(msg, m.keys.unsave):
		if m.focus != focusSaved {
			return m, nil
		}
		if err := m.session.RemoveSaved(m.savedIdx); err != nil {
			m.err = err
			return m, nil
		}
		m.savedIdx = min(m.savedIdx, len(m.session.Saved)-1)
		if len(m.session.Saved) == 0 {
			m.focus, m.savedIdx = focusSuggestions, 0
		}
		m.persist()
	case key.Matches(msg, m.keys.regenerate):
		return m, m.startRegenerate()
	case key.Matches(msg, m.keys.export):
		if len(m.session.Exportable()) == 0 {
			m.err = fmt.Errorf("%w: no saved songs to export, keep some and regenerate first", shared.ErrInvalidInput)
			return m, nil
		}
		m.name.SetValue(tasks.DefaultPlaylistName(m.session.Prompt))
		m.name.CursorEnd()
		m.name.Focus()
		m.view = ExportView
		return m, textinput.Blink
	}
	return m, nil
}

func (m Model) handleExportKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		m.err = nil
		m.name.Blur()
		m.view = ReviewView
		return m, nil
	case key.Matches(msg, m.keys.enter):
		name := strings.TrimSpace(m.name.Value())
		if name == "" {
			m.err = fmt.Errorf("%w: playlist name is required", shared.ErrInvalidArgument)
			return m, nil
		}
		m.name.Blur()
		return m, m.startExport(name)
	}

	var cmd tea.Cmd
	m.name, cmd = m.name.Update(msg)
	return m, cmd
}

// apply runs a curation change on the selected suggestion.
func (m *Model) apply(fn func(int) error) {
	if m.focus != focusSuggestions || len(m.session.Suggestions) == 0 {
		return
	}
	if err := fn(m.suggestions.Index()); err != nil {
		m.err = err
		return
	}
	m.refresh()
	m.persist()
}

// toggleReason maps digit keys 1-9 and 0 to the reason lists.
func (m *Model) toggleReason(k string) {
	if m.focus != focusSuggestions || len(m.session.Suggestions) == 0 {
		return
	}
	n := int(k[0] - '0')
	if n == 0 {
		n = 10
	}
	i := m.suggestions.Index()

	switch song := m.session.Suggestions[i]; song.Status {
	case models.StatusKept:
		if n > len(models.KeepReasons) {
			return
		}
		r := models.KeepReasons[n-1]
		m.apply(func(i int) error { return m.session.ToggleKeepReason(i, r) })
	case models.StatusRemoved:
		r := models.RemoveReasons[n-1]
		m.apply(func(i int) error { return m.session.ToggleRemoveReason(i, r) })
	default:
		m.status = "Keep or remove the song before tagging it"
	}
}

func (m *Model) move(delta int) {
	if m.focus == focusSaved {
		m.savedIdx = max(0, min(m.savedIdx+delta, len(m.session.Saved)-1))
		return
	}
	if delta < 0 {
		m.suggestions.CursorUp()
	} else {
		m.suggestions.CursorDown()
	}
}

// refresh re-renders list items from the session.
func (m *Model) refresh() {
	idx := m.suggestions.Index()
	m.suggestions.SetItems(songItems(m.session.Suggestions))
	if idx < len(m.session.Suggestions) {
		m.suggestions.Select(idx)
	}
}

// persist stores the session snapshot. Failures are logged and shown but never fatal.
func (m *Model) persist() {
	if m.opts.Sessions == nil || m.session == nil || len(m.session.Suggestions) == 0 {
		return
	}
	if err := m.opts.Sessions.Save(m.session.ID, m.session.Snapshot(m.opts.Now())); err != nil {
		m.opts.Logger.Warn("could not save session", "error", err)
		m.err = err
	}
}

func (m *Model) record(res exportResult) {
	if m.opts.Exports == nil {
		return
	}
	rec := models.NewExportRecord(m.session.ID, res.playlist.ID, res.name, tasks.DefaultDescription(m.session.Prompt), res.ids, m.opts.Now())
	if err := m.opts.Exports.Create(rec); err != nil {
		m.opts.Logger.Warn("could not record export", "error", err)
	}
}

// discard drops the current session and returns to the prompt.
func (m *Model) discard() {
	m.session = nil
	m.suggestions.SetItems(nil)
	m.focus, m.savedIdx = focusSuggestions, 0
	if m.opts.Sessions != nil {
		if err := m.opts.Sessions.Clear(); err != nil {
			m.opts.Logger.Warn("could not clear session", "error", err)
		}
	}
	m.prompt.Reset()
	m.prompt.Focus()
	m.view = PromptView
}

// startGenerate drops any stored session before asking for the new prompt.
func (m *Model) startGenerate(prompt string) tea.Cmd {
	m.opts.Stored = nil
	if m.opts.Sessions != nil {
		if err := m.opts.Sessions.Clear(); err != nil {
			m.opts.Logger.Warn("could not clear session", "error", err)
		}
	}

	ctx, r := m.ctx, m.opts.Reconciler
	count, retries := m.opts.Count, m.opts.MaxRetries
	return m.run("Generating suggestions", PromptView, func(progress chan<- tasks.ProgressUpdate) Msg {
		s, err := review.Start(ctx, r, prompt, count, retries, progress)
		return sessionReadyMsg(s, err)
	})
}

func (m *Model) startResume(stored repositories.StoredSession) tea.Cmd {
	ctx, matcher := m.ctx, m.opts.Matcher
	return m.run("Resuming session", PromptView, func(progress chan<- tasks.ProgressUpdate) Msg {
		s, err := review.Resume(ctx, matcher, stored.ID, stored.Snapshot, progress)
		return sessionReadyMsg(s, err)
	})
}

// startRegenerate plans on the UI goroutine and reconciles in the background.
// The session is only changed when the result arrives.
func (m *Model) startRegenerate() tea.Cmd {
	if m.busy != "" {
		return nil
	}
	plan := m.session.PlanRegeneration()
	req := plan.Request(m.session.Prompt, m.opts.Count, m.opts.MaxRetries)
	ctx, r := m.ctx, m.opts.Reconciler
	return m.run("Regenerating", ReviewView, func(progress chan<- tasks.ProgressUpdate) Msg {
		songs, err := r.Reconcile(ctx, req, progress)
		return regeneratedMsg(plan, songs, err)
	})
}

func (m *Model) startExport(name string) tea.Cmd {
	ids := m.session.Exportable()
	desc := tasks.DefaultDescription(m.session.Prompt)
	ctx, exporter := m.ctx, m.opts.Exporter
	return m.run("Exporting to Apple Music", ExportView, func(progress chan<- tasks.ProgressUpdate) Msg {
		pl, err := exporter.Export(ctx, name, desc, ids, progress)
		return exportedMsg(pl, name, ids, err)
	})
}

// run starts op in a goroutine and switches to the working view.
// Progress flows through progressChan and the final message through doneChan.
func (m *Model) run(label string, back ViewState, op func(chan<- tasks.ProgressUpdate) Msg) tea.Cmd {
	progress := make(chan tasks.ProgressUpdate, 100)
	done := make(chan Msg, 1)

	m.busy, m.progress = label, ""
	m.back = back
	m.err, m.status = nil, ""
	m.progressChan, m.doneChan = progress, done
	m.view = WorkingView

	go func() {
		msg := op(progress)
		close(progress)
		done <- msg
	}()

	return tea.Batch(m.spinner.Tick, m.waitForProgress())
}

// waitForProgress waits for the next progress update, then for the final result.
func (m Model) waitForProgress() tea.Cmd {
	progress, done := m.progressChan, m.doneChan
	if progress == nil {
		return nil
	}
	return func() tea.Msg {
		if update, ok := <-progress; ok {
			return progressUpdateMsg(update)
		}
		return <-done
	}
}

func (m *Model) clearWork() {
	m.busy, m.progress = "", ""
	m.progressChan, m.doneChan = nil, nil
}

func (m Model) listWidth() int {
	if m.width == 0 {
		return 60
	}
	return max(m.width*3/5, 30)
}

// View renders the current view.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.styles.title.Render("playlist-gen"))
	b.WriteString("\n")

	switch m.view {
	case PromptView:
		b.WriteString(m.promptView())
	case WorkingView:
		b.WriteString(m.workingView())
	case ReviewView:
		b.WriteString(m.reviewView())
	case ExportView:
		b.WriteString(m.exportView())
	}

	if m.status != "" {
		b.WriteString("\n" + m.styles.ok.Render(m.status) + "\n")
	}
	if m.err != nil {
		b.WriteString("\n" + m.styles.err.Render(errorText(m.err)) + "\n")
	}
	return b.String()
}

func (m Model) promptView() string {
	var b strings.Builder
	b.WriteString("Describe the playlist you want:\n\n")
	b.WriteString(m.prompt.View() + "\n\n")
	if m.opts.Stored != nil {
		b.WriteString(m.styles.warn.Render(fmt.Sprintf("Saved session: %q", m.opts.Stored.Snapshot.Prompt)))
		b.WriteString("\n")
		b.WriteString(m.styles.help.Render("ctrl+r resume"))
		b.WriteString("\n")
	}
	b.WriteString(m.styles.help.Render("enter generate • esc quit"))
	return b.String()
}

func (m Model) workingView() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s...\n\n", m.spinner.View(), m.busy)
	if m.progress != "" {
		b.WriteString(m.styles.help.Render(m.progress))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) reviewView() string {
	kept, removed, pending := m.session.Counts()
	header := fmt.Sprintf("%q  %s kept  %s removed  %d pending",
		m.session.Prompt,
		m.styles.ok.Render(fmt.Sprint(kept)),
		m.styles.err.Render(fmt.Sprint(removed)),
		pending)

	left := m.suggestions.View()
	if len(m.session.Suggestions) == 0 {
		left = m.styles.warn.Render("No catalog-verified suggestions. Press r to try again.")
	}
	left = lipgloss.JoinVertical(lipgloss.Left, left, "", m.detailView())

	body := lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", m.savedView())
	return lipgloss.JoinVertical(lipgloss.Left, header, "", body, "", m.help.View(m.keys))
}

// detailView shows the selected song and its numbered reason tags.
func (m Model) detailView() string {
	if m.focus != focusSuggestions || len(m.session.Suggestions) == 0 {
		return ""
	}
	song := m.session.Suggestions[m.suggestions.Index()]

	var b strings.Builder
	if song.Candidate.Reason != "" {
		b.WriteString(m.styles.help.Render(song.Candidate.Reason) + "\n")
	}
	switch song.Status {
	case models.StatusKept:
		for i, r := range models.KeepReasons {
			b.WriteString(reasonLine(m.styles, i, r.Label(), contains(song.KeepReasons, r)))
		}
	case models.StatusRemoved:
		for i, r := range models.RemoveReasons {
			b.WriteString(reasonLine(m.styles, i, r.Label(), contains(song.RemoveReasons, r)))
		}
	}
	return b.String()
}

func (m Model) savedView() string {
	var b strings.Builder
	b.WriteString(m.styles.selected.Render(fmt.Sprintf("Saved (%d)", len(m.session.Saved))))
	b.WriteString("\n")
	if len(m.session.Saved) == 0 {
		b.WriteString(m.styles.help.Render("Kept songs move here\nwhen you regenerate."))
	}
	for i, s := range m.session.Saved {
		line := fmt.Sprintf("%s - %s", s.Title(), s.Artist())
		if !s.Matched() {
			line += " (not in catalog)"
		}
		if m.focus == focusSaved && i == m.savedIdx {
			line = m.styles.selected.Render("> " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line + "\n")
	}
	return m.styles.panel.Render(strings.TrimRight(b.String(), "\n"))
}

func (m Model) exportView() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Export %d saved songs to your Apple Music library\n\n", len(m.session.Exportable()))
	b.WriteString("Playlist name:\n")
	b.WriteString(m.name.View() + "\n\n")
	b.WriteString(m.styles.help.Render(tasks.DefaultDescription(m.session.Prompt)) + "\n\n")
	b.WriteString(m.styles.help.Render("enter export • esc back"))
	return b.String()
}

func reasonLine(p *Palette, i int, label string, on bool) string {
	n := (i + 1) % 10
	mark := "[ ]"
	if on {
		mark = p.ok.Render("[x]")
	}
	return fmt.Sprintf("  %d %s %s\n", n, mark, label)
}

func contains[T comparable](list []T, v T) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// errorText renders known failures with a hint.
func errorText(err error) string {
	switch {
	case errors.Is(err, shared.ErrInvalidCredentials):
		return "Credentials were rejected. Run `playlist-gen setup keys`.\n" + err.Error()
	case errors.Is(err, shared.ErrNotAuthorized):
		return "Apple Music is not authorized. Run `playlist-gen auth apple`.\n" + err.Error()
	case errors.Is(err, shared.ErrRateLimited):
		return "Rate limited, wait a moment and try again.\n" + err.Error()
	default:
		return err.Error()
	}
}
