package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/snesjhon/playlist-gen/internal/models"
)

var (
	_ list.Item         = songItem{}
	_ list.ItemDelegate = songDelegate{}
)

// songItem wraps [models.Song] to implement [list.Item].
type songItem struct {
	song models.Song
}

func (i songItem) FilterValue() string { return i.song.Title() }
func (i songItem) Title() string       { return i.song.Title() }
func (i songItem) Description() string {
	parts := []string{i.song.Artist()}
	if album := i.song.Album(); album != "" {
		parts = append(parts, album)
	}
	if !i.song.Matched() {
		parts = append(parts, "not in catalog")
	}
	return strings.Join(parts, " • ")
}

// songDelegate renders a song with its status mark and tags.
type songDelegate struct {
	palette *Palette
}

func (d songDelegate) Height() int                             { return 2 }
func (d songDelegate) Spacing() int                            { return 0 }
func (d songDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d songDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(songItem)
	if !ok {
		return
	}

	cursor := "  "
	title := it.Title()
	if index == m.Index() {
		cursor = d.palette.selected.Render("> ")
		title = d.palette.selected.Render(title)
	}

	desc := it.Description()
	if tags := tagLabels(it.song); tags != "" {
		desc += " • " + tags
	}

	fmt.Fprintf(w, "%s%s %s\n    %s", cursor, statusMark(d.palette, it.song.Status), title, d.palette.help.Render(desc))
}

func statusMark(p *Palette, s models.Status) string {
	switch s {
	case models.StatusKept:
		return p.ok.Render("✓")
	case models.StatusRemoved:
		return p.err.Render("✗")
	default:
		return p.help.Render("•")
	}
}

func tagLabels(s models.Song) string {
	var labels []string
	for _, r := range s.KeepReasons {
		labels = append(labels, r.Label())
	}
	for _, r := range s.RemoveReasons {
		labels = append(labels, r.Label())
	}
	return strings.Join(labels, ", ")
}

func songItems(songs []models.Song) []list.Item {
	items := make([]list.Item, len(songs))
	for i, s := range songs {
		items[i] = songItem{song: s}
	}
	return items
}
