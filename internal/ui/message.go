package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/snesjhon/playlist-gen/internal/models"
	"github.com/snesjhon/playlist-gen/internal/review"
	"github.com/snesjhon/playlist-gen/internal/services"
	"github.com/snesjhon/playlist-gen/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgProgressUpdate MsgKind = iota
	MsgSessionReady
	MsgRegenerated
	MsgExported
)

type sessionResult struct {
	session *review.Session
	err     error
}

type regenerateResult struct {
	plan  review.Plan
	songs []models.Song
	err   error
}

type exportResult struct {
	playlist *services.LibraryPlaylist
	name     string
	ids      []string
	err      error
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// sessionReadyMsg is the constructor for [MsgSessionReady], sent after a new or resumed session
func sessionReadyMsg(s *review.Session, err error) Msg {
	return Msg{kind: MsgSessionReady, data: sessionResult{s, err}}
}

// regeneratedMsg is the constructor for [MsgRegenerated]
func regeneratedMsg(plan review.Plan, songs []models.Song, err error) Msg {
	return Msg{kind: MsgRegenerated, data: regenerateResult{plan, songs, err}}
}

// exportedMsg is the constructor for [MsgExported]
func exportedMsg(pl *services.LibraryPlaylist, name string, ids []string, err error) Msg {
	return Msg{kind: MsgExported, data: exportResult{pl, name, ids, err}}
}
