// Package ui implements the interactive review screen using bubbletea's Elm architecture.
//
// The TUI walks through one prompt session:
//  1. [PromptView] : Enter a prompt, or resume the stored session
//  2. [WorkingView] : Watch generation, matching and export progress
//  3. [ReviewView] : Keep or remove suggestions, tag reasons, manage saved songs
//  4. [ExportView] : Name the Apple Music library playlist
//
// The [Model] implements the standard Init/Update/View pattern and receives work results via the Msg union type.
// Long operations run on a goroutine; progress flows through a channel that the model drains one update at a time,
// and the final result arrives on a second channel once the progress channel closes. Only one operation runs at once.
//
// Every curation change is persisted through a [SessionStore] so the session can be resumed later.
package ui
