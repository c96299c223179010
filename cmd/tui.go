package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/snesjhon/playlist-gen/internal/shared"
	"github.com/snesjhon/playlist-gen/internal/ui"
)

// tuiLogPath receives log output while the TUI owns the terminal.
const tuiLogPath = "./tmp/playlist-gen-tui.log"

// TUI launches the interactive review screen.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	logFile, err := openLogFile(tuiLogPath)
	if err != nil {
		return err
	}
	defer logFile.Close()
	r.SetLogger(shared.NewLogger(logFile))

	reconciler, err := r.reconciler()
	if err != nil {
		return err
	}
	matcher, err := r.matcher()
	if err != nil {
		return err
	}
	exporter, err := r.exporter()
	if err != nil {
		return err
	}

	stored, err := r.sessions.Load()
	if err != nil {
		return err
	}

	model := ui.NewModel(ctx, ui.Options{
		Reconciler: reconciler,
		Matcher:    matcher,
		Exporter:   exporter,
		Sessions:   r.sessions,
		Exports:    r.exports,
		Stored:     stored,
		Count:      r.config.Generation.Count,
		MaxRetries: r.config.Generation.MaxRetries,
		Theme:      r.config.UI.Theme,
		Logger:     r.logger,
		Now:        r.now,
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}
