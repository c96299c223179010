// submodule cmd contains command definitions
package main

import (
	"github.com/urfave/cli/v3"

	"github.com/snesjhon/playlist-gen/internal/formatter"
)

// setupCommand handles setup operations for database, credentials and preferences.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Create the config file if missing and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:  "keys",
				Usage: "Validate and store the Anthropic API key and Apple Music developer token",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "anthropic-key",
						Usage:   "Anthropic API key",
						Sources: cli.EnvVars("ANTHROPIC_API_KEY"),
					},
					&cli.StringFlag{
						Name:    "developer-token",
						Usage:   "Apple Music developer token (JWT)",
						Sources: cli.EnvVars("APPLE_MUSIC_DEVELOPER_TOKEN"),
					},
				},
				Action: r.SetupKeys,
			},
			{
				Name:  "theme",
				Usage: "Set the TUI theme (light, dark or system)",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "theme"},
				},
				Action: r.SetupTheme,
			},
		},
	}
}

// authCommand handles Apple Music user authorization
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage credentials and Apple Music authorization",
		Commands: []*cli.Command{
			{
				Name:   "apple",
				Usage:  "Authorize Apple Music library access in the browser",
				Action: r.AuthApple,
			},
			{
				Name:   "status",
				Usage:  "Show which credentials are configured",
				Action: r.AuthStatus,
			},
			{
				Name:   "clear",
				Usage:  "Forget stored credentials and the current session",
				Action: r.AuthClear,
			},
		},
	}
}

func generateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "generate",
		Aliases:   []string{"gen"},
		Usage:     "Start a new session with catalog-verified suggestions for a prompt",
		ArgsUsage: "<prompt>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "count",
				Usage: "Number of suggestions (defaults to generation.count)",
			},
			&cli.IntFlag{
				Name:  "retries",
				Usage: "Extra generator rounds when songs are missing from the catalog",
				Value: -1,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output JSON",
			},
		},
		Action: r.Generate,
	}
}

// sessionCommand groups curation of the stored session
func sessionCommand(r *Runner) *cli.Command {
	reasonFlag := &cli.StringSliceFlag{
		Name:    "reason",
		Aliases: []string{"r"},
		Usage:   "Reason tag to toggle, repeatable",
	}

	return &cli.Command{
		Name:  "session",
		Usage: "Review the current session",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Show the stored session without contacting the catalog",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output JSON"},
				},
				Action: r.SessionShow,
			},
			{
				Name:   "resume",
				Usage:  "Re-match the stored session against the catalog",
				Action: r.SessionResume,
			},
			{
				Name:      "keep",
				Usage:     "Toggle keep on suggestions by number",
				ArgsUsage: "<n>...",
				Flags:     []cli.Flag{reasonFlag},
				Action:    r.SessionKeep,
			},
			{
				Name:      "remove",
				Usage:     "Toggle remove on suggestions by number",
				ArgsUsage: "<n>...",
				Flags:     []cli.Flag{reasonFlag},
				Action:    r.SessionRemove,
			},
			{
				Name:      "tag",
				Usage:     "Toggle reason tags on kept or removed suggestions",
				ArgsUsage: "<n>...",
				Flags:     []cli.Flag{reasonFlag},
				Action:    r.SessionTag,
			},
			{
				Name:      "unsave",
				Usage:     "Remove saved songs by number",
				ArgsUsage: "<n>...",
				Action:    r.SessionUnsave,
			},
			{
				Name:   "reasons",
				Usage:  "List the reason tags",
				Action: r.SessionReasons,
			},
			{
				Name:  "regenerate",
				Usage: "Save kept songs and ask for new suggestions using the feedback",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "count", Usage: "Number of new suggestions (defaults to generation.count)"},
					&cli.IntFlag{Name: "retries", Usage: "Extra generator rounds", Value: -1},
				},
				Action: r.SessionRegenerate,
			},
			{
				Name:  "write",
				Usage: "Write the saved songs to a local file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "csv, md or txt",
						Value:   formatter.FormatMarkdown,
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file, or directory for markdown (defaults to a name derived from the prompt)",
					},
				},
				Action: r.SessionWrite,
			},
			{
				Name:   "clear",
				Usage:  "Discard the stored session",
				Action: r.SessionClear,
			},
		},
	}
}

func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Create an Apple Music library playlist from the saved songs",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Usage: "Playlist name (defaults to the prompt)"},
			&cli.StringFlag{Name: "description", Usage: "Playlist description"},
		},
		Action: r.Export,
	}
}

func exportsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "exports",
		Usage: "List playlists created by previous exports",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Usage: "Maximum records", Value: 20},
			&cli.BoolFlag{Name: "json", Usage: "Output JSON"},
		},
		Action: r.Exports,
	}
}

func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Look up one song in the Apple Music catalog",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "title"},
			&cli.StringArg{Name: "artist"},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "Output JSON"},
		},
		Action: r.Search,
	}
}

// tuiCommand returns the top-level TUI command for interactive review.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive review TUI",
		Action:  r.TUI,
	}
}
