package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/urfave/cli/v3"

	"github.com/snesjhon/playlist-gen/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)

	if err := shared.LoadEnv(); err != nil {
		logger.Warn("ignoring .env", "error", err)
	}

	runner := NewRunner(RunnerOpts{Logger: logger})

	app := &cli.Command{
		Name:    "playlist-gen",
		Usage:   "Generate Apple Music playlists from a prompt and refine them with feedback",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
		},
		Before:   runner.Before,
		After:    runner.After,
		Commands: runner.register(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := app.Run(ctx, os.Args); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("interrupted")
			os.Exit(130)
		}
		logger.Error(userMessage(err))
		os.Exit(1)
	}
}

// userMessage turns a failure into one line with a next step where there is one.
func userMessage(err error) string {
	switch {
	case errors.Is(err, shared.ErrMissingCredentials), errors.Is(err, shared.ErrInvalidCredentials):
		return err.Error() + "; update them with `playlist-gen setup keys`"
	case errors.Is(err, shared.ErrGeneratorForbidden):
		return err.Error() + "; the key is valid but lacks access to the model"
	case errors.Is(err, shared.ErrNotAuthorized):
		return err.Error() + "; run `playlist-gen auth apple`"
	case errors.Is(err, shared.ErrNoSession):
		return err.Error() + "; start one with `playlist-gen generate <prompt>`"
	default:
		return err.Error()
	}
}
