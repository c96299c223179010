package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/snesjhon/playlist-gen/internal/repositories"
	"github.com/snesjhon/playlist-gen/internal/shared"
)

// SetupDatabase writes the example config when none exists and brings the schema up to date.
//
// Migrations already ran when the runner opened the database; this reports the result.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	if r.configPath != "" {
		if _, err := os.Stat(r.configPath); errors.Is(err, os.ErrNotExist) {
			r.logger.Info("config file not found, creating from template", "path", r.configPath)
			if err := shared.CreateConfigFile(r.configPath); err != nil {
				r.logger.Warn("failed to create config file, using defaults", "error", err)
			} else {
				r.logger.Info("config file created", "path", r.configPath)
			}
		}
	}

	r.logger.Info("running database migrations", "path", r.config.Database.Path)
	if err := shared.RunMigrations(r.db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, err := shared.SchemaVersion(r.db)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Database ready at %s (schema version %d)\n", r.config.Database.Path, version)
}

// SetupKeys validates both credentials and stores them only when both pass.
//
// Empty flags fall back to the configured values so one credential can be rotated alone.
func (r *Runner) SetupKeys(ctx context.Context, cmd *cli.Command) error {
	apiKey := strings.TrimSpace(cmd.String("anthropic-key"))
	if apiKey == "" {
		apiKey = r.config.Credentials.Anthropic.APIKey
	}
	developerToken := strings.TrimSpace(cmd.String("developer-token"))
	if developerToken == "" {
		developerToken = r.config.Credentials.AppleMusic.DeveloperToken
	}

	if apiKey == "" {
		return fmt.Errorf("%w: --anthropic-key is required", shared.ErrMissingArgument)
	}
	if developerToken == "" {
		return fmt.Errorf("%w: --developer-token is required", shared.ErrMissingArgument)
	}

	generator, catalog, err := r.keyValidators(apiKey, developerToken)
	if err != nil {
		return err
	}

	r.writePlain("Validating credentials...\n")
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := generator.Validate(gctx); err != nil {
			return fmt.Errorf("anthropic key: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := catalog.Validate(gctx); err != nil {
			return fmt.Errorf("apple music developer token: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	if err := r.settings.SetMany(map[string]string{
		repositories.SettingAnthropicKey:   apiKey,
		repositories.SettingDeveloperToken: developerToken,
	}); err != nil {
		return err
	}
	r.config.Credentials.Anthropic.APIKey = apiKey
	r.config.Credentials.AppleMusic.DeveloperToken = developerToken

	r.logger.Info("credentials stored")
	return r.writePlain("✓ Credentials validated and saved\n")
}

type validator interface {
	Validate(ctx context.Context) error
}

// keyValidators returns services for the candidate credentials.
// Injected collaborators are used as-is.
func (r *Runner) keyValidators(apiKey, developerToken string) (validator, validator, error) {
	var generator validator
	if v, ok := r.generator.(validator); ok {
		generator = v
	} else {
		g, err := r.newGenerator(apiKey)
		if err != nil {
			return nil, nil, err
		}
		generator = g
	}

	var catalog validator = r.catalog
	if r.catalog == nil {
		c, err := r.newCatalog(developerToken)
		if err != nil {
			return nil, nil, err
		}
		catalog = c
	}
	return generator, catalog, nil
}

// SetupTheme persists the TUI theme.
func (r *Runner) SetupTheme(ctx context.Context, cmd *cli.Command) error {
	theme := strings.ToLower(strings.TrimSpace(cmd.StringArg("theme")))
	switch theme {
	case "light", "dark", "system":
	case "":
		return r.writePlain("Theme: %s\n", r.config.UI.Theme)
	default:
		return fmt.Errorf("%w: theme must be light, dark or system, got %q", shared.ErrInvalidArgument, theme)
	}

	if err := r.settings.Set(repositories.SettingTheme, theme); err != nil {
		return err
	}
	r.config.UI.Theme = theme
	return r.writePlain("✓ Theme set to %s\n", theme)
}
