package main

import (
	"context"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/snesjhon/playlist-gen/internal/repositories"
	"github.com/snesjhon/playlist-gen/internal/shared"
)

// AuthApple runs the browser authorization and stores the Music-User-Token.
func (r *Runner) AuthApple(ctx context.Context, cmd *cli.Command) error {
	r.writePlain("Opening the browser to authorize Apple Music...\n")

	token, err := r.authorizeApple(ctx)
	if err != nil {
		return err
	}

	r.logger.Info("apple music authorized")
	if token.Expiry.IsZero() {
		return r.writePlain("✓ Apple Music authorized\n")
	}
	return r.writePlain("✓ Apple Music authorized until %s\n", token.Expiry.Local().Format(time.DateOnly))
}

// AuthStatus reports where each credential comes from without printing it.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	stored, err := r.settings.All()
	if err != nil {
		return err
	}

	r.writePlainHeader("Credentials")
	r.writePlain("Anthropic API key:           %s\n",
		credentialSource(stored[repositories.SettingAnthropicKey], os.Getenv(shared.EnvAnthropicKey), r.config.Credentials.Anthropic.APIKey))
	r.writePlain("Apple Music developer token: %s\n",
		credentialSource(stored[repositories.SettingDeveloperToken], os.Getenv(shared.EnvDeveloperToken), r.config.Credentials.AppleMusic.DeveloperToken))

	token, err := r.storedUserToken()
	if err != nil {
		return err
	}
	switch {
	case token == nil:
		r.writePlain("Apple Music library access:  ✗ not authorized\n")
	case !token.Valid():
		r.writePlain("Apple Music library access:  ✗ expired %s\n", token.Expiry.Local().Format(time.DateOnly))
	case token.Expiry.IsZero():
		r.writePlain("Apple Music library access:  ✓ authorized\n")
	default:
		r.writePlain("Apple Music library access:  ✓ authorized until %s\n", token.Expiry.Local().Format(time.DateOnly))
	}

	if prompt, err := r.sessions.Prompt(); err == nil && prompt != "" {
		r.writePlain("Session:                     %q\n", prompt)
	}
	return nil
}

// credentialSource names the winning source in settings, environment, file order.
func credentialSource(setting, env, effective string) string {
	switch {
	case setting != "":
		return "✓ stored"
	case env != "":
		return "✓ environment"
	case effective != "":
		return "✓ config file"
	default:
		return "✗ missing"
	}
}

// AuthClear forgets every stored credential and the session that depended on them.
func (r *Runner) AuthClear(ctx context.Context, cmd *cli.Command) error {
	if err := r.settings.Delete(repositories.CredentialKeys...); err != nil {
		return err
	}
	if err := r.sessions.Clear(); err != nil {
		return err
	}

	r.logger.Info("credentials cleared")
	return r.writePlain("✓ Stored credentials and session cleared\n")
}
