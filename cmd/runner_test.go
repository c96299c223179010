package main

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"

	"github.com/snesjhon/playlist-gen/internal/models"
	"github.com/snesjhon/playlist-gen/internal/repositories"
	"github.com/snesjhon/playlist-gen/internal/shared"
	"github.com/snesjhon/playlist-gen/internal/tasks"
	tu "github.com/snesjhon/playlist-gen/internal/testing"
)

type fakeCatalog struct {
	*tu.MockCatalog
	*tu.MockPlaylistCreator
	validateErr error
}

func (f *fakeCatalog) Validate(ctx context.Context) error { return f.validateErr }

type validatingGenerator struct {
	*tu.MockGenerator
	err error
}

func (v *validatingGenerator) Validate(ctx context.Context) error { return v.err }

type harness struct {
	runner     *Runner
	output     *bytes.Buffer
	db         *sql.DB
	generator  *tu.MockGenerator
	catalog    *fakeCatalog
	authorized int
}

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := shared.NewDatabase(shared.MemoryDatabase)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func candidates(n int, prefix string) []models.Candidate {
	out := make([]models.Candidate, n)
	for i := range out {
		out[i] = models.Candidate{Title: prefix + " " + string(rune('A'+i)), Artist: "Band " + string(rune('A'+i)), Reason: "fits the mood"}
	}
	return out
}

func newHarness(t *testing.T, batches ...[]models.Candidate) *harness {
	t.Helper()
	h := &harness{
		output:    &bytes.Buffer{},
		db:        setupTestDB(t),
		generator: &tu.MockGenerator{Batches: batches},
		catalog: &fakeCatalog{
			MockCatalog:         &tu.MockCatalog{MatchAll: true, ArtworkSize: 80},
			MockPlaylistCreator: &tu.MockPlaylistCreator{},
		},
	}

	config := shared.DefaultConfig()
	config.Generation.Count = 3
	config.Generation.MaxRetries = 1
	config.Credentials.AppleMusic.DeveloperToken = "dev-token"

	h.runner = NewRunner(RunnerOpts{
		Config:    config,
		Logger:    shared.NewLogger(&bytes.Buffer{}),
		Output:    h.output,
		DB:        h.db,
		Generator: h.generator,
		Catalog:   h.catalog,
		Pause:     tasks.NoDelay,
		Authorize: func(ctx context.Context, developerToken string) (*oauth2.Token, error) {
			h.authorized++
			return &oauth2.Token{AccessToken: "user-token", Expiry: time.Now().Add(time.Hour)}, nil
		},
	})
	return h
}

func (h *harness) run(t *testing.T, args ...string) error {
	t.Helper()
	h.output.Reset()
	app := &cli.Command{
		Name: "playlist-gen",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config"},
			&cli.BoolFlag{Name: "verbose"},
		},
		Before:   h.runner.Before,
		After:    h.runner.After,
		Commands: h.runner.register(),
	}
	return app.Run(context.Background(), append([]string{"playlist-gen"}, args...))
}

func (h *harness) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	if err := h.run(t, args...); err != nil {
		t.Fatalf("%v: expected no error, got %v", args, err)
	}
	return h.output.String()
}

func (h *harness) stored(t *testing.T) *repositories.StoredSession {
	t.Helper()
	stored, err := repositories.NewSessionRepository(h.db, nil).Load()
	if err != nil {
		t.Fatalf("failed to load session: %v", err)
	}
	return stored
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with database builds repositories", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{DB: setupTestDB(t)})
			if runner.settings == nil || runner.sessions == nil || runner.exports == nil {
				t.Error("expected repositories to be set")
			}
			if runner.ownsDB {
				t.Error("expected injected database not to be owned")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.Contains(output.String(), `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})
			if err := runner.writePlain("test"); err == nil {
				t.Fatal("expected error from failing writer")
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		names := map[string]bool{}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names[cmd.Name] = true
		}
		for _, want := range []string{"setup", "auth", "generate", "session", "export", "exports", "search", "tui"} {
			if !names[want] {
				t.Errorf("expected %s command", want)
			}
		}
	})
}

func TestSettingsPrecedence(t *testing.T) {
	h := newHarness(t)
	settings := repositories.NewSettingsRepository(h.db)
	if err := settings.SetMany(map[string]string{
		repositories.SettingAnthropicKey:   "stored-key",
		repositories.SettingDeveloperToken: "stored-token",
		repositories.SettingTheme:          "light",
	}); err != nil {
		t.Fatalf("failed to store settings: %v", err)
	}
	h.runner.config.Credentials.Anthropic.APIKey = "file-key"

	h.mustRun(t, "auth", "status")

	c := h.runner.config
	if c.Credentials.Anthropic.APIKey != "stored-key" || c.Credentials.AppleMusic.DeveloperToken != "stored-token" {
		t.Errorf("expected stored credentials to win, got %+v", c.Credentials)
	}
	if c.UI.Theme != "light" {
		t.Errorf("expected stored theme, got %s", c.UI.Theme)
	}
	if out := h.output.String(); !strings.Contains(out, "✓ stored") || strings.Contains(out, "stored-key") {
		t.Errorf("expected source without secret, got %s", out)
	}
}

func TestSetup(t *testing.T) {
	t.Run("Keys Are Stored Only When Both Validate", func(t *testing.T) {
		h := newHarness(t)
		h.runner.generator = &validatingGenerator{MockGenerator: h.generator}
		h.catalog.validateErr = shared.ErrInvalidCredentials

		err := h.run(t, "setup", "keys", "--anthropic-key", "sk-new", "--developer-token", "dev-new")
		if !errors.Is(err, shared.ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
		if _, ok, _ := h.runner.settings.Get(repositories.SettingAnthropicKey); ok {
			t.Error("expected nothing stored")
		}

		h.catalog.validateErr = nil
		h.mustRun(t, "setup", "keys", "--anthropic-key", "sk-new", "--developer-token", "dev-new")
		if v, _, _ := h.runner.settings.Get(repositories.SettingAnthropicKey); v != "sk-new" {
			t.Errorf("expected stored key, got %q", v)
		}
		if v, _, _ := h.runner.settings.Get(repositories.SettingDeveloperToken); v != "dev-new" {
			t.Errorf("expected stored token, got %q", v)
		}
	})

	t.Run("Generator Forbidden", func(t *testing.T) {
		h := newHarness(t)
		h.runner.generator = &validatingGenerator{MockGenerator: h.generator, err: shared.ErrGeneratorForbidden}

		err := h.run(t, "setup", "keys", "--anthropic-key", "sk", "--developer-token", "dev")
		if !errors.Is(err, shared.ErrGeneratorForbidden) {
			t.Errorf("expected ErrGeneratorForbidden, got %v", err)
		}
	})

	t.Run("Theme", func(t *testing.T) {
		h := newHarness(t)

		if err := h.run(t, "setup", "theme", "neon"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
		h.mustRun(t, "setup", "theme", "dark")
		if v, _, _ := h.runner.settings.Get(repositories.SettingTheme); v != "dark" {
			t.Errorf("expected dark, got %q", v)
		}
	})
}

func TestSessionCommands(t *testing.T) {
	t.Run("Generate Stores Session", func(t *testing.T) {
		h := newHarness(t, candidates(3, "Song"))

		out := h.mustRun(t, "generate", "rainy", "day", "jazz")
		if !strings.Contains(out, `"rainy day jazz"`) || !strings.Contains(out, "Song A") {
			t.Errorf("unexpected output %s", out)
		}

		stored := h.stored(t)
		if stored == nil || stored.Snapshot.Prompt != "rainy day jazz" || len(stored.Snapshot.Suggestions) != 3 {
			t.Fatalf("unexpected stored session %+v", stored)
		}
		req := h.generator.Requests[0]
		if req.Count != 3 || req.Feedback != nil {
			t.Errorf("unexpected request %+v", req)
		}
	})

	t.Run("Failed Generate Drops Previous Session", func(t *testing.T) {
		h := newHarness(t, candidates(3, "Song"))
		h.mustRun(t, "generate", "old", "prompt")
		h.generator.Err = shared.ErrInvalidCredentials

		if err := h.run(t, "generate", "brand", "new"); !errors.Is(err, shared.ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
		if stored := h.stored(t); stored != nil {
			t.Errorf("expected no stored session, got prompt %q", stored.Snapshot.Prompt)
		}
		if err := h.run(t, "session", "show"); !errors.Is(err, shared.ErrNoSession) {
			t.Errorf("expected ErrNoSession, got %v", err)
		}
	})

	t.Run("Generate Requires Prompt", func(t *testing.T) {
		h := newHarness(t)
		if err := h.run(t, "generate"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("Show Without Session", func(t *testing.T) {
		h := newHarness(t)
		if err := h.run(t, "session", "show"); !errors.Is(err, shared.ErrNoSession) {
			t.Errorf("expected ErrNoSession, got %v", err)
		}
	})

	t.Run("Curate Regenerate And Export", func(t *testing.T) {
		h := newHarness(t, candidates(3, "Song"), candidates(3, "Next"))
		h.mustRun(t, "generate", "lofi")

		h.mustRun(t, "session", "keep", "--reason", "nostalgic", "1")
		h.mustRun(t, "session", "remove", "--reason", "too-fast", "2")

		snap := h.stored(t).Snapshot
		if snap.Suggestions[0].Status != models.StatusKept || snap.Suggestions[0].KeepReasons[0] != models.KeepNostalgic {
			t.Errorf("expected kept with reason, got %+v", snap.Suggestions[0])
		}
		if snap.Suggestions[1].Status != models.StatusRemoved {
			t.Errorf("expected removed, got %+v", snap.Suggestions[1])
		}

		h.mustRun(t, "session", "regenerate")
		req := h.generator.Requests[1]
		if req.Feedback == nil || len(req.Feedback.Kept) != 1 || len(req.Feedback.Removed) != 1 {
			t.Fatalf("expected feedback in regeneration, got %+v", req)
		}
		if got := req.Feedback.Removed[0].Reasons; len(got) != 1 || got[0] != "too-fast" {
			t.Errorf("expected removed reason, got %v", got)
		}

		snap = h.stored(t).Snapshot
		if len(snap.SavedSongs) != 1 || snap.SavedSongs[0].Candidate.Title != "Song A" {
			t.Errorf("expected Song A saved, got %+v", snap.SavedSongs)
		}
		if len(snap.AllRemoved) != 1 {
			t.Errorf("expected 1 removed entry, got %d", len(snap.AllRemoved))
		}

		out := h.mustRun(t, "export", "--name", "Study")
		if !strings.Contains(out, `"Study"`) {
			t.Errorf("unexpected output %s", out)
		}
		if h.authorized != 1 {
			t.Errorf("expected one authorization, got %d", h.authorized)
		}
		reqs := h.catalog.MockPlaylistCreator.Requests
		if len(reqs) != 1 || len(reqs[0].SongIDs) != 1 || reqs[0].Description != "Generated from: lofi" {
			t.Fatalf("unexpected playlist requests %+v", reqs)
		}
		if tokens := h.catalog.MockPlaylistCreator.Tokens; tokens[0] != "user-token" {
			t.Errorf("expected stored user token, got %v", tokens)
		}

		h.mustRun(t, "export")
		if h.authorized != 1 {
			t.Errorf("expected stored token reused, got %d authorizations", h.authorized)
		}

		out = h.mustRun(t, "exports")
		if !strings.Contains(out, "Study") || !strings.Contains(out, "lofi") {
			t.Errorf("expected both exports listed, got %s", out)
		}
	})

	t.Run("Failed Regeneration Leaves Session", func(t *testing.T) {
		h := newHarness(t, candidates(2, "Song"))
		h.mustRun(t, "generate", "lofi")
		h.mustRun(t, "session", "keep", "1")
		h.generator.Err = shared.ErrRateLimited

		if err := h.run(t, "session", "regenerate"); !errors.Is(err, shared.ErrRateLimited) {
			t.Fatalf("expected ErrRateLimited, got %v", err)
		}
		snap := h.stored(t).Snapshot
		if len(snap.SavedSongs) != 0 || snap.Suggestions[0].Status != models.StatusKept {
			t.Error("expected stored session unchanged")
		}
	})

	t.Run("Tag Requires Status", func(t *testing.T) {
		h := newHarness(t, candidates(2, "Song"))
		h.mustRun(t, "generate", "lofi")

		if err := h.run(t, "session", "tag", "--reason", "nostalgic", "1"); !errors.Is(err, shared.ErrInvalidTransition) {
			t.Errorf("expected ErrInvalidTransition, got %v", err)
		}
	})

	t.Run("Export Without Saved Songs", func(t *testing.T) {
		h := newHarness(t, candidates(2, "Song"))
		h.mustRun(t, "generate", "lofi")

		if err := h.run(t, "export"); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
		if len(h.catalog.MockPlaylistCreator.Requests) != 0 {
			t.Error("expected no playlist created")
		}
	})
}

func TestAuth(t *testing.T) {
	t.Run("Clear Removes Credentials And Session", func(t *testing.T) {
		h := newHarness(t, candidates(1, "Song"))
		h.mustRun(t, "generate", "lofi")
		h.mustRun(t, "auth", "apple")

		h.mustRun(t, "auth", "clear")
		all, _ := h.runner.settings.All()
		if len(all) != 0 {
			t.Errorf("expected no settings, got %v", all)
		}
		if h.stored(t) != nil {
			t.Error("expected session cleared")
		}
	})

	t.Run("Expired Token Reauthorizes", func(t *testing.T) {
		h := newHarness(t)
		if err := h.runner.settings.SetMany(map[string]string{
			repositories.SettingMusicUserToken:   "old",
			repositories.SettingMusicUserTokenAt: time.Now().Add(-time.Hour).UTC().Format(time.RFC3339),
		}); err != nil {
			t.Fatalf("failed to store token: %v", err)
		}

		token, err := h.runner.userToken(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if token != "user-token" || h.authorized != 1 {
			t.Errorf("expected reauthorization, got %q after %d", token, h.authorized)
		}
	})

	t.Run("Authorization Failure", func(t *testing.T) {
		h := newHarness(t)
		h.runner.authorize = func(ctx context.Context, developerToken string) (*oauth2.Token, error) {
			return nil, shared.ErrTimeout
		}

		err := h.run(t, "auth", "apple")
		if !errors.Is(err, shared.ErrNotAuthorized) || !errors.Is(err, shared.ErrTimeout) {
			t.Errorf("expected ErrNotAuthorized wrapping ErrTimeout, got %v", err)
		}
	})
}

func TestHelpers(t *testing.T) {
	t.Run("parseIndices", func(t *testing.T) {
		got, err := parseIndices([]string{"3", "1"})
		if err != nil || len(got) != 2 || got[0] != 2 || got[1] != 0 {
			t.Errorf("unexpected %v, %v", got, err)
		}
		for _, bad := range [][]string{nil, {"0"}, {"x"}} {
			if _, err := parseIndices(bad); err == nil {
				t.Errorf("expected error for %v", bad)
			}
		}
	})

	t.Run("descending", func(t *testing.T) {
		in := []int{0, 2, 1}
		got := descending(in)
		if got[0] != 2 || got[2] != 0 || in[0] != 0 {
			t.Errorf("unexpected %v from %v", got, in)
		}
	})

	t.Run("defaultOutput", func(t *testing.T) {
		tests := []struct{ format, name, want string }{
			{"csv", "Rainy Day Jazz!", "rainy-day-jazz.csv"},
			{"txt", "lofi", "lofi.txt"},
			{"md", "lofi beats", "lofi-beats"},
			{"csv", "???", "playlist.csv"},
		}
		for _, tt := range tests {
			if got := defaultOutput(tt.format, tt.name); got != tt.want {
				t.Errorf("defaultOutput(%q, %q) = %q, want %q", tt.format, tt.name, got, tt.want)
			}
		}
	})

	t.Run("userMessage", func(t *testing.T) {
		if got := userMessage(shared.ErrNotAuthorized); !strings.Contains(got, "auth apple") {
			t.Errorf("expected hint, got %q", got)
		}
		if got := userMessage(errors.New("boom")); got != "boom" {
			t.Errorf("expected plain message, got %q", got)
		}
	})
}
