package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"

	"github.com/snesjhon/playlist-gen/internal/repositories"
	"github.com/snesjhon/playlist-gen/internal/server"
	"github.com/snesjhon/playlist-gen/internal/services"
	"github.com/snesjhon/playlist-gen/internal/shared"
	"github.com/snesjhon/playlist-gen/internal/tasks"
)

// authorizeTimeout bounds how long the browser authorization waits for the user.
const authorizeTimeout = 5 * time.Minute

// Catalog is the catalog vendor surface used by the commands.
type Catalog interface {
	services.Catalog
	services.PlaylistCreator
	Validate(ctx context.Context) error
}

// AuthorizeFunc obtains a Music-User-Token for developerToken.
type AuthorizeFunc func(ctx context.Context, developerToken string) (*oauth2.Token, error)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	logger     *log.Logger
	output     io.Writer
	now        func() time.Time

	db       *sql.DB
	ownsDB   bool
	settings *repositories.SettingsRepository
	sessions *repositories.SessionRepository
	exports  *repositories.ExportRepository

	generator services.Generator
	catalog   Catalog
	pause     tasks.Pause
	authorize AuthorizeFunc
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Nil collaborators are built from the configuration on first use.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Logger     *log.Logger
	Output     io.Writer
	DB         *sql.DB
	Generator  services.Generator
	Catalog    Catalog
	Pause      tasks.Pause
	Authorize  AuthorizeFunc
	Now        func() time.Time
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		logger:     opts.Logger,
		output:     opts.Output,
		now:        opts.Now,
		generator:  opts.Generator,
		catalog:    opts.Catalog,
		pause:      opts.Pause,
		authorize:  opts.Authorize,
	}
	if opts.DB != nil {
		r.useDatabase(opts.DB)
	}
	if r.authorize == nil {
		r.authorize = r.browserAuthorize
	}
	return r
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, generateCommand, sessionCommand, exportCommand, exportsCommand, searchCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before loads configuration, opens the database and applies stored settings.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	if r.config == nil {
		if path := cmd.String("config"); path != "" {
			r.configPath = path
		}
		config, err := loadConfig(r.configPath, r.logger)
		if err != nil {
			return ctx, err
		}
		config.ApplyEnv()
		r.config = config
	}
	if err := r.config.Validate(); err != nil {
		return ctx, err
	}

	if r.db == nil {
		db, err := shared.OpenDatabase(r.config.Database)
		if err != nil {
			return ctx, fmt.Errorf("failed to open database %s: %w", r.config.Database.Path, err)
		}
		r.useDatabase(db)
		r.ownsDB = true
	}

	return ctx, r.applySettings()
}

// After closes the database when the runner opened it.
func (r *Runner) After(ctx context.Context, cmd *cli.Command) error {
	if r.ownsDB && r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Runner) useDatabase(db *sql.DB) {
	r.db = db
	r.settings = repositories.NewSettingsRepository(db)
	r.sessions = repositories.NewSessionRepository(db, r.logger)
	r.exports = repositories.NewExportRepository(db)
}

// loadConfig reads path when it exists and falls back to the embedded defaults.
func loadConfig(path string, logger *log.Logger) (*shared.Config, error) {
	if path == "" {
		return shared.DefaultConfig(), nil
	}
	if _, err := os.Stat(path); err != nil {
		logger.Debug("config file not found, using defaults", "path", path)
		return shared.DefaultConfig(), nil
	}
	return shared.LoadConfig(path)
}

// applySettings lets stored credentials and theme override file and environment values.
func (r *Runner) applySettings() error {
	if r.settings == nil {
		return nil
	}
	stored, err := r.settings.All()
	if err != nil {
		return err
	}
	if v := stored[repositories.SettingAnthropicKey]; v != "" {
		r.config.Credentials.Anthropic.APIKey = v
	}
	if v := stored[repositories.SettingDeveloperToken]; v != "" {
		r.config.Credentials.AppleMusic.DeveloperToken = v
	}
	if v := stored[repositories.SettingTheme]; v != "" {
		r.config.UI.Theme = v
	}
	return nil
}

func (r *Runner) generatorService() (services.Generator, error) {
	if r.generator != nil {
		return r.generator, nil
	}
	g, err := r.newGenerator(r.config.Credentials.Anthropic.APIKey)
	if err != nil {
		return nil, err
	}
	r.generator = g
	return g, nil
}

func (r *Runner) newGenerator(apiKey string) (*services.AnthropicGenerator, error) {
	c := r.config.Credentials.Anthropic
	g, err := services.NewAnthropicGenerator(services.AnthropicOptions{
		APIKey:    apiKey,
		Model:     c.Model,
		MaxTokens: int64(c.MaxTokens),
		Logger:    r.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (run `playlist-gen setup keys`)", err)
	}
	return g, nil
}

func (r *Runner) catalogService() (Catalog, error) {
	if r.catalog != nil {
		return r.catalog, nil
	}
	c, err := r.newCatalog(r.config.Credentials.AppleMusic.DeveloperToken)
	if err != nil {
		return nil, err
	}
	r.catalog = c
	return c, nil
}

func (r *Runner) newCatalog(developerToken string) (*services.CatalogSession, error) {
	if developerToken == "" {
		return nil, fmt.Errorf("%w: Apple Music developer token (run `playlist-gen setup keys`)", shared.ErrMissingCredentials)
	}
	c := r.config.Credentials.AppleMusic
	return services.NewCatalogSession(services.AppleMusicOptions{
		DeveloperToken:    developerToken,
		Storefront:        c.Storefront,
		BaseURL:           c.BaseURL,
		RequestsPerSecond: c.RequestsPerSecond,
		Logger:            r.logger,
	}), nil
}

func (r *Runner) matcher() (*tasks.Matcher, error) {
	catalog, err := r.catalogService()
	if err != nil {
		return nil, err
	}
	pause := r.pause
	if pause == nil {
		pause = tasks.FixedDelay(r.config.Generation.MatchDelay())
	}
	return tasks.NewMatcher(catalog, pause, r.logger), nil
}

func (r *Runner) reconciler() (*tasks.Reconciler, error) {
	generator, err := r.generatorService()
	if err != nil {
		return nil, err
	}
	matcher, err := r.matcher()
	if err != nil {
		return nil, err
	}
	return tasks.NewReconciler(generator, matcher, r.logger), nil
}

func (r *Runner) exporter() (*tasks.Exporter, error) {
	catalog, err := r.catalogService()
	if err != nil {
		return nil, err
	}
	return tasks.NewExporter(catalog, tasks.AuthorizerFunc(r.userToken), r.logger), nil
}

// userToken returns the stored Music-User-Token, authorizing in the browser when
// none is stored or the stored one has expired.
func (r *Runner) userToken(ctx context.Context) (string, error) {
	token, err := r.storedUserToken()
	if err != nil {
		return "", err
	}
	if token.Valid() {
		return token.AccessToken, nil
	}

	r.logger.Info("Apple Music authorization required")
	if token, err = r.authorizeApple(ctx); err != nil {
		return "", err
	}
	return token.AccessToken, nil
}

func (r *Runner) storedUserToken() (*oauth2.Token, error) {
	access, ok, err := r.settings.Get(repositories.SettingMusicUserToken)
	if err != nil || !ok {
		return nil, err
	}

	token := &oauth2.Token{AccessToken: access, TokenType: server.MusicUserTokenType}
	if at, ok, err := r.settings.Get(repositories.SettingMusicUserTokenAt); err == nil && ok {
		if expiry, err := time.Parse(time.RFC3339, at); err == nil {
			token.Expiry = expiry
		}
	}
	return token, nil
}

// authorizeApple runs the authorization flow and stores the resulting token.
func (r *Runner) authorizeApple(ctx context.Context) (*oauth2.Token, error) {
	developerToken := r.config.Credentials.AppleMusic.DeveloperToken
	if developerToken == "" {
		return nil, fmt.Errorf("%w: Apple Music developer token (run `playlist-gen setup keys`)", shared.ErrMissingCredentials)
	}

	token, err := r.authorize(ctx, developerToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrNotAuthorized, err)
	}

	values := map[string]string{repositories.SettingMusicUserToken: token.AccessToken}
	if !token.Expiry.IsZero() {
		values[repositories.SettingMusicUserTokenAt] = token.Expiry.UTC().Format(time.RFC3339)
	}
	if err := r.settings.SetMany(values); err != nil {
		return nil, err
	}
	return token, nil
}

func (r *Runner) browserAuthorize(ctx context.Context, developerToken string) (*oauth2.Token, error) {
	h := server.NewAuthorizeHandler(developerToken, shared.GenerateID())
	return server.Authorize(ctx, r.config.Server.Addr(), h, shared.OpenBrowser, authorizeTimeout, r.logger)
}

// withProgress runs fn with a progress channel whose updates are printed as they arrive.
func (r *Runner) withProgress(fn func(progress chan<- tasks.ProgressUpdate) error) error {
	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.Match:
				r.logger.Debug(update.Message, "step", update.Step, "total", update.Total)
			default:
				r.writePlain("  %s\n", update.Message)
			}
		}
	}()

	err := fn(progressCh)
	close(progressCh)
	<-done
	return err
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}

// SetLogger replaces the runner's logger.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
	if r.db != nil {
		r.sessions = repositories.NewSessionRepository(r.db, logger)
	}
}
