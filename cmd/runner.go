package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/tabx/internal/matcher"
	"github.com/desertthunder/tabx/internal/repositories"
	"github.com/desertthunder/tabx/internal/retry"
	"github.com/desertthunder/tabx/internal/services"
	"github.com/desertthunder/tabx/internal/shared"
	"github.com/desertthunder/tabx/internal/tasks"
)

// DriverFactory builds the target driver for one command. The caller closes it.
type DriverFactory func(config *shared.Config, logger *log.Logger) services.Driver

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	spotify    services.OAuthService
	newDriver  DriverFactory
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
//
// A nil Config is loaded from the --config path before the first command runs.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Spotify    services.OAuthService
	Driver     DriverFactory
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Driver == nil {
		opts.Driver = newUltimateGuitar
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		spotify:    opts.Spotify,
		newDriver:  opts.Driver,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func newUltimateGuitar(config *shared.Config, logger *log.Logger) services.Driver {
	return services.NewUltimateGuitarService(services.UltimateGuitarOpts{
		Headless:  config.Browser.Headless,
		Timeout:   config.Browser.Timeout(),
		UserAgent: config.Credentials.UltimateGuitar.UserAgent,
		Logger:    logger,
	})
}

// Before loads the configuration named by the global flags, applies .env overrides
// and the log level, then builds the Spotify source from stored credentials.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if r.configPath == "" {
		r.configPath = cmd.String("config")
	}

	if r.config == nil {
		config := shared.DefaultConfig()
		if _, err := os.Stat(r.configPath); err == nil {
			if config, err = shared.LoadConfig(r.configPath); err != nil {
				return ctx, fmt.Errorf("%w: %v", shared.ErrInvalidConfig, err)
			}
		} else {
			r.logger.Debug("config file not found, using defaults", "path", r.configPath)
		}

		if err := shared.ApplyEnv(config, cmd.String("env")); err != nil {
			return ctx, err
		}
		r.config = config
	}

	level := r.config.Log.Level
	if cmd.IsSet("log-level") {
		level = cmd.String("log-level")
	}
	ll, err := shared.ParseLogLevel(level)
	if err != nil {
		return ctx, err
	}
	shared.SetLogLevel(r.logger, ll)

	if r.spotify == nil {
		r.spotify = r.spotifyFromConfig(ctx)
	}
	return ctx, nil
}

// spotifyFromConfig returns nil when no client credentials are configured.
func (r *Runner) spotifyFromConfig(ctx context.Context) services.OAuthService {
	creds := r.config.Credentials.Spotify
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return nil
	}

	svc, err := services.NewSpotifyService(creds.Map())
	if err != nil {
		r.logger.Warn("failed to create Spotify service", "error", err)
		return nil
	}
	if token := creds.Token(); token != nil {
		if err := svc.OAuthenticate(ctx, token); err != nil {
			r.logger.Warn("stored Spotify token rejected", "error", err)
		}
	}
	return svc
}

func (r *Runner) requireSpotify() error {
	if r.spotify == nil {
		return fmt.Errorf("%w: Spotify client_id and client_secret must be set (config or %s/%s)",
			shared.ErrSourceAuth, shared.EnvSpotifyClientID, shared.EnvSpotifyClientSecret)
	}
	if _, err := r.spotify.CurrentToken(); err != nil {
		return fmt.Errorf("%w: run 'tabx spotify auth' first: %w", shared.ErrSourceAuth, err)
	}
	return nil
}

// saveTokens writes the Spotify token, which the oauth2 client may have refreshed, back to the config file.
func (r *Runner) saveTokens() {
	if r.spotify == nil || r.config == nil || r.configPath == "" {
		return
	}
	token, err := r.spotify.CurrentToken()
	if err != nil || token.AccessToken == r.config.Credentials.Spotify.AccessToken {
		return
	}
	if err := r.config.Credentials.Spotify.Update(token); err != nil {
		r.logger.Warn("failed to update token", "error", err)
		return
	}
	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		r.logger.Warn("failed to save refreshed token", "error", err)
		return
	}
	r.logger.Debug("saved refreshed Spotify token", "path", r.configPath)
}

// newEngine wires the engine policies from the matching, retry and sync sections.
func (r *Runner) newEngine(driver services.Driver) (*tasks.SyncEngine, error) {
	c := r.config
	if err := c.ValidateTuning(); err != nil {
		return nil, err
	}
	return tasks.NewSyncEngine(r.spotify, driver, tasks.EngineOpts{
		Matcher: matcher.Config{
			High:         c.Matching.HighThreshold,
			Low:          c.Matching.LowThreshold,
			TitleWeight:  c.Matching.TitleWeight,
			ArtistWeight: c.Matching.ArtistWeight,
		},
		Retry:       retryPolicy(c.Retry),
		RateLimit:   c.Sync.RateLimit(),
		CallTimeout: c.Sync.CallTimeout(),
		Logger:      r.logger,
	})
}

func retryPolicy(c shared.RetryConfig) retry.Policy {
	return retry.Policy{
		MaxAttempts: c.MaxAttempts,
		Min:         c.InitialBackoff(),
		Max:         c.MaxBackoff(),
		Factor:      c.Factor,
	}
}

// openHistory returns nil when history is disabled.
func (r *Runner) openHistory() (*sql.DB, *repositories.RunRepository, error) {
	if !r.config.History.Enabled {
		return nil, nil, nil
	}
	db, err := shared.OpenHistory(r.config.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open history database: %w", err)
	}
	return db, repositories.NewRunRepository(db), nil
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		syncCommand, previewCommand, diagnoseCommand, spotifyCommand, setupCommand, historyCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
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
	if _, err := fmt.Fprintf(r.output, format, args...); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	return r.writePlain("\n"+format+"\n", args...)
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
