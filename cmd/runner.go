package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/soundstats/internal/repositories"
	"github.com/desertthunder/soundstats/internal/services"
	"github.com/desertthunder/soundstats/internal/shared"
	"github.com/desertthunder/soundstats/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config  *shared.Config
	spotify services.Service
	logger  *log.Logger
	output  io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config  *shared.Config
	Spotify services.Service
	Logger  *log.Logger
	Output  io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:  opts.Config,
		spotify: opts.Spotify,
		logger:  opts.Logger,
		output:  opts.Output,
	}
}

// applyConfigFlag reloads configuration from the --config path when that file
// exists. A missing file keeps the injected config, mirroring the fallback to
// defaults at startup.
func (r *Runner) applyConfigFlag(cmd *cli.Command) error {
	path := cmd.String("config")
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		return fmt.Errorf("failed to load config %s: %w", path, err)
	}

	r.config = config
	return nil
}

// openDatabase opens the configured SQLite database, applies pool settings,
// and ensures the schema is current. The caller owns the returned handle.
func (r *Runner) openDatabase() (*sql.DB, error) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, err
	}

	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.InitDatabase(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// newEngine builds the ingestion engine over an open database.
func (r *Runner) newEngine(db *sql.DB) *tasks.InsightsEngine {
	library := repositories.NewLibraryRepository(db)
	runs := repositories.NewRunRepository(db)
	return tasks.NewInsightsEngine(r.spotify, library, runs, r.logger)
}

// ensureSpotify checks the service is constructed and authenticates it with
// the cached token. Returns an actionable error when credentials or tokens
// are missing.
func (r *Runner) ensureSpotify(ctx context.Context) error {
	if r.spotify == nil {
		return fmt.Errorf("%w: set SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET or fill in config.toml", shared.ErrMissingCredentials)
	}

	oauthSvc, ok := r.spotify.(services.OAuthService)
	if !ok {
		// Pre-authenticated test doubles skip the token dance.
		return nil
	}

	token := r.config.Credentials.Spotify.Token()
	if token == nil {
		return fmt.Errorf("%w: run `soundstats auth login` first", shared.ErrNotAuthenticated)
	}

	return oauthSvc.OAuthenticate(ctx, token)
}

// drainProgress consumes engine progress updates and renders them.
//
// Returns a done channel that closes once the progress channel is closed.
func (r *Runner) drainProgress(progress <-chan tasks.ProgressUpdate) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.writePlain("  [%s] %s\n", update.Phase, update.Message)
		}
	}()
	return done
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
