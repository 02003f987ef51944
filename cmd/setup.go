package main

import (
	"context"

	"github.com/desertthunder/soundstats/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupDatabase initializes the SQLite database and applies all migrations.
//
// Safe to run repeatedly; already-applied migrations are skipped.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	if err := r.applyConfigFlag(cmd); err != nil {
		return err
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	r.logger.Info("database initialized", "path", r.config.Database.Path)
	r.writePlain("✓ Database ready at %s\n", r.config.Database.Path)

	return nil
}

// SetupConfig writes the embedded example config to the --config path.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if err := shared.CreateConfigFile(configPath); err != nil {
		return err
	}

	r.writePlain("✓ Wrote %s\n", configPath)
	r.writePlain("Fill in your Spotify credentials, or export SPOTIFY_CLIENT_ID / SPOTIFY_CLIENT_SECRET.\n")

	return nil
}
