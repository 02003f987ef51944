// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, ingestCommand, viewsCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// configFlag is shared by every command that reads the TOML config.
func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// setupCommand handles setup operations for database and configuration.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupDatabase,
			},
			{
				Name:   "config",
				Usage:  "Write an example config.toml to the working directory",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupConfig,
			},
		},
	}
}

// authCommand handles Spotify authentication.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage Spotify authentication",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Authenticate with Spotify using OAuth2",
				Flags:  []cli.Flag{configFlag()},
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Show cached token state",
				Flags:  []cli.Flag{configFlag()},
				Action: r.AuthStatus,
			},
		},
	}
}

// ingestCommand handles the two ingestion paths and the run audit trail.
func ingestCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "ingest",
		Usage: "Load listening history into the local database",
		Commands: []*cli.Command{
			{
				Name:  "top",
				Usage: "Ingest top tracks with audio features",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:    "time-range",
						Aliases: []string{"t"},
						Usage:   "Lookback window: short_term, medium_term, or long_term",
						Value:   "medium_term",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Number of top tracks to fetch (max 50)",
						Value: 50,
					},
				},
				Action: r.IngestTop,
			},
			{
				Name:  "recent",
				Usage: "Ingest recently played tracks",
				Flags: []cli.Flag{
					configFlag(),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Number of recent plays to fetch (max 50)",
						Value: 50,
					},
				},
				Action: r.IngestRecent,
			},
			{
				Name:  "history",
				Usage: "List past ingestion runs",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  "kind",
						Usage: "Filter by run kind (top_tracks or recent_plays)",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.IngestHistory,
			},
		},
	}
}

// viewsCommand exposes the read-only query projections.
func viewsCommand(r *Runner) *cli.Command {
	outputFlags := []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "csv",
			Usage: "Output CSV",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Write CSV to a file instead of stdout",
		},
	}

	return &cli.Command{
		Name:    "views",
		Aliases: []string{"view"},
		Usage:   "Query the ingested listening history",
		Commands: []*cli.Command{
			{
				Name:  "top",
				Usage: "Top tracks by popularity with audio features",
				Flags: append([]cli.Flag{
					configFlag(),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of rows to show",
					},
				}, outputFlags...),
				Action: r.ViewsTop,
			},
			{
				Name:   "recent",
				Usage:  "Recent plays, newest first",
				Flags:  append([]cli.Flag{configFlag()}, outputFlags...),
				Action: r.ViewsRecent,
			},
			{
				Name:   "mood",
				Usage:  "Average danceability, energy, and valence",
				Flags:  append([]cli.Flag{configFlag()}, outputFlags...),
				Action: r.ViewsMood,
			},
			{
				Name:   "heatmap",
				Usage:  "Weekday x hour play-count matrix",
				Flags:  append([]cli.Flag{configFlag()}, outputFlags...),
				Action: r.ViewsHeatmap,
			},
		},
	}
}
