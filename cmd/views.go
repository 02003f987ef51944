package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/soundstats/internal/formatter"
	"github.com/desertthunder/soundstats/internal/repositories"
	"github.com/urfave/cli/v3"
)

// writeCSV renders CSV bytes to the --output file or to standard output.
func (r *Runner) writeCSV(cmd *cli.Command, data []byte) error {
	if outputFile := cmd.String("output"); outputFile != "" {
		if err := os.WriteFile(outputFile, data, 0644); err != nil {
			return fmt.Errorf("failed to write file: %w", err)
		}
		r.writePlain("✓ Exported to %s\n", outputFile)
		return nil
	}

	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func wantsCSV(cmd *cli.Command) bool {
	return cmd.Bool("csv") || cmd.String("output") != ""
}

// ViewsTop prints the top-tracks projection, ordered by popularity.
func (r *Runner) ViewsTop(ctx context.Context, cmd *cli.Command) error {
	if err := r.applyConfigFlag(cmd); err != nil {
		return err
	}
	limit := int(cmd.Int("limit"))

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	rows, err := repositories.NewLibraryRepository(db).TopTracksView()
	if err != nil {
		return err
	}

	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}

	if wantsCSV(cmd) {
		data, err := formatter.TopTracksToCSV(rows)
		if err != nil {
			return err
		}
		return r.writeCSV(cmd, data)
	}

	if cmd.Bool("json") {
		return r.writeJSON(rows, true)
	}

	if len(rows) == 0 {
		r.writePlain("No tracks yet — run `soundstats ingest top` to get started.\n")
		return nil
	}

	r.writePlain("%d track(s):\n\n", len(rows))
	for i, row := range rows {
		popularity := "-"
		if row.Popularity.Valid {
			popularity = fmt.Sprintf("%d", row.Popularity.Int64)
		}
		r.writePlain("%2d. %s — %s\n", i+1, row.ArtistName, row.TrackName)
		r.writePlain("    Popularity: %s  Duration: %s", popularity, formatter.FormatDuration(row.DurationMS))
		if row.AlbumName.Valid {
			r.writePlain("  Album: %s", row.AlbumName.String)
		}
		r.writePlain("\n")
		if row.Danceability.Valid {
			r.writePlain("    Dance: %.2f  Energy: %.2f  Valence: %.2f\n",
				row.Danceability.Float64, row.Energy.Float64, row.Valence.Float64)
		}
	}

	return nil
}

// ViewsRecent prints the recent-activity projection, newest play first.
func (r *Runner) ViewsRecent(ctx context.Context, cmd *cli.Command) error {
	if err := r.applyConfigFlag(cmd); err != nil {
		return err
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	rows, err := repositories.NewLibraryRepository(db).RecentActivityView()
	if err != nil {
		return err
	}

	if wantsCSV(cmd) {
		data, err := formatter.RecentActivityToCSV(rows)
		if err != nil {
			return err
		}
		return r.writeCSV(cmd, data)
	}

	if cmd.Bool("json") {
		return r.writeJSON(rows, true)
	}

	if len(rows) == 0 {
		r.writePlain("No recent plays captured yet — run `soundstats ingest recent`.\n")
		return nil
	}

	r.writePlain("%d play(s):\n\n", len(rows))
	for _, row := range rows {
		context := ""
		if row.Context.Valid {
			context = "  (" + row.Context.String + ")"
		}
		r.writePlain("%s  %s — %s%s\n", row.PlayedAt, row.ArtistName, row.TrackName, context)
	}

	return nil
}

// ViewsMood prints average danceability, energy, and valence.
func (r *Runner) ViewsMood(ctx context.Context, cmd *cli.Command) error {
	if err := r.applyConfigFlag(cmd); err != nil {
		return err
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	profile, err := repositories.NewLibraryRepository(db).MoodProfileView()
	if err != nil {
		return err
	}

	if wantsCSV(cmd) {
		data, err := formatter.MoodProfileToCSV(profile)
		if err != nil {
			return err
		}
		return r.writeCSV(cmd, data)
	}

	if cmd.Bool("json") {
		return r.writeJSON(profile, true)
	}

	if profile == nil {
		r.writePlain("No audio features stored yet — run `soundstats ingest top`.\n")
		return nil
	}

	r.writePlain("Mood profile over %d track(s):\n\n", profile.TrackCount)
	r.writePlain("  Danceability: %.2f\n", profile.Danceability)
	r.writePlain("  Energy:       %.2f\n", profile.Energy)
	r.writePlain("  Valence:      %.2f\n", profile.Valence)

	return nil
}

// ViewsHeatmap prints the weekday x hour play-count matrix.
func (r *Runner) ViewsHeatmap(ctx context.Context, cmd *cli.Command) error {
	if err := r.applyConfigFlag(cmd); err != nil {
		return err
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	matrix, err := repositories.NewLibraryRepository(db).ListeningHeatmap()
	if err != nil {
		return err
	}

	if wantsCSV(cmd) {
		data, err := formatter.HeatmapToCSV(matrix)
		if err != nil {
			return err
		}
		return r.writeCSV(cmd, data)
	}

	if cmd.Bool("json") {
		return r.writeJSON(matrix, true)
	}

	weekdays := []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}
	r.writePlain("Plays by weekday (rows) and hour (cols, UTC):\n\n")
	r.writePlain("     ")
	for hour := 0; hour < 24; hour += 3 {
		r.writePlain("%-9d", hour)
	}
	r.writePlain("\n")
	for i, counts := range matrix {
		r.writePlain("%s  ", weekdays[i])
		for _, count := range counts {
			if count == 0 {
				r.writePlain(" . ")
			} else {
				r.writePlain("%2d ", count)
			}
		}
		r.writePlain("\n")
	}

	return nil
}
