package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/soundstats/internal/repositories"
	"github.com/desertthunder/soundstats/internal/services"
	"github.com/desertthunder/soundstats/internal/shared"
	"github.com/desertthunder/soundstats/internal/tasks"
	"github.com/urfave/cli/v3"
)

// IngestTop fetches and stores the user's top tracks with audio features.
func (r *Runner) IngestTop(ctx context.Context, cmd *cli.Command) error {
	if err := r.applyConfigFlag(cmd); err != nil {
		return err
	}

	timeRange, err := services.ParseTimeRange(cmd.String("time-range"))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	limit := int(cmd.Int("limit"))

	if err := r.ensureSpotify(ctx); err != nil {
		return err
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	engine := r.newEngine(db)
	progress := make(chan tasks.ProgressUpdate, 8)
	done := r.drainProgress(progress)

	result, err := engine.IngestTopTracks(ctx, progress, timeRange, limit)
	close(progress)
	<-done

	if err != nil {
		return r.renderIngestError(err)
	}

	r.writePlainln("✓ Ingested %d top tracks (%s)", result.Ingested, timeRange)
	r.writePlain("  Artists: %d  Skipped: %d  Run: %s\n", result.Artists, result.Skipped, result.RunID)

	return nil
}

// IngestRecent fetches and stores the user's recently played tracks.
func (r *Runner) IngestRecent(ctx context.Context, cmd *cli.Command) error {
	if err := r.applyConfigFlag(cmd); err != nil {
		return err
	}

	limit := int(cmd.Int("limit"))

	if err := r.ensureSpotify(ctx); err != nil {
		return err
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	engine := r.newEngine(db)
	progress := make(chan tasks.ProgressUpdate, 8)
	done := r.drainProgress(progress)

	result, err := engine.IngestRecentPlays(ctx, progress, limit)
	close(progress)
	<-done

	if err != nil {
		return r.renderIngestError(err)
	}

	r.writePlainln("✓ Ingested %d plays", result.Ingested)
	r.writePlain("  Artists: %d  Skipped: %d  Run: %s\n", result.Artists, result.Skipped, result.RunID)

	return nil
}

// IngestHistory lists past ingestion runs from the audit table.
func (r *Runner) IngestHistory(ctx context.Context, cmd *cli.Command) error {
	if err := r.applyConfigFlag(cmd); err != nil {
		return err
	}

	kind := cmd.String("kind")
	useJSON := cmd.Bool("json")

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := repositories.NewRunRepository(db).List(kind)
	if err != nil {
		return err
	}

	if useJSON {
		return r.writeJSON(runs, true)
	}

	if len(runs) == 0 {
		r.writePlain("No ingestion runs recorded yet.\n")
		return nil
	}

	r.writePlain("%d run(s):\n\n", len(runs))
	for _, run := range runs {
		r.writePlain("%s  %-13s requested=%d ingested=%d skipped=%d (%s)\n",
			run.StartedAt.Format(time.RFC3339), run.Kind,
			run.Requested, run.Ingested, run.Skipped, run.ID)
	}

	return nil
}

// renderIngestError maps known failure classes to actionable messages.
func (r *Runner) renderIngestError(err error) error {
	switch {
	case errors.Is(err, shared.ErrTokenExpired), errors.Is(err, shared.ErrNotAuthenticated):
		return fmt.Errorf("%w\nRe-authenticate with: soundstats auth login", err)
	case errors.Is(err, shared.ErrRateLimited):
		return fmt.Errorf("%w\nThe API is throttling requests; try again in a minute", err)
	default:
		return err
	}
}
