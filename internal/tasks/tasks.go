// package tasks implements the ingestion pipeline from the Spotify API into
// the local store.
//
// The core abstraction is [InsightsEngine], which orchestrates both ingestion
// paths: fetch → transform → deduplicate in memory → bulk upsert. Operations
// emit progress updates via channels for non-blocking status reporting, take
// a context for cancellation, and record an audit row per run.
package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/soundstats/internal/models"
	"github.com/desertthunder/soundstats/internal/repositories"
	"github.com/desertthunder/soundstats/internal/services"
	"github.com/desertthunder/soundstats/internal/shared"
)

// IngestResult summarizes one ingestion run.
type IngestResult struct {
	RunID     string // ID of the recorded audit row
	Requested int    // Items the API returned
	Ingested  int    // Items transformed and handed to the store
	Skipped   int    // Malformed items isolated from the batch
	Artists   int    // Distinct artists encountered
}

// InsightsEngine orchestrates ingestion from the streaming service into the
// library. One engine instance serves one database; operations run one at a
// time, each owning a single scoped transaction.
type InsightsEngine struct {
	spotify services.Service
	library *repositories.LibraryRepository
	runs    *repositories.RunRepository
	logger  *log.Logger
}

// NewInsightsEngine creates an engine with the provided service and repositories.
func NewInsightsEngine(spotify services.Service, library *repositories.LibraryRepository, runs *repositories.RunRepository, logger *log.Logger) *InsightsEngine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &InsightsEngine{
		spotify: spotify,
		library: library,
		runs:    runs,
		logger:  logger,
	}
}

// sendProgress delivers an update without blocking. A nil channel disables
// progress reporting.
func (e *InsightsEngine) sendProgress(ch chan<- ProgressUpdate, update ProgressUpdate) {
	if ch == nil {
		return
	}
	select {
	case ch <- update:
	default:
	}
}

// IngestTopTracks fetches the user's top tracks for the given time range and
// persists artists, tracks, and audio features in dependency order.
//
// An empty API page is not an error: the run records zero items. Malformed
// items are skipped, counted, and logged without aborting the batch.
func (e *InsightsEngine) IngestTopTracks(ctx context.Context, progress chan<- ProgressUpdate, timeRange services.TimeRange, limit int) (*IngestResult, error) {
	if e.spotify == nil {
		return nil, fmt.Errorf("%w: spotify service not initialized", shared.ErrServiceUnavailable)
	}

	startedAt := time.Now().UTC()
	e.sendProgress(progress, phaseUpdate(FetchTopTracks, "Fetching top tracks from Spotify..."))

	items, err := e.spotify.TopTracks(ctx, timeRange, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch top tracks: %w", err)
	}

	result := &IngestResult{Requested: len(items)}
	if len(items) == 0 {
		e.logger.Info("no top tracks returned", "time_range", timeRange)
		return result, e.recordRun(result, models.RunKindTopTracks, startedAt)
	}

	tracks, artistNames, skipped := e.collectTracks(items)
	result.Skipped = skipped

	artists, err := e.resolveArtists(ctx, progress, artistNames)
	if err != nil {
		return nil, err
	}
	result.Artists = len(artists)

	trackIDs := make([]string, 0, len(tracks))
	for _, t := range tracks {
		trackIDs = append(trackIDs, t.ID)
	}

	e.sendProgress(progress, phaseUpdate(FetchFeatures, "Fetching audio features..."))
	rawFeatures, err := e.spotify.AudioFeatures(ctx, trackIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch audio features: %w", err)
	}

	features := make([]models.AudioFeatures, 0, len(rawFeatures))
	for _, af := range rawFeatures {
		if af == nil {
			// The API returns null for local files and similar items;
			// the track simply gets no features row.
			continue
		}
		features = append(features, models.AudioFeatures{
			TrackID:          af.ID,
			Danceability:     af.Danceability,
			Energy:           af.Energy,
			Key:              af.Key,
			Loudness:         af.Loudness,
			Mode:             af.Mode,
			Speechiness:      af.Speechiness,
			Acousticness:     af.Acousticness,
			Instrumentalness: af.Instrumentalness,
			Liveness:         af.Liveness,
			Valence:          af.Valence,
			Tempo:            af.Tempo,
		})
	}

	e.sendProgress(progress, phaseUpdate(PersistBatch, "Storing artists, tracks, and features..."))
	if err := e.library.UpsertTopTracks(artists, tracks, features); err != nil {
		return nil, fmt.Errorf("failed to store top tracks batch: %w", err)
	}

	result.Ingested = len(tracks)
	e.logger.Info("top tracks ingested",
		"time_range", timeRange, "requested", result.Requested,
		"ingested", result.Ingested, "skipped", result.Skipped, "artists", result.Artists)

	return result, e.recordRun(result, models.RunKindTopTracks, startedAt)
}

// IngestRecentPlays fetches the user's recent play events and persists
// artists, tracks, and plays in dependency order. Plays already recorded for
// the same (track, timestamp) pair collapse onto existing rows, which makes
// repeated ingestion idempotent.
func (e *InsightsEngine) IngestRecentPlays(ctx context.Context, progress chan<- ProgressUpdate, limit int) (*IngestResult, error) {
	if e.spotify == nil {
		return nil, fmt.Errorf("%w: spotify service not initialized", shared.ErrServiceUnavailable)
	}

	startedAt := time.Now().UTC()
	e.sendProgress(progress, phaseUpdate(FetchRecentPlays, "Fetching recent plays from Spotify..."))

	items, err := e.spotify.RecentlyPlayed(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recent plays: %w", err)
	}

	result := &IngestResult{Requested: len(items)}
	if len(items) == 0 {
		e.logger.Info("no recent plays returned")
		return result, e.recordRun(result, models.RunKindRecentPlays, startedAt)
	}

	var (
		plays       []models.Play
		tracks      []models.Track
		seenTracks  = map[string]bool{}
		artistNames = map[string]string{}
	)

	for _, item := range items {
		track, artistID, artistName, ok := extractTrack(item.Track)
		if !ok || item.PlayedAt == "" {
			result.Skipped++
			e.logger.Warn("skipping malformed play item", "track_id", item.Track.ID, "played_at", item.PlayedAt)
			continue
		}

		play := models.Play{TrackID: track.ID, PlayedAt: item.PlayedAt}
		if item.Context != nil {
			play.Context = item.Context.Type
		}

		plays = append(plays, play)
		if !seenTracks[track.ID] {
			seenTracks[track.ID] = true
			tracks = append(tracks, track)
		}
		artistNames[artistID] = artistName
	}

	artists, err := e.resolveArtists(ctx, progress, artistNames)
	if err != nil {
		return nil, err
	}
	result.Artists = len(artists)

	e.sendProgress(progress, phaseUpdate(PersistBatch, "Storing artists, tracks, and plays..."))
	if err := e.library.UpsertPlays(artists, tracks, plays); err != nil {
		return nil, fmt.Errorf("failed to store recent plays batch: %w", err)
	}

	result.Ingested = len(plays)
	e.logger.Info("recent plays ingested",
		"requested", result.Requested, "ingested", result.Ingested,
		"skipped", result.Skipped, "artists", result.Artists)

	return result, e.recordRun(result, models.RunKindRecentPlays, startedAt)
}

// collectTracks transforms raw top-track payloads into track rows and gathers
// the primary artist of each, skipping malformed items.
func (e *InsightsEngine) collectTracks(items []services.SpotifyTrack) ([]models.Track, map[string]string, int) {
	var (
		tracks      []models.Track
		skipped     int
		seen        = map[string]bool{}
		artistNames = map[string]string{}
	)

	for _, item := range items {
		track, artistID, artistName, ok := extractTrack(item)
		if !ok {
			skipped++
			e.logger.Warn("skipping malformed track item", "track_id", item.ID, "name", item.Name)
			continue
		}

		if seen[track.ID] {
			continue
		}
		seen[track.ID] = true

		tracks = append(tracks, track)
		artistNames[artistID] = artistName
	}

	return tracks, artistNames, skipped
}

// extractTrack validates a raw track payload and maps it to a row keyed by
// its primary (first-listed) artist. ok is false for malformed items.
func extractTrack(item services.SpotifyTrack) (track models.Track, artistID, artistName string, ok bool) {
	if item.ID == "" || item.Name == "" || len(item.Artists) == 0 || item.Artists[0].ID == "" {
		return models.Track{}, "", "", false
	}

	primary := item.Artists[0]
	track = models.Track{
		ID:          item.ID,
		Name:        item.Name,
		ArtistID:    primary.ID,
		AlbumName:   item.Album.Name,
		ReleaseDate: item.Album.ReleaseDate,
		DurationMS:  item.DurationMS,
		Popularity:  item.Popularity,
	}

	return track, primary.ID, primary.Name, true
}

// resolveArtists fetches the genre list for each distinct artist in the
// batch. Artist IDs are deduplicated before any lookup is issued; genres are
// not cached across batches.
func (e *InsightsEngine) resolveArtists(ctx context.Context, progress chan<- ProgressUpdate, artistNames map[string]string) ([]models.Artist, error) {
	artists := make([]models.Artist, 0, len(artistNames))

	step := 0
	for artistID, name := range artistNames {
		step++
		e.sendProgress(progress, resolvingArtistUpdate(step, len(artistNames)))

		detail, err := e.spotify.Artist(ctx, artistID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve artist %s: %w", artistID, err)
		}

		artists = append(artists, models.Artist{
			ID:     artistID,
			Name:   name,
			Genres: models.JoinGenres(detail.Genres),
		})
	}

	return artists, nil
}

// recordRun writes the audit row for a completed (possibly empty) run.
func (e *InsightsEngine) recordRun(result *IngestResult, kind string, startedAt time.Time) error {
	run := models.IngestRun{
		Kind:       kind,
		Requested:  result.Requested,
		Ingested:   result.Ingested,
		Skipped:    result.Skipped,
		StartedAt:  startedAt,
		FinishedAt: time.Now().UTC(),
	}

	if err := e.runs.Create(&run); err != nil {
		return fmt.Errorf("failed to record ingest run: %w", err)
	}

	result.RunID = run.ID
	return nil
}
