package models

import (
	"fmt"
	"strings"
	"time"
)

// Ingest run kinds recorded in the ingest_runs audit table.
const (
	RunKindTopTracks   = "top_tracks"
	RunKindRecentPlays = "recent_plays"
)

// Artist is a Spotify artist snapshot keyed by its external artist ID.
//
// Rows are insert-or-ignore: the stored name and genre list reflect the
// first-seen state and may go stale relative to the live catalog.
type Artist struct {
	ID     string `json:"artist_id"`
	Name   string `json:"name"`
	Genres string `json:"genres"` // comma-joined genre list, may be empty
}

// Validate checks that the artist carries its identity fields.
func (a Artist) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("artist ID is required")
	}
	if a.Name == "" {
		return fmt.Errorf("artist name is required")
	}
	return nil
}

// JoinGenres renders a genre slice the way rows store it.
func JoinGenres(genres []string) string {
	return strings.Join(genres, ", ")
}

// Track is a Spotify track snapshot keyed by its external track ID.
//
// DurationMS and Popularity are pointers because the catalog omits them for
// some items (local files, region-restricted tracks); absent values are
// stored as NULL rather than failing the batch.
type Track struct {
	ID          string `json:"track_id"`
	Name        string `json:"name"`
	ArtistID    string `json:"artist_id"`
	AlbumName   string `json:"album_name"`
	ReleaseDate string `json:"release_date"` // ISO date or year-only, as the API returns it
	DurationMS  *int   `json:"duration_ms"`
	Popularity  *int   `json:"popularity"`
}

// Validate checks identity and referential fields.
func (t Track) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("track ID is required")
	}
	if t.Name == "" {
		return fmt.Errorf("track name is required")
	}
	if t.ArtistID == "" {
		return fmt.Errorf("track artist ID is required")
	}
	if t.Popularity != nil && (*t.Popularity < 0 || *t.Popularity > 100) {
		return fmt.Errorf("popularity %d out of range", *t.Popularity)
	}
	return nil
}

// AudioFeatures holds the eleven numeric descriptors Spotify supplies per
// track. A track may have no features at all (the row is simply absent);
// within a row every descriptor is present.
type AudioFeatures struct {
	TrackID          string  `json:"id"`
	Danceability     float64 `json:"danceability"`
	Energy           float64 `json:"energy"`
	Key              int     `json:"key"`
	Loudness         float64 `json:"loudness"`
	Mode             int     `json:"mode"`
	Speechiness      float64 `json:"speechiness"`
	Acousticness     float64 `json:"acousticness"`
	Instrumentalness float64 `json:"instrumentalness"`
	Liveness         float64 `json:"liveness"`
	Valence          float64 `json:"valence"`
	Tempo            float64 `json:"tempo"`
}

// Validate checks the descriptors against the API's documented ranges.
// Loudness and tempo are unbounded.
func (f AudioFeatures) Validate() error {
	if f.TrackID == "" {
		return fmt.Errorf("audio features track ID is required")
	}
	if f.Key < -1 || f.Key > 11 {
		return fmt.Errorf("key %d out of range", f.Key)
	}
	if f.Mode != 0 && f.Mode != 1 {
		return fmt.Errorf("mode %d out of range", f.Mode)
	}
	for name, v := range map[string]float64{
		"danceability":     f.Danceability,
		"energy":           f.Energy,
		"speechiness":      f.Speechiness,
		"acousticness":     f.Acousticness,
		"instrumentalness": f.Instrumentalness,
		"liveness":         f.Liveness,
		"valence":          f.Valence,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s %f out of range", name, v)
		}
	}
	return nil
}

// Play is one listening event, keyed by (track, exact played-at timestamp).
//
// Append-only; re-ingesting the same window of history collapses onto
// existing rows via the composite key.
type Play struct {
	TrackID  string `json:"track_id"`
	PlayedAt string `json:"played_at"` // ISO-8601 UTC timestamp
	Context  string `json:"context"`   // album, playlist, artist, or empty
}

// ID returns the composite play key.
func (p Play) ID() string {
	return p.TrackID + "::" + p.PlayedAt
}

// Validate checks identity fields and that the timestamp parses.
func (p Play) Validate() error {
	if p.TrackID == "" {
		return fmt.Errorf("play track ID is required")
	}
	if p.PlayedAt == "" {
		return fmt.Errorf("play timestamp is required")
	}
	if _, err := time.Parse(time.RFC3339, p.PlayedAt); err != nil {
		return fmt.Errorf("invalid play timestamp %q: %w", p.PlayedAt, err)
	}
	return nil
}

// IngestRun records one ingestion run for auditing skip counts.
type IngestRun struct {
	ID         string    `json:"run_id"`
	Kind       string    `json:"kind"`
	Requested  int       `json:"requested"`
	Ingested   int       `json:"ingested"`
	Skipped    int       `json:"skipped"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Validate checks the run kind and counters.
func (r IngestRun) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("run ID is required")
	}
	if r.Kind != RunKindTopTracks && r.Kind != RunKindRecentPlays {
		return fmt.Errorf("unknown run kind %q", r.Kind)
	}
	if r.Ingested < 0 || r.Skipped < 0 || r.Requested < 0 {
		return fmt.Errorf("negative run counters")
	}
	return nil
}
