package repositories

import (
	"database/sql"
	"fmt"
	"time"
)

// TopTrackRow is one row of the top-tracks projection: a track joined to its
// artist with audio features left-joined in. Feature columns are null for
// tracks the API supplied no features for.
type TopTrackRow struct {
	TrackID      string
	TrackName    string
	ArtistName   string
	AlbumName    sql.NullString
	ReleaseDate  sql.NullString
	DurationMS   sql.NullInt64
	Popularity   sql.NullInt64
	Danceability sql.NullFloat64
	Energy       sql.NullFloat64
	Valence      sql.NullFloat64
}

// ActivityRow is one row of the recent-activity projection.
type ActivityRow struct {
	PlayID     string
	TrackName  string
	ArtistName string
	PlayedAt   string
	Context    sql.NullString
}

// MoodProfile holds average danceability, energy, and valence over all
// tracks that have audio features.
type MoodProfile struct {
	Danceability float64
	Energy       float64
	Valence      float64
	TrackCount   int
}

// TopTracksView returns tracks joined to artists with audio features
// left-joined, ordered by popularity descending. Ties and null popularity
// break on track ID so the ordering is reproducible. Empty database yields
// an empty slice.
func (r *LibraryRepository) TopTracksView() ([]TopTrackRow, error) {
	query := `
		SELECT t.track_id, t.name AS track_name, a.name AS artist_name, t.album_name,
		       t.release_date, t.duration_ms, t.popularity,
		       af.danceability, af.energy, af.valence
		FROM tracks t
		JOIN artists a ON t.artist_id = a.artist_id
		LEFT JOIN audio_features af ON t.track_id = af.track_id
		ORDER BY t.popularity DESC, t.track_id ASC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query top tracks view: %w", err)
	}
	defer rows.Close()

	var result []TopTrackRow
	for rows.Next() {
		var row TopTrackRow
		err := rows.Scan(
			&row.TrackID, &row.TrackName, &row.ArtistName, &row.AlbumName,
			&row.ReleaseDate, &row.DurationMS, &row.Popularity,
			&row.Danceability, &row.Energy, &row.Valence,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan top track row: %w", err)
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return result, nil
}

// RecentActivityView returns plays joined to tracks and artists, ordered by
// played-at descending. Empty database yields an empty slice.
func (r *LibraryRepository) RecentActivityView() ([]ActivityRow, error) {
	query := `
		SELECT p.play_id, t.name AS track_name, a.name AS artist_name, p.played_at, p.context
		FROM plays p
		JOIN tracks t ON p.track_id = t.track_id
		JOIN artists a ON t.artist_id = a.artist_id
		ORDER BY p.played_at DESC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent activity view: %w", err)
	}
	defer rows.Close()

	var result []ActivityRow
	for rows.Next() {
		var row ActivityRow
		if err := rows.Scan(&row.PlayID, &row.TrackName, &row.ArtistName, &row.PlayedAt, &row.Context); err != nil {
			return nil, fmt.Errorf("failed to scan activity row: %w", err)
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return result, nil
}

// MoodProfileView averages danceability, energy, and valence across all
// stored audio features. Returns nil when no track has features.
func (r *LibraryRepository) MoodProfileView() (*MoodProfile, error) {
	query := `
		SELECT AVG(danceability), AVG(energy), AVG(valence), COUNT(*)
		FROM audio_features
	`

	var (
		danceability sql.NullFloat64
		energy       sql.NullFloat64
		valence      sql.NullFloat64
		count        int
	)
	if err := r.db.QueryRow(query).Scan(&danceability, &energy, &valence, &count); err != nil {
		return nil, fmt.Errorf("failed to query mood profile: %w", err)
	}

	if count == 0 {
		return nil, nil
	}

	return &MoodProfile{
		Danceability: danceability.Float64,
		Energy:       energy.Float64,
		Valence:      valence.Float64,
		TrackCount:   count,
	}, nil
}

// ListeningHeatmap buckets stored plays into a weekday x hour play-count
// matrix (UTC, weekday 0 = Monday). Timestamps that fail to parse are
// skipped; an empty database yields an all-zero matrix.
func (r *LibraryRepository) ListeningHeatmap() ([7][24]int, error) {
	var matrix [7][24]int

	rows, err := r.db.Query("SELECT played_at FROM plays")
	if err != nil {
		return matrix, fmt.Errorf("failed to query plays: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var playedAt string
		if err := rows.Scan(&playedAt); err != nil {
			return matrix, fmt.Errorf("failed to scan play timestamp: %w", err)
		}

		ts, err := time.Parse(time.RFC3339, playedAt)
		if err != nil {
			continue
		}
		ts = ts.UTC()

		// time.Weekday counts Sunday as 0; shift so Monday is row 0.
		weekday := (int(ts.Weekday()) + 6) % 7
		matrix[weekday][ts.Hour()]++
	}

	if err := rows.Err(); err != nil {
		return matrix, fmt.Errorf("row iteration error: %w", err)
	}

	return matrix, nil
}
