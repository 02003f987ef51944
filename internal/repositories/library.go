package repositories

import (
	"database/sql"
	"fmt"

	"github.com/desertthunder/soundstats/internal/models"
	"github.com/desertthunder/soundstats/internal/shared"
)

// LibraryRepository persists artists, tracks, audio features, and plays.
//
// All writes are insert-or-ignore: rows are immutable once inserted, so
// re-ingesting the same data is a no-op and stored snapshots keep their
// first-seen values. Writes within a batch happen in one transaction in
// foreign-key dependency order (artists → tracks → features/plays).
type LibraryRepository struct {
	db *sql.DB
}

// NewLibraryRepository creates a new LibraryRepository with the given database connection
func NewLibraryRepository(db *sql.DB) *LibraryRepository {
	return &LibraryRepository{db: db}
}

// UpsertTopTracks stores one top-tracks batch atomically: artists first, then
// tracks, then audio features.
func (r *LibraryRepository) UpsertTopTracks(artists []models.Artist, tracks []models.Track, features []models.AudioFeatures) error {
	return shared.WithTx(r.db, func(tx *sql.Tx) error {
		if err := upsertArtists(tx, artists); err != nil {
			return err
		}
		if err := upsertTracks(tx, tracks); err != nil {
			return err
		}
		return upsertAudioFeatures(tx, features)
	})
}

// UpsertPlays stores one recent-plays batch atomically: artists first, then
// tracks, then play events. Plays already recorded for the same
// (track, timestamp) pair are silently skipped.
func (r *LibraryRepository) UpsertPlays(artists []models.Artist, tracks []models.Track, plays []models.Play) error {
	return shared.WithTx(r.db, func(tx *sql.Tx) error {
		if err := upsertArtists(tx, artists); err != nil {
			return err
		}
		if err := upsertTracks(tx, tracks); err != nil {
			return err
		}
		return upsertPlays(tx, plays)
	})
}

func upsertArtists(tx *sql.Tx, artists []models.Artist) error {
	stmt, err := tx.Prepare("INSERT OR IGNORE INTO artists (artist_id, name, genres) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare artist insert: %w", err)
	}
	defer stmt.Close()

	for _, artist := range artists {
		if err := artist.Validate(); err != nil {
			return fmt.Errorf("artist validation failed: %w", err)
		}
		if _, err := stmt.Exec(artist.ID, artist.Name, nullIfEmpty(artist.Genres)); err != nil {
			return fmt.Errorf("failed to insert artist %s: %w", artist.ID, err)
		}
	}

	return nil
}

func upsertTracks(tx *sql.Tx, tracks []models.Track) error {
	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO tracks (track_id, name, artist_id, album_name, release_date, duration_ms, popularity)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare track insert: %w", err)
	}
	defer stmt.Close()

	for _, track := range tracks {
		if err := track.Validate(); err != nil {
			return fmt.Errorf("track validation failed: %w", err)
		}
		_, err := stmt.Exec(
			track.ID,
			track.Name,
			track.ArtistID,
			nullIfEmpty(track.AlbumName),
			nullIfEmpty(track.ReleaseDate),
			track.DurationMS,
			track.Popularity,
		)
		if err != nil {
			return fmt.Errorf("failed to insert track %s: %w", track.ID, err)
		}
	}

	return nil
}

func upsertAudioFeatures(tx *sql.Tx, features []models.AudioFeatures) error {
	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO audio_features (
			track_id, danceability, energy, key, loudness, mode,
			speechiness, acousticness, instrumentalness, liveness, valence, tempo
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare audio features insert: %w", err)
	}
	defer stmt.Close()

	for _, f := range features {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("audio features validation failed: %w", err)
		}
		_, err := stmt.Exec(
			f.TrackID,
			f.Danceability,
			f.Energy,
			f.Key,
			f.Loudness,
			f.Mode,
			f.Speechiness,
			f.Acousticness,
			f.Instrumentalness,
			f.Liveness,
			f.Valence,
			f.Tempo,
		)
		if err != nil {
			return fmt.Errorf("failed to insert audio features for %s: %w", f.TrackID, err)
		}
	}

	return nil
}

func upsertPlays(tx *sql.Tx, plays []models.Play) error {
	stmt, err := tx.Prepare("INSERT OR IGNORE INTO plays (play_id, track_id, played_at, context) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare play insert: %w", err)
	}
	defer stmt.Close()

	for _, play := range plays {
		if err := play.Validate(); err != nil {
			return fmt.Errorf("play validation failed: %w", err)
		}
		if _, err := stmt.Exec(play.ID(), play.TrackID, play.PlayedAt, nullIfEmpty(play.Context)); err != nil {
			return fmt.Errorf("failed to insert play %s: %w", play.ID(), err)
		}
	}

	return nil
}

// CountPlays returns the number of stored play events.
func (r *LibraryRepository) CountPlays() (int, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM plays").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count plays: %w", err)
	}
	return count, nil
}

// CountTracks returns the number of stored tracks.
func (r *LibraryRepository) CountTracks() (int, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM tracks").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count tracks: %w", err)
	}
	return count, nil
}
