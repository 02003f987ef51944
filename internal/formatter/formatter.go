// package formatter renders query views to exportable formats (CSV, plain text)
package formatter

import (
	"bytes"
	"database/sql"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/desertthunder/soundstats/internal/repositories"
)

func nullString(v sql.NullString) string {
	if !v.Valid {
		return ""
	}
	return v.String
}

func nullInt(v sql.NullInt64) string {
	if !v.Valid {
		return ""
	}
	return strconv.FormatInt(v.Int64, 10)
}

func nullFloat(v sql.NullFloat64) string {
	if !v.Valid {
		return ""
	}
	return strconv.FormatFloat(v.Float64, 'f', 3, 64)
}

// TopTracksToCSV renders the top-tracks view as UTF-8 CSV with a header row.
// Null columns render as empty fields.
func TopTracksToCSV(rows []repositories.TopTrackRow) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"track_id", "track_name", "artist_name", "album_name", "release_date", "duration_ms", "popularity", "danceability", "energy", "valence"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, row := range rows {
		record := []string{
			row.TrackID,
			row.TrackName,
			row.ArtistName,
			nullString(row.AlbumName),
			nullString(row.ReleaseDate),
			nullInt(row.DurationMS),
			nullInt(row.Popularity),
			nullFloat(row.Danceability),
			nullFloat(row.Energy),
			nullFloat(row.Valence),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// RecentActivityToCSV renders the recent-activity view as UTF-8 CSV with a header row.
func RecentActivityToCSV(rows []repositories.ActivityRow) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"play_id", "track_name", "artist_name", "played_at", "context"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, row := range rows {
		record := []string{
			row.PlayID,
			row.TrackName,
			row.ArtistName,
			row.PlayedAt,
			nullString(row.Context),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// MoodProfileToCSV renders the mood averages as a single CSV record.
func MoodProfileToCSV(profile *repositories.MoodProfile) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"danceability", "energy", "valence", "track_count"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	if profile != nil {
		record := []string{
			strconv.FormatFloat(profile.Danceability, 'f', 3, 64),
			strconv.FormatFloat(profile.Energy, 'f', 3, 64),
			strconv.FormatFloat(profile.Valence, 'f', 3, 64),
			strconv.Itoa(profile.TrackCount),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// HeatmapToCSV renders the weekday x hour play-count matrix, one row per
// weekday (0 = Monday) with an hour column per hour of day.
func HeatmapToCSV(matrix [7][24]int) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := make([]string, 0, 25)
	headers = append(headers, "weekday")
	for hour := 0; hour < 24; hour++ {
		headers = append(headers, strconv.Itoa(hour))
	}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for weekday, counts := range matrix {
		record := make([]string, 0, 25)
		record = append(record, strconv.Itoa(weekday))
		for _, count := range counts {
			record = append(record, strconv.Itoa(count))
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// FormatDuration renders a millisecond duration as m:ss, or "-" when absent.
func FormatDuration(ms sql.NullInt64) string {
	if !ms.Valid {
		return "-"
	}
	totalSeconds := ms.Int64 / 1000
	return fmt.Sprintf("%d:%02d", totalSeconds/60, totalSeconds%60)
}
