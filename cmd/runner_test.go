package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/soundstats/internal/services"
	"github.com/desertthunder/soundstats/internal/shared"
	mocks "github.com/desertthunder/soundstats/internal/testing"
	"github.com/urfave/cli/v3"
)

// newTestRunner returns a runner backed by a temp-file database and a
// buffer capturing output.
func newTestRunner(t *testing.T, spotify services.Service) (*Runner, *bytes.Buffer) {
	t.Helper()

	config := shared.DefaultConfig()
	config.Database.Path = filepath.Join(t.TempDir(), "insights.db")

	var buf bytes.Buffer
	runner := NewRunner(RunnerOpts{
		Config:  config,
		Spotify: spotify,
		Output:  &buf,
	})
	return runner, &buf
}

func runCommand(t *testing.T, r *Runner, args ...string) error {
	t.Helper()

	app := &cli.Command{
		Name:     "soundstats",
		Commands: r.register(),
	}
	return app.Run(context.Background(), append([]string{"soundstats"}, args...))
}

func intPtr(v int) *int { return &v }

func mockHistory() *mocks.MockService {
	track := services.SpotifyTrack{
		ID:   "t1",
		Name: "Song One",
		Artists: []services.SpotifyArtist{
			{ID: "a1", Name: "Artist One"},
		},
		Album:      services.SpotifyAlbum{Name: "Album", ReleaseDate: "2023-01-20"},
		DurationMS: intPtr(215000),
		Popularity: intPtr(80),
	}

	return &mocks.MockService{
		TopTracksResult: []services.SpotifyTrack{track},
		AudioFeaturesResult: []*services.SpotifyAudioFeatures{
			{ID: "t1", Danceability: 0.7, Energy: 0.6, Valence: 0.5, Tempo: 120},
		},
		RecentlyPlayedResult: []services.SpotifyPlayHistory{
			{Track: track, PlayedAt: "2024-05-01T08:00:00Z", Context: &services.SpotifyPlayContext{Type: "playlist"}},
		},
	}
}

func TestSetupDatabaseCommand(t *testing.T) {
	runner, buf := newTestRunner(t, nil)

	if err := runCommand(t, runner, "setup", "database"); err != nil {
		t.Fatalf("setup database failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Database ready") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestConfigFlagHonored(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "custom.db")
	configPath := filepath.Join(dir, "custom.toml")

	content := "[database]\npath = \"" + dbPath + "\"\n"
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	t.Run("Points Commands At The Configured Database", func(t *testing.T) {
		runner, _ := newTestRunner(t, nil)

		if err := runCommand(t, runner, "setup", "database", "--config", configPath); err != nil {
			t.Fatalf("setup database failed: %v", err)
		}

		if runner.config.Database.Path != dbPath {
			t.Errorf("expected config path %q, got %q", dbPath, runner.config.Database.Path)
		}
		mocks.AssertFileExists(t, dbPath)
	})

	t.Run("Views Read The Configured Database", func(t *testing.T) {
		runner, buf := newTestRunner(t, nil)

		if err := runCommand(t, runner, "views", "top", "--config", configPath); err != nil {
			t.Fatalf("views top failed: %v", err)
		}
		if !strings.Contains(buf.String(), "No tracks yet") {
			t.Errorf("unexpected output %q", buf.String())
		}
		if runner.config.Database.Path != dbPath {
			t.Errorf("expected config path %q, got %q", dbPath, runner.config.Database.Path)
		}
	})

	t.Run("Missing File Keeps Injected Config", func(t *testing.T) {
		runner, _ := newTestRunner(t, nil)
		injected := runner.config.Database.Path

		if err := runCommand(t, runner, "views", "top"); err != nil {
			t.Fatalf("views top failed: %v", err)
		}
		if runner.config.Database.Path != injected {
			t.Errorf("expected injected path %q to survive, got %q", injected, runner.config.Database.Path)
		}
	})
}

func TestIngestCommands(t *testing.T) {
	t.Run("Top Tracks End To End", func(t *testing.T) {
		runner, buf := newTestRunner(t, mockHistory())

		if err := runCommand(t, runner, "ingest", "top", "--time-range", "short_term"); err != nil {
			t.Fatalf("ingest top failed: %v", err)
		}
		if !strings.Contains(buf.String(), "Ingested 1 top tracks") {
			t.Errorf("unexpected output %q", buf.String())
		}

		buf.Reset()
		if err := runCommand(t, runner, "views", "top"); err != nil {
			t.Fatalf("views top failed: %v", err)
		}
		out := buf.String()
		if !strings.Contains(out, "Artist One — Song One") {
			t.Errorf("expected ingested track in view, got %q", out)
		}
		if !strings.Contains(out, "Popularity: 80") {
			t.Errorf("expected popularity in view, got %q", out)
		}
	})

	t.Run("Recent Plays End To End", func(t *testing.T) {
		runner, buf := newTestRunner(t, mockHistory())

		if err := runCommand(t, runner, "ingest", "recent"); err != nil {
			t.Fatalf("ingest recent failed: %v", err)
		}
		if !strings.Contains(buf.String(), "Ingested 1 plays") {
			t.Errorf("unexpected output %q", buf.String())
		}

		buf.Reset()
		if err := runCommand(t, runner, "views", "recent"); err != nil {
			t.Fatalf("views recent failed: %v", err)
		}
		if !strings.Contains(buf.String(), "2024-05-01T08:00:00Z") {
			t.Errorf("expected play timestamp in view, got %q", buf.String())
		}
	})

	t.Run("History Lists Runs", func(t *testing.T) {
		runner, buf := newTestRunner(t, mockHistory())

		if err := runCommand(t, runner, "ingest", "recent"); err != nil {
			t.Fatalf("ingest recent failed: %v", err)
		}

		buf.Reset()
		if err := runCommand(t, runner, "ingest", "history"); err != nil {
			t.Fatalf("ingest history failed: %v", err)
		}
		if !strings.Contains(buf.String(), "recent_plays") {
			t.Errorf("expected run kind in history, got %q", buf.String())
		}
	})

	t.Run("Invalid Time Range", func(t *testing.T) {
		runner, _ := newTestRunner(t, mockHistory())

		err := runCommand(t, runner, "ingest", "top", "--time-range", "all_time")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("Missing Service", func(t *testing.T) {
		runner, _ := newTestRunner(t, nil)

		err := runCommand(t, runner, "ingest", "top")
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})
}

func TestViewsCommandsEmptyDatabase(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"views", "top"}, "No tracks yet"},
		{[]string{"views", "recent"}, "No recent plays"},
		{[]string{"views", "mood"}, "No audio features"},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			runner, buf := newTestRunner(t, nil)
			if err := runCommand(t, runner, tt.args...); err != nil {
				t.Fatalf("command failed: %v", err)
			}
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("expected %q in output, got %q", tt.want, buf.String())
			}
		})
	}

	t.Run("views heatmap", func(t *testing.T) {
		runner, buf := newTestRunner(t, nil)
		if err := runCommand(t, runner, "views", "heatmap"); err != nil {
			t.Fatalf("command failed: %v", err)
		}
		if !strings.Contains(buf.String(), "Mon") {
			t.Errorf("expected weekday labels, got %q", buf.String())
		}
	})
}

func TestViewsCSVExport(t *testing.T) {
	runner, buf := newTestRunner(t, mockHistory())

	if err := runCommand(t, runner, "ingest", "top"); err != nil {
		t.Fatalf("ingest top failed: %v", err)
	}

	buf.Reset()
	if err := runCommand(t, runner, "views", "top", "--csv"); err != nil {
		t.Fatalf("views top --csv failed: %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "track_id,track_name,artist_name") {
		t.Errorf("expected CSV header, got %q", out)
	}
	if !strings.Contains(out, "t1,Song One,Artist One") {
		t.Errorf("expected CSV record, got %q", out)
	}

	t.Run("To File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "export.csv")
		buf.Reset()
		if err := runCommand(t, runner, "views", "top", "--output", path); err != nil {
			t.Fatalf("views top --output failed: %v", err)
		}

		content := mocks.MustReadFile(t, path)
		if !strings.Contains(content, "t1,Song One,Artist One") {
			t.Errorf("expected CSV record in file, got %q", content)
		}
	})
}

func TestRenderIngestError(t *testing.T) {
	runner, _ := newTestRunner(t, nil)

	expired := runner.renderIngestError(shared.ErrTokenExpired)
	if !strings.Contains(expired.Error(), "auth login") {
		t.Errorf("expected re-auth hint, got %q", expired.Error())
	}
	if !errors.Is(expired, shared.ErrTokenExpired) {
		t.Error("expected wrapped sentinel to survive")
	}

	limited := runner.renderIngestError(shared.ErrRateLimited)
	if !strings.Contains(limited.Error(), "try again") {
		t.Errorf("expected throttle hint, got %q", limited.Error())
	}

	plain := errors.New("disk full")
	if got := runner.renderIngestError(plain); !errors.Is(got, plain) {
		t.Errorf("expected passthrough, got %v", got)
	}
}

func TestEnsureSpotify(t *testing.T) {
	t.Run("Nil Service", func(t *testing.T) {
		runner, _ := newTestRunner(t, nil)
		if err := runner.ensureSpotify(context.Background()); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("Mock Service Skips Token Check", func(t *testing.T) {
		runner, _ := newTestRunner(t, &mocks.MockService{})
		if err := runner.ensureSpotify(context.Background()); err != nil {
			t.Errorf("expected no error for pre-authenticated double, got %v", err)
		}
	})

	t.Run("OAuth Service Without Token", func(t *testing.T) {
		svc, err := services.NewSpotifyService(map[string]string{
			"client_id":     "id",
			"client_secret": "secret",
		})
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		runner, _ := newTestRunner(t, svc)
		if err := runner.ensureSpotify(context.Background()); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})
}

func TestAuthStatusCommand(t *testing.T) {
	t.Run("Not Authenticated", func(t *testing.T) {
		runner, buf := newTestRunner(t, nil)
		if err := runCommand(t, runner, "auth", "status"); err != nil {
			t.Fatalf("auth status failed: %v", err)
		}
		if !strings.Contains(buf.String(), "Not authenticated") {
			t.Errorf("unexpected output %q", buf.String())
		}
	})

	t.Run("Token Cached", func(t *testing.T) {
		runner, buf := newTestRunner(t, nil)
		runner.config.Credentials.Spotify.AccessToken = "cached"
		runner.config.Credentials.Spotify.RefreshToken = "refresh"

		if err := runCommand(t, runner, "auth", "status"); err != nil {
			t.Fatalf("auth status failed: %v", err)
		}
		out := buf.String()
		if !strings.Contains(out, "Token cached") || !strings.Contains(out, "Refresh token: present") {
			t.Errorf("unexpected output %q", out)
		}
	})
}
