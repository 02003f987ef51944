package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/desertthunder/soundstats/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

// newTestService returns an authenticated service whose requests are served
// by fn, with the rate limiter disabled.
func newTestService(t *testing.T, fn roundTripFunc) *SpotifyService {
	t.Helper()

	svc, err := NewSpotifyService(map[string]string{
		"client_id":     "id",
		"client_secret": "secret",
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	svc.token = &oauth2.Token{AccessToken: "test-token"}
	svc.httpClient = &http.Client{Transport: fn}
	svc.limiter = rate.NewLimiter(rate.Inf, 1)
	return svc
}

func TestNewSpotifyService(t *testing.T) {
	t.Run("Requires Client ID", func(t *testing.T) {
		_, err := NewSpotifyService(map[string]string{"client_secret": "secret"})
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("Requires Client Secret", func(t *testing.T) {
		_, err := NewSpotifyService(map[string]string{"client_id": "id"})
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("Defaults Redirect URI", func(t *testing.T) {
		svc, err := NewSpotifyService(map[string]string{
			"client_id":     "id",
			"client_secret": "secret",
		})
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}
		if svc.config.RedirectURL != "http://localhost:8888/callback" {
			t.Errorf("unexpected redirect URI %q", svc.config.RedirectURL)
		}
	})
}

func TestGetAuthURL(t *testing.T) {
	svc := newTestService(t, nil)
	authURL := svc.GetAuthURL("state-token")

	for _, want := range []string{
		"accounts.spotify.com/authorize",
		"state=state-token",
		"user-top-read",
		"user-read-recently-played",
	} {
		if !strings.Contains(authURL, want) {
			t.Errorf("auth URL missing %q: %s", want, authURL)
		}
	}
}

func TestParseTimeRange(t *testing.T) {
	for _, valid := range []string{"short_term", "medium_term", "long_term"} {
		if _, err := ParseTimeRange(valid); err != nil {
			t.Errorf("expected %q to parse, got %v", valid, err)
		}
	}
	if _, err := ParseTimeRange("all_time"); err == nil {
		t.Error("expected error for unknown time range")
	}
}

func TestClampLimit(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, 20},
		{-5, 20},
		{1, 1},
		{50, 50},
		{200, 50},
	}
	for _, tt := range tests {
		if got := clampLimit(tt.in); got != tt.want {
			t.Errorf("clampLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestTopTracks(t *testing.T) {
	t.Run("Parses Items And Clamps Limit", func(t *testing.T) {
		var gotURL string
		svc := newTestService(t, func(r *http.Request) (*http.Response, error) {
			gotURL = r.URL.String()
			return jsonResponse(200, `{"items": [
				{"id": "t1", "name": "Song One", "popularity": 80,
				 "artists": [{"id": "a1", "name": "Artist One"}],
				 "album": {"name": "Album", "release_date": "2023-01-20"}},
				{"id": "t2", "name": "Song Two", "popularity": null,
				 "artists": [{"id": "a1", "name": "Artist One"}],
				 "album": {"name": "Album", "release_date": "2023"}}
			]}`), nil
		})

		items, err := svc.TopTracks(context.Background(), MediumTerm, 500)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}

		if !strings.Contains(gotURL, "time_range=medium_term") || !strings.Contains(gotURL, "limit=50") {
			t.Errorf("unexpected request URL %s", gotURL)
		}
		if len(items) != 2 {
			t.Fatalf("expected 2 items, got %d", len(items))
		}
		if items[0].Popularity == nil || *items[0].Popularity != 80 {
			t.Errorf("expected popularity 80, got %v", items[0].Popularity)
		}
		if items[1].Popularity != nil {
			t.Errorf("expected null popularity to stay nil, got %v", *items[1].Popularity)
		}
	})

	t.Run("Unauthenticated", func(t *testing.T) {
		svc := newTestService(t, nil)
		svc.token = nil

		_, err := svc.TopTracks(context.Background(), ShortTerm, 20)
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})
}

func TestAudioFeatures(t *testing.T) {
	t.Run("Tolerates Null Entries", func(t *testing.T) {
		svc := newTestService(t, func(r *http.Request) (*http.Response, error) {
			return jsonResponse(200, `{"audio_features": [
				{"id": "t1", "danceability": 0.7, "energy": 0.6, "valence": 0.5},
				null
			]}`), nil
		})

		features, err := svc.AudioFeatures(context.Background(), []string{"t1", "t2"})
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if len(features) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(features))
		}
		if features[0] == nil || features[0].ID != "t1" {
			t.Errorf("unexpected first entry %+v", features[0])
		}
		if features[1] != nil {
			t.Errorf("expected nil second entry, got %+v", features[1])
		}
	})

	t.Run("Empty Input Short Circuits", func(t *testing.T) {
		svc := newTestService(t, func(r *http.Request) (*http.Response, error) {
			t.Error("no request expected for empty input")
			return nil, errors.New("unexpected")
		})

		features, err := svc.AudioFeatures(context.Background(), nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if features != nil {
			t.Errorf("expected nil result, got %v", features)
		}
	})

	t.Run("Rejects Oversized Batch", func(t *testing.T) {
		svc := newTestService(t, nil)
		ids := make([]string, 101)
		for i := range ids {
			ids[i] = fmt.Sprintf("t%d", i)
		}

		_, err := svc.AudioFeatures(context.Background(), ids)
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestDoRequestRetries(t *testing.T) {
	t.Run("Retries On 429 Honoring Retry After", func(t *testing.T) {
		calls := 0
		svc := newTestService(t, func(r *http.Request) (*http.Response, error) {
			calls++
			if calls == 1 {
				resp := jsonResponse(http.StatusTooManyRequests, "")
				resp.Header.Set("Retry-After", "1")
				return resp, nil
			}
			return jsonResponse(200, `{"id": "a1", "name": "Artist One", "genres": ["ambient"]}`), nil
		})

		artist, err := svc.Artist(context.Background(), "a1")
		if err != nil {
			t.Fatalf("expected retry to succeed, got %v", err)
		}
		if calls != 2 {
			t.Errorf("expected 2 requests, got %d", calls)
		}
		if artist.Name != "Artist One" || len(artist.Genres) != 1 {
			t.Errorf("unexpected artist %+v", artist)
		}
	})

	t.Run("Gives Up After Bounded Retries", func(t *testing.T) {
		calls := 0
		svc := newTestService(t, func(r *http.Request) (*http.Response, error) {
			calls++
			resp := jsonResponse(http.StatusTooManyRequests, "")
			resp.Header.Set("Retry-After", "1")
			return resp, nil
		})

		_, err := svc.Artist(context.Background(), "a1")
		if !errors.Is(err, shared.ErrRateLimited) {
			t.Errorf("expected ErrRateLimited, got %v", err)
		}
		if calls != maxRateLimitRetries+1 {
			t.Errorf("expected %d requests, got %d", maxRateLimitRetries+1, calls)
		}
	})

	t.Run("Cancelled Context Aborts Backoff", func(t *testing.T) {
		svc := newTestService(t, func(r *http.Request) (*http.Response, error) {
			resp := jsonResponse(http.StatusTooManyRequests, "")
			resp.Header.Set("Retry-After", "30")
			return resp, nil
		})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := svc.Artist(ctx, "a1"); err == nil {
			t.Error("expected error from cancelled context")
		}
	})

	t.Run("Unauthorized Maps To Token Expired", func(t *testing.T) {
		svc := newTestService(t, func(r *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusUnauthorized, ""), nil
		})

		_, err := svc.Artist(context.Background(), "a1")
		if !errors.Is(err, shared.ErrTokenExpired) {
			t.Errorf("expected ErrTokenExpired, got %v", err)
		}
	})

	t.Run("Server Error Maps To API Request", func(t *testing.T) {
		svc := newTestService(t, func(r *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusInternalServerError, ""), nil
		})

		_, err := svc.Artist(context.Background(), "a1")
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})
}

func TestRecentlyPlayed(t *testing.T) {
	svc := newTestService(t, func(r *http.Request) (*http.Response, error) {
		if !strings.Contains(r.URL.String(), "/me/player/recently-played") {
			t.Errorf("unexpected request URL %s", r.URL)
		}
		return jsonResponse(200, `{"items": [
			{"track": {"id": "t1", "name": "Song One",
			           "artists": [{"id": "a1", "name": "Artist One"}],
			           "album": {"name": "Album"}},
			 "played_at": "2024-05-01T08:00:00Z",
			 "context": {"type": "playlist", "uri": "spotify:playlist:x"}},
			{"track": {"id": "t2", "name": "Song Two",
			           "artists": [{"id": "a1", "name": "Artist One"}],
			           "album": {"name": "Album"}},
			 "played_at": "2024-05-01T07:45:00Z",
			 "context": null}
		]}`), nil
	})

	items, err := svc.RecentlyPlayed(context.Background(), 50)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Context == nil || items[0].Context.Type != "playlist" {
		t.Errorf("expected playlist context, got %+v", items[0].Context)
	}
	if items[1].Context != nil {
		t.Errorf("expected nil context, got %+v", items[1].Context)
	}
}

func TestArtistRequiresID(t *testing.T) {
	svc := newTestService(t, nil)
	if _, err := svc.Artist(context.Background(), ""); !errors.Is(err, shared.ErrMissingArgument) {
		t.Errorf("expected ErrMissingArgument, got %v", err)
	}
}
