// Spotify API implementation of [Service]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/soundstats/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// Requests per second against the API. Spotify's rolling window allows
	// far more, but genre enrichment issues one request per distinct artist
	// and staying well under the limit avoids 429s entirely on normal runs.
	requestsPerSecond = 5

	// Bounded retries on HTTP 429 before giving up.
	maxRateLimitRetries = 3
)

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Genres []string `json:"genres"`
	URI    string   `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
//
// ReleaseDate may be a full ISO date or year-only depending on the album's
// release_date_precision.
type SpotifyAlbum struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Artists     []SpotifyArtist `json:"artists"`
	ReleaseDate string          `json:"release_date"`
	URI         string          `json:"uri"`
}

// SpotifyTrack represents a Spotify track.
//
// DurationMS and Popularity are pointers: the catalog omits them for some
// items (local files, podcasts) and absence must survive into the store.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	DurationMS *int            `json:"duration_ms"`
	Popularity *int            `json:"popularity"`
	URI        string          `json:"uri"`
}

// SpotifyAudioFeatures represents the audio features of a single track.
type SpotifyAudioFeatures struct {
	ID               string  `json:"id"`
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

// SpotifyPlayContext describes where a play happened (album, playlist, artist).
type SpotifyPlayContext struct {
	Type string `json:"type"`
	URI  string `json:"uri"`
}

// SpotifyPlayHistory represents one entry of the recently-played feed.
type SpotifyPlayHistory struct {
	Track    SpotifyTrack        `json:"track"`
	PlayedAt string              `json:"played_at"`
	Context  *SpotifyPlayContext `json:"context"`
}

// SpotifyPaginatedTracks represents a paginated response of top tracks.
type SpotifyPaginatedTracks struct {
	Items    []SpotifyTrack `json:"items"`
	Total    int            `json:"total"`
	Limit    int            `json:"limit"`
	Offset   int            `json:"offset"`
	Next     *string        `json:"next"`
	Previous *string        `json:"previous"`
}

// SpotifyRecentlyPlayed represents the recently-played response.
type SpotifyRecentlyPlayed struct {
	Items []SpotifyPlayHistory `json:"items"`
	Limit int                  `json:"limit"`
	Next  *string              `json:"next"`
}

// SpotifyService implements the Service interface for Spotify API interactions.
// Uses [oauth2] for authentication and a [rate.Limiter] to stay under the
// API's request budget.
type SpotifyService struct {
	config     *oauth2.Config
	token      *oauth2.Token
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = "http://localhost:8888/callback"
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"user-top-read",
			"user-read-recently-played",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyService{
		config:     config,
		httpClient: http.DefaultClient,
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// GetOAuthConfig exposes the OAuth2 config for the callback server.
func (s *SpotifyService) GetOAuthConfig() *oauth2.Config {
	return s.config
}

// Authenticate performs OAuth2 authentication with Spotify. Expects either an "access_token" or "auth_code" in credentials.
func (s *SpotifyService) Authenticate(ctx context.Context, credentials map[string]string) error {
	if accessToken, ok := credentials["access_token"]; ok && accessToken != "" {
		return s.OAuthenticate(ctx, &oauth2.Token{AccessToken: accessToken})
	}

	if authCode, ok := credentials["auth_code"]; ok && authCode != "" {
		token, err := s.config.Exchange(ctx, authCode)
		if err != nil {
			return fmt.Errorf("%w: failed to exchange auth code: %v", shared.ErrAuthFailed, err)
		}
		return s.OAuthenticate(ctx, token)
	}

	return fmt.Errorf("%w: missing access_token or auth_code", shared.ErrMissingCredentials)
}

// OAuthenticate authenticates with a previously issued token.
//
// The oauth2 client refreshes the token transparently when a refresh token
// is present and the access token has expired.
func (s *SpotifyService) OAuthenticate(ctx context.Context, token *oauth2.Token) error {
	if token == nil || (token.AccessToken == "" && token.RefreshToken == "") {
		return fmt.Errorf("%w: no cached token", shared.ErrNotAuthenticated)
	}
	s.token = token
	s.httpClient = s.config.Client(ctx, token)
	return nil
}

// doRequest performs an authenticated GET request to the Spotify API.
//
// Requests pass through the rate limiter and are retried a bounded number of
// times on HTTP 429, honoring the Retry-After hint.
func (s *SpotifyService) doRequest(ctx context.Context, endpoint string, result any) error {
	if s.token == nil {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	apiURL := spotifyBaseURL + endpoint

	for attempt := 0; ; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter wait: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			if attempt >= maxRateLimitRetries {
				return fmt.Errorf("%w: gave up after %d retries", shared.ErrRateLimited, attempt)
			}
			if err := waitRetryAfter(ctx, resp.Header.Get("Retry-After")); err != nil {
				return err
			}
			continue
		}

		if resp.StatusCode == http.StatusUnauthorized {
			resp.Body.Close()
			return fmt.Errorf("%w: status 401", shared.ErrTokenExpired)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			resp.Body.Close()
			return fmt.Errorf("%w: spotify API status %d", shared.ErrAPIRequest, resp.StatusCode)
		}

		if result != nil {
			if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
				resp.Body.Close()
				return fmt.Errorf("failed to decode response: %w", err)
			}
		}

		resp.Body.Close()
		return nil
	}
}

// waitRetryAfter sleeps for the server's Retry-After hint (seconds), falling
// back to one second, and aborts early when the context is cancelled.
func waitRetryAfter(ctx context.Context, header string) error {
	delay := time.Second
	if header != "" {
		if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
			delay = time.Duration(secs) * time.Second
		}
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// clampLimit bounds a page size to the API's 1..50 window.
func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 50 {
		return 50
	}
	return limit
}

// TopTracks retrieves the user's top tracks for the given time range.
func (s *SpotifyService) TopTracks(ctx context.Context, timeRange TimeRange, limit int) ([]SpotifyTrack, error) {
	endpoint := fmt.Sprintf("/me/top/tracks?time_range=%s&limit=%d", timeRange, clampLimit(limit))

	var response SpotifyPaginatedTracks
	if err := s.doRequest(ctx, endpoint, &response); err != nil {
		return nil, err
	}

	return response.Items, nil
}

// AudioFeatures retrieves audio features for up to 100 tracks in one call.
//
// The returned slice is positionally aligned with trackIDs and may contain
// nil entries for tracks the API has no features for.
func (s *SpotifyService) AudioFeatures(ctx context.Context, trackIDs []string) ([]*SpotifyAudioFeatures, error) {
	if len(trackIDs) == 0 {
		return nil, nil
	}
	if len(trackIDs) > 100 {
		return nil, fmt.Errorf("%w: maximum 100 track IDs allowed", shared.ErrInvalidArgument)
	}

	ids := strings.Join(trackIDs, ",")
	endpoint := fmt.Sprintf("/audio-features?ids=%s", url.QueryEscape(ids))

	var response struct {
		AudioFeatures []*SpotifyAudioFeatures `json:"audio_features"`
	}

	if err := s.doRequest(ctx, endpoint, &response); err != nil {
		return nil, err
	}

	return response.AudioFeatures, nil
}

// RecentlyPlayed retrieves the user's recent play events, newest first.
func (s *SpotifyService) RecentlyPlayed(ctx context.Context, limit int) ([]SpotifyPlayHistory, error) {
	endpoint := fmt.Sprintf("/me/player/recently-played?limit=%d", clampLimit(limit))

	var response SpotifyRecentlyPlayed
	if err := s.doRequest(ctx, endpoint, &response); err != nil {
		return nil, err
	}

	return response.Items, nil
}

// Artist retrieves a single artist by ID, used for genre enrichment.
func (s *SpotifyService) Artist(ctx context.Context, artistID string) (*SpotifyArtist, error) {
	if artistID == "" {
		return nil, fmt.Errorf("%w: artist ID", shared.ErrMissingArgument)
	}

	var artist SpotifyArtist
	endpoint := fmt.Sprintf("/artists/%s", artistID)
	if err := s.doRequest(ctx, endpoint, &artist); err != nil {
		return nil, err
	}

	return &artist, nil
}
