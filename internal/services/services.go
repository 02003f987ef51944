// package services defines interface Service for interacting with the Spotify Web API
package services

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
)

// TimeRange is the API's lookback window classifier for top tracks.
type TimeRange string

const (
	ShortTerm  TimeRange = "short_term"  // ~4 weeks
	MediumTerm TimeRange = "medium_term" // ~6 months
	LongTerm   TimeRange = "long_term"   // several years
)

// ParseTimeRange validates a user-supplied time range string.
func ParseTimeRange(s string) (TimeRange, error) {
	switch TimeRange(s) {
	case ShortTerm, MediumTerm, LongTerm:
		return TimeRange(s), nil
	default:
		return "", fmt.Errorf("invalid time range %q: must be one of short_term, medium_term, long_term", s)
	}
}

// Service defines the interface for the streaming history provider.
type Service interface {
	// Authenticate performs OAuth or token authentication with the service.
	// Returns an error if authentication fails.
	Authenticate(ctx context.Context, credentials map[string]string) error

	// TopTracks retrieves the user's top tracks for the given time range.
	// Limit is clamped to the API maximum of 50.
	TopTracks(ctx context.Context, timeRange TimeRange, limit int) ([]SpotifyTrack, error)

	// AudioFeatures retrieves audio features for up to 100 tracks in one call.
	// Entries may be nil for tracks the API has no features for; callers must
	// tolerate nil entries.
	AudioFeatures(ctx context.Context, trackIDs []string) ([]*SpotifyAudioFeatures, error)

	// RecentlyPlayed retrieves the user's recent play events, newest first.
	// Limit is clamped to the API maximum of 50.
	RecentlyPlayed(ctx context.Context, limit int) ([]SpotifyPlayHistory, error)

	// Artist retrieves a single artist, used for genre enrichment.
	Artist(ctx context.Context, artistID string) (*SpotifyArtist, error)

	// Name returns the name of the service (e.g., "Spotify")
	Name() string
}

// OAuthService extends Service with the OAuth2 authorization-code flow.
type OAuthService interface {
	Service

	// GetAuthURL returns the authorization URL for user login.
	GetAuthURL(state string) string

	// GetOAuthConfig exposes the OAuth2 config for the callback server.
	GetOAuthConfig() *oauth2.Config

	// OAuthenticate authenticates with a previously issued token.
	// The underlying client refreshes the token transparently on expiry.
	OAuthenticate(ctx context.Context, token *oauth2.Token) error
}
