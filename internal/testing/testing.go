// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"net/http"
	"os"
	"testing"

	"github.com/desertthunder/soundstats/internal/services"
)

// MockService is a configurable test double for [services.Service].
//
// Each operation returns the corresponding canned field; zero values yield
// empty results, mirroring an empty API page.
type MockService struct {
	TopTracksResult      []services.SpotifyTrack
	AudioFeaturesResult  []*services.SpotifyAudioFeatures
	RecentlyPlayedResult []services.SpotifyPlayHistory
	Artists              map[string]*services.SpotifyArtist
	Err                  error

	TopTracksCalls     int
	AudioFeaturesCalls int
	RecentCalls        int
	ArtistCalls        []string
}

func (m *MockService) Authenticate(ctx context.Context, credentials map[string]string) error {
	return m.Err
}

func (m *MockService) TopTracks(ctx context.Context, timeRange services.TimeRange, limit int) ([]services.SpotifyTrack, error) {
	m.TopTracksCalls++
	if m.Err != nil {
		return nil, m.Err
	}
	items := m.TopTracksResult
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items, nil
}

func (m *MockService) AudioFeatures(ctx context.Context, trackIDs []string) ([]*services.SpotifyAudioFeatures, error) {
	m.AudioFeaturesCalls++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.AudioFeaturesResult, nil
}

func (m *MockService) RecentlyPlayed(ctx context.Context, limit int) ([]services.SpotifyPlayHistory, error) {
	m.RecentCalls++
	if m.Err != nil {
		return nil, m.Err
	}
	items := m.RecentlyPlayedResult
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items, nil
}

func (m *MockService) Artist(ctx context.Context, artistID string) (*services.SpotifyArtist, error) {
	m.ArtistCalls = append(m.ArtistCalls, artistID)
	if m.Err != nil {
		return nil, m.Err
	}
	if artist, ok := m.Artists[artistID]; ok {
		return artist, nil
	}
	return &services.SpotifyArtist{ID: artistID}, nil
}

func (m *MockService) Name() string { return "mock" }

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	responses []*http.Response
	errs      []error
	calls     int
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{responses: []*http.Response{r}, errs: []error{e}}
}

// NewMockRoundTripperSeq returns responses in sequence, repeating the last
// one once the sequence is exhausted.
func NewMockRoundTripperSeq(responses []*http.Response, errs []error) *MockRoundTripper {
	return &MockRoundTripper{responses: responses, errs: errs}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	idx := m.calls
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	m.calls++

	var err error
	if idx < len(m.errs) {
		err = m.errs[idx]
	}
	return m.responses[idx], err
}

// Calls returns the number of requests seen.
func (m *MockRoundTripper) Calls() int { return m.calls }

// FCloser simulates a failure when reading a response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
