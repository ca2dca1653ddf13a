// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sort"
	"testing"

	"github.com/desertthunder/tabx/internal/models"
)

// FakeSource is a test double for [services.Source]
type FakeSource struct {
	Playlist     *models.Playlist
	Tracks       []models.TrackDescriptor
	Playlists    []models.Playlist
	PlaylistErr  error
	TracksErr    error
	PlaylistsErr error
	FetchCalls   int
}

func (f *FakeSource) GetPlaylists(ctx context.Context) ([]models.Playlist, error) {
	if f.PlaylistsErr != nil {
		return nil, f.PlaylistsErr
	}
	return f.Playlists, nil
}

func (f *FakeSource) GetPlaylist(ctx context.Context, playlistID string) (*models.Playlist, error) {
	if f.PlaylistErr != nil {
		return nil, f.PlaylistErr
	}
	if f.Playlist != nil {
		return f.Playlist, nil
	}
	return &models.Playlist{ID: playlistID, Name: "Source " + playlistID, TrackCount: len(f.Tracks)}, nil
}

func (f *FakeSource) FetchPlaylistTracks(ctx context.Context, playlistID string) ([]models.TrackDescriptor, error) {
	f.FetchCalls++
	if f.TracksErr != nil {
		return nil, f.TracksErr
	}
	return append([]models.TrackDescriptor(nil), f.Tracks...), nil
}

func (f *FakeSource) Name() string { return "fake-source" }

// FakeDriver is a test double for [services.Driver].
//
// Playlist contents live in Lists and persist across runs that share the
// driver, so re-running a sync sees what an earlier run added.
type FakeDriver struct {
	AuthErr   error
	EnsureErr error

	Results    map[string][]models.Candidate // search results by query
	SearchErrs map[string][]error            // consumed one per search call for the query
	AddErrs    map[string][]error            // consumed one per add call for the candidate URL

	Lists map[string]map[string]bool // playlist name -> candidate URLs

	AuthCalls   int
	EnsureCalls int
	SearchCalls int
	AddCalls    int
	CloseCalls  int
	Queries     []string
	Added       []models.Candidate
	Ensured     []string
	Description string
}

// NewFakeDriver creates a driver with empty playlists.
func NewFakeDriver() *FakeDriver {
	return &FakeDriver{
		Results:    make(map[string][]models.Candidate),
		SearchErrs: make(map[string][]error),
		AddErrs:    make(map[string][]error),
		Lists:      make(map[string]map[string]bool),
	}
}

func (f *FakeDriver) Authenticate(ctx context.Context, credentials map[string]string) error {
	f.AuthCalls++
	return f.AuthErr
}

func (f *FakeDriver) EnsurePlaylist(ctx context.Context, name, description string) (*models.PlaylistHandle, error) {
	f.EnsureCalls++
	f.Ensured = append(f.Ensured, name)
	f.Description = description
	if f.EnsureErr != nil {
		return nil, f.EnsureErr
	}
	if f.Lists[name] == nil {
		f.Lists[name] = make(map[string]bool)
	}
	return &models.PlaylistHandle{ID: name, Name: name, URL: "https://example.com/playlist/" + name}, nil
}

func (f *FakeDriver) Search(ctx context.Context, query string) ([]models.Candidate, error) {
	f.SearchCalls++
	f.Queries = append(f.Queries, query)
	if err := pop(f.SearchErrs, query); err != nil {
		return nil, err
	}
	return f.Results[query], nil
}

func (f *FakeDriver) Add(ctx context.Context, playlist *models.PlaylistHandle, candidate models.Candidate) (models.AddResult, error) {
	f.AddCalls++
	if err := pop(f.AddErrs, candidate.URL); err != nil {
		return models.AddResultAdded, err
	}

	list := f.Lists[playlist.Name]
	if list == nil {
		list = make(map[string]bool)
		f.Lists[playlist.Name] = list
	}
	if list[candidate.URL] {
		return models.AddResultAlreadyPresent, nil
	}
	list[candidate.URL] = true
	f.Added = append(f.Added, candidate)
	return models.AddResultAdded, nil
}

// Playlists lists the driver's playlists sorted by name.
func (f *FakeDriver) Playlists(ctx context.Context) ([]models.Playlist, error) {
	names := make([]string, 0, len(f.Lists))
	for name := range f.Lists {
		names = append(names, name)
	}
	sort.Strings(names)

	playlists := make([]models.Playlist, len(names))
	for i, name := range names {
		playlists[i] = models.Playlist{ID: name, Name: name, TrackCount: len(f.Lists[name])}
	}
	return playlists, nil
}

func (f *FakeDriver) Close() error {
	f.CloseCalls++
	return nil
}

func (f *FakeDriver) Name() string { return "fake-driver" }

func pop(m map[string][]error, key string) error {
	errs := m[key]
	if len(errs) == 0 {
		return nil
	}
	m[key] = errs[1:]
	return errs[0]
}

// Repeat returns n copies of err, for scripting consecutive failures.
func Repeat(err error, n int) []error {
	errs := make([]error, n)
	for i := range errs {
		errs[i] = err
	}
	return errs
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
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
