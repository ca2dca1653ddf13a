// package services defines the source and target capabilities a sync run consumes.
//
// Spotify (HTTP API), Ultimate Guitar (browser automation)
package services

import (
	"context"

	"golang.org/x/oauth2"

	"github.com/desertthunder/tabx/internal/models"
)

// Source yields the ordered track descriptors of a playlist.
type Source interface {
	// GetPlaylist retrieves playlist metadata by ID.
	GetPlaylist(ctx context.Context, playlistID string) (*models.Playlist, error)

	// FetchPlaylistTracks returns every track of the playlist in source order.
	// Fails with [shared.ErrSourceAuth] or [shared.ErrSourceNotFound].
	FetchPlaylistTracks(ctx context.Context, playlistID string) ([]models.TrackDescriptor, error)

	// Name returns the name of the service (e.g., "Spotify")
	Name() string
}

// Driver is the capability-level view of the target site. Calls are blocking
// and must not be issued concurrently: one Driver is one browser session.
type Driver interface {
	// Authenticate logs in with the given credentials.
	Authenticate(ctx context.Context, credentials map[string]string) error

	// EnsurePlaylist resolves the named playlist, creating it when missing.
	EnsurePlaylist(ctx context.Context, name, description string) (*models.PlaylistHandle, error)

	// Search returns candidates ranked by the site's own relevance, best first.
	Search(ctx context.Context, query string) ([]models.Candidate, error)

	// Add attaches the candidate to the playlist. A candidate already in the
	// playlist reports [models.AddResultAlreadyPresent].
	Add(ctx context.Context, playlist *models.PlaylistHandle, candidate models.Candidate) (models.AddResult, error)

	// Close releases the session.
	Close() error

	// Name returns the name of the target (e.g., "Ultimate Guitar")
	Name() string
}

// PlaylistLister is implemented by drivers that can enumerate the user's playlists.
type PlaylistLister interface {
	Playlists(ctx context.Context) ([]models.Playlist, error)
}

// OAuthService is a [Source] that authenticates through an OAuth2 authorization code flow.
type OAuthService interface {
	Source
	Authenticate(ctx context.Context, credentials map[string]string) error
	GetAuthURL(state string) string
	GetOAuthConfig() *oauth2.Config
	OAuthenticate(ctx context.Context, token *oauth2.Token) error
	CurrentToken() (*oauth2.Token, error)
	GetPlaylists(ctx context.Context) ([]models.Playlist, error)
}
