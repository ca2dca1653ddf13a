// Package services implements the two external collaborators of a sync run.
//
// # Source
//
// [SpotifyService] implements [Source] and [OAuthService] against the Spotify Web API.
// It uses OAuth2 with automatic token refresh; the refreshed token can be read back with
// [SpotifyService.CurrentToken] and persisted by the caller.
//
// Playlist items are fetched eagerly, following the paginated "next" links. Unavailable
// items and podcast episodes are skipped, and multiple artists are joined with ", ".
//
// # Driver
//
// [UltimateGuitarService] implements [Driver] and [PlaylistLister] by automating a Chrome
// session with chromedp. Every action is a synchronous call bounded by the configured
// timeout. The session is exclusive: callers must not issue actions concurrently.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrSourceAuth] : missing, expired, or rejected Spotify credentials
//   - [shared.ErrSourceNotFound] : playlist ID not found
//   - [shared.ErrSourceUnavailable] : network failures, rate limiting, 5xx responses
//   - [shared.ErrAuthFailed] : Ultimate Guitar login failed
//   - [shared.ErrDriver] : any failed browser action
package services
