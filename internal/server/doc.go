// Package server provides HTTP routing, middleware, and OAuth handling for the CLI's Spotify authorization.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
// [Logging] records method, path, status and duration of each request with charmbracelet/log.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # OAuth Callback
//
// [OAuthHandler] implements the OAuth2 authorization code callback. It validates the state parameter (CSRF protection),
// exchanges the authorization code for tokens, and sends the result through a channel.
// It only processes one callback to prevent replay attacks.
//
// [CallbackServer] wraps the handler in a temporary local server: `tabx spotify auth` starts it on the host and port
// from the [server] config section, opens the browser, waits for the callback and shuts it down again.
package server
