package shared

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment keys recognised by [ApplyEnv].
const (
	EnvSpotifyClientID     = "SPOTIFY_CLIENT_ID"
	EnvSpotifyClientSecret = "SPOTIFY_CLIENT_SECRET"
	EnvSpotifyRedirectURI  = "SPOTIFY_REDIRECT_URI"
	EnvSpotifyPlaylistID   = "SPOTIFY_PLAYLIST_ID"
	EnvUGUsername          = "UG_USERNAME"
	EnvUGPassword          = "UG_PASSWORD"
	EnvHeadlessBrowser     = "HEADLESS_BROWSER"
	EnvLogLevel            = "LOG_LEVEL"
)

// ApplyEnv loads envFile into the process environment (when it exists) and lets the
// recognised variables override values from the TOML file.
//
// Variables already set in the environment win over the file, as with [godotenv.Load].
func ApplyEnv(config *Config, envFile string) error {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return fmt.Errorf("failed to load env file %s: %w", envFile, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to stat env file %s: %w", envFile, err)
		}
	}

	override := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	override(EnvSpotifyClientID, &config.Credentials.Spotify.ClientID)
	override(EnvSpotifyClientSecret, &config.Credentials.Spotify.ClientSecret)
	override(EnvSpotifyRedirectURI, &config.Credentials.Spotify.RedirectURI)
	override(EnvSpotifyPlaylistID, &config.Sync.PlaylistID)
	override(EnvUGUsername, &config.Credentials.UltimateGuitar.Username)
	override(EnvUGPassword, &config.Credentials.UltimateGuitar.Password)
	override(EnvLogLevel, &config.Log.Level)

	if v, ok := os.LookupEnv(EnvHeadlessBrowser); ok && v != "" {
		headless, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a boolean", ErrInvalidConfig, EnvHeadlessBrowser, v)
		}
		config.Browser.Headless = headless
	}

	return nil
}
