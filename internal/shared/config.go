package shared

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/oauth2"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Sync        SyncConfig        `toml:"sync"`
	Matching    MatchingConfig    `toml:"matching"`
	Retry       RetryConfig       `toml:"retry"`
	Browser     BrowserConfig     `toml:"browser"`
	Database    DatabaseConfig    `toml:"database"`
	History     HistoryConfig     `toml:"history"`
	Server      ServerConfig      `toml:"server"`
	Log         LogConfig         `toml:"log"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify        SpotifyConfig        `toml:"spotify"`
	UltimateGuitar UltimateGuitarConfig `toml:"ultimate_guitar"`
}

// SpotifyConfig contains Spotify API credentials and the persisted OAuth token.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	AccessToken  string `toml:"access_token"`
	RefreshToken string `toml:"refresh_token"`
	TokenExpiry  string `toml:"token_expiry"`
}

// Map returns the client credentials in the form accepted by services.NewSpotifyService.
func (s SpotifyConfig) Map() map[string]string {
	return map[string]string{
		"client_id":     s.ClientID,
		"client_secret": s.ClientSecret,
		"redirect_uri":  s.RedirectURI,
	}
}

// Token rebuilds the stored [oauth2.Token], or nil when no access token has been saved.
func (s SpotifyConfig) Token() *oauth2.Token {
	if s.AccessToken == "" {
		return nil
	}

	token := &oauth2.Token{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    "Bearer",
	}
	if expiry, err := time.Parse(time.RFC3339, s.TokenExpiry); err == nil {
		token.Expiry = expiry
	}
	return token
}

// Update stores the token fields so they can be saved with [SaveConfig].
func (s *SpotifyConfig) Update(token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("%w: empty token", ErrInvalidInput)
	}

	s.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		s.RefreshToken = token.RefreshToken
	}
	if !token.Expiry.IsZero() {
		s.TokenExpiry = token.Expiry.UTC().Format(time.RFC3339)
	}
	return nil
}

// UltimateGuitarConfig contains the Ultimate Guitar account used by the browser driver.
type UltimateGuitarConfig struct {
	Username  string `toml:"username"`
	Password  string `toml:"password"`
	Cookie    string `toml:"cookie"`
	UserAgent string `toml:"user_agent"`
}

// Map returns the credentials passed to the driver's Authenticate.
func (u UltimateGuitarConfig) Map() map[string]string {
	return map[string]string{
		"username":   u.Username,
		"password":   u.Password,
		"cookie":     u.Cookie,
		"user_agent": u.UserAgent,
	}
}

// SyncConfig holds per-run defaults.
type SyncConfig struct {
	PlaylistID         string `toml:"playlist_id"`
	TargetName         string `toml:"target_name"`
	RateLimitMS        int    `toml:"rate_limit_ms"`
	CallTimeoutSeconds int    `toml:"call_timeout_seconds"`
}

// RateLimit is the minimum interval between driver actions.
func (s SyncConfig) RateLimit() time.Duration {
	return time.Duration(s.RateLimitMS) * time.Millisecond
}

// CallTimeout bounds a single driver action including its retries.
func (s SyncConfig) CallTimeout() time.Duration {
	return time.Duration(s.CallTimeoutSeconds) * time.Second
}

// MatchingConfig holds the matcher thresholds and weights.
type MatchingConfig struct {
	HighThreshold float64 `toml:"high_threshold"`
	LowThreshold  float64 `toml:"low_threshold"`
	TitleWeight   float64 `toml:"title_weight"`
	ArtistWeight  float64 `toml:"artist_weight"`
}

// RetryConfig holds the bounded retry policy for driver errors.
type RetryConfig struct {
	MaxAttempts      int     `toml:"max_attempts"`
	InitialBackoffMS int     `toml:"initial_backoff_ms"`
	MaxBackoffMS     int     `toml:"max_backoff_ms"`
	Factor           float64 `toml:"factor"`
}

func (r RetryConfig) InitialBackoff() time.Duration {
	return time.Duration(r.InitialBackoffMS) * time.Millisecond
}

func (r RetryConfig) MaxBackoff() time.Duration {
	return time.Duration(r.MaxBackoffMS) * time.Millisecond
}

// BrowserConfig controls the automated browser session.
type BrowserConfig struct {
	Headless       bool `toml:"headless"`
	TimeoutSeconds int  `toml:"timeout_seconds"`
}

// Timeout bounds a single browser action.
func (b BrowserConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutSeconds) * time.Second
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// HistoryConfig toggles the run history log.
type HistoryConfig struct {
	Enabled bool `toml:"enabled"`
}

// ServerConfig contains settings for the local OAuth callback server.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig encodes config as TOML and writes it to path with owner-only permissions.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate reports missing required keys and out-of-range tuning values.
func (c *Config) Validate() error {
	var missing []string
	check := func(key, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, key)
		}
	}

	check("credentials.spotify.client_id", c.Credentials.Spotify.ClientID)
	check("credentials.spotify.client_secret", c.Credentials.Spotify.ClientSecret)
	if c.Credentials.UltimateGuitar.Cookie == "" {
		check("credentials.ultimate_guitar.username", c.Credentials.UltimateGuitar.Username)
		check("credentials.ultimate_guitar.password", c.Credentials.UltimateGuitar.Password)
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrMissingConfig, strings.Join(missing, ", "))
	}

	return c.ValidateTuning()
}

// ValidateTuning checks the matching, retry and pacing values a run depends on.
func (c *Config) ValidateTuning() error {
	m := c.Matching
	if m.LowThreshold <= 0 || m.LowThreshold >= m.HighThreshold || m.HighThreshold > 1 {
		return fmt.Errorf("%w: thresholds must satisfy 0 < low (%.2f) < high (%.2f) <= 1", ErrInvalidConfig, m.LowThreshold, m.HighThreshold)
	}
	if m.TitleWeight < 0 || m.ArtistWeight < 0 || m.TitleWeight+m.ArtistWeight == 0 {
		return fmt.Errorf("%w: matching weights must be non-negative and not both zero", ErrInvalidConfig)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("%w: retry.max_attempts must be at least 1", ErrInvalidConfig)
	}
	if c.Sync.RateLimitMS < 0 {
		return fmt.Errorf("%w: sync.rate_limit_ms must not be negative", ErrInvalidConfig)
	}

	return nil
}

// String renders the configuration with secrets masked.
func (c *Config) String() string {
	var b strings.Builder
	sp := c.Credentials.Spotify
	ug := c.Credentials.UltimateGuitar

	fmt.Fprintf(&b, "spotify.client_id: %s\n", sp.ClientID)
	fmt.Fprintf(&b, "spotify.client_secret: %s\n", Mask(sp.ClientSecret))
	fmt.Fprintf(&b, "spotify.redirect_uri: %s\n", sp.RedirectURI)
	fmt.Fprintf(&b, "spotify.access_token: %s\n", Mask(sp.AccessToken))
	fmt.Fprintf(&b, "ultimate_guitar.username: %s\n", ug.Username)
	fmt.Fprintf(&b, "ultimate_guitar.password: %s\n", Mask(ug.Password))
	fmt.Fprintf(&b, "ultimate_guitar.cookie: %s\n", Mask(ug.Cookie))
	fmt.Fprintf(&b, "sync.playlist_id: %s\n", c.Sync.PlaylistID)
	fmt.Fprintf(&b, "sync.rate_limit: %s\n", c.Sync.RateLimit())
	fmt.Fprintf(&b, "matching: high=%.2f low=%.2f\n", c.Matching.HighThreshold, c.Matching.LowThreshold)
	fmt.Fprintf(&b, "retry.max_attempts: %d\n", c.Retry.MaxAttempts)
	fmt.Fprintf(&b, "browser.headless: %t\n", c.Browser.Headless)
	fmt.Fprintf(&b, "log.level: %s", c.Log.Level)
	return b.String()
}
