package shared

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/oauth2"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Downloads   DownloadsConfig   `toml:"downloads"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials and the persisted OAuth tokens.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	AccessToken  string `toml:"access_token"`
	RefreshToken string `toml:"refresh_token"`
	Expiry       string `toml:"expiry"` // RFC 3339
}

// DownloadsConfig contains output directory and format settings.
type DownloadsConfig struct {
	BaseDir         string  `toml:"base_dir"`
	PreferredFormat string  `toml:"preferred_format"`
	FallbackFormat  string  `toml:"fallback_format"`
	MP3Bitrate      string  `toml:"mp3_bitrate"`
	Threads         int     `toml:"threads"`
	RateLimit       float64 `toml:"rate_limit"` // provider requests per second; 0 keeps the default
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains OAuth callback server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Update stores the given OAuth token in the Spotify credentials section.
func (s *SpotifyConfig) Update(token *oauth2.Token) error {
	if token == nil {
		return fmt.Errorf("token cannot be nil")
	}

	s.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		s.RefreshToken = token.RefreshToken
	}
	if !token.Expiry.IsZero() {
		s.Expiry = token.Expiry.Format(time.RFC3339)
	}

	return nil
}

// Token reconstructs the persisted [oauth2.Token]. Returns nil when no access
// token has been saved.
func (s *SpotifyConfig) Token() *oauth2.Token {
	if s.AccessToken == "" {
		return nil
	}

	token := &oauth2.Token{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
	}
	if s.Expiry != "" {
		if expiry, err := time.Parse(time.RFC3339, s.Expiry); err == nil {
			token.Expiry = expiry
		}
	}

	return token
}

// Map returns the credentials in the map form the service constructor takes.
func (s *SpotifyConfig) Map() map[string]string {
	return map[string]string{
		"client_id":     s.ClientID,
		"client_secret": s.ClientSecret,
		"redirect_uri":  s.RedirectURI,
	}
}

// Dir returns the configured download root, defaulting to
// ~/SpotifyDownloads when unset.
func (d *DownloadsConfig) Dir() string {
	if d.BaseDir != "" {
		return d.BaseDir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "SpotifyDownloads"
	}
	return filepath.Join(home, "SpotifyDownloads")
}

// HistoryPath returns the fixed location of the append-only download log.
func (d *DownloadsConfig) HistoryPath() string {
	return filepath.Join(d.Dir(), "download_log.txt")
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// SaveConfig writes the configuration as TOML to the specified path.
func SaveConfig(path string, config *Config) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
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
