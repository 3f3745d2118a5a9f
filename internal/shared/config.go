package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file and overlaid by the environment.
type Config struct {
	Telegram    TelegramConfig    `toml:"telegram"`
	Credentials CredentialsConfig `toml:"credentials"`
	Search      SearchConfig      `toml:"search"`
	Download    DownloadConfig    `toml:"download"`
	Session     SessionConfig     `toml:"session"`
	Timeouts    TimeoutsConfig    `toml:"timeouts"`
	Server      ServerConfig      `toml:"server"`
	Log         LogConfig         `toml:"log"`
}

// TelegramConfig contains the bot access token.
type TelegramConfig struct {
	Token string `toml:"token"`
	Debug bool   `toml:"debug"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials used for link resolution.
type SpotifyConfig struct {
	ClientID          string   `toml:"client_id"`
	ClientSecret      string   `toml:"client_secret"`
	LinkDomains       []string `toml:"link_domains"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
}

// Enabled reports whether both client credentials are present.
func (s SpotifyConfig) Enabled() bool {
	return s.ClientID != "" && s.ClientSecret != ""
}

// Map returns the credentials in the form expected by the Spotify resolver constructor.
func (s SpotifyConfig) Map() map[string]string {
	return map[string]string{
		"client_id":     s.ClientID,
		"client_secret": s.ClientSecret,
	}
}

// SearchConfig selects the search engine and the size of the selection surface.
type SearchConfig struct {
	Engine       string `toml:"engine"`
	ResultsLimit int    `toml:"results_limit"`
	LabelWidth   int    `toml:"label_width"`
}

// DownloadConfig contains fetch and transcode settings.
type DownloadConfig struct {
	Directory    string `toml:"directory"`
	MaxFileSize  int64  `toml:"max_file_size"`
	AudioFormat  string `toml:"audio_format"`
	AudioQuality string `toml:"audio_quality"`
}

// SessionConfig controls how long a candidate list stays selectable.
type SessionConfig struct {
	TTL Duration `toml:"ttl"`
}

// TimeoutsConfig bounds each external call made by the pipeline.
type TimeoutsConfig struct {
	Resolve Duration `toml:"resolve"`
	Search  Duration `toml:"search"`
	Fetch   Duration `toml:"fetch"`
	Deliver Duration `toml:"deliver"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LogConfig sets the minimum log level.
type LogConfig struct {
	Level string `toml:"level"`
}

// Duration wraps [time.Duration] so TOML strings like "30s" decode into it.
type Duration struct {
	time.Duration
}

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: duration %q", ErrInvalidConfig, text)
	}
	d.Duration = v
	return nil
}

// MarshalText renders the duration in Go notation.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys absent from the file keep the embedded defaults.
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

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overlays values from the environment through lookup (usually [os.LookupEnv]).
//
// Empty variables are ignored. Malformed numbers and durations are reported.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get("TELEGRAM_BOT_TOKEN"); ok {
		c.Telegram.Token = v
	}
	if v, ok := get("SPOTIFY_CLIENT_ID"); ok {
		c.Credentials.Spotify.ClientID = v
	}
	if v, ok := get("SPOTIFY_CLIENT_SECRET"); ok {
		c.Credentials.Spotify.ClientSecret = v
	}
	if v, ok := get("DOWNLOADS_DIR"); ok {
		c.Download.Directory = v
	}
	if v, ok := get("SEARCH_ENGINE"); ok {
		c.Search.Engine = v
	}
	if v, ok := get("LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := get("MAX_FILE_SIZE"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: MAX_FILE_SIZE=%q", ErrInvalidConfig, v)
		}
		c.Download.MaxFileSize = n
	}
	if v, ok := get("RESULTS_LIMIT"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: RESULTS_LIMIT=%q", ErrInvalidConfig, v)
		}
		c.Search.ResultsLimit = n
	}
	if v, ok := get("PORT"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: PORT=%q", ErrInvalidConfig, v)
		}
		c.Server.Port = n
	}
	if v, ok := get("SESSION_TTL"); ok {
		if err := c.Session.TTL.UnmarshalText([]byte(v)); err != nil {
			return err
		}
	}

	return nil
}

// Validate checks ranges of the configured values.
func (c *Config) Validate() error {
	switch {
	case c.Search.ResultsLimit < 1:
		return fmt.Errorf("%w: search.results_limit must be positive", ErrInvalidConfig)
	case c.Search.LabelWidth < 8:
		return fmt.Errorf("%w: search.label_width must be at least 8", ErrInvalidConfig)
	case c.Download.MaxFileSize <= 0:
		return fmt.Errorf("%w: download.max_file_size must be positive", ErrInvalidConfig)
	case c.Download.Directory == "":
		return fmt.Errorf("%w: download.directory is empty", ErrInvalidConfig)
	case c.Server.Port < 0 || c.Server.Port > 65535:
		return fmt.Errorf("%w: server.port out of range", ErrInvalidConfig)
	}

	switch c.Search.Engine {
	case "ytdlp", "ytsearch", "ytmusic":
	default:
		return fmt.Errorf("%w: unknown search engine %q", ErrInvalidConfig, c.Search.Engine)
	}

	return nil
}

// RequireToken reports [ErrMissingCredentials] when no Telegram token is configured.
func (c *Config) RequireToken() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("%w: TELEGRAM_BOT_TOKEN is not set", ErrMissingCredentials)
	}
	return nil
}
