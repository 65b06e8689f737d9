package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

const (
	// DefaultAPIURL is the scanning backend used when nothing else is configured.
	DefaultAPIURL = "http://localhost:5000"
	// DriveScope grants read-only access to the user's Drive files.
	DriveScope = "https://www.googleapis.com/auth/drive.readonly"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	API      APIConfig      `toml:"api"`
	Google   GoogleConfig   `toml:"google"`
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Log      LogConfig      `toml:"log"`
}

// APIConfig points at the scanning backend.
type APIConfig struct {
	URL string `toml:"url"`
}

// GoogleConfig contains the OAuth client handed to the Google login flow.
type GoogleConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// LogConfig contains log level and the file used while the TUI owns the terminal.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Addr returns the host:port the web front-end listens on.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
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

// SaveConfig writes config to path as TOML, replacing any existing file.
func SaveConfig(path string, config *Config) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
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

// LoadEnv loads variables from .env files into the process environment.
//
// Missing files are not an error.
func LoadEnv(filenames ...string) {
	_ = godotenv.Load(filenames...)
}

// ApplyEnv overrides config values from the environment using lookup (normally [os.LookupEnv]).
//
// The REACT_APP_ prefixed names are accepted so an existing front-end .env can be reused.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	first := func(keys ...string) (string, bool) {
		for _, k := range keys {
			if v, ok := lookup(k); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v), true
			}
		}
		return "", false
	}

	if v, ok := first("API_URL", "REACT_APP_API_URL"); ok {
		c.API.URL = v
	}
	if v, ok := first("GOOGLE_CLIENT_ID", "REACT_APP_GOOGLE_CLIENT_ID"); ok {
		c.Google.ClientID = v
	}
	if v, ok := first("GOOGLE_CLIENT_SECRET"); ok {
		c.Google.ClientSecret = v
	}

	if c.API.URL == "" {
		c.API.URL = DefaultAPIURL
	}
	c.API.URL = strings.TrimRight(c.API.URL, "/")
}

// Validate reports configuration that would make the Google login impossible.
func (c *Config) Validate() error {
	if c.Google.ClientID == "" {
		return fmt.Errorf("%w: google client_id is not set (config.toml or GOOGLE_CLIENT_ID)", ErrMissingCredentials)
	}
	if c.Google.RedirectURI == "" {
		return fmt.Errorf("%w: google redirect_uri is not set", ErrInvalidConfig)
	}
	return nil
}
