// Package config resolves the CLI configuration directory, loads and saves the
// persisted settings file and merges settings from flags, environment and file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables understood by the CLI.
const (
	EnvConfigDir    = "WHOOP_CONFIG_DIR"
	EnvXDGConfig    = "XDG_CONFIG_HOME"
	EnvClientID     = "WHOOP_CLIENT_ID"
	EnvClientSecret = "WHOOP_CLIENT_SECRET"
	EnvAccessToken  = "WHOOP_ACCESS_TOKEN"
	EnvDebug        = "WHOOP_DEBUG"
	EnvNoColor      = "NO_COLOR"
	EnvAPIURL       = "WHOOP_API_URL"
	EnvOAuthURL     = "WHOOP_OAUTH_URL"
)

const (
	// AppDirName is the directory created under the XDG config home.
	AppDirName = "whoop-cli"

	// ConfigFile is the filename of the persisted settings.
	ConfigFile = "config.yaml"

	// MaxPageSize is the largest page the API serves.
	MaxPageSize = 25
)

// Config holds the persisted settings. Zero values mean "not set".
type Config struct {
	Units         string `yaml:"units,omitempty"          json:"units,omitempty"`
	DefaultFormat string `yaml:"default_format,omitempty" json:"default_format,omitempty"`
	DefaultLimit  int    `yaml:"default_limit,omitempty"  json:"default_limit,omitempty"`
	Color         *bool  `yaml:"color,omitempty"          json:"color,omitempty"`
	ClientID      string `yaml:"client_id,omitempty"      json:"client_id,omitempty"`
	ClientSecret  string `yaml:"client_secret,omitempty"  json:"client_secret,omitempty"`
}

// Keys lists the settable keys in display order.
var Keys = []string{"units", "default_format", "default_limit", "color", "client_id", "client_secret"}

// Dir returns the configuration directory with priority:
// WHOOP_CONFIG_DIR > $XDG_CONFIG_HOME/whoop-cli > ~/.config/whoop-cli
func Dir() (string, error) {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return dir, nil
	}
	if xdg := os.Getenv(EnvXDGConfig); xdg != "" {
		return filepath.Join(xdg, AppDirName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".config", AppDirName), nil
}

// EnsureDir creates dir with owner-only permissions if it doesn't exist.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return nil
}

// Store reads and writes the settings file. The loaded file is cached for the
// lifetime of the Store.
type Store struct {
	dir    string
	cached *Config
}

// NewStore creates a store rooted at the default config directory.
func NewStore() (*Store, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

// NewStoreWithPath creates a store with a custom config directory.
func NewStoreWithPath(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the directory this store writes to.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the settings file path.
func (s *Store) Path() string {
	return filepath.Join(s.dir, ConfigFile)
}

// Load returns the settings. A missing or unparsable file yields empty settings.
func (s *Store) Load() *Config {
	if s.cached != nil {
		return s.cached
	}

	cfg := &Config{}
	// #nosec G304 -- path is derived from the config directory
	data, err := os.ReadFile(s.Path())
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			cfg = &Config{}
		}
	}
	s.cached = cfg
	return cfg
}

// Save writes the settings with 0600 permissions and updates the cache.
func (s *Store) Save(cfg *Config) error {
	if err := EnsureDir(s.dir); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(s.Path(), data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	s.cached = cfg
	return nil
}

// Set validates and stores a single value.
func (s *Store) Set(key, value string) error {
	cfg := *s.Load()

	switch key {
	case "units":
		if value != UnitsMetric && value != UnitsImperial {
			return fmt.Errorf("invalid value for units: %q. Must be \"metric\" or \"imperial\"", value)
		}
		cfg.Units = value
	case "default_format":
		if !validFormat(value) {
			return fmt.Errorf(
				"invalid value for default_format: %q. Must be one of: %s",
				value, strings.Join(Formats, ", "),
			)
		}
		cfg.DefaultFormat = value
	case "default_limit":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 || n > MaxPageSize {
			return fmt.Errorf(
				"invalid value for default_limit: %q. Must be a number between 1 and %d",
				value, MaxPageSize,
			)
		}
		cfg.DefaultLimit = n
	case "color":
		if value != "true" && value != "false" {
			return fmt.Errorf("invalid value for color: %q. Must be \"true\" or \"false\"", value)
		}
		enabled := value == "true"
		cfg.Color = &enabled
	case "client_id":
		cfg.ClientID = value
	case "client_secret":
		cfg.ClientSecret = value
	default:
		return fmt.Errorf("unknown config key: %q. Valid keys: %s", key, strings.Join(Keys, ", "))
	}

	return s.Save(&cfg)
}

// ResetCache forces the next Load to read the file again.
func (s *Store) ResetCache() {
	s.cached = nil
}

// ClientID returns the OAuth client id: WHOOP_CLIENT_ID > config file.
func (s *Store) ClientID() string {
	return getConfig("", EnvClientID, s.Load().ClientID)
}

// ClientSecret returns the OAuth client secret: WHOOP_CLIENT_SECRET > config file.
func (s *Store) ClientSecret() string {
	return getConfig("", EnvClientSecret, s.Load().ClientSecret)
}

// ErrUnknownKey is returned by Get for keys outside Keys.
var ErrUnknownKey = errors.New("unknown config key")

// Get returns the display value of key, masking the client secret.
func (c *Config) Get(key string) (string, bool, error) {
	switch key {
	case "units":
		return c.Units, c.Units != "", nil
	case "default_format":
		return c.DefaultFormat, c.DefaultFormat != "", nil
	case "default_limit":
		if c.DefaultLimit == 0 {
			return "", false, nil
		}
		return strconv.Itoa(c.DefaultLimit), true, nil
	case "color":
		if c.Color == nil {
			return "", false, nil
		}
		return strconv.FormatBool(*c.Color), true, nil
	case "client_id":
		return c.ClientID, c.ClientID != "", nil
	case "client_secret":
		if c.ClientSecret == "" {
			return "", false, nil
		}
		return Mask, true, nil
	}
	return "", false, fmt.Errorf("%w: %s", ErrUnknownKey, key)
}

// Mask replaces secret values in output.
const Mask = "********"

// Masked returns a copy of c safe for printing.
func (c *Config) Masked() *Config {
	m := *c
	if m.ClientSecret != "" {
		m.ClientSecret = Mask
	}
	return &m
}

// ServerURL returns the override in envKey, or defaultValue when unset.
// Overrides must be absolute http(s) URLs.
func ServerURL(envKey, defaultValue string) (string, error) {
	raw := getEnv(envKey, defaultValue)
	if err := ValidateServerURL(raw); err != nil {
		return "", fmt.Errorf("invalid %s: %w", envKey, err)
	}
	return raw, nil
}

// ValidateServerURL validates that the server URL is properly formatted
func ValidateServerURL(rawURL string) error {
	if rawURL == "" {
		return errors.New("server URL cannot be empty")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got: %s", u.Scheme)
	}

	if u.Host == "" {
		return errors.New("URL must include a host")
	}

	return nil
}
