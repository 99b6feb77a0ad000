// Package config handles the XDG configuration directory and config.toml.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"optask/internal/backend/mockstore"
)

const (
	// AppName is the application directory name.
	AppName = "optask"

	// ConfigFile is the optional settings filename.
	ConfigFile = "config.toml"

	// OAuthClientFile is the OAuth client credentials filename.
	OAuthClientFile = "oauth_client.json"

	// TokenFile is the stored OAuth token filename.
	TokenFile = "token.json"
)

// Backends.
const (
	BackendMock   = "mock"
	BackendGoogle = "google"
)

// Defaults. The mock backend's come from the store itself.
const (
	DefaultLatency  = mockstore.DefaultLatency
	DefaultFailRate = mockstore.DefaultFailRate
	DefaultListID   = "@default"
)

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool

	// Backend selects the store implementation.
	Backend string

	// Latency and FailRate tune the mock backend.
	Latency  time.Duration
	FailRate float64

	// Seed replaces the mock backend's initial items when non-empty.
	Seed []SeedItem

	// ListID is the Google Tasks list the google backend works on.
	ListID string
}

// SeedItem is an initial item for the mock backend.
type SeedItem struct {
	ID    int64  `toml:"id"`
	Title string `toml:"title"`
	Done  bool   `toml:"done"`
}

type fileConfig struct {
	Backend  string     `toml:"backend"`
	Latency  duration   `toml:"latency"`
	FailRate *float64   `toml:"fail_rate"`
	ListID   string     `toml:"list_id"`
	Seed     []SeedItem `toml:"seed"`
}

type duration struct {
	time.Duration
	set bool
}

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	d.set = true
	return nil
}

// New creates a new Config with the default or specified config directory.
// If configDir is empty, uses XDG_CONFIG_HOME/optask or $HOME/.config/optask.
// Settings from config.toml in that directory are applied when the file exists.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	cfg := &Config{
		Dir:      dir,
		Backend:  BackendMock,
		Latency:  DefaultLatency,
		FailRate: DefaultFailRate,
		ListID:   DefaultListID,
	}
	if err := cfg.load(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) load() error {
	var fc fileConfig
	_, err := toml.DecodeFile(c.Path(), &fc)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("config parse failed (%s): %w", c.Path(), err)
	}

	if fc.Backend != "" {
		c.Backend = strings.ToLower(strings.TrimSpace(fc.Backend))
	}
	if fc.Latency.set {
		c.Latency = fc.Latency.Duration
	}
	if fc.FailRate != nil {
		c.FailRate = *fc.FailRate
	}
	if fc.ListID != "" {
		c.ListID = fc.ListID
	}
	c.Seed = fc.Seed
	return nil
}

// Validate checks the settings.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendMock, BackendGoogle:
	default:
		return fmt.Errorf("unknown backend: %s", c.Backend)
	}
	if c.Latency < 0 {
		return fmt.Errorf("latency must not be negative: %s", c.Latency)
	}
	if c.FailRate < 0 || c.FailRate > 1 {
		return fmt.Errorf("fail_rate must be within [0, 1]: %g", c.FailRate)
	}
	seen := make(map[int64]bool, len(c.Seed))
	for _, it := range c.Seed {
		if it.ID <= 0 {
			return fmt.Errorf("seed item %q: id must be positive", it.Title)
		}
		if seen[it.ID] {
			return fmt.Errorf("seed item %q: duplicate id %d", it.Title, it.ID)
		}
		seen[it.ID] = true
	}
	return nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// Path returns the path to config.toml.
func (c *Config) Path() string {
	return filepath.Join(c.Dir, ConfigFile)
}

// OAuthClientPath returns the path to the OAuth client credentials file.
func (c *Config) OAuthClientPath() string {
	return filepath.Join(c.Dir, OAuthClientFile)
}

// TokenPath returns the path to the stored OAuth token file.
func (c *Config) TokenPath() string {
	return filepath.Join(c.Dir, TokenFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// HasOAuthClient checks if the OAuth client credentials file exists.
func (c *Config) HasOAuthClient() bool {
	_, err := os.Stat(c.OAuthClientPath())
	return err == nil
}

// HasToken checks if the token file exists.
func (c *Config) HasToken() bool {
	_, err := os.Stat(c.TokenPath())
	return err == nil
}

// RemoveToken deletes the token file.
func (c *Config) RemoveToken() error {
	return os.Remove(c.TokenPath())
}
