package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration.
type Config struct {
	Environment string        `toml:"environment"`
	Server      ServerConfig  `toml:"server"`
	API         APIConfig     `toml:"api"`
	Listing     ListingConfig `toml:"listing"`
	Cache       CacheConfig   `toml:"cache"`
	Session     SessionConfig `toml:"session"`
	Seed        SeedConfig    `toml:"seed"`
	Storage     StorageConfig `toml:"storage"`
	Admin       AdminConfig   `toml:"admin"`
	Logging     LoggingConfig `toml:"logging"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// APIConfig points at the upstream tools directory API.
type APIConfig struct {
	URL     string `toml:"url"`
	Timeout string `toml:"timeout"`
}

// GetTimeout parses and returns the per-request timeout.
func (c *APIConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// ListingConfig controls the listing page.
type ListingConfig struct {
	PageLimit int    `toml:"page_limit"`
	AllLabel  string `toml:"all_label"`
}

// CacheConfig sizes the page cache.
type CacheConfig struct {
	TTL        string `toml:"ttl"`
	MaxEntries int    `toml:"max_entries"`
}

// GetTTL parses and returns the cache TTL.
func (c *CacheConfig) GetTTL() time.Duration {
	d, err := time.ParseDuration(c.TTL)
	if err != nil || d <= 0 {
		return time.Minute
	}
	return d
}

// SessionConfig controls visitor session lifetime.
type SessionConfig struct {
	TTL string `toml:"ttl"`
}

// GetTTL parses and returns the idle session TTL.
func (c *SessionConfig) GetTTL() time.Duration {
	d, err := time.ParseDuration(c.TTL)
	if err != nil || d <= 0 {
		return 30 * time.Minute
	}
	return d
}

// SeedConfig controls the first-paint prefetch.
type SeedConfig struct {
	RefreshInterval string `toml:"refresh_interval"`
}

// GetRefreshInterval returns the re-seed interval. Zero disables refreshing.
func (c *SeedConfig) GetRefreshInterval() time.Duration {
	d, err := time.ParseDuration(c.RefreshInterval)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// StorageConfig contains storage layer settings.
type StorageConfig struct {
	Bolt BoltConfig `toml:"bolt"`
}

// BoltConfig contains bbolt-specific settings.
type BoltConfig struct {
	Path string `toml:"path"`
}

// AdminConfig guards operator endpoints. An empty token disables them.
type AdminConfig struct {
	Token string `toml:"token"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level      string   `toml:"level"`
	Format     string   `toml:"format"`
	Outputs    []string `toml:"outputs"`
	FilePath   string   `toml:"file_path"`
	MaxSizeMB  int      `toml:"max_size_mb"`
	MaxBackups int      `toml:"max_backups"`
}

// IsDevMode reports whether the portal runs in the dev environment.
func (c *Config) IsDevMode() bool {
	return strings.ToLower(strings.TrimSpace(c.Environment)) == "dev"
}

// BaseURL returns the externally reachable portal URL.
func (c *Config) BaseURL() string {
	return fmt.Sprintf("http://%s:%d", c.Server.Host, c.Server.Port)
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		err = toml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)
	normalize(config)

	return config, nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given .env files into the process
// environment. Variables already set are left alone. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", path, err)
		}
	}
	return nil
}

// applyEnvOverrides applies WEBTOOLS_* environment variable overrides to config.
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("WEBTOOLS_ENV"); env != "" {
		config.Environment = env
	}
	if port := os.Getenv("WEBTOOLS_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("WEBTOOLS_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if apiURL := os.Getenv("WEBTOOLS_API_URL"); apiURL != "" {
		config.API.URL = apiURL
	}
	if timeout := os.Getenv("WEBTOOLS_API_TIMEOUT"); timeout != "" {
		config.API.Timeout = timeout
	}
	if limit := os.Getenv("WEBTOOLS_PAGE_LIMIT"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil {
			config.Listing.PageLimit = l
		}
	}
	if boltPath := os.Getenv("WEBTOOLS_BOLT_PATH"); boltPath != "" {
		config.Storage.Bolt.Path = boltPath
	}
	if token := os.Getenv("WEBTOOLS_ADMIN_TOKEN"); token != "" {
		config.Admin.Token = token
	}
	if level := os.Getenv("WEBTOOLS_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("WEBTOOLS_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
}

// normalize repairs values that would break the listing.
func normalize(config *Config) {
	config.API.URL = strings.TrimRight(config.API.URL, "/")
	if config.Listing.PageLimit <= 0 {
		config.Listing.PageLimit = defaultPageLimit
	}
	if strings.TrimSpace(config.Listing.AllLabel) == "" {
		config.Listing.AllLabel = defaultAllLabel
	}
	switch strings.ToLower(strings.TrimSpace(config.Environment)) {
	case "development":
		config.Environment = "dev"
	case "production", "":
		config.Environment = "prod"
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config.
func ApplyFlagOverrides(config *Config, port int, host string, apiURL string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
	if apiURL != "" {
		config.API.URL = strings.TrimRight(apiURL, "/")
	}
}
