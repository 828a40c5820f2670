package config

const (
	defaultPageLimit = 9
	defaultAllLabel  = "All"
)

// NewDefaultConfig creates a configuration with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "prod",
		Server: ServerConfig{
			Port: 4241,
			Host: "localhost",
		},
		API: APIConfig{
			URL:     "http://localhost:4242",
			Timeout: "10s",
		},
		Listing: ListingConfig{
			PageLimit: defaultPageLimit,
			AllLabel:  defaultAllLabel,
		},
		Cache: CacheConfig{
			TTL:        "1m",
			MaxEntries: 500,
		},
		Session: SessionConfig{
			TTL: "30m",
		},
		Seed: SeedConfig{
			RefreshInterval: "10m",
		},
		Storage: StorageConfig{
			Bolt: BoltConfig{
				Path: "./data/webtools.db",
			},
		},
		Logging: LoggingConfig{
			Level:   "info",
			Format:  "text",
			Outputs: []string{"console"},
		},
	}
}
