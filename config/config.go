package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for songrec.
type Config struct {
	Dataset   DatasetConfig   `yaml:"dataset"`
	Index     IndexConfig     `yaml:"index"`
	Recommend RecommendConfig `yaml:"recommend"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DatasetConfig describes where training data lives and how to read it.
type DatasetConfig struct {
	Includes     []string `yaml:"includes"`
	Excludes     []string `yaml:"excludes"`
	IDColumn     string   `yaml:"id_column"`
	TitleColumn  string   `yaml:"title_column"`
	ArtistColumn string   `yaml:"artist_column"`
	Delimiter    string   `yaml:"delimiter"`
}

// IndexConfig holds similarity index configuration.
type IndexConfig struct {
	KDefault int `yaml:"k_default"`
}

// RecommendConfig holds query-time configuration.
type RecommendConfig struct {
	K           int           `yaml:"k"` // 0 = index default
	ExcludeSeed bool          `yaml:"exclude_seed"`
	CacheSize   int           `yaml:"cache_size"`
	CacheTTL    time.Duration `yaml:"cache_ttl"`
}

// CatalogConfig selects and configures the track catalog provider.
type CatalogConfig struct {
	Provider        string        `yaml:"provider"` // "local", "spotify"
	ClientIDEnv     string        `yaml:"client_id_env"`
	ClientSecretEnv string        `yaml:"client_secret_env"`
	Market          string        `yaml:"market"`
	BaseURL         string        `yaml:"base_url"`
	TokenURL        string        `yaml:"token_url"`
	Timeout         time.Duration `yaml:"timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console", "json"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Dataset: DatasetConfig{
			Includes:     []string{"data/**/*.csv"},
			Excludes:     []string{"**/.songrec/**", "**/.git/**"},
			IDColumn:     "id",
			TitleColumn:  "name",
			ArtistColumn: "artists",
			Delimiter:    ",",
		},
		Index: IndexConfig{
			KDefault: 15,
		},
		Recommend: RecommendConfig{
			K:           0,
			ExcludeSeed: false,
			CacheSize:   128,
			CacheTTL:    5 * time.Minute,
		},
		Catalog: CatalogConfig{
			Provider:        "local",
			ClientIDEnv:     "SPOTIFY_CLIENT_ID",
			ClientSecretEnv: "SPOTIFY_CLIENT_SECRET",
			BaseURL:         "https://api.spotify.com/v1",
			TokenURL:        "https://accounts.spotify.com/api/token",
			Timeout:         15 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for songrec.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "songrec.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".songrec", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// StoreDBPath returns the path to the songrec database.
func StoreDBPath(dir string) string {
	return filepath.Join(dir, ".songrec", "songrec.db")
}

// EnsureDataDir ensures the .songrec directory exists.
func EnsureDataDir(dir string) error {
	return os.MkdirAll(filepath.Join(dir, ".songrec"), 0755)
}
