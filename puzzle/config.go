package puzzle

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/cardle/daily"
	"github.com/hazyhaar/cardle/photosearch"
)

// Config holds the full cardle configuration.
type Config struct {
	Listen      string `yaml:"listen"`
	DBPath      string `yaml:"db_path"`
	DatasetPath string `yaml:"dataset_path"`
	LogLevel    string `yaml:"log_level"` // debug | info | warn | error

	MaxGuesses     int `yaml:"max_guesses"`
	ImageMaxWidth  int `yaml:"image_max_width"`
	ImageMaxHeight int `yaml:"image_max_height"`

	Search photosearch.Engine `yaml:"search"`
	Fetch  FetchConfig        `yaml:"fetch"`
	Daily  daily.Config       `yaml:"daily"`
	Admin  AdminConfig        `yaml:"admin"`
}

// FetchConfig bounds outbound image-search and download requests.
type FetchConfig struct {
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxBytes       int64  `yaml:"max_bytes"`
	UserAgent      string `yaml:"user_agent"`
}

// AdminConfig protects the admin endpoints with HTTP Basic Auth. The
// password is stored as a bcrypt hash; admin routes are disabled when the
// hash is empty.
type AdminConfig struct {
	User         string `yaml:"user"`
	PasswordHash string `yaml:"password_hash"`
}

// DefaultConfig returns sane defaults.
func DefaultConfig() *Config {
	return &Config{
		Listen:         ":8080",
		DBPath:         "cardle.db",
		DatasetPath:    "cars.csv",
		LogLevel:       "info",
		MaxGuesses:     7,
		ImageMaxWidth:  800,
		ImageMaxHeight: 600,
		Fetch: FetchConfig{
			TimeoutSeconds: 15,
			MaxBytes:       8 * 1024 * 1024,
			UserAgent:      "cardle/1.0",
		},
		Admin: AdminConfig{User: "admin"},
	}
}

// LoadConfig reads and parses a YAML config file. Returns DefaultConfig merged with the file.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks that required fields are present and values are sane.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	if c.DatasetPath == "" {
		return fmt.Errorf("dataset_path is required")
	}
	if c.MaxGuesses < 1 {
		return fmt.Errorf("max_guesses must be >= 1")
	}
	if c.ImageMaxWidth < 1 || c.ImageMaxHeight < 1 {
		return fmt.Errorf("image bounds must be >= 1")
	}
	if c.Search.URLTemplate == "" {
		return fmt.Errorf("search.url_template is required")
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetch.timeout_seconds must be > 0")
	}
	return nil
}

// FetchTimeout returns the fetch timeout as a duration.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}
