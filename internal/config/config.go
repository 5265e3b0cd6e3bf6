// Package config provides configuration loading and structs for the ssamantle server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug    bool           `yaml:"debug"`
	Server   ServerConfig   `yaml:"server"`
	Game     GameConfig     `yaml:"game"`
	Vector   VectorConfig   `yaml:"vector"`
	Weaviate WeaviateConfig `yaml:"weaviate"`
	Cache    CacheConfig    `yaml:"cache"`
	Refresh  RefreshConfig  `yaml:"refresh"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// GameConfig holds answer selection settings.
type GameConfig struct {
	Timezone      string `yaml:"timezone"`
	TopK          int    `yaml:"top_k"`
	AnswersPath   string `yaml:"answers_path"`
	AnswersDBPath string `yaml:"answers_db_path"`
}

// Location loads the configured timezone.
func (g *GameConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(g.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", g.Timezone, err)
	}
	return loc, nil
}

// VectorConfig holds word-vector store settings.
type VectorConfig struct {
	Backend      string `yaml:"backend"`
	VecPath      string `yaml:"vec_path"`
	SnapshotPath string `yaml:"snapshot_path"`
	Dimensions   int    `yaml:"dimensions"`
}

// WeaviateConfig holds connection settings for the weaviate backend.
type WeaviateConfig struct {
	Scheme string `yaml:"scheme"`
	Host   string `yaml:"host"`
	Class  string `yaml:"class"`
}

// CacheConfig holds durable daily cache settings.
type CacheConfig struct {
	Path      string `yaml:"path"`
	KeyPrefix string `yaml:"key_prefix"`
	InMemory  bool   `yaml:"in_memory"`
}

// RefreshConfig holds the daily refresh schedule. Hour is a pointer so that
// midnight (0) is distinguishable from unset.
type RefreshConfig struct {
	Hour   *int `yaml:"hour"`
	Minute int  `yaml:"minute"`
}

// HourOrDefault returns the configured hour; defaults to 1 when unset.
func (r *RefreshConfig) HourOrDefault() int {
	if r.Hour != nil {
		return *r.Hour
	}
	return 1
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Game.AnswersPath = expandPath(cfg.Game.AnswersPath, configDir)
	if cfg.Game.AnswersDBPath != "" {
		cfg.Game.AnswersDBPath = expandPath(cfg.Game.AnswersDBPath, configDir)
	}
	cfg.Vector.VecPath = expandPath(cfg.Vector.VecPath, configDir)
	if cfg.Vector.SnapshotPath != "" {
		cfg.Vector.SnapshotPath = expandPath(cfg.Vector.SnapshotPath, configDir)
	}
	if !cfg.Cache.InMemory {
		cfg.Cache.Path = expandPath(cfg.Cache.Path, configDir)
	}

	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
