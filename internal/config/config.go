// Package config provides configuration loading and structs for the crosstab server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug   bool          `yaml:"debug"`
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Parser  ParserConfig  `yaml:"parser"`
	Ingest  IngestConfig  `yaml:"ingest"`
	Watch   WatchConfig   `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
}

// StorageConfig holds paths for the metadata database, stored documents and the question index.
type StorageConfig struct {
	DatabasePath   string `yaml:"database_path"`
	UploadsDir     string `yaml:"uploads_dir"`
	DataDir        string `yaml:"data_dir"`
	BleveIndexPath string `yaml:"bleve_index_path"`
}

// ParserConfig tunes banner parsing.
type ParserConfig struct {
	Workers int `yaml:"workers"`
	// DemographicKeywords replaces the built-in category keywords when set.
	DemographicKeywords []string `yaml:"demographic_keywords"`
}

// IngestConfig controls which uploads are accepted.
type IngestConfig struct {
	AllowedExtensions []string `yaml:"allowed_extensions"`
}

// WatchConfig holds inbox directory watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Address returns host:port for the HTTP listener.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Load reads and parses the config file at path, applies environment
// overrides, expands paths, and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := ApplyEnv(&cfg, os.LookupEnv); err != nil {
		return nil, err
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.UploadsDir = expandPath(cfg.Storage.UploadsDir, configDir)
	cfg.Storage.DataDir = expandPath(cfg.Storage.DataDir, configDir)
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, configDir)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	return &cfg, nil
}

// Save writes the config to path. Used for persisting watch directory add/remove.
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

// ApplyEnv overrides cfg with CROSSTAB_* variables found by lookup.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup("CROSSTAB_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid CROSSTAB_PORT %q: %w", v, err)
		}
		cfg.Server.Port = port
	}
	if v, ok := lookup("CROSSTAB_DEBUG"); ok && v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid CROSSTAB_DEBUG %q: %w", v, err)
		}
		cfg.Debug = debug
	}
	if v, ok := lookup("CROSSTAB_DATABASE_PATH"); ok && v != "" {
		cfg.Storage.DatabasePath = v
	}
	if v, ok := lookup("CROSSTAB_DATA_DIR"); ok && v != "" {
		cfg.Storage.DataDir = v
	}
	if v, ok := lookup("CROSSTAB_UPLOADS_DIR"); ok && v != "" {
		cfg.Storage.UploadsDir = v
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
