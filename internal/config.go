package internal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds settings shared by all commands. Values come from the YAML
// config file and are overridden by command-line flags.
type Config struct {
	ClaudeDir   string `yaml:"claude_dir,omitempty"`
	ChromeDir   string `yaml:"chrome_dir,omitempty"`
	CacheDir    string `yaml:"cache_dir,omitempty"`
	CatalogPath string `yaml:"catalog_path,omitempty"`
	TodoStyle   string `yaml:"todo_style,omitempty"`
	TodoLimit   int    `yaml:"todo_limit,omitempty"`
	Jobs        int    `yaml:"jobs,omitempty"`
}

// DefaultConfig returns the built-in settings
func DefaultConfig() (*Config, error) {
	paths, err := DetectStoragePaths()
	if err != nil {
		return nil, err
	}
	return &Config{
		ClaudeDir:   paths.ClaudeProjects,
		ChromeDir:   paths.ChromeUserData,
		CacheDir:    filepath.Join(paths.DataDir, "cache"),
		CatalogPath: filepath.Join(paths.DataDir, "catalog.db"),
		TodoStyle:   "summary",
		TodoLimit:   5,
		Jobs:        4,
	}, nil
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/crdbextract/config.yaml
func DefaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	return filepath.Join(dir, "crdbextract", "config.yaml"), nil
}

// LoadConfig reads path over the defaults. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg, err := DefaultConfig()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		LogDebug("No config file at %s, using defaults", path)
		return cfg, nil
	}
	if err != nil {
		return nil, &StorageError{Path: path, Op: "read", Err: err}
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, &ParseError{Source: "config", Key: path, Err: err}
	}
	cfg.merge(&file)
	return cfg, nil
}

// merge copies every non-zero field of other into c
func (c *Config) merge(other *Config) {
	if other.ClaudeDir != "" {
		c.ClaudeDir = expandHome(other.ClaudeDir)
	}
	if other.ChromeDir != "" {
		c.ChromeDir = expandHome(other.ChromeDir)
	}
	if other.CacheDir != "" {
		c.CacheDir = expandHome(other.CacheDir)
	}
	if other.CatalogPath != "" {
		c.CatalogPath = expandHome(other.CatalogPath)
	}
	if other.TodoStyle != "" {
		c.TodoStyle = other.TodoStyle
	}
	if other.TodoLimit > 0 {
		c.TodoLimit = other.TodoLimit
	}
	if other.Jobs > 0 {
		c.Jobs = other.Jobs
	}
}

func expandHome(path string) string {
	if len(path) < 2 || path[:2] != "~/" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
