/*
Package config handles loading, saving and validating barcin configuration.

Configuration is stored in ~/.barcin/config.json. Secrets (API keys) never
live here; they come from the environment.

Schema:

	{
	  "users": {
	    "admin": {"role": "admin"},
	    "user": {"role": "user"}
	  },
	  "settings": {
	    "dataDir": "data",
	    "dbPath": "~/.barcin/learning.db",
	    "indexPath": "~/.barcin/index.bleve",
	    "lexiconPath": "",
	    "retentionDays": 30,
	    "generativeTimeoutSeconds": 30,
	    "webTimeoutSeconds": 10,
	    "similarityK": 8,
	    "contextMaxLength": 4000,
	    "listenAddr": ":8080",
	    "logLevel": "info",
	    "learningEnabled": true,
	    "asyncLearning": false,
	    "upstreamRatePerSecond": 2
	  }
	}
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Roles known to the dispatcher.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Config represents the root configuration structure.
type Config struct {
	// Users maps user ids to their configuration.
	Users map[string]*UserConfig `json:"users"`

	// Settings contains global configuration options.
	Settings *Settings `json:"settings,omitempty"`
}

// UserConfig describes one known user.
type UserConfig struct {
	Role string `json:"role"`
}

// Settings contains global configuration options.
type Settings struct {
	// DataDir holds the CSV datasets and text documents.
	DataDir string `json:"dataDir,omitempty"`

	// DBPath is the SQLite learning database. Empty selects ~/.barcin/learning.db.
	DBPath string `json:"dbPath,omitempty"`

	// IndexPath is the on-disk retrieval index. Empty keeps the index in memory.
	IndexPath string `json:"indexPath,omitempty"`

	// LexiconPath is an optional YAML file extending the built-in word tables.
	LexiconPath string `json:"lexiconPath,omitempty"`

	RetentionDays            int     `json:"retentionDays,omitempty"`
	GenerativeTimeoutSeconds int     `json:"generativeTimeoutSeconds,omitempty"`
	WebTimeoutSeconds        int     `json:"webTimeoutSeconds,omitempty"`
	SimilarityK              int     `json:"similarityK,omitempty"`
	ContextMaxLength         int     `json:"contextMaxLength,omitempty"`
	ListenAddr               string  `json:"listenAddr,omitempty"`
	LogLevel                 string  `json:"logLevel,omitempty"`
	LearningEnabled          bool    `json:"learningEnabled"`
	AsyncLearning            bool    `json:"asyncLearning"`
	UpstreamRatePerSecond    float64 `json:"upstreamRatePerSecond,omitempty"`
}

// DefaultSettings returns the settings used for a fresh install.
func DefaultSettings() *Settings {
	return &Settings{
		DataDir:                  "data",
		RetentionDays:            30,
		GenerativeTimeoutSeconds: 30,
		WebTimeoutSeconds:        10,
		SimilarityK:              8,
		ContextMaxLength:         4000,
		ListenAddr:               ":8080",
		LogLevel:                 "info",
		LearningEnabled:          true,
		UpstreamRatePerSecond:    2,
	}
}

// NewConfig creates the default configuration with the two built-in users.
func NewConfig() *Config {
	return &Config{
		Users: map[string]*UserConfig{
			"admin": {Role: RoleAdmin},
			"user":  {Role: RoleUser},
		},
		Settings: DefaultSettings(),
	}
}

// fillDefaults replaces zero-valued numeric and string settings.
func (c *Config) fillDefaults() {
	if c.Users == nil {
		c.Users = make(map[string]*UserConfig)
	}
	if c.Settings == nil {
		c.Settings = DefaultSettings()
		return
	}
	d := DefaultSettings()
	s := c.Settings
	if s.DataDir == "" {
		s.DataDir = d.DataDir
	}
	if s.RetentionDays == 0 {
		s.RetentionDays = d.RetentionDays
	}
	if s.GenerativeTimeoutSeconds == 0 {
		s.GenerativeTimeoutSeconds = d.GenerativeTimeoutSeconds
	}
	if s.WebTimeoutSeconds == 0 {
		s.WebTimeoutSeconds = d.WebTimeoutSeconds
	}
	if s.SimilarityK == 0 {
		s.SimilarityK = d.SimilarityK
	}
	if s.ContextMaxLength == 0 {
		s.ContextMaxLength = d.ContextMaxLength
	}
	if s.ListenAddr == "" {
		s.ListenAddr = d.ListenAddr
	}
	if s.LogLevel == "" {
		s.LogLevel = d.LogLevel
	}
	if s.UpstreamRatePerSecond == 0 {
		s.UpstreamRatePerSecond = d.UpstreamRatePerSecond
	}
}

// RoleOf returns the configured role of a user. Unknown users get RoleUser.
func (c *Config) RoleOf(userID string) string {
	if u, ok := c.Users[userID]; ok && u != nil && u.Role != "" {
		return u.Role
	}
	return RoleUser
}

// Retention is the learning retention window.
func (s *Settings) Retention() time.Duration {
	return time.Duration(s.RetentionDays) * 24 * time.Hour
}

// GenerativeTimeout is the generative API timeout.
func (s *Settings) GenerativeTimeout() time.Duration {
	return time.Duration(s.GenerativeTimeoutSeconds) * time.Second
}

// WebTimeout is the web search timeout.
func (s *Settings) WebTimeout() time.Duration {
	return time.Duration(s.WebTimeoutSeconds) * time.Second
}

// DefaultDir returns ~/.barcin.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".barcin"), nil
}

// ExpandPath replaces a leading "~/" with the home directory.
func ExpandPath(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// GetDefaultConfigPath returns the path to ~/.barcin/config.json
func GetDefaultConfigPath() (string, error) {
	dir, err := DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the configuration from the default path.
func Load() (*Config, error) {
	configPath, err := GetDefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(configPath)
}

// LoadOrCreate reads the configuration at path, writing the defaults first
// when the file does not exist yet.
func LoadOrCreate(path string) (*Config, error) {
	cfg, err := LoadFrom(path)
	var notFound *ConfigNotFoundError
	if errors.As(err, &notFound) {
		cfg = NewConfig()
		if err := Save(cfg, path); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return cfg, err
}
