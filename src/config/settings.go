package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Template storage backends
const (
	BackendFile   = "file"
	BackendLibSQL = "libsql"
)

type Settings struct {
	Prompt    PromptConfig    `toml:"prompt"`
	Catalog   CatalogConfig   `toml:"catalog"`
	Templates TemplatesConfig `toml:"templates"`
	Log       LogConfig       `toml:"log"`
}

type PromptConfig struct {
	DefaultMode string `toml:"default_mode"`
	MaxLength   int    `toml:"max_length"`
}

type CatalogConfig struct {
	Dir string `toml:"dir"`
}

type TemplatesConfig struct {
	Backend  string `toml:"backend"`
	Dir      string `toml:"dir"`
	Database string `toml:"database"`
}

type LogConfig struct {
	Mode string `toml:"mode"`
}

// DefaultSettings returns settings populated with built-in defaults.
func DefaultSettings() *Settings {
	settings := &Settings{
		Prompt: PromptConfig{
			DefaultMode: "SFW",
			MaxLength:   1000,
		},
		Templates: TemplatesConfig{
			Backend: BackendFile,
		},
		Log: LogConfig{
			Mode: "dev",
		},
	}

	if catalogDir, err := GetCatalogDir(); err == nil {
		settings.Catalog.Dir = catalogDir
	}
	if dataDir, err := GetDataDir(); err == nil {
		settings.Templates.Dir = filepath.Join(dataDir, "templates")
		settings.Templates.Database = filepath.Join(dataDir, "templates.db")
	}

	return settings
}

// LoadSettings reads path over the defaults. An empty path means the default
// config file; a missing file is not an error.
func LoadSettings(path string) (*Settings, error) {
	settings := DefaultSettings()

	if path == "" {
		p, err := GetConfigFile()
		if err != nil {
			return settings, nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return nil, err
	}

	if _, err := toml.Decode(string(data), settings); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// Validate checks enumerated fields and normalizes their case.
func (s *Settings) Validate() error {
	s.Prompt.DefaultMode = strings.ToUpper(s.Prompt.DefaultMode)
	switch s.Prompt.DefaultMode {
	case "SFW", "NSFW":
	default:
		return fmt.Errorf("prompt.default_mode must be SFW or NSFW, got %q", s.Prompt.DefaultMode)
	}

	s.Templates.Backend = strings.ToLower(s.Templates.Backend)
	switch s.Templates.Backend {
	case BackendFile, BackendLibSQL:
	default:
		return fmt.Errorf("templates.backend must be %q or %q, got %q",
			BackendFile, BackendLibSQL, s.Templates.Backend)
	}

	if s.Prompt.MaxLength < 0 {
		return fmt.Errorf("prompt.max_length must not be negative")
	}
	return nil
}
