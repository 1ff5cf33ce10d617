package config

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const appName = "promptforge"

// GetConfigDir returns the OS-appropriate configuration directory for promptforge
func GetConfigDir() (string, error) {
	// xdg resolves %APPDATA% on Windows, ~/Library/Application Support on macOS
	// and $XDG_CONFIG_HOME (or ~/.config) elsewhere.
	if xdg.ConfigHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", appName), nil
	}
	return filepath.Join(xdg.ConfigHome, appName), nil
}

// GetDataDir returns the directory where templates are stored
func GetDataDir() (string, error) {
	if xdg.DataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".local", "share", appName), nil
	}
	return filepath.Join(xdg.DataHome, appName), nil
}

// GetCatalogDir returns the directory where user category overrides live
func GetCatalogDir() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "catalog"), nil
}

// GetConfigFile returns the default settings file path
func GetConfigFile() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}

// EnsureDirs creates the given directories if they don't exist
func EnsureDirs(dirs ...string) error {
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
