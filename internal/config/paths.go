package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

// Application directory name under the XDG base directories.
const appName = "drive-assess"

const (
	configFileName = "config.toml"
	tokenFileName  = "token.json"
)

// DefaultConfigDir returns $XDG_CONFIG_HOME/drive-assess (or the platform
// equivalent).
func DefaultConfigDir() string {
	return filepath.Join(xdg.ConfigHome, appName)
}

// DefaultDataDir returns $XDG_DATA_HOME/drive-assess (or the platform
// equivalent).
func DefaultDataDir() string {
	return filepath.Join(xdg.DataHome, appName)
}

// DefaultConfigPath returns the config file used when neither
// DRIVE_ASSESS_CONFIG nor --config is given.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), configFileName)
}

// DefaultTokenPath returns where the OAuth2 token is cached by default.
func DefaultTokenPath() string {
	return filepath.Join(DefaultDataDir(), tokenFileName)
}
