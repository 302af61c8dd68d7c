package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

// Environment variable names for overrides. The two folder variables keep
// their historical unprefixed names.
const (
	EnvConfig      = "DRIVE_ASSESS_CONFIG"
	EnvCredentials = "DRIVE_ASSESS_CREDENTIALS"
	EnvToken       = "DRIVE_ASSESS_TOKEN"
	EnvSource      = "SOURCE_FOLDER_ID"
	EnvDestination = "DESTINATION_FOLDER_ID"
)

// DefaultDotEnv is the env file read from the working directory.
const DefaultDotEnv = ".env"

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath          string // DRIVE_ASSESS_CONFIG
	CredentialsFile     string // DRIVE_ASSESS_CREDENTIALS
	TokenFile           string // DRIVE_ASSESS_TOKEN
	SourceFolderID      string // SOURCE_FOLDER_ID
	DestinationFolderID string // DESTINATION_FOLDER_ID
}

// LoadDotEnv loads path into the process environment if it exists. Variables
// already set in the environment are not overwritten.
func LoadDotEnv(path string, logger *slog.Logger) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}

	logger.Debug("loaded env file", slog.String("path", path))

	return nil
}

// ReadEnvOverrides reads environment variables and returns any overrides found.
func ReadEnvOverrides(logger *slog.Logger) EnvOverrides {
	env := EnvOverrides{
		ConfigPath:          os.Getenv(EnvConfig),
		CredentialsFile:     os.Getenv(EnvCredentials),
		TokenFile:           os.Getenv(EnvToken),
		SourceFolderID:      os.Getenv(EnvSource),
		DestinationFolderID: os.Getenv(EnvDestination),
	}

	logger.Debug("read env overrides",
		slog.String("config_path", env.ConfigPath),
		slog.Bool("source_set", env.SourceFolderID != ""),
		slog.Bool("destination_set", env.DestinationFolderID != ""),
	)

	return env
}
