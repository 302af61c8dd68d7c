package config

import (
	"errors"
	"fmt"
	"time"
)

// Validation ranges.
const (
	minPageSize       = 1
	maxPageSize       = 1000
	minConnectTimeout = time.Second
)

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

var validLogFormats = map[string]bool{"auto": true, "text": true, "json": true}

// ErrMissingFolder is returned when a command needs a folder id that no
// layer supplied.
var ErrMissingFolder = errors.New("config: folder id not set")

// Validate checks all configuration values and returns every error found.
func Validate(cfg *Config) error {
	var errs []error

	if !validLogLevels[cfg.LogLevel] {
		errs = append(errs, fmt.Errorf("log_level: must be one of debug, info, warn, error; got %q", cfg.LogLevel))
	}

	if !validLogFormats[cfg.LogFormat] {
		errs = append(errs, fmt.Errorf("log_format: must be one of auto, text, json; got %q", cfg.LogFormat))
	}

	if d, err := time.ParseDuration(cfg.ConnectTimeout); err != nil {
		errs = append(errs, fmt.Errorf("connect_timeout: invalid duration %q: %w", cfg.ConnectTimeout, err))
	} else if d < minConnectTimeout {
		errs = append(errs, fmt.Errorf("connect_timeout: must be >= %s, got %s", minConnectTimeout, d))
	}

	if cfg.PageSize < minPageSize || cfg.PageSize > maxPageSize {
		errs = append(errs, fmt.Errorf("page_size: must be between %d and %d, got %d", minPageSize, maxPageSize, cfg.PageSize))
	}

	if cfg.CredentialsFile == "" {
		errs = append(errs, errors.New("credentials_file: must not be empty"))
	}

	if cfg.TokenFile == "" {
		errs = append(errs, errors.New("token_file: must not be empty"))
	}

	if cfg.CountReportFile == "" {
		errs = append(errs, errors.New("count_report_file: must not be empty"))
	}

	if cfg.ReportFile == "" {
		errs = append(errs, errors.New("report_file: must not be empty"))
	}

	return errors.Join(errs...)
}

// RequireSource checks that a source folder id is set.
func (c *Config) RequireSource() error {
	if c.SourceFolderID == "" {
		return fmt.Errorf("%w: set %s, source_folder_id or --source", ErrMissingFolder, EnvSource)
	}

	return nil
}

// RequireDestination checks that both folder ids are set.
func (c *Config) RequireDestination() error {
	if err := c.RequireSource(); err != nil {
		return err
	}

	if c.DestinationFolderID == "" {
		return fmt.Errorf("%w: set %s, destination_folder_id or --destination", ErrMissingFolder, EnvDestination)
	}

	return nil
}
