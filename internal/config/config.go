// Package config loads drive-assess settings. Values resolve through four
// layers: defaults, the TOML config file, environment variables (including a
// .env file in the working directory) and CLI flags, later layers winning.
package config

import "time"

// Config is the flat TOML configuration.
type Config struct {
	SourceFolderID      string `toml:"source_folder_id"`
	DestinationFolderID string `toml:"destination_folder_id"`

	CredentialsFile string `toml:"credentials_file"`
	TokenFile       string `toml:"token_file"`

	CountReportFile string `toml:"count_report_file"`
	ReportFile      string `toml:"report_file"`

	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`

	ConnectTimeout string `toml:"connect_timeout"`
	PageSize       int    `toml:"page_size"`
}

// DefaultConfig returns a Config populated with default values.
func DefaultConfig() *Config {
	return &Config{
		CredentialsFile: defaultCredentialsFile,
		TokenFile:       DefaultTokenPath(),
		CountReportFile: defaultCountReportFile,
		ReportFile:      defaultReportFile,
		LogLevel:        defaultLogLevel,
		LogFormat:       defaultLogFormat,
		ConnectTimeout:  defaultConnectTimeout,
		PageSize:        defaultPageSize,
	}
}

// ConnectTimeoutDuration returns the parsed connect timeout. Validate has
// already rejected unparsable values, so a parse failure falls back to the
// default.
func (c *Config) ConnectTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.ConnectTimeout)
	if err != nil {
		d, _ = time.ParseDuration(defaultConnectTimeout)
	}

	return d
}
