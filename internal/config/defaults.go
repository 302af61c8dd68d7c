package config

// Default values, layer 0 of the override chain.
const (
	defaultCredentialsFile = "credentials.json"
	defaultCountReportFile = "report1.json"
	defaultReportFile      = "report2.json"
	defaultLogLevel        = "info"
	defaultLogFormat       = "auto"
	defaultConnectTimeout  = "30s"
	defaultPageSize        = 1000
)
