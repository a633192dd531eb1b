package config

// Default config values.
const (
	DefaultWorkers             = 1
	DefaultFetchTimeoutSeconds = 30
	DefaultFloatDecimals       = -1
	DefaultUploadDir           = "upload"
	DefaultLogLevel            = "info"
	DefaultLogFormat           = "console"
	DefaultLogMaxSizeMB        = 20
	DefaultLogMaxBackups       = 3
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Export: Export{
			ProjectID:           "1",
			OutputDir:           ".",
			Workers:             DefaultWorkers,
			AllowRemoteFetch:    false,
			UseTextualOverrides: true,
			FloatDecimals:       DefaultFloatDecimals,
		},
		Images: Images{
			UploadDir:           DefaultUploadDir,
			FetchTimeoutSeconds: DefaultFetchTimeoutSeconds,
			Fields:              map[string]string{},
		},
		Logging: Logging{
			Level:      DefaultLogLevel,
			Format:     DefaultLogFormat,
			MaxSizeMB:  DefaultLogMaxSizeMB,
			MaxBackups: DefaultLogMaxBackups,
		},
	}
}
