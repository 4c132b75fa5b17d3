package config

const (
	defaultConfigPath            = "~/.config/storyflow/config.toml"
	defaultStateDir              = "~/.local/share/storyflow"
	defaultLogDir                = "~/.local/share/storyflow/logs"
	defaultBaseURL               = "http://127.0.0.1:8081"
	defaultRequestTimeout        = 15
	defaultMaxConcurrentRequests = 8
	defaultPollInterval          = 1
	defaultStyle                 = "movie"
	defaultLogFormat             = "auto"
	defaultLogLevel              = "info"
	defaultNotifyTimeout         = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Remote: Remote{
			BaseURL:               defaultBaseURL,
			RequestTimeout:        defaultRequestTimeout,
			MaxConcurrentRequests: defaultMaxConcurrentRequests,
		},
		Workflow: Workflow{
			PollInterval: defaultPollInterval,
			DefaultStyle: defaultStyle,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Storyboard:     true,
			Compilation:    true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Journal: Journal{
			Enabled: true,
		},
	}
}
