package config

const (
	defaultEngineURL      = "http://127.0.0.1:8188"
	defaultRequestTimeout = 30
	defaultOutputFormat   = "png"
	defaultJPEGQuality    = 85
	defaultOutputDir      = "~/.local/share/easel/outputs"
	defaultTimeoutMinutes = 10
	defaultPollInterval   = 1
	defaultStartupGrace   = 5
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
	defaultRunLogDir      = "~/.local/share/easel"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Engine: Engine{
			URL:            defaultEngineURL,
			RequestTimeout: defaultRequestTimeout,
		},
		Output: Output{
			Format:      defaultOutputFormat,
			JPEGQuality: defaultJPEGQuality,
			Dir:         defaultOutputDir,
		},
		Workflow: Workflow{
			TimeoutMinutes: defaultTimeoutMinutes,
			PollInterval:   defaultPollInterval,
			StartupGrace:   defaultStartupGrace,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		RunLog: RunLog{
			Enabled: true,
			Dir:     defaultRunLogDir,
		},
	}
}
