package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Engine contains connection settings for the remote generative engine.
type Engine struct {
	URL            string `toml:"url"`
	APIKey         string `toml:"api_key"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Output contains artifact output settings.
type Output struct {
	Format      string `toml:"format"`
	JPEGQuality int    `toml:"jpeg_quality"`
	Dir         string `toml:"dir"`
}

// Workflow contains job timeout and polling cadence settings.
type Workflow struct {
	TimeoutMinutes int `toml:"timeout_minutes"`
	PollInterval   int `toml:"poll_interval"`
	StartupGrace   int `toml:"startup_grace"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// RunLog contains configuration for the run history database.
type RunLog struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

// Config encapsulates all configuration values for easel.
type Config struct {
	Engine   Engine   `toml:"engine"`
	Output   Output   `toml:"output"`
	Workflow Workflow `toml:"workflow"`
	Logging  Logging  `toml:"logging"`
	RunLog   RunLog   `toml:"run_log"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return ExpandPath("~/.config/easel/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The second return value
// is the resolved path and the third reports whether the file existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := ExpandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("easel.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	var err error

	c.Engine.URL = strings.TrimRight(strings.TrimSpace(c.Engine.URL), "/")
	if key := strings.TrimSpace(os.Getenv("EASEL_API_KEY")); key != "" {
		c.Engine.APIKey = key
	}
	if c.Engine.RequestTimeout <= 0 {
		c.Engine.RequestTimeout = defaultRequestTimeout
	}

	c.Output.Format = strings.ToLower(strings.TrimSpace(c.Output.Format))
	if c.Output.Format == "" {
		c.Output.Format = defaultOutputFormat
	}
	if c.Output.JPEGQuality == 0 {
		c.Output.JPEGQuality = defaultJPEGQuality
	}
	if strings.TrimSpace(c.Output.Dir) == "" {
		c.Output.Dir = defaultOutputDir
	}
	if c.Output.Dir, err = ExpandPath(c.Output.Dir); err != nil {
		return fmt.Errorf("output.dir: %w", err)
	}

	if c.Workflow.TimeoutMinutes <= 0 {
		c.Workflow.TimeoutMinutes = defaultTimeoutMinutes
	}
	if c.Workflow.PollInterval <= 0 {
		c.Workflow.PollInterval = defaultPollInterval
	}
	if c.Workflow.StartupGrace < 0 {
		c.Workflow.StartupGrace = defaultStartupGrace
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = defaultLogLevel
	}

	if strings.TrimSpace(c.RunLog.Dir) == "" {
		c.RunLog.Dir = defaultRunLogDir
	}
	if c.RunLog.Dir, err = ExpandPath(c.RunLog.Dir); err != nil {
		return fmt.Errorf("run_log.dir: %w", err)
	}

	return nil
}

// EnsureDirectories creates the directories easel writes into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Output.Dir}
	if c.RunLog.Enabled {
		dirs = append(dirs, c.RunLog.Dir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// RequestTimeout returns the per-request HTTP timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Engine.RequestTimeout) * time.Second
}

// JobTimeout returns the overall workflow timeout as a duration.
func (c *Config) JobTimeout() time.Duration {
	return time.Duration(c.Workflow.TimeoutMinutes) * time.Minute
}

// PollInterval returns the poll cadence as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Workflow.PollInterval) * time.Second
}

// StartupGrace returns the pre-poll grace delay as a duration.
func (c *Config) StartupGrace() time.Duration {
	return time.Duration(c.Workflow.StartupGrace) * time.Second
}

// ExpandPath resolves ~ prefixes and returns an absolute, cleaned path.
func ExpandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// CreateSample writes the embedded sample configuration to target.
func CreateSample(target string) error {
	if err := os.WriteFile(target, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
