// Package testsupport provides shared helpers for easel tests.
package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"easel/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Engine.URL = "http://127.0.0.1:8188"
	cfg.Output.Dir = filepath.Join(base, "outputs")
	cfg.RunLog.Dir = filepath.Join(base, "runlog")
	cfg.Workflow.StartupGrace = 0

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithEngineURL points the test config at the given engine.
func WithEngineURL(url string) ConfigOption {
	return func(c *config.Config) {
		c.Engine.URL = url
	}
}

// WithOutputFormat sets the output format and jpeg quality.
func WithOutputFormat(format string, quality int) ConfigOption {
	return func(c *config.Config) {
		c.Output.Format = format
		if quality > 0 {
			c.Output.JPEGQuality = quality
		}
	}
}

// WithRunLogDisabled turns off run history recording.
func WithRunLogDisabled() ConfigOption {
	return func(c *config.Config) {
		c.RunLog.Enabled = false
	}
}

// WriteConfigFile marshals cfg to a TOML file in a fresh temp directory and
// returns the file path, for tests that drive commands through config files.
func WriteConfigFile(t testing.TB, cfg *config.Config) string {
	t.Helper()

	encoded, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal test config: %v", err)
	}
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		t.Fatalf("write test config: %v", err)
	}
	return path
}
