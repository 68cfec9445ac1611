package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateEngine(); err != nil {
		return err
	}
	if err := c.validateOutput(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateEngine() error {
	if c.Engine.URL == "" {
		return errors.New("engine.url must be set")
	}
	parsed, err := url.Parse(c.Engine.URL)
	if err != nil {
		return fmt.Errorf("engine.url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("engine.url must use http or https, got %q", c.Engine.URL)
	}
	return nil
}

func (c *Config) validateOutput() error {
	switch c.Output.Format {
	case "jpeg", "jpg", "png", "wav":
	default:
		return fmt.Errorf("output.format must be jpeg, png, or wav, got %q", c.Output.Format)
	}
	if c.Output.JPEGQuality < 1 || c.Output.JPEGQuality > 100 {
		return fmt.Errorf("output.jpeg_quality must be between 1 and 100, got %d", c.Output.JPEGQuality)
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.TimeoutMinutes < 1 {
		return errors.New("workflow.timeout_minutes must be at least 1")
	}
	if c.Workflow.PollInterval < 1 {
		return errors.New("workflow.poll_interval must be at least 1 second")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}
