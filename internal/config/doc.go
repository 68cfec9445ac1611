// Package config loads and validates the TOML configuration for easel.
//
// Configuration sections by subsystem:
//   - Engine: base URL, API key, and per-request timeout for the remote
//     generative engine
//   - Output: artifact output format, JPEG quality, and save directory
//   - Workflow: job timeout and polling cadence
//   - Logging: log format and level
//   - RunLog: sqlite run history location
//
// Load resolves the config path (explicit flag, then ~/.config/easel/config.toml,
// then ./easel.toml), applies defaults for missing values, expands ~ in paths,
// and validates the result. The EASEL_API_KEY environment variable overrides
// the configured engine API key.
package config
