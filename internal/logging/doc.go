// Package logging constructs the slog loggers used across easel. It offers a
// human-oriented console handler for interactive use and a JSON handler for
// machine consumption, selected by configuration.
package logging
