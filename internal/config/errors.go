package config

import "errors"

// Sentinel errors for configuration validation.
var (
	// ErrInvalidMode indicates an unknown environment mode.
	ErrInvalidMode = errors.New("invalid environment mode")

	// ErrMissingTool indicates a required binary name is empty.
	ErrMissingTool = errors.New("tool not configured")

	// ErrInvalidFontSize indicates a watermark font size outside the valid range.
	ErrInvalidFontSize = errors.New("font size out of range")

	// ErrInvalidTimeout indicates a negative timeout.
	ErrInvalidTimeout = errors.New("timeout out of range")

	// ErrInvalidRetries indicates a retry budget outside the valid range.
	ErrInvalidRetries = errors.New("retry attempts out of range")

	// ErrInvalidWorkers indicates a negative worker count.
	ErrInvalidWorkers = errors.New("worker count out of range")

	// ErrInvalidLogLevel indicates an unknown log level name.
	ErrInvalidLogLevel = errors.New("invalid log level")

	// ErrInvalidEnv indicates an environment override that could not be parsed.
	ErrInvalidEnv = errors.New("invalid environment override")
)
