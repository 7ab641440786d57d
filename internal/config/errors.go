package config

import "errors"

// Sentinel errors for configuration validation. All of them are fatal: the
// run must not start with a broken configuration.
var (
	// ErrUnknownFormat is returned when the config file is neither JSON nor YAML.
	ErrUnknownFormat = errors.New("configuration file must be JSON or YAML")

	// ErrSystemPromptEmpty is returned when system_prompt is missing.
	ErrSystemPromptEmpty = errors.New("system_prompt is required")

	// ErrFilePathEmpty is returned when file_path is missing.
	ErrFilePathEmpty = errors.New("file_path is required")

	// ErrFileNotFound is returned when file_path does not reference a readable file.
	ErrFileNotFound = errors.New("input file not found")

	// ErrChunkSizeInvalid is returned when chunk_size is zero or negative.
	ErrChunkSizeInvalid = errors.New("chunk_size must be a positive integer")

	// ErrOverlapNegative is returned when chunk_overlap is negative.
	ErrOverlapNegative = errors.New("chunk_overlap must not be negative")

	// ErrOverlapTooLarge is returned when chunk_overlap >= chunk_size, which
	// would keep the chunker from advancing.
	ErrOverlapTooLarge = errors.New("chunk_overlap must be smaller than chunk_size")

	// ErrMaxRetriesNegative is returned when max_retries is negative.
	ErrMaxRetriesNegative = errors.New("max_retries must not be negative")

	// ErrProviderTypeEmpty is returned when llm_provider.type is missing.
	ErrProviderTypeEmpty = errors.New("llm_provider.type is required")

	// ErrTimeoutNegative is returned when llm_provider.timeout is negative.
	ErrTimeoutNegative = errors.New("llm_provider.timeout must not be negative")

	// ErrEnvKeyUnset is returned when an env: api_key reference points at an
	// unset or empty environment variable.
	ErrEnvKeyUnset = errors.New("environment variable not set or empty")
)
