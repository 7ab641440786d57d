package config

import (
	"fmt"
	"os"
)

// Validate checks the configuration eagerly, before any chunk is processed.
// Returns nil if valid, or the first validation failure.
func (c *Config) Validate() error {
	if c.SystemPrompt == "" {
		return ErrSystemPromptEmpty
	}
	if c.FilePath == "" {
		return ErrFilePathEmpty
	}
	if info, err := os.Stat(c.FilePath); err != nil || info.IsDir() {
		return fmt.Errorf("%w: %s", ErrFileNotFound, c.FilePath)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: got %d", ErrChunkSizeInvalid, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 {
		return fmt.Errorf("%w: got %d", ErrOverlapNegative, c.ChunkOverlap)
	}
	// overlap >= size would never advance past the first window
	if c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: overlap %d, size %d", ErrOverlapTooLarge, c.ChunkOverlap, c.ChunkSize)
	}
	if c.MaxRetries != nil && *c.MaxRetries < 0 {
		return fmt.Errorf("%w: got %d", ErrMaxRetriesNegative, *c.MaxRetries)
	}
	if c.LLMProvider.Type == "" {
		return ErrProviderTypeEmpty
	}
	if c.LLMProvider.Timeout < 0 {
		return fmt.Errorf("%w: got %d", ErrTimeoutNegative, c.LLMProvider.Timeout)
	}
	return nil
}
