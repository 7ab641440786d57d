package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const defaultMaxRetries = 3

// Config is the full run configuration, loaded once and never mutated.
type Config struct {
	SystemPrompt string         `yaml:"system_prompt" json:"system_prompt"`
	UserPrompt   string         `yaml:"user_prompt" json:"user_prompt"`
	FilePath     string         `yaml:"file_path" json:"file_path"`
	ChunkSize    int            `yaml:"chunk_size" json:"chunk_size"`
	ChunkOverlap int            `yaml:"chunk_overlap" json:"chunk_overlap"`
	MaxRetries   *int           `yaml:"max_retries" json:"max_retries"`
	OutputSchema map[string]any `yaml:"output_schema" json:"output_schema"`
	OutputFile   string         `yaml:"output_file" json:"output_file"`
	LLMProvider  LLMConfig      `yaml:"llm_provider" json:"llm_provider"`

	// optional sinks
	Database *DBConfig     `yaml:"database" json:"database"`
	Memory   *MemoryConfig `yaml:"memory" json:"memory"`
}

// LLMConfig selects and configures the generation backend.
type LLMConfig struct {
	Type        string  `yaml:"type" json:"type"`
	APIKey      string  `yaml:"api_key" json:"api_key"`
	BaseURL     string  `yaml:"base_url" json:"base_url"`
	Model       string  `yaml:"model" json:"model"`
	Temperature float64 `yaml:"temperature" json:"temperature"`
	MaxTokens   int     `yaml:"max_tokens" json:"max_tokens"`
	// Timeout bounds each gateway call, in seconds. 0 disables the bound.
	Timeout int `yaml:"timeout" json:"timeout"`
}

// DBConfig configures the optional Postgres result archive.
type DBConfig struct {
	URL   string `yaml:"url" json:"url"`
	Key   string `yaml:"key" json:"key"`
	Debug bool   `yaml:"debug" json:"debug"`
}

// MemoryConfig configures the optional chromem-backed result memory.
type MemoryConfig struct {
	DBPath     string    `yaml:"db_path" json:"db_path"`
	Collection string    `yaml:"collection" json:"collection"`
	InMemory   bool      `yaml:"in_memory" json:"in_memory"`
	EmbedLLM   LLMConfig `yaml:"embed_llm" json:"embed_llm"`
}

// LoadConfig reads a JSON or YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
	return &cfg, nil
}

// RetryBudget returns max_retries, applying the default when unset.
func (c *Config) RetryBudget() int {
	if c.MaxRetries == nil {
		return defaultMaxRetries
	}
	return *c.MaxRetries
}

// ResolveAPIKey expands an "env:VAR" api_key reference into the value of the
// named environment variable. Plain keys pass through untouched.
func ResolveAPIKey(key string) (string, error) {
	if !strings.HasPrefix(key, "env:") {
		return key, nil
	}
	name := strings.SplitN(key, ":", 2)[1]
	v := os.Getenv(name)
	if v == "" {
		return "", fmt.Errorf("%w: %s", ErrEnvKeyUnset, name)
	}
	return v, nil
}
