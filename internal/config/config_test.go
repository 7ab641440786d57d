package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const yamlConfig = `
system_prompt: summarize this
user_prompt: keep going
file_path: %s
chunk_size: 100
chunk_overlap: 10
max_retries: 5
output_file: out.json
output_schema:
  type: object
llm_provider:
  type: anthropic
  api_key: sk-test
  model: claude-3-opus-20240229
  temperature: 0.5
  max_tokens: 512
`

func TestLoadConfigYAML(t *testing.T) {
	input := writeTemp(t, "input.txt", "hello")
	path := writeTemp(t, "config.yaml", applyInput(yamlConfig, input))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "summarize this", cfg.SystemPrompt)
	assert.Equal(t, input, cfg.FilePath)
	assert.Equal(t, 100, cfg.ChunkSize)
	assert.Equal(t, 10, cfg.ChunkOverlap)
	assert.Equal(t, 5, cfg.RetryBudget())
	assert.Equal(t, "anthropic", cfg.LLMProvider.Type)
	assert.Equal(t, 0.5, cfg.LLMProvider.Temperature)
	assert.Equal(t, map[string]any{"type": "object"}, cfg.OutputSchema)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigJSON(t *testing.T) {
	input := writeTemp(t, "input.txt", "hello")
	path := writeTemp(t, "config.json", `{
		"system_prompt": "summarize",
		"file_path": "`+input+`",
		"chunk_size": 50,
		"llm_provider": {"type": "openai", "api_key": "sk", "model": "gpt-4"}
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.ChunkSize)
	// max_retries defaults when unset
	assert.Equal(t, 3, cfg.RetryBudget())
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigUnknownFormat(t *testing.T) {
	path := writeTemp(t, "config.toml", "whatever")
	_, err := LoadConfig(path)
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestResolveAPIKey(t *testing.T) {
	got, err := ResolveAPIKey("sk-plain")
	require.NoError(t, err)
	assert.Equal(t, "sk-plain", got)

	t.Setenv("CONFIG_TEST_KEY", "sk-hidden")
	got, err = ResolveAPIKey("env:CONFIG_TEST_KEY")
	require.NoError(t, err)
	assert.Equal(t, "sk-hidden", got)

	_, err = ResolveAPIKey("env:CONFIG_TEST_KEY_MISSING")
	assert.ErrorIs(t, err, ErrEnvKeyUnset)
}

func applyInput(tmpl, input string) string {
	return strings.Replace(tmpl, "%s", input, 1)
}
