package provider

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recurrent-agent/internal/config"
)

func TestNewUnsupportedType(t *testing.T) {
	_, err := New(&config.LLMConfig{Type: "carrier-pigeon"}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedProvider))
}

func TestNewEnvKeyUnset(t *testing.T) {
	_, err := New(&config.LLMConfig{Type: "openai", APIKey: "env:RECURRENT_AGENT_TEST_NO_SUCH_KEY"}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrEnvKeyUnset))
}

func TestNewKnownTypes(t *testing.T) {
	for _, tc := range []config.LLMConfig{
		{Type: "openai", APIKey: "sk-test", Model: "gpt-4"},
		{Type: "anthropic", APIKey: "sk-test", Model: "claude-3-opus-20240229"},
		{Type: "ollama", BaseURL: "http://localhost:11434", Model: "llama3"},
	} {
		gw, err := New(&tc, nil)
		require.NoError(t, err, tc.Type)
		assert.Equal(t, tc.Type, gw.Name())
	}
}

func TestNewEnvKeyResolved(t *testing.T) {
	t.Setenv("RECURRENT_AGENT_TEST_KEY", "sk-from-env")
	gw, err := New(&config.LLMConfig{Type: "openai", APIKey: "env:RECURRENT_AGENT_TEST_KEY", Model: "gpt-4"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "openai", gw.Name())
}
