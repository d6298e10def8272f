package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"OPENAI_API_KEY", "OPENAI_BASE_URL", "SERPER_API_KEY", "BRAVE_SEARCH_KEY",
		"REDIS_HOST", "REDIS_PORT", "REDIS_PASSWORD", "REDIS_DB",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoadConfigDefaultsAndEnv(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("SERPER_API_KEY", "serper-test")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	require.Equal(t, "sk-test", cfg.LLM.APIKey)
	require.Equal(t, "serper-test", cfg.Search.SerperAPIKey)
	require.Equal(t, "gpt-4o", cfg.LLM.Model)
	require.Equal(t, 128000, cfg.LLM.ContextWindow)
	require.Equal(t, 5, cfg.Search.MaxResults)
	require.Equal(t, 3, cfg.Pipeline.MaxRetries)
	require.Equal(t, "./data", cfg.Storage.File.DataDir)
	require.False(t, cfg.Storage.Redis.Enabled())
}

func TestLoadConfigFromFile(t *testing.T) {
	clearProviderEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"llm": {"api_key": "file-key", "model": "gpt-4o-mini", "context_window": 16000, "max_answer_tokens": 2048},
		"search": {"brave_api_key": "brave-key", "max_results": 2},
		"pipeline": {"max_retries": 1},
		"storage": {"redis": {"host": "localhost"}}
	}`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	require.Equal(t, "file-key", cfg.LLM.APIKey)
	require.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	require.Equal(t, 2, cfg.Search.MaxResults)
	require.Equal(t, 1, cfg.Pipeline.MaxRetries)
	require.True(t, cfg.Storage.Redis.Enabled())
	require.Equal(t, "6379", cfg.Storage.Redis.Port)
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	clearProviderEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"llm": {"api_key": "file-key"},
		"search": {"serper_api_key": "file-serper"}
	}`), 0o644))

	t.Setenv("OPENAI_API_KEY", "env-key")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "env-key", cfg.LLM.APIKey)
}

func TestLoadConfigValidation(t *testing.T) {
	clearProviderEnv(t)
	dir := t.TempDir()

	write := func(body string) string {
		path := filepath.Join(dir, "config.json")
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		return path
	}

	_, err := LoadConfig(write(`{"search": {"serper_api_key": "k"}}`))
	require.ErrorContains(t, err, "llm.api_key")

	_, err = LoadConfig(write(`{"llm": {"api_key": "k"}}`))
	require.ErrorContains(t, err, "no web search provider")

	_, err = LoadConfig(write(`{
		"llm": {"api_key": "k"},
		"search": {"serper_api_key": "k"},
		"pipeline": {"max_retries": -1}
	}`))
	require.ErrorContains(t, err, "max_retries")

	_, err = LoadConfig(write(`{
		"llm": {"api_key": "k", "context_window": 100, "max_answer_tokens": 200},
		"search": {"serper_api_key": "k"}
	}`))
	require.ErrorContains(t, err, "context_window")
}
