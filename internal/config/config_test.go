package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("AUTH_TOKENS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 25*time.Second, cfg.ChatTimeout)
	assert.True(t, cfg.LLM.DemoMode())
	assert.Empty(t, cfg.AuthTokens)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, 10*time.Second, cfg.SSE.KeepaliveInterval)
	assert.Equal(t, int64(1<<20), cfg.SSE.MaxRequestBodySize)
}

func TestLoadAuthTokens(t *testing.T) {
	t.Run("parses pairs", func(t *testing.T) {
		t.Setenv("AUTH_TOKENS", "tok-a:alice, tok-b:bob")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"tok-a": "alice", "tok-b": "bob"}, cfg.AuthTokens)
	})

	t.Run("rejects malformed entries", func(t *testing.T) {
		t.Setenv("AUTH_TOKENS", "tok-a")

		_, err := Load()
		assert.Error(t, err)
	})
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Run("rate limit", func(t *testing.T) {
		t.Setenv("RATE_LIMIT_REQUESTS", "0")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("llm base url with key", func(t *testing.T) {
		t.Setenv("LLM_API_KEY", "sk-test")
		t.Setenv("LLM_BASE_URL", "not a url")
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestLoadClient(t *testing.T) {
	t.Setenv("AURA_BASE_URL", "http://aura.test/")
	t.Setenv("AURA_CHAT_TIMEOUT", "5s")
	t.Setenv("AURA_LANG", "en")

	cfg, err := LoadClient()
	require.NoError(t, err)
	assert.Equal(t, "http://aura.test", cfg.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.ChatTimeout)
	assert.Equal(t, "en", cfg.Language)
}

func TestLoadClientDefaultsTimeout(t *testing.T) {
	t.Setenv("AURA_CHAT_TIMEOUT", "garbage")

	cfg, err := LoadClient()
	require.NoError(t, err)
	assert.Equal(t, DefaultChatTimeout, cfg.ChatTimeout)
}
