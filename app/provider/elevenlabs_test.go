package provider_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"content-forge/app/config"
	"content-forge/app/provider"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElevenLabsRequiresCredentials(t *testing.T) {
	t.Parallel()
	client := provider.NewElevenLabsClient(config.VoiceConfig{BaseURL: "http://localhost:1"})

	err := client.Synthesize(context.Background(), "你好", filepath.Join(t.TempDir(), "out.mp3"))
	assert.ErrorIs(t, err, provider.ErrNotConfigured)
}

func TestElevenLabsSynthesizeWritesFile(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/text-to-speech/voice_1", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("xi-api-key"))

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "市政公告内容", payload["text"])
		assert.Equal(t, "eleven_turbo_v2_5", payload["model_id"])

		w.Write([]byte("mp3-bytes"))
	}))
	defer server.Close()

	client := provider.NewElevenLabsClient(config.VoiceConfig{
		BaseURL: server.URL,
		APIKey:  "test-key",
		VoiceID: "voice_1",
		ModelID: "eleven_turbo_v2_5",
	})
	defer client.Close()

	outputPath := filepath.Join(t.TempDir(), "voices", "task_1.mp3")
	require.NoError(t, client.Synthesize(context.Background(), "市政公告内容", outputPath))

	data, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	assert.Equal(t, "mp3-bytes", string(data))
}

func TestElevenLabsSynthesizeAuthError(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail": "invalid api key"}`))
	}))
	defer server.Close()

	client := provider.NewElevenLabsClient(config.VoiceConfig{
		BaseURL: server.URL,
		APIKey:  "bad-key",
		VoiceID: "voice_1",
	})
	defer client.Close()

	outputPath := filepath.Join(t.TempDir(), "out.mp3")
	err := client.Synthesize(context.Background(), "你好", outputPath)
	require.Error(t, err)
	assert.True(t, provider.IsAuth(err))
	assert.NoFileExists(t, outputPath)
}
