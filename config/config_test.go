package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom(t *testing.T) {
	t.Run("loads default configuration without a file", func(t *testing.T) {
		cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))

		require.NoError(t, err)
		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, "release", cfg.Server.Mode)
		assert.Equal(t, "info", cfg.Log.Level)
		assert.Equal(t, BackendONNX, cfg.Model.Backend)
		assert.Equal(t, "cardiffnlp/twitter-roberta-base-sentiment-latest", cfg.Model.Primary)
		assert.Equal(t, "nlptown/bert-base-multilingual-uncased-sentiment", cfg.Model.Fallback)
		assert.True(t, cfg.Model.Required)
		assert.False(t, cfg.Cache.Enabled)
		assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)
		assert.Equal(t, int64(16<<20), cfg.Upload.MaxBytes)
	})

	t.Run("reads yaml file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := "server:\n  port: 9000\nmodel:\n  backend: vader\ncache:\n  ttl: 5m\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		cfg, err := LoadFrom(path)

		require.NoError(t, err)
		assert.Equal(t, 9000, cfg.Server.Port)
		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, BackendVADER, cfg.Model.Backend)
		assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9000\n"), 0o600))
		t.Setenv("SENTISCOPE_SERVER__PORT", "9090")
		t.Setenv("SENTISCOPE_MODEL__ONNX_LIBRARY", "/opt/onnxruntime.so")
		t.Setenv("SENTISCOPE_RECORDER__KAFKA__ENABLED", "true")

		cfg, err := LoadFrom(path)

		require.NoError(t, err)
		assert.Equal(t, 9090, cfg.Server.Port)
		assert.Equal(t, "/opt/onnxruntime.so", cfg.Model.OnnxLibrary)
		assert.True(t, cfg.Recorder.Kafka.Enabled)
	})

	t.Run("rejects unknown backend", func(t *testing.T) {
		t.Setenv("SENTISCOPE_MODEL__BACKEND", "torch")

		_, err := LoadFrom("")

		assert.Error(t, err)
	})
}

func TestCandidates(t *testing.T) {
	tests := []struct {
		name     string
		model    ModelConfig
		expected []string
	}{
		{"primary and fallback", ModelConfig{Primary: "a", Fallback: "b"}, []string{"a", "b"}},
		{"same name once", ModelConfig{Primary: "a", Fallback: "a"}, []string{"a"}},
		{"fallback only", ModelConfig{Fallback: "b"}, []string{"b"}},
		{"none", ModelConfig{}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.model.Candidates())
		})
	}
}

func TestServerAddr(t *testing.T) {
	assert.Equal(t, "0.0.0.0:8080", Default().Server.Addr())
}

func TestModelNames(t *testing.T) {
	cfg := Default()
	assert.Equal(t, cfg.Model.Candidates(), cfg.ModelNames())

	cfg.Model.Backend = BackendOpenAI
	assert.Equal(t, []string{"gpt-4o-mini"}, cfg.ModelNames())

	cfg.Model.Backend = BackendVADER
	assert.Equal(t, []string{"vader"}, cfg.ModelNames())
}

func TestDefaultStartupRunsInReleaseMode(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(".."))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	for _, key := range []string{
		"APP_ENV",
		"CONFIG_FILE",
		"SENTISCOPE_SERVER__MODE",
		"SENTISCOPE_LOG__LEVEL",
		"SENTISCOPE_MODEL__DIR",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	LoadEnv(AppEnv())
	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "dev", AppEnv())
	assert.Equal(t, "release", cfg.Server.Mode)
}
