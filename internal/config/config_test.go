package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"tarot-ai-go/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("TAROT_AUTH_SECRET", "s3cret")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 60*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 10, cfg.Topic.Window)
	assert.Equal(t, config.DefaultRefusal, cfg.Prompt.Refusal)
	assert.Equal(t, config.DefaultPersona, cfg.Prompt.Persona)
	assert.Equal(t, "s3cret", cfg.Auth.Secret)
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	path := writeConfig(t, `
auth:
  secret: "from-file"
llm:
  model: "file-model"
  timeout: 15s
topic:
  window: 4
`)
	t.Setenv("TAROT_LLM_API_KEY", "env-key")
	t.Setenv("TAROT_LLM_MODEL", "env-model")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.LLM.APIKey)
	assert.Equal(t, "env-model", cfg.LLM.Model)
	assert.Equal(t, 15*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 4, cfg.Topic.Window)
	assert.Equal(t, "from-file", cfg.Auth.Secret)
}

func TestValidate(t *testing.T) {
	valid := config.Config{
		Database: config.DatabaseConfig{Driver: "mysql"},
		Auth:     config.AuthConfig{Secret: "x"},
		LLM:      config.LLMConfig{Timeout: time.Second},
		Topic:    config.TopicConfig{Window: 10},
	}

	tests := []struct {
		name    string
		mutate  func(c *config.Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *config.Config) {}},
		{name: "unknown driver", mutate: func(c *config.Config) { c.Database.Driver = "oracle" }, wantErr: "unsupported database driver"},
		{name: "zero timeout", mutate: func(c *config.Config) { c.LLM.Timeout = 0 }, wantErr: "llm.timeout"},
		{name: "zero window", mutate: func(c *config.Config) { c.Topic.Window = 0 }, wantErr: "topic.window"},
		{name: "missing secret", mutate: func(c *config.Config) { c.Auth.Secret = "" }, wantErr: "auth.secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_ShippedConfigNeedsNoExternalServices(t *testing.T) {
	cfg, err := config.Load(filepath.Join("..", "..", "configs", "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Empty(t, cfg.Database.Redis.Addr)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Empty(t, cfg.Elasticsearch.Addresses)
	assert.Empty(t, cfg.MinIO.Endpoint)
}
