package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("BLOOM_JWT_SECRET", "s3cret")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.Equal(t, 14*24*time.Hour, cfg.Pairing.RequestTTL)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, 8192, cfg.AWS.MaxImageSide)
}

func TestLoadYAMLThenEnv(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
storage:
  driver: memory
jwt:
  secret: from-file
  ttl: 1h
questions:
  timezone: Europe/Paris
pairing:
  request_ttl: 72h
`)
	t.Setenv("BLOOM_SERVER_PORT", "9100")
	t.Setenv("BLOOM_DB_NAME", "bloom_test")
	t.Setenv("BLOOM_OPENAI_API_KEY", "sk-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, "from-file", cfg.JWT.Secret)
	assert.Equal(t, time.Hour, cfg.JWT.TTL)
	assert.Equal(t, "Europe/Paris", cfg.Questions.Timezone)
	assert.Equal(t, 72*time.Hour, cfg.Pairing.RequestTTL)
	assert.Equal(t, "bloom_test", cfg.Database.DBName)
	assert.Equal(t, "sk-env", cfg.OpenAI.APIKey)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	assert.Error(t, cfg.Validate(), "jwt secret is required")

	cfg.JWT.Secret = "x"
	require.NoError(t, cfg.Validate())

	cfg.Storage.Driver = "sqlite"
	assert.Error(t, cfg.Validate())

	cfg.Storage.Driver = "memory"
	cfg.Questions.Timezone = "Mars/Olympus"
	assert.Error(t, cfg.Validate())
}

func TestLoadRejectsBadYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "server: [not, a, map"))
	assert.Error(t, err)
}

func TestDatabaseURLs(t *testing.T) {
	db := DatabaseConfig{Host: "db", Port: 5432, User: "bloom", Password: "p@ss", DBName: "bloom", SSLMode: "disable"}

	assert.Equal(t, "host=db port=5432 user=bloom password=p@ss dbname=bloom sslmode=disable", db.DSN())
	assert.Equal(t, "pgx5://bloom:p%40ss@db:5432/bloom?sslmode=disable", db.MigrationURL())
}
