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

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, 5*time.Second, cfg.QueryTimeout())
	assert.False(t, cfg.Workflow.CascadeRejection)
	assert.Equal(t, FinalReadyForCollection, cfg.Workflow.FinalStatus)
	assert.Equal(t, 10, cfg.Workflow.MaxDocuments)
	assert.Equal(t, 10*time.Minute, cfg.ReferenceCacheTTL())
}

func TestLoadConfigFileAndEnvOverride(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9090"
database:
  driver: memory
  query_timeout: 2s
jwt:
  secret: from-file
workflow:
  cascade_rejection: true
  final_status: Completed
`)
	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("DB_QUERY_TIMEOUT", "3s")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, 3*time.Second, cfg.QueryTimeout())
	assert.Equal(t, "from-file", cfg.JWT.Secret)
	assert.True(t, cfg.Workflow.CascadeRejection)
	assert.Equal(t, FinalCompleted, cfg.Workflow.FinalStatus)
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing secret", body: "database:\n  driver: memory\n"},
		{name: "unknown driver", body: "database:\n  driver: sqlite\njwt:\n  secret: s\n"},
		{name: "bad final status", body: "jwt:\n  secret: s\nworkflow:\n  final_status: Done\n"},
		{name: "bad timeout", body: "jwt:\n  secret: s\ndatabase:\n  query_timeout: soon\n"},
		{name: "zero timeout", body: "jwt:\n  secret: s\ndatabase:\n  query_timeout: 0s\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestEnvBoolOverride(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("WORKFLOW_CASCADE_REJECTION", "true")
	t.Setenv("TELEMETRY_ENABLED", "not-a-bool")

	_, err := LoadConfig(filepath.Join(t.TempDir(), "none.yaml"))
	require.Error(t, err)

	t.Setenv("TELEMETRY_ENABLED", "false")
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.True(t, cfg.Workflow.CascadeRejection)
}
