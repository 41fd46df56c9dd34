package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/voicemesh/logging"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "voicemesh.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.Server.Listen)
	assert.Equal(t, ProviderOpenAI, cfg.Model.Provider)
	assert.Equal(t, BackendMemory, cfg.Memory.Backend)
	assert.Equal(t, 4, cfg.Memory.Workers)
	assert.Equal(t, 64, cfg.Memory.Queue)
	assert.Equal(t, 3, cfg.Agents.MaxContinuationDepth)
	assert.Equal(t, 10*time.Second, cfg.BizAPI.Timeout)
	assert.InDelta(t, 5, cfg.BizAPI.RateLimit, 0)
}

func TestLoad_FileKeepsUnsetDefaults(t *testing.T) {
	path := writeFile(t, `
model:
  provider: anthropic
  name: claude-3-5-haiku-latest
memory:
  backend: postgres
  postgres_dsn: postgres://localhost/voicemesh
bizapi:
  book_reading_url: http://books.local
  timeout: 3s
agents:
  enabled: [quiz_master, drift_bottle]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ProviderAnthropic, cfg.Model.Provider)
	assert.Equal(t, "claude-3-5-haiku-latest", cfg.Model.Name)
	assert.Equal(t, BackendPostgres, cfg.Memory.Backend)
	assert.Equal(t, 4, cfg.Memory.Workers)
	assert.Equal(t, 3*time.Second, cfg.BizAPI.Timeout)
	assert.True(t, cfg.AgentEnabled("quiz_master"))
	assert.False(t, cfg.AgentEnabled("script_murder"))
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("VOICEMESH_LISTEN", ":9000")
	t.Setenv("VOICEMESH_MEMORY_BACKEND", "mongo")
	t.Setenv("VOICEMESH_MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("VOICEMESH_MAX_CONTINUATION_DEPTH", "5")
	t.Setenv("VOICEMESH_AGENTS", "reading_partner, quiz_master")

	cfg, err := Load(writeFile(t, "server:\n  listen: \":7000\"\n"))
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Listen)
	assert.Equal(t, BackendMongo, cfg.Memory.Backend)
	assert.Equal(t, 5, cfg.Agents.MaxContinuationDepth)
	assert.Equal(t, []string{"reading_partner", "quiz_master"}, cfg.Agents.Enabled)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = Load(writeFile(t, "model: [\n"))
	require.Error(t, err)

	_, err = Load(writeFile(t, "memory:\n  backend: postgres\n"))
	require.ErrorContains(t, err, "postgres_dsn")

	t.Setenv("VOICEMESH_MAX_CONTINUATION_DEPTH", "many")

	_, err = Load("")
	require.ErrorContains(t, err, "VOICEMESH_MAX_CONTINUATION_DEPTH")
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.Model.Provider = "llama"
	cfg.Memory.Backend = "redis"
	cfg.Logging.Format = "xml"

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "model.provider")
	assert.ErrorContains(t, err, "memory.backend")
	assert.ErrorContains(t, err, "logging.format")
}

func TestLoggerConfig(t *testing.T) {
	cfg := Default()
	cfg.Logging.Level = "debug"
	cfg.Logging.Format = "text"

	lc := cfg.LoggerConfig()
	assert.Equal(t, logging.LogLevelDebug, lc.Level)
	assert.Equal(t, "text", lc.Format)
}
