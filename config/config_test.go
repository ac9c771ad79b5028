package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8000", cfg.Server.Addr())
	assert.Equal(t, int64(1<<20), cfg.Server.MaxBodyBytes)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "daybed.db", cfg.Store.DSN)
	assert.Equal(t, "daybed:", cfg.Store.Redis.Prefix)
	assert.False(t, cfg.Schema.RejectUnknownFields)
	assert.Equal(t, 256, cfg.Schema.CacheSize)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "daybed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9000
  cors_origins: ["https://app.example.com"]
store:
  driver: redis
  redis:
    addr: redis:6379
schema:
  reject_unknown_fields: true
log:
  format: console
`), 0o644))

	t.Setenv("DAYBED_SERVER_HOST", "127.0.0.1")
	t.Setenv("DAYBED_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr())
	assert.Equal(t, []string{"https://app.example.com"}, cfg.Server.CORSOrigins)
	assert.Equal(t, DriverRedis, cfg.Store.Driver)
	assert.Equal(t, "redis:6379", cfg.Store.Redis.Addr)
	assert.True(t, cfg.Schema.RejectUnknownFields)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())

	cases := map[string]string{
		"DAYBED_STORE_DRIVER":      "oracle",
		"DAYBED_LOG_LEVEL":         "loud",
		"DAYBED_LOG_FORMAT":        "xml",
		"DAYBED_SCHEMA_CACHE_SIZE": "0",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestLogConfig_NewLogger(t *testing.T) {
	logger, err := LogConfig{Level: "warn", Format: "json"}.NewLogger()
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))

	_, err = LogConfig{Level: "nope", Format: "json"}.NewLogger()
	assert.Error(t, err)
}
