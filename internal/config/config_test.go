package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "development", cfg.Primary.Env)
	require.Equal(t, "8080", cfg.Server.Port)
	require.Equal(t, []string{"app"}, cfg.Server.IngestPaths)
	require.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	require.Equal(t, "yyyy_MM_dd", cfg.Appender.DatePattern)
	require.Equal(t, ".entry.log", cfg.Appender.FileNameSuffix)
	require.Equal(t, 512, cfg.Appender.BufferSize)
	require.Equal(t, "error", cfg.Appender.FlushLevel)
	require.False(t, cfg.IsProduction())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("APPENDLOG_PRIMARY__ENV", "production")
	t.Setenv("APPENDLOG_SERVER__PORT", "9090")
	t.Setenv("APPENDLOG_SERVER__INGEST_PATHS", "app,audit")
	t.Setenv("APPENDLOG_SERVER__INGEST_LISTEN__AUDIT", "127.0.0.1:9001")
	t.Setenv("APPENDLOG_APPENDER__BACKEND", "memory")
	t.Setenv("APPENDLOG_APPENDER__CONTAINER_NAME", "AppLogs")
	t.Setenv("APPENDLOG_APPENDER__DIRECTORY_NAME", "web")
	t.Setenv("APPENDLOG_APPENDER__BUFFER_SIZE", "64")
	t.Setenv("APPENDLOG_APPENDER__FLUSH_INTERVAL", "30s")
	t.Setenv("APPENDLOG_APPENDER__UTC", "true")

	cfg, err := Load()
	require.NoError(t, err)
	require.True(t, cfg.IsProduction())
	require.Equal(t, "9090", cfg.Server.Port)
	require.Equal(t, []string{"app", "audit"}, cfg.Server.IngestPaths)
	require.Equal(t, map[string]string{"audit": "127.0.0.1:9001"}, cfg.Server.IngestListen)
	require.Equal(t, "memory", cfg.Appender.Backend)
	require.Equal(t, "AppLogs", cfg.Appender.ContainerName)
	require.Equal(t, "web", cfg.Appender.DirectoryName)
	require.Equal(t, 64, cfg.Appender.BufferSize)
	require.Equal(t, 30*time.Second, cfg.Appender.FlushInterval)
	require.True(t, cfg.Appender.UTC)
}

func TestNamedConnectionStringWins(t *testing.T) {
	t.Setenv("APPENDLOG_APPENDER__CONNECTION_STRING", "direct")
	t.Setenv("APPENDLOG_APPENDER__CONNECTION_STRING_NAME", "Primary")
	t.Setenv("APPENDLOG_CONNECTION_STRINGS__PRIMARY", "named")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "named", cfg.Appender.ConnectionString)
}

func TestUnresolvedNameFallsBackToDirect(t *testing.T) {
	t.Setenv("APPENDLOG_APPENDER__CONNECTION_STRING", "direct")
	t.Setenv("APPENDLOG_APPENDER__CONNECTION_STRING_NAME", "missing")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "direct", cfg.Appender.ConnectionString)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("APPENDLOG_APPENDER__BACKEND", "ftp")
	_, err := Load()
	require.Error(t, err)
}

func TestLoadSplitsSingleIngestPath(t *testing.T) {
	t.Setenv("APPENDLOG_SERVER__INGEST_PATHS", "audit")
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, []string{"audit"}, cfg.Server.IngestPaths)
}
