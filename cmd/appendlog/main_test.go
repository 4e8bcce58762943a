package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/akave-ai/appendlog/internal/appender"
	"github.com/akave-ai/appendlog/internal/config"
	"github.com/akave-ai/appendlog/internal/storage"
)

func TestOpenStoreReportsConfigErrorFirst(t *testing.T) {
	_, err := openStore(config.AppenderConfig{
		Backend:       storage.BackendAzure,
		ContainerName: "logs",
		DirectoryName: "web",
	})
	require.ErrorIs(t, err, appender.ErrConfig)
	var cerr *appender.ConfigError
	require.ErrorAs(t, err, &cerr)
	require.Equal(t, "connection_string", cerr.Field)
}

func TestOpenStoreMemory(t *testing.T) {
	store, err := openStore(config.AppenderConfig{
		Backend:          storage.BackendMemory,
		ConnectionString: "memory",
		ContainerName:    "logs",
		DirectoryName:    "web",
	})
	require.NoError(t, err)
	require.IsType(t, &storage.Memory{}, store)
}
