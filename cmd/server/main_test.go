package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kopano7/Lejone-wings-cafe/internal/config"
	"github.com/kopano7/Lejone-wings-cafe/internal/store"
	"github.com/kopano7/Lejone-wings-cafe/internal/store/file"
	"github.com/kopano7/Lejone-wings-cafe/internal/store/memory"
)

func TestOpenBackendSelectsDriver(t *testing.T) {
	ctx := context.Background()

	backend, err := openBackend(ctx, config.Config{StoreDriver: config.DriverMemory})
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, backend)

	backend, err = openBackend(ctx, config.Config{DataDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &file.Store{}, backend)
	require.NoError(t, backend.Ensure(ctx, store.AllCollections...))
	require.NoError(t, backend.Close())
}

func TestOpenBackendRejectsUnknownDriver(t *testing.T) {
	_, err := openBackend(context.Background(), config.Config{StoreDriver: "mongo"})
	assert.Error(t, err)
}
