package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	resourceFs "github.com/staticd-io/staticd/pkg/store/resource/fs"
	resourceMemory "github.com/staticd-io/staticd/pkg/store/resource/memory"
)

func TestNewResourceStore_Filesystem(t *testing.T) {
	cfg := validConfig(t)

	store, err := NewResourceStore(context.Background(), cfg)
	require.NoError(t, err)
	defer store.Close()

	fsStore, ok := store.(*resourceFs.FSStore)
	require.True(t, ok)
	assert.Equal(t, cfg.Site.Root, fsStore.Root())
}

func TestNewResourceStore_FilesystemPathOverride(t *testing.T) {
	cfg := validConfig(t)
	override := t.TempDir()
	cfg.Store.Filesystem = map[string]any{"path": override}

	store, err := NewResourceStore(context.Background(), cfg)
	require.NoError(t, err)
	defer store.Close()

	fsStore, ok := store.(*resourceFs.FSStore)
	require.True(t, ok)
	assert.Equal(t, override, fsStore.Root())
}

func TestNewResourceStore_Memory(t *testing.T) {
	cfg := validConfig(t)
	cfg.Store.Type = "memory"

	store, err := NewResourceStore(context.Background(), cfg)
	require.NoError(t, err)
	defer store.Close()

	_, ok := store.(*resourceMemory.MemoryStore)
	assert.True(t, ok)
}

func TestNewResourceStore_Badger(t *testing.T) {
	cfg := validConfig(t)
	cfg.Store.Type = "badger"
	cfg.Store.Badger = map[string]any{"path": t.TempDir()}

	store, err := NewResourceStore(context.Background(), cfg)
	require.NoError(t, err)
	assert.NoError(t, store.Close())
}

func TestNewResourceStore_BadgerRequiresPath(t *testing.T) {
	cfg := validConfig(t)
	cfg.Store.Type = "badger"

	_, err := NewResourceStore(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNewResourceStore_S3RequiresBucket(t *testing.T) {
	cfg := validConfig(t)
	cfg.Store.Type = "s3"
	cfg.Store.S3 = map[string]any{"region": "us-east-1"}

	_, err := NewResourceStore(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNewResourceStore_UnknownType(t *testing.T) {
	cfg := validConfig(t)
	cfg.Store.Type = "carrier-pigeon"

	_, err := NewResourceStore(context.Background(), cfg)
	assert.Error(t, err)
}
