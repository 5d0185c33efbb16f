package credential

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func exerciseStorage(t *testing.T, storage Storage) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := storage.Load(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, storage.Save(ctx, "first"))
	token, ok, err := storage.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "first", token)

	require.NoError(t, storage.Save(ctx, "second"))
	token, _, err = storage.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "second", token)

	require.NoError(t, storage.Delete(ctx))
	require.NoError(t, storage.Delete(ctx))
	_, ok, err = storage.Load(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryStorage(t *testing.T) {
	exerciseStorage(t, NewMemoryStorage())
}

func TestFileStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token")
	storage, err := NewFileStorage(path)
	require.NoError(t, err)
	exerciseStorage(t, storage)
}

func TestFileStoragePersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "token")

	first, err := NewFileStorage(path)
	require.NoError(t, err)
	require.NoError(t, first.Save(ctx, "persisted"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	second, err := NewFileStorage(path)
	require.NoError(t, err)
	token, ok, err := second.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "persisted", token)
}

func TestFileStorageRequiresPath(t *testing.T) {
	_, err := NewFileStorage("")
	require.Error(t, err)
}

func TestSQLiteStorage(t *testing.T) {
	storage, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })
	exerciseStorage(t, storage)
}

func TestSQLiteStoragePersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.db")

	first, err := NewSQLiteStorage(path)
	require.NoError(t, err)
	require.NoError(t, first.Save(ctx, "persisted"))
	require.NoError(t, first.Close())

	second, err := NewSQLiteStorage(path)
	require.NoError(t, err)
	t.Cleanup(func() { second.Close() })

	token, ok, err := second.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "persisted", token)
}

func TestMemoryStorageConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = storage.Save(ctx, "token")
			_, _, _ = storage.Load(ctx)
			_ = storage.Delete(ctx)
		}()
	}
	wg.Wait()
}
