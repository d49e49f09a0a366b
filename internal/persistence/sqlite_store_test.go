package persistence

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, opts ...Option) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	store, err := NewSQLiteStore(filepath.Join(dir, "capsync.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_TranslationRoundTrip(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	_, found, err := store.GetTranslation(ctx, "hello", "en", "de")
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, store.PutTranslation(ctx, "hello", "en", "de", "hallo"))

	translated, found, err := store.GetTranslation(ctx, "hello", "en", "de")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "hallo", translated)
}

func TestSQLiteStore_LanguagePairScopesEntry(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutTranslation(ctx, "hello", "en", "de", "hallo"))

	_, found, err := store.GetTranslation(ctx, "hello", "en", "fr")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSQLiteStore_UpsertReplacesTranslation(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutTranslation(ctx, "hello", "en", "de", "hallo"))
	require.NoError(t, store.PutTranslation(ctx, "hello", "en", "de", "servus"))

	translated, found, err := store.GetTranslation(ctx, "hello", "en", "de")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "servus", translated)
}

func TestSQLiteStore_ExpiredEntriesNotReturned(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, WithTTL(time.Millisecond))
	ctx := context.Background()

	require.NoError(t, store.PutTranslation(ctx, "hello", "en", "de", "hallo"))

	require.Eventually(t, func() bool {
		_, found, err := store.GetTranslation(ctx, "hello", "en", "de")
		return err == nil && !found
	}, time.Second, 10*time.Millisecond)
}

func TestSQLiteStore_DeleteExpired(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, WithTTL(time.Millisecond))
	ctx := context.Background()

	require.NoError(t, store.PutTranslation(ctx, "hello", "en", "de", "hallo"))
	require.NoError(t, store.PutTranslation(ctx, "bye", "en", "de", "tschüss"))

	deleted, err := store.DeleteExpired(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	deleted, err = store.DeleteExpired(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestSQLiteStore_ReopenKeepsData(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "capsync.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.PutTranslation(ctx, "hello", "en", "de", "hallo"))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	translated, found, err := reopened.GetTranslation(ctx, "hello", "en", "de")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "hallo", translated)
}

func TestMigrationVersion(t *testing.T) {
	assert.Equal(t, 1, migrationVersion("001_init.sql"))
	assert.Equal(t, 12, migrationVersion("012_add_index.sql"))
	assert.Zero(t, migrationVersion("README.md"))
}
