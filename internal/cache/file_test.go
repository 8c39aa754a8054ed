package cache

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"NovaCS/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	store, err := NewFileStore(t.TempDir(), logger)
	require.NoError(t, err)
	return store
}

func TestFileStore_RoundTrip(t *testing.T) {
	store := newTestStore(t)

	msgs := []entity.Message{
		{ID: "m1", ConversationID: "c1", Role: entity.RoleCustomer, Content: "hello", CreatedAt: time.Now().UTC().Truncate(time.Second)},
		{ID: "m2", ConversationID: "c1", Role: entity.RoleAssistant, Content: "hi", CreatedAt: time.Now().UTC().Truncate(time.Second)},
	}

	require.NoError(t, store.Put("c1", msgs))

	got, ok := store.Get("c1")
	require.True(t, ok)
	require.Len(t, got, 2)
	assert.Equal(t, "m1", got[0].ID)
	assert.Equal(t, "hello", got[0].Content)
}

func TestFileStore_MissAndDelete(t *testing.T) {
	store := newTestStore(t)

	_, ok := store.Get("absent")
	assert.False(t, ok)

	require.NoError(t, store.Put("c1", []entity.Message{{ID: "m1"}}))
	require.NoError(t, store.Delete("c1"))

	_, ok = store.Get("c1")
	assert.False(t, ok)

	// Deleting an absent key is not an error.
	assert.NoError(t, store.Delete("c1"))
}

func TestFileStore_KeysIsolatedPerConversation(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Put("c1", []entity.Message{{ID: "m1", Content: "one"}}))
	require.NoError(t, store.Put("c2", []entity.Message{{ID: "m2", Content: "two"}}))

	got, ok := store.Get("c1")
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, "m1", got[0].ID)
}

func TestFileStore_CorruptEntryIsAMiss(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	dir := t.TempDir()
	store, err := NewFileStore(dir, logger)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "messages-c1.json"), []byte("{not json"), 0o644))

	_, ok := store.Get("c1")
	assert.False(t, ok)
}
