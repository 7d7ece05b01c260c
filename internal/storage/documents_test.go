package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageCommitRenterDocument(t *testing.T) {
	store, err := NewDocumentStore(t.TempDir(), 1)
	require.NoError(t, err)

	staged, err := store.Stage(strings.NewReader("passport scan"), "passport.jpg")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(staged.Name, ".jpg"))

	key, err := store.CommitRenterDocument(staged, 42)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("documents", "renters", "42", staged.Name), key)

	f, err := store.Open(key)
	require.NoError(t, err)
	f.Close()
}

func TestDiscardRemovesStagedFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDocumentStore(dir, 1)
	require.NoError(t, err)

	staged, err := store.Stage(strings.NewReader("license scan"), "license.png")
	require.NoError(t, err)

	store.Discard(staged)

	_, err = os.Stat(filepath.Join(dir, "staging", staged.Name))
	assert.True(t, os.IsNotExist(err))

	// Idempotent, including nil entries.
	store.Discard(staged, nil)
}

func TestStageRejectsOversizedFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDocumentStore(dir, 1)
	require.NoError(t, err)

	big := strings.NewReader(strings.Repeat("x", 1<<20+1))
	_, err = store.Stage(big, "huge.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upload limit")

	// Nothing left behind in staging.
	entries, err := os.ReadDir(filepath.Join(dir, "staging"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSaveVehicleImage(t *testing.T) {
	store, err := NewDocumentStore(t.TempDir(), 1)
	require.NoError(t, err)

	key, err := store.SaveVehicleImage(strings.NewReader("jpeg bytes"), "front.jpeg", 7)
	require.NoError(t, err)
	assert.Contains(t, key, filepath.Join("images", "vehicles", "7"))

	require.NoError(t, store.Remove(key))
	// Removing again is a no-op.
	require.NoError(t, store.Remove(key))
}
