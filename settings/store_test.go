package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "settings.json"))

	settings, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, Integration{}, settings)
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "nested", "settings.json"))

	saved := Integration{
		Enabled:    true,
		BaseURL:    "https://tracker.example.com",
		ProjectKey: "POKER",
	}
	require.NoError(t, store.Save(saved))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))

	_, err := NewFileStore(path).Load()
	assert.Error(t, err)
}

func TestSaveOverwrites(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "settings.json"))

	require.NoError(t, store.Save(Integration{ProjectKey: "OLD"}))
	require.NoError(t, store.Save(Integration{ProjectKey: "NEW"}))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "NEW", loaded.ProjectKey)
}
