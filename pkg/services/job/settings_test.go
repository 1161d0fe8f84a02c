package job

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettings(t *testing.T) {
	t.Run("empty path returns defaults", func(t *testing.T) {
		settings, err := LoadSettings("")
		require.NoError(t, err)
		assert.Equal(t, runtime.NumCPU(), settings.ConcurrentTasks)
		assert.Equal(t, ".hazengine", settings.DatastoreDir)
		assert.Equal(t, "localhost:8800", settings.ServerAddr)
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "settings.yaml")
		content := `
concurrent_tasks: 4
datastore_dir: /var/lib/hazengine
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		settings, err := LoadSettings(path)
		require.NoError(t, err)
		assert.Equal(t, 4, settings.ConcurrentTasks)
		assert.Equal(t, "/var/lib/hazengine", settings.DatastoreDir)
		// Unset keys keep their defaults.
		assert.Equal(t, "localhost:8800", settings.ServerAddr)
	})

	t.Run("non-positive task count falls back to NumCPU", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "settings.yaml")
		require.NoError(t, os.WriteFile(path, []byte("concurrent_tasks: -1\n"), 0o644))

		settings, err := LoadSettings(path)
		require.NoError(t, err)
		assert.Equal(t, runtime.NumCPU(), settings.ConcurrentTasks)
	})

	t.Run("error - missing file", func(t *testing.T) {
		_, err := LoadSettings(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}
