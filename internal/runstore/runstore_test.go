package runstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSONRoundTrips(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	type payload struct {
		Name string `json:"name"`
	}
	require.NoError(t, store.WriteJSON("attempt_0.static.json", payload{Name: "x"}))

	data, err := os.ReadFile(filepath.Join(store.Dir(), "attempt_0.static.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"name": "x"`)
}

func TestWriteTextLeavesNoTempFileBehind(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.WriteText("attempt_0.test_src.py", "def test_a(): pass"))

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp-")
	}
}

func TestAttemptFileNaming(t *testing.T) {
	assert.Equal(t, "attempt_3.static.json", AttemptFile(3, "static.json"))
}

func TestNewCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "runs", "nested")
	store, err := New(dir)
	require.NoError(t, err)
	info, err := os.Stat(store.Dir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
