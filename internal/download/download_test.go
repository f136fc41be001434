// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package download

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// leftovers lists temporary download files remaining in dir.
func leftovers(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var tmp []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".download-") {
			tmp = append(tmp, e.Name())
		}
	}
	return tmp
}

func TestTrigger_WritesPayload(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	d := Dispatcher{Dir: dir}

	path, err := d.Trigger([]byte("archive"), DeckArchive)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, DeckArchive), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "archive", string(data))
	assert.Empty(t, leftovers(t, dir))
}

func TestTrigger_Collisions(t *testing.T) {
	dir := t.TempDir()
	d := Dispatcher{Dir: dir}

	first, err := d.Trigger([]byte("1"), DeckArchive)
	require.NoError(t, err)
	second, err := d.Trigger([]byte("2"), DeckArchive)
	require.NoError(t, err)
	third, err := d.Trigger([]byte("3"), DeckArchive)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "ojamed_deck.zip"), first)
	assert.Equal(t, filepath.Join(dir, "ojamed_deck (1).zip"), second)
	assert.Equal(t, filepath.Join(dir, "ojamed_deck (2).zip"), third)

	data, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, "1", string(data), "existing file is not overwritten")
}

func TestTrigger_StripsDirectories(t *testing.T) {
	dir := t.TempDir()
	path, err := Dispatcher{Dir: dir}.Trigger([]byte("x"), "../../escape.zip")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "escape.zip"), path)
}

func TestTrigger_EmptyName(t *testing.T) {
	_, err := Dispatcher{Dir: t.TempDir()}.Trigger([]byte("x"), "  ")
	var derr *DownloadError
	assert.ErrorAs(t, err, &derr)
}

func TestTrigger_UnwritableDir(t *testing.T) {
	// A regular file where the directory should be.
	parent := t.TempDir()
	blocker := filepath.Join(parent, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("file"), 0o644))

	_, err := Dispatcher{Dir: filepath.Join(blocker, "out")}.Trigger([]byte("x"), DeckArchive)
	var derr *DownloadError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, DeckArchive, derr.Name)
	assert.Empty(t, leftovers(t, parent))
}
