package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestFileCache_GetAndFetch(t *testing.T) {
	fc := NewFileCache(DefaultFileCacheConfig(), nil)
	defer fc.Close()

	path := writeTempFile(t, "a.php", "<?php echo 'hi';")

	data, err := fc.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<?php echo 'hi';", string(data))

	code, err := fc.FetchCode(path, 6, 10)
	require.NoError(t, err)
	assert.Equal(t, "echo", code)

	// Second access hits the cache.
	_, err = fc.Get(path)
	require.NoError(t, err)
	stats := fc.Stats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.CachedFiles)
}

func TestFileCache_InvalidRange(t *testing.T) {
	fc := NewFileCache(DefaultFileCacheConfig(), nil)
	defer fc.Close()

	path := writeTempFile(t, "a.php", "abc")
	_, err := fc.FetchCode(path, 2, 2)
	assert.Error(t, err)
	_, err = fc.FetchCode(path, 0, 99)
	assert.Error(t, err)
}

func TestFileCache_EmptyFile(t *testing.T) {
	fc := NewFileCache(DefaultFileCacheConfig(), nil)
	defer fc.Close()

	path := writeTempFile(t, "empty.php", "")
	data, err := fc.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestFileCache_MissingFile(t *testing.T) {
	fc := NewFileCache(DefaultFileCacheConfig(), nil)
	defer fc.Close()

	_, err := fc.Get(filepath.Join(t.TempDir(), "nope.php"))
	assert.Error(t, err)
}

func TestFileCache_Invalidate(t *testing.T) {
	fc := NewFileCache(DefaultFileCacheConfig(), nil)
	defer fc.Close()

	path := writeTempFile(t, "a.php", "one")
	_, err := fc.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("two!"), 0644))
	fc.Invalidate(path)

	data, err := fc.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two!", string(data))
}

func TestGetOptimalPoolSize_Bounds(t *testing.T) {
	size := GetOptimalPoolSize()
	assert.GreaterOrEqual(t, size, 4)
	assert.LessOrEqual(t, size, 32)
	assert.Equal(t, 7, GetOptimalPoolSizeWithOverride(7))
	assert.Equal(t, size, GetOptimalPoolSizeWithOverride(0))
}
