package cache

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/extentdedup/extentdedup/internal/types"
)

func digestOf(b byte) types.Digest {
	var d types.Digest
	for i := range d {
		d[i] = b
	}
	return d
}

func TestCacheDisabled(t *testing.T) {
	c, err := Open("")
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	require.NoError(t, c.Store(types.ExtentKey{Volume: 1, Extent: 1}, 100, digestOf(1)))

	_, ok, err := c.Lookup(types.ExtentKey{Volume: 1, Extent: 1}, 100)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCacheRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	key := types.ExtentKey{Volume: 7, Extent: 42}
	digest := digestOf(9)

	c1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, c1.Store(key, 1024, digest))
	require.NoError(t, c1.Close())

	c2, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = c2.Close() }()

	got, ok, err := c2.Lookup(key, 1024)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, digest, got)
}

func TestCacheMissOnSizeChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	key := types.ExtentKey{Volume: 1, Extent: 1}

	c1, _ := Open(path)
	require.NoError(t, c1.Store(key, 1024, digestOf(3)))
	require.NoError(t, c1.Close())

	c2, _ := Open(path)
	defer func() { _ = c2.Close() }()

	_, ok, err := c2.Lookup(key, 2048)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCacheMissOnExtentChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	c1, _ := Open(path)
	require.NoError(t, c1.Store(types.ExtentKey{Volume: 1, Extent: 1}, 1024, digestOf(3)))
	require.NoError(t, c1.Close())

	c2, _ := Open(path)
	defer func() { _ = c2.Close() }()

	// Same volume, different inode: simulates delete+recreate at the same size.
	_, ok, err := c2.Lookup(types.ExtentKey{Volume: 1, Extent: 2}, 1024)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSelfCleaning(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	keyA := types.ExtentKey{Volume: 1, Extent: 1}
	keyB := types.ExtentKey{Volume: 1, Extent: 2}

	c1, _ := Open(path)
	require.NoError(t, c1.Store(keyA, 100, digestOf(1)))
	require.NoError(t, c1.Store(keyB, 200, digestOf(2)))
	require.NoError(t, c1.Close())

	// Second run only looks up keyA; keyB is an orphan that should not
	// survive into the write database.
	c2, _ := Open(path)
	_, ok, err := c2.Lookup(keyA, 100)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, c2.Close())

	c3, _ := Open(path)
	defer func() { _ = c3.Close() }()

	_, ok, err = c3.Lookup(keyA, 100)
	require.NoError(t, err)
	require.True(t, ok, "keyA should survive self-cleaning")

	_, ok, err = c3.Lookup(keyB, 200)
	require.NoError(t, err)
	require.False(t, ok, "keyB should have been cleaned")
}

func TestCacheDirCreation(t *testing.T) {
	tmpDir := t.TempDir()
	nestedPath := filepath.Join(tmpDir, "a", "b", "c", "cache.db")

	c, err := Open(nestedPath)
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	matches, err := filepath.Glob(filepath.Join(tmpDir, "a", "b", "c"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
}

func TestKeyDeterministic(t *testing.T) {
	k := types.ExtentKey{Volume: 5, Extent: 99}
	require.Equal(t, key(k, 512), key(k, 512))
	require.NotEqual(t, key(k, 512), key(k, 1024))
}
