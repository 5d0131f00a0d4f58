// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirCacheRoundTrip(t *testing.T) {
	c, err := NewDirCache(t.TempDir())
	require.NoError(t, err)

	_, ok, err := c.Get("articles", "doi:10.1/abc")
	require.NoError(t, err)
	assert.False(t, ok)

	payload := []byte("<article/>")
	require.NoError(t, c.Set("articles", "doi:10.1/abc", payload))

	got, ok, err := c.Get("articles", "doi:10.1/abc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, payload, got)
}

func TestDirCacheLayout(t *testing.T) {
	root := t.TempDir()
	c, err := NewDirCache(root)
	require.NoError(t, err)

	key := "pmid:12345678"
	require.NoError(t, c.Set("articles", key, []byte("data")))

	digest := sha256.Sum256([]byte(key))
	want := filepath.Join(root, "articles", hex.EncodeToString(digest[:])+".bin")
	_, statErr := os.Stat(want)
	assert.NoError(t, statErr, "expected cache file at %s", want)
}

func TestDirCacheNamespacesAreIndependent(t *testing.T) {
	c, err := NewDirCache(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, c.Set("a", "key", []byte("one")))
	require.NoError(t, c.Set("b", "key", []byte("two")))

	got, ok, err := c.Get("a", "key")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("one"), got)
}

func TestDirCacheOverwrite(t *testing.T) {
	c, err := NewDirCache(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, c.Set("articles", "key", []byte("old")))
	require.NoError(t, c.Set("articles", "key", []byte("new")))

	got, ok, err := c.Get("articles", "key")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("new"), got)
}

func TestDirCacheLeavesNoTempFiles(t *testing.T) {
	root := t.TempDir()
	c, err := NewDirCache(root)
	require.NoError(t, err)

	require.NoError(t, c.Set("articles", "key", []byte("data")))

	entries, err := os.ReadDir(filepath.Join(root, "articles"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestMemCacheConcurrentAccess(t *testing.T) {
	c := NewMemCache()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := string(rune('a' + n))
			_ = c.Set("ns", key, []byte(key))
			_, _, _ = c.Get("ns", key)
		}(i)
	}
	wg.Wait()

	got, ok, err := c.Get("ns", "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("a"), got)
}
