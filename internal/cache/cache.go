// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache provides a namespaced, content-addressed byte-blob store
// used to short-circuit repeated article downloads.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Cache stores byte payloads under a namespace and string key.
type Cache interface {
	// Get returns the cached payload for key, with false when absent.
	Get(namespace, key string) ([]byte, bool, error)

	// Set persists the payload for future reuse.
	Set(namespace, key string, data []byte) error
}

// DirCache is a disk-backed Cache. Payloads live at
// {root}/{namespace}/{sha256(key)}.bin and are written via a temporary file
// renamed into place, so readers never observe partial writes. Concurrent
// writes to distinct keys are independent.
type DirCache struct {
	root string
}

// NewDirCache creates the cache root directory if needed.
func NewDirCache(root string) (*DirCache, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory %s: %w", root, err)
	}
	return &DirCache{root: root}, nil
}

// Get returns the cached payload for key, with false when absent.
func (c *DirCache) Get(namespace, key string) ([]byte, bool, error) {
	data, err := os.ReadFile(c.path(namespace, key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("reading cache entry: %w", err)
	}
	return data, true, nil
}

// Set persists the payload for future reuse.
func (c *DirCache) Set(namespace, key string, data []byte) error {
	path := c.path(namespace, key)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating cache namespace %s: %w", namespace, err)
	}

	tmp, err := os.CreateTemp(dir, ".cache-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing cache entry: %w", writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

func (c *DirCache) path(namespace, key string) string {
	digest := sha256.Sum256([]byte(key))
	return filepath.Join(c.root, namespace, hex.EncodeToString(digest[:])+".bin")
}

// MemCache is an in-memory Cache for tests and cache-disabled runs that
// still want a stub.
type MemCache struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemCache returns an empty in-memory cache.
func NewMemCache() *MemCache {
	return &MemCache{entries: make(map[string][]byte)}
}

// Get returns the cached payload for key, with false when absent.
func (c *MemCache) Get(namespace, key string) ([]byte, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	data, ok := c.entries[namespace+"/"+key]
	return data, ok, nil
}

// Set persists the payload for future reuse.
func (c *MemCache) Set(namespace, key string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[namespace+"/"+key] = data
	return nil
}
