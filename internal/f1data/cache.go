package f1data

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// diskCache stores raw provider responses keyed by request URL. A nil dir
// disables caching entirely.
type diskCache struct {
	dir string
}

func newDiskCache(dir string) (*diskCache, error) {
	if dir == "" {
		return &diskCache{}, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	return &diskCache{dir: dir}, nil
}

func (c *diskCache) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:])+".json")
}

func (c *diskCache) Get(key string) ([]byte, bool) {
	if c.dir == "" {
		return nil, false
	}
	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return nil, false
	}
	return data, true
}

func (c *diskCache) Put(key string, data []byte) {
	if c.dir == "" {
		return
	}
	// Best effort: a failed cache write only costs a refetch.
	_ = os.WriteFile(c.path(key), data, 0644)
}
