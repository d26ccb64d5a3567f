package infer

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/zeebo/blake3"

	"github.com/arjunmahishi/rsdoc/types"
)

// Current schema version - increment when cacheEntry format changes
const cacheSchemaVersion uint16 = 1

// Cache stores inferred doc blocks on disk, addressed by a digest of the
// descriptor, and forwards misses to the wrapped adapter. Failures are
// never cached. Safe for concurrent use.
type Cache struct {
	mu   sync.RWMutex
	dir  string
	next Adapter
}

type cacheEntry struct {
	Schema uint16         `msgpack:"schema"`
	Block  types.DocBlock `msgpack:"block"`
}

// NewCache opens (creating if needed) a cache directory in front of next.
func NewCache(dir string, next Adapter) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Cache{dir: dir, next: next}, nil
}

func (c *Cache) Infer(ctx context.Context, d types.Descriptor) (types.DocBlock, error) {
	key, err := Key(d)
	if err != nil {
		return types.DocBlock{}, err
	}
	if b, ok, err := c.get(key); err == nil && ok {
		return b, nil
	}

	b, err := c.next.Infer(ctx, d)
	if err != nil {
		return types.DocBlock{}, err
	}
	// A failed write only costs a later miss.
	_ = c.put(key, b)
	return b, nil
}

// Key returns the hex blake3 digest of a descriptor's msgpack encoding.
func Key(d types.Descriptor) (string, error) {
	data, err := msgpack.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("encode descriptor: %w", err)
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func (c *Cache) pathFor(key string) string {
	return filepath.Join(c.dir, key[:2], key+".mp")
}

func (c *Cache) get(key string) (types.DocBlock, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, err := os.ReadFile(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return types.DocBlock{}, false, nil
		}
		return types.DocBlock{}, false, err
	}
	var e cacheEntry
	if err := msgpack.Unmarshal(data, &e); err != nil {
		return types.DocBlock{}, false, err
	}
	if e.Schema != cacheSchemaVersion {
		return types.DocBlock{}, false, nil
	}
	return e.Block, true, nil
}

func (c *Cache) put(key string, b types.DocBlock) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	data, err := msgpack.Marshal(cacheEntry{Schema: cacheSchemaVersion, Block: b})
	if err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), p)
}
