// Package cache persists one blob per chain to disk (cmd/watcher stores a
// JSON snapshot of the chain's pools there) and fronts repeated reads with
// an in-memory LRU. Loading a blob does not restore pool state; cmd/watcher
// only logs that a snapshot exists and discovers pools from chain.
package cache

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
)

// bigIntJSON is the wire encoding for an arbitrary-precision integer,
// since encoding/json has no native big-integer type: a tagged object
// rather than a bare numeric string, so a reader can distinguish it from
// an ordinary string field without guessing.
type bigIntJSON struct {
	Type  string `json:"__type__"`
	Value string `json:"value"`
}

// MarshalBigInt encodes a *big.Int using the tagged-object convention.
func MarshalBigInt(v *big.Int) ([]byte, error) {
	return json.Marshal(bigIntJSON{Type: "bigint", Value: v.String()})
}

// UnmarshalBigInt decodes a tagged-object big integer.
func UnmarshalBigInt(data []byte) (*big.Int, error) {
	var tagged bigIntJSON
	if err := json.Unmarshal(data, &tagged); err != nil {
		return nil, fmt.Errorf("cache: decode bigint: %w", err)
	}
	if tagged.Type != "bigint" {
		return nil, fmt.Errorf("cache: expected __type__ bigint, got %q", tagged.Type)
	}
	v, ok := new(big.Int).SetString(tagged.Value, 10)
	if !ok {
		return nil, fmt.Errorf("cache: invalid bigint value %q", tagged.Value)
	}
	return v, nil
}

// StaticCache is a read-through disk cache of arbitrary JSON-serialisable
// blobs, one file per chain, fronted by an LRU for hot reads.
type StaticCache struct {
	dir string
	hot *lru.Cache[string, []byte]
}

// New constructs a StaticCache rooted at dir (created if absent), with an
// LRU front of hotSize recently-read entries.
func New(dir string, hotSize int) (*StaticCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: mkdir %s: %w", dir, err)
	}
	if hotSize <= 0 {
		hotSize = 256
	}
	hot, err := lru.New[string, []byte](hotSize)
	if err != nil {
		return nil, fmt.Errorf("cache: new lru: %w", err)
	}
	return &StaticCache{dir: dir, hot: hot}, nil
}

func (c *StaticCache) pathFor(chainID uint64) string {
	return filepath.Join(c.dir, fmt.Sprintf("static-cache-%d.json", chainID))
}

// Load reads the cached blob for a chain, preferring the in-memory LRU.
func (c *StaticCache) Load(chainID uint64) ([]byte, bool) {
	key := fmt.Sprint(chainID)
	if v, ok := c.hot.Get(key); ok {
		return v, true
	}
	data, err := os.ReadFile(c.pathFor(chainID))
	if err != nil {
		return nil, false
	}
	c.hot.Add(key, data)
	return data, true
}

// Save writes data for a chain atomically: write to a temp file in the
// same directory, fsync, then rename over the target — a reader never
// observes a partially-written cache file.
func (c *StaticCache) Save(chainID uint64, data []byte) error {
	target := c.pathFor(chainID)
	tmp, err := os.CreateTemp(c.dir, fmt.Sprintf(".static-cache-%d-*.tmp", chainID))
	if err != nil {
		return fmt.Errorf("cache: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once the rename below succeeds

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("cache: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("cache: fsync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("cache: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return fmt.Errorf("cache: rename into place: %w", err)
	}
	c.hot.Add(fmt.Sprint(chainID), data)
	return nil
}
