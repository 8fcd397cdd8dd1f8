// Package cache stores fetched pages and weight snapshots in memory and on
// disk.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key namespaces
const (
	NamespacePage    = "page"
	NamespaceWeights = "weights"
)

// Key builds a versioned cache key for id within namespace
func Key(namespace, id string) string {
	hash := sha256.Sum256([]byte(id))
	return "datemine_v1_" + namespace + "_" + hex.EncodeToString(hash[:16])
}

// PageKey generates a cache key from a URL
func PageKey(url string) string {
	return Key(NamespacePage, url)
}

// GetJSON decodes a cached JSON value. A value that no longer decodes is
// treated as a miss.
func GetJSON[T any](c Cache, key string) (T, bool) {
	var v T
	data, ok := c.Get(key)
	if !ok {
		return v, false
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, false
	}
	return v, true
}

// SetJSON stores v as JSON
func SetJSON(c Cache, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Set(key, data, ttl)
}
