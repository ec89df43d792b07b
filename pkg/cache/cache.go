// Package cache stores build outputs keyed by a hash of their inputs.
//
// The [Cache] interface has three implementations:
//   - [FileCache]: JSON entry files under a directory, used by the CLI
//   - [RedisCache]: a shared Redis instance, used by the API server
//   - [NullCache]: caching disabled
//
// Keys are produced by a [Keyer] so that callers never build key strings by
// hand. [ScopedKeyer] prefixes every key, isolating tenants that share one
// backend.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Cache is a byte-oriented key/value store with optional expiry.
type Cache interface {
	// Get returns the value for key. A miss is reported as hit == false with
	// a nil error.
	Get(ctx context.Context, key string) (data []byte, hit bool, err error)

	// Set stores data under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Keyer derives cache keys for build outputs.
type Keyer interface {
	// ManifestKey returns the key for the manifest of a build request.
	ManifestKey(requestHash string) string

	// RenderKey returns the key for a rendered graph of a build request.
	RenderKey(requestHash string, opts RenderKeyOpts) string
}

// RenderKeyOpts are the rendering options that affect the output bytes.
type RenderKeyOpts struct {
	Format    string `json:"format"`
	Clustered bool   `json:"clustered"`
	Detailed  bool   `json:"detailed"`
}

// Default expiry for cached values.
const (
	TTLManifest = 7 * 24 * time.Hour
	TTLRender   = 7 * 24 * time.Hour
)

// DefaultKeyer produces unprefixed keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns a DefaultKeyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// ManifestKey returns "manifest:<requestHash>".
func (DefaultKeyer) ManifestKey(requestHash string) string {
	return "manifest:" + requestHash
}

// RenderKey hashes the render options together with the request hash.
func (DefaultKeyer) RenderKey(requestHash string, opts RenderKeyOpts) string {
	return hashKey("render", requestHash, opts)
}

// Hash returns the hex SHA-256 of data. Request hashes and manifest keys are
// built from it.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// hashKey joins prefix with the hash of the JSON encoding of parts.
func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	return prefix + ":" + Hash(data)
}

// NullCache never stores anything; every Get is a miss.
type NullCache struct{}

// NewNullCache returns a NullCache.
func NewNullCache() *NullCache { return &NullCache{} }

func (*NullCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, nil
}

func (*NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (*NullCache) Delete(context.Context, string) error { return nil }

func (*NullCache) Close() error { return nil }

var _ Cache = (*NullCache)(nil)
