// Package store keeps a record of every completed build.
//
// A [Record] holds the build id, the hash of the request that produced it,
// the manifest and a few stage statistics. Backends implement [Store]:
//   - [MemoryStore]: process-local, used by tests and the default server
//   - [FileStore]: one JSON file per build under the user config directory
//   - [MongoStore]: a MongoDB collection, for servers that share history
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/chunksplit/pkg/manifest"
)

// ErrNotFound is returned when no record has the requested id.
var ErrNotFound = errors.New("build not found")

// Record is a completed build.
type Record struct {
	ID          string            `json:"id" bson:"_id"`
	CreatedAt   time.Time         `json:"created_at" bson:"created_at"`
	RequestHash string            `json:"request_hash" bson:"request_hash"`
	Manifest    manifest.Manifest `json:"manifest" bson:"manifest"`
	Stats       Stats             `json:"stats" bson:"stats"`
}

// Stats summarises a build.
type Stats struct {
	Modules  int           `json:"modules" bson:"modules"`
	Edges    int           `json:"edges" bson:"edges"`
	Chunks   int           `json:"chunks" bson:"chunks"`
	CacheHit bool          `json:"cache_hit" bson:"cache_hit"`
	Duration time.Duration `json:"duration" bson:"duration"`
}

// Store persists build records.
type Store interface {
	// Save inserts or replaces a record.
	Save(ctx context.Context, r *Record) error

	// Get returns the record with the given id, or ErrNotFound.
	Get(ctx context.Context, id string) (*Record, error)

	// List returns up to limit records, newest first. A limit of zero or
	// less returns all records.
	List(ctx context.Context, limit int) ([]*Record, error)

	// Close releases backend resources.
	Close() error
}

// NewID returns a fresh build id.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id has the shape of a build id.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
