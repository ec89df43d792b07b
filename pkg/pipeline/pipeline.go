// Package pipeline runs a complete build: module graph, classification,
// chunk assembly and output naming.
//
// The CLI and the API server both go through a [Runner], so caching, build
// records, logging and observability hooks behave the same everywhere.
//
// # Stages
//
//  1. graph: traverse entries over the module table ([modgraph.Build])
//  2. classify: assign modules to chunks ([cachegroup.Classifier.Classify])
//  3. assemble: materialize the chunk graph ([chunk.Assemble])
//  4. name: fingerprint chunks and render file names ([chunk.Namer.Name])
//
// A failure in any stage aborts the build; no partial manifest is returned.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, nil, logger)
//	res, err := runner.Execute(ctx, pipeline.Request{
//	    Entries: entries,
//	    Modules: table,
//	    Rules:   rules,
//	})
//	if err != nil {
//	    return err
//	}
//	manifest.WriteFile("manifest.json", res.Manifest)
package pipeline

import (
	"encoding/json"
	"time"

	"github.com/matzehuels/chunksplit/pkg/cache"
	"github.com/matzehuels/chunksplit/pkg/cachegroup"
	"github.com/matzehuels/chunksplit/pkg/chunk"
	"github.com/matzehuels/chunksplit/pkg/errors"
	"github.com/matzehuels/chunksplit/pkg/manifest"
	"github.com/matzehuels/chunksplit/pkg/modgraph"
)

// Stage names reported to logs and hooks.
const (
	StageGraph    = "graph"
	StageClassify = "classify"
	StageAssemble = "assemble"
	StageName     = "name"
)

// Output configures output naming.
type Output struct {
	// Filename is the default template; empty means chunk.DefaultFilename.
	Filename string `json:"filename,omitempty"`
	// Fingerprint selects the hash; empty means xxhash64.
	Fingerprint chunk.Algorithm `json:"fingerprint,omitempty"`
}

// Request is the input of one build.
type Request struct {
	Entries []modgraph.Entry  `json:"entries"`
	Modules modgraph.Table    `json:"modules"`
	Rules   []cachegroup.Rule `json:"cache_groups"`
	Output  Output            `json:"output"`

	// Workers bounds traversal and classification concurrency.
	// Zero means the package defaults.
	Workers int `json:"-"`
	// Refresh skips the manifest cache lookup.
	Refresh bool `json:"-"`
}

// Validate checks names and module ids. Structural problems such as
// unresolved imports are reported by the stages themselves.
func (r *Request) Validate() error {
	if len(r.Entries) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "at least one entry is required")
	}
	for _, e := range r.Entries {
		if err := errors.ValidateName("entry", e.Name); err != nil {
			return err
		}
	}
	for id, m := range r.Modules {
		if err := errors.ValidateModuleID(id); err != nil {
			return err
		}
		if !m.Kind.Valid() {
			return errors.New(errors.ErrCodeInvalidInput, "module %q has unknown kind %q", id, m.Kind)
		}
	}
	return nil
}

// Hash returns a SHA-256 over the canonical JSON form of the request.
// Runtime options (Workers, Refresh) do not contribute.
func (r *Request) Hash() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "encode request")
	}
	return cache.Hash(data), nil
}

// templates returns the per-rule filename overrides.
func (r *Request) templates() map[string]string {
	out := make(map[string]string)
	for _, rule := range r.Rules {
		if rule.Filename != "" {
			out[rule.Name] = rule.Filename
		}
	}
	return out
}

// Result contains the outputs of a build.
type Result struct {
	// BuildID identifies this run in logs and build records. It never
	// appears in the manifest.
	BuildID string
	// RequestHash is the cache identity of the request.
	RequestHash string
	Manifest    manifest.Manifest

	// The intermediate products are nil when the manifest came from cache.
	Graph       *modgraph.Graph
	Resolver    *modgraph.Resolver
	Assignments []cachegroup.Assignment
	Chunks      *chunk.Graph
	Rules       cachegroup.Stats

	Stats    Stats
	CacheHit bool
}

// Stats contains build timings and sizes.
type Stats struct {
	Modules      int
	Edges        int
	Chunks       int
	GraphTime    time.Duration
	ClassifyTime time.Duration
	AssembleTime time.Duration
	NameTime     time.Duration
	Total        time.Duration
}
