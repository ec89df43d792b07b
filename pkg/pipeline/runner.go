package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/chunksplit/pkg/cache"
	"github.com/matzehuels/chunksplit/pkg/cachegroup"
	"github.com/matzehuels/chunksplit/pkg/chunk"
	"github.com/matzehuels/chunksplit/pkg/errors"
	"github.com/matzehuels/chunksplit/pkg/manifest"
	"github.com/matzehuels/chunksplit/pkg/modgraph"
	"github.com/matzehuels/chunksplit/pkg/observability"
	"github.com/matzehuels/chunksplit/pkg/store"
)

// assemble is replaced in tests to exercise the partition check.
var assemble = chunk.Assemble

// Runner encapsulates build execution with caching and build records.
// Both CLI and API use it to avoid duplicating that logic.
//
// The Runner keeps no per-build state: every Execute works on its own graph,
// resolver and counters, so multiple goroutines can share one Runner.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Store  store.Store // optional
	Logger *log.Logger
}

// NewRunner creates a runner.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
// A nil store disables build records.
func NewRunner(c cache.Cache, keyer cache.Keyer, st store.Store, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Store:  st,
		Logger: logger,
	}
}

// Execute runs a build, serving the manifest from cache when an identical
// request was built before.
func (r *Runner) Execute(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	start := time.Now()
	id := store.NewID()
	logger := r.Logger.With("build", shortID(id))

	hash, err := req.Hash()
	if err != nil {
		return nil, err
	}
	key := r.Keyer.ManifestKey(hash)

	if !req.Refresh {
		if m, ok := r.cachedManifest(ctx, key); ok {
			res := &Result{BuildID: id, RequestHash: hash, Manifest: m, CacheHit: true}
			res.Stats.Chunks = len(m)
			res.Stats.Modules = m.ModuleCount()
			res.Stats.Total = time.Since(start)
			logger.Info("manifest from cache", "chunks", len(m))
			observability.Build().OnBuildComplete(ctx, id, len(m), res.Stats.Total, nil)
			r.record(ctx, logger, res)
			return res, nil
		}
	}

	res, err := r.compile(ctx, id, logger, req)
	if err != nil {
		observability.Build().OnBuildComplete(ctx, id, 0, time.Since(start), err)
		return nil, err
	}
	res.RequestHash = hash
	res.Stats.Total = time.Since(start)
	observability.Build().OnBuildComplete(ctx, id, res.Stats.Chunks, res.Stats.Total, nil)

	if data, err := manifest.Marshal(res.Manifest); err == nil {
		if err := r.Cache.Set(ctx, key, data, cache.TTLManifest); err != nil {
			logger.Warn("cache write failed", "err", err)
		} else {
			observability.Cache().OnCacheSet(ctx, "manifest", len(data))
		}
	}
	r.record(ctx, logger, res)

	logger.Info("build complete",
		"modules", res.Stats.Modules,
		"chunks", res.Stats.Chunks,
		"duration", res.Stats.Total)
	return res, nil
}

// Compile runs every stage without consulting the cache or recording the
// build. It always returns the intermediate products.
func (r *Runner) Compile(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	id := store.NewID()
	start := time.Now()
	res, err := r.compile(ctx, id, r.Logger.With("build", shortID(id)), req)
	if err != nil {
		return nil, err
	}
	res.Stats.Total = time.Since(start)
	return res, nil
}

func (r *Runner) compile(ctx context.Context, id string, logger *log.Logger, req Request) (*Result, error) {
	res := &Result{BuildID: id}

	// Configuration is checked before any traversal work.
	classifier, err := cachegroup.New(req.Rules)
	if err != nil {
		return nil, fmt.Errorf("rules: %w", err)
	}
	namer, err := chunk.NewNamer(chunk.NamerOptions{
		Filename:  req.Output.Filename,
		Algorithm: req.Output.Fingerprint,
	})
	if err != nil {
		return nil, fmt.Errorf("output: %w", err)
	}

	// Stage 1: module graph
	err = r.stage(ctx, id, StageGraph, &res.Stats.GraphTime, func() (int, error) {
		g, err := modgraph.Build(ctx, req.Entries, req.Modules, modgraph.BuildOptions{Workers: req.Workers})
		if err != nil {
			return 0, err
		}
		if err := checkReachable(g); err != nil {
			return 0, err
		}
		res.Graph = g
		res.Resolver = modgraph.NewResolver(g)
		return g.Len(), nil
	})
	if err != nil {
		return nil, err
	}
	res.Stats.Modules = res.Graph.Len()
	res.Stats.Edges = res.Graph.EdgeCount()
	logger.Info("built module graph",
		"entries", len(req.Entries),
		"modules", res.Stats.Modules,
		"edges", res.Stats.Edges,
		"duration", res.Stats.GraphTime)

	// Stage 2: classification
	err = r.stage(ctx, id, StageClassify, &res.Stats.ClassifyTime, func() (int, error) {
		as, err := classifier.Classify(ctx, res.Graph, res.Resolver, cachegroup.Options{Workers: req.Workers})
		if err != nil {
			return 0, err
		}
		res.Assignments = as
		res.Rules = classifier.Tally(as)
		return len(as), nil
	})
	if err != nil {
		return nil, err
	}
	for _, rule := range classifier.Rules() {
		logger.Debug("cache group", "rule", rule.Name, "priority", rule.Priority, "matches", res.Rules.Matches[rule.Name])
	}
	if len(res.Rules.Orphans) > 0 {
		logger.Warn("modules without issuer entry", "modules", res.Rules.Orphans)
	}

	// Stage 3: assembly
	err = r.stage(ctx, id, StageAssemble, &res.Stats.AssembleTime, func() (int, error) {
		cg, err := assemble(res.Graph, res.Assignments)
		if err != nil {
			return 0, err
		}
		if err := chunk.Verify(res.Graph, cg); err != nil {
			return 0, err
		}
		res.Chunks = cg
		return cg.Len(), nil
	})
	if err != nil {
		return nil, err
	}

	// Stage 4: naming
	err = r.stage(ctx, id, StageName, &res.Stats.NameTime, func() (int, error) {
		if err := namer.Name(res.Chunks, req.templates()); err != nil {
			return 0, err
		}
		return res.Chunks.Len(), nil
	})
	if err != nil {
		return nil, err
	}

	res.Manifest = manifest.FromGraph(res.Chunks)
	res.Stats.Chunks = res.Chunks.Len()
	logger.Debug("named chunks",
		"chunks", res.Stats.Chunks,
		"assemble", res.Stats.AssembleTime,
		"name", res.Stats.NameTime)
	return res, nil
}

// stage times fn, reports it to the build hooks and prefixes its error with
// the stage name.
func (r *Runner) stage(ctx context.Context, id, name string, elapsed *time.Duration, fn func() (int, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	observability.Build().OnStageStart(ctx, id, name)
	start := time.Now()
	n, err := fn()
	*elapsed = time.Since(start)
	observability.Build().OnStageComplete(ctx, id, name, n, *elapsed, err)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func (r *Runner) cachedManifest(ctx context.Context, key string) (manifest.Manifest, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Warn("cache read failed", "err", err)
		return nil, false
	}
	if !hit {
		observability.Cache().OnCacheMiss(ctx, "manifest")
		return nil, false
	}
	m, err := manifest.Read(bytes.NewReader(data))
	if err != nil {
		// A corrupt entry is recomputed and overwritten.
		observability.Cache().OnCacheMiss(ctx, "manifest")
		return nil, false
	}
	observability.Cache().OnCacheHit(ctx, "manifest")
	return m, true
}

func (r *Runner) record(ctx context.Context, logger *log.Logger, res *Result) {
	if r.Store == nil {
		return
	}
	rec := &store.Record{
		ID:          res.BuildID,
		CreatedAt:   time.Now().UTC(),
		RequestHash: res.RequestHash,
		Manifest:    res.Manifest,
		Stats: store.Stats{
			Modules:  res.Stats.Modules,
			Edges:    res.Stats.Edges,
			Chunks:   res.Stats.Chunks,
			CacheHit: res.CacheHit,
			Duration: res.Stats.Total,
		},
	}
	if err := r.Store.Save(ctx, rec); err != nil {
		logger.Warn("build record not saved", "err", err)
	}
}

// Close releases resources held by the runner.
func (r *Runner) Close() error {
	var err error
	if r.Cache != nil {
		err = r.Cache.Close()
	}
	if r.Store != nil {
		if serr := r.Store.Close(); err == nil {
			err = serr
		}
	}
	return err
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// checkReachable rejects module tables with modules no entry reaches, since
// they would be missing from every chunk.
func checkReachable(g *modgraph.Graph) error {
	const shown = 5
	u := g.Unreachable()
	if len(u) == 0 {
		return nil
	}
	list := strings.Join(u[:min(len(u), shown)], ", ")
	if len(u) > shown {
		list += fmt.Sprintf(", and %d more", len(u)-shown)
	}
	return errors.New(errors.ErrCodeInvalidConfig, "%d %s not reachable from any entry: %s", len(u), plural(len(u), "module is", "modules are"), list)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
