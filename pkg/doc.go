// Package pkg provides the core libraries for chunksplit, the module-to-chunk
// classification engine of an asset bundler.
//
// # Overview
//
// Given entry points, a table of modules with their imports, and an ordered
// list of cache-group rules, chunksplit decides which output chunk every
// reachable module belongs to and names each chunk's file. The pkg directory
// is organized into:
//
//  1. Domain logic: [modgraph], [cachegroup], [chunk], [manifest]
//  2. Orchestration: [pipeline], [config]
//  3. Infrastructure: [cache], [store], [observability], [errors]
//  4. Outer surfaces: [server], [render/dot]
//
// # Architecture
//
// The data flow of one build:
//
//	config file (TOML / YAML / JSON)
//	         ↓
//	    [config] package (parse + validate → pipeline.Request)
//	         ↓
//	    [modgraph] package (parallel traversal from every entry, issuers)
//	         ↓
//	    [cachegroup] package (first matching rule per module)
//	         ↓
//	    [chunk] package (assemble chunks, fingerprint, name files)
//	         ↓
//	    [manifest] package (chunk name → members + file)
//
// # Quick Start
//
//	cfg, err := config.Load("chunksplit.toml")
//	if err != nil {
//	    return err
//	}
//	req, err := cfg.Request()
//	if err != nil {
//	    return err
//	}
//	res, err := pipeline.NewRunner(nil, nil, nil, nil).Execute(ctx, req)
//	if err != nil {
//	    return err
//	}
//	return manifest.WriteFile("chunk-manifest.json", res.Manifest)
//
// # Main Packages
//
// [modgraph] - The module graph. Entries are traversed in parallel and merged
// in declaration order, so issuer lists and discovery order do not depend on
// scheduling. The issuer resolver maps a module to the entry that owns it.
//
// [cachegroup] - Cache-group rules as data: path prefix, path pattern, asset
// kind, issuer entry, and all/any combinators. The first matching rule wins.
//
// [chunk] - Chunk assembly, the partition invariant check and the content
// fingerprint namer with its filename templates.
//
// [pipeline] - The Runner executes graph, classify, assemble and name stages
// with caching, build records and observability hooks.
//
// [cache] - File, Redis and null caches keyed by request hash.
//
// [store] - Build records in memory, on disk or in MongoDB.
//
// [server] - The HTTP API over the Runner.
//
// [render/dot] - Graphviz DOT and SVG output with one cluster per chunk.
package pkg
