// Package modgraph builds the shared module graph of a bundling pass and
// resolves which entry point owns each module.
//
// # Overview
//
// A build starts from an ordered list of [Entry] definitions and a [Table] of
// already-compiled modules (asset kind, ordered imports, compiled content).
// [Build] walks every module reachable from the entry roots and records it
// exactly once. A module imported from several places becomes one [Module]
// with several [Issuer] edges rather than several copies.
//
// # Determinism
//
// Each module receives an Order, its position in discovery order, and its
// issuers are kept in first-recorded order. Later stages break ties with
// these, so they must be identical on every run. Entries are walked
// concurrently, but each walk only produces an ordered list of visits; a
// single serial merge in entry declaration order assigns Order and appends
// issuer edges. The observable graph is therefore the same as a sequential
// depth-first traversal no matter how the walks are scheduled.
//
// # Cycles
//
// Import cycles are allowed. A module is expanded at most once; reaching it
// again only records another issuer edge.
//
// # Issuer resolution
//
// [Resolver] answers "which entry pulled this module in?" by following the
// first-recorded issuer of each module upward until it reaches an edge that
// comes straight from an entry:
//
//	g, err := modgraph.Build(ctx, entries, table, modgraph.BuildOptions{})
//	if err != nil {
//	    return err
//	}
//	r := modgraph.NewResolver(g)
//	entry, ok := r.Resolve("src/components/button.scss")
//
// The first-recorded issuer of a module always has a smaller Order than the
// module itself, so the walk terminates. It is iterative, so deep graphs do
// not grow the goroutine stack.
package modgraph
