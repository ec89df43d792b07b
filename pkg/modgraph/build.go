package modgraph

import (
	"context"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/chunksplit/pkg/errors"
)

// DefaultWorkers bounds the number of entries walked concurrently.
const DefaultWorkers = 8

// BuildOptions configures graph construction.
type BuildOptions struct {
	// Workers is the maximum number of concurrent entry walks.
	// Zero means DefaultWorkers; 1 walks entries sequentially.
	Workers int
}

func (o BuildOptions) workers() int {
	if o.Workers <= 0 {
		return DefaultWorkers
	}
	return o.Workers
}

// visit is one step of an entry walk: id was reached through issuer.
type visit struct {
	issuer Issuer
	id     string
}

// Build resolves every module reachable from the entries' roots and returns
// the shared module graph.
//
// Build returns an [errors.UnresolvedModuleError] when a root or an import is
// missing from table. When several entries hit unresolved imports, the one
// reported is the first in entry declaration and traversal order, which is
// what a sequential traversal would report.
//
// Entries are walked independently, each over its whole reachable subgraph,
// so walking costs O(entries × reachable imports). Subtrees shared between
// entries are visited once per entry and deduplicated by the serial merge,
// which keeps the graph identical for every Workers value.
func Build(ctx context.Context, entries []Entry, table Table, opts BuildOptions) (*Graph, error) {
	if err := validateEntries(entries); err != nil {
		return nil, err
	}

	walks := make([][]visit, len(entries))
	errs := make([]error, len(entries))

	var eg errgroup.Group
	eg.SetLimit(opts.workers())
	for i, e := range entries {
		eg.Go(func() error {
			walks[i], errs[i] = walk(ctx, e, table)
			return nil
		})
	}
	_ = eg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	g := newGraph(entries)
	for _, w := range walks {
		for _, v := range w {
			if err := g.insert(v.issuer, v.id, table[v.id]); err != nil {
				return nil, err
			}
		}
	}

	for id := range table {
		if _, ok := g.modules[id]; !ok {
			g.unreachable = append(g.unreachable, id)
		}
	}
	slices.Sort(g.unreachable)

	return g, nil
}

// walk traverses one entry depth-first in pre-order with an explicit stack.
// It only reads table, so walks of different entries can run concurrently.
// Each module is expanded once per walk: the result holds one visit per root
// plus one per import edge of the reachable modules.
func walk(ctx context.Context, e Entry, table Table) ([]visit, error) {
	stack := make([]visit, 0, len(e.Roots))
	for i := len(e.Roots) - 1; i >= 0; i-- {
		stack = append(stack, visit{issuer: Issuer{Entry: e.Name}, id: e.Roots[i]})
	}

	seen := make(map[string]bool)
	var visits []visit
	for len(stack) > 0 {
		if len(visits)%1024 == 0 && ctx.Err() != nil {
			return nil, ctx.Err()
		}

		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		te, ok := table[v.id]
		if !ok {
			importer := v.issuer.Module
			if v.issuer.IsEntry() {
				importer = v.issuer.Entry
			}
			return nil, &errors.UnresolvedModuleError{Module: importer, Import: v.id}
		}

		visits = append(visits, v)
		if seen[v.id] {
			continue
		}
		seen[v.id] = true

		for i := len(te.Imports) - 1; i >= 0; i-- {
			stack = append(stack, visit{issuer: Issuer{Module: v.id}, id: te.Imports[i]})
		}
	}
	return visits, nil
}

func validateEntries(entries []Entry) error {
	if len(entries) == 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "at least one entry is required")
	}
	names := make(map[string]bool, len(entries))
	for _, e := range entries {
		if err := errors.ValidateName("entry", e.Name); err != nil {
			return err
		}
		if names[e.Name] {
			return errors.New(errors.ErrCodeInvalidConfig, "duplicate entry %q", e.Name)
		}
		names[e.Name] = true
		if len(e.Roots) == 0 {
			return errors.New(errors.ErrCodeInvalidConfig, "entry %q has no root modules", e.Name)
		}
	}
	return nil
}
