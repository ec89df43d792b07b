package chunk

import (
	"github.com/matzehuels/chunksplit/pkg/cachegroup"
	"github.com/matzehuels/chunksplit/pkg/errors"
	"github.com/matzehuels/chunksplit/pkg/modgraph"
)

// Assemble materializes chunks from assignments, which are expected in module
// discovery order (as returned by the classifier).
//
// Re-assigning a module to the chunk it already belongs to is a no-op.
// Assigning it to a different chunk, leaving it without a target chunk, or
// omitting a graph module altogether returns an
// [errors.AssemblyInvariantViolation]. Chunks that end up empty are dropped.
func Assemble(g *modgraph.Graph, assignments []cachegroup.Assignment) (*Graph, error) {
	var all []*Chunk
	index := make(map[string]*Chunk)
	ensure := func(name string, origin Origin) *Chunk {
		if c, ok := index[name]; ok {
			return c
		}
		c := &Chunk{Name: name, Origin: origin}
		index[name] = c
		all = append(all, c)
		return c
	}

	for _, e := range g.Entries() {
		ensure(e.Name, OriginEntry)
	}

	owner := make(map[string]string, g.Len())
	for _, a := range assignments {
		m, ok := g.Module(a.Module)
		if !ok {
			return nil, errors.New(errors.ErrCodeInternal, "assignment for unknown module %q", a.Module)
		}
		if a.Chunk == "" {
			return nil, &errors.AssemblyInvariantViolation{Module: a.Module}
		}
		if prev, ok := owner[a.Module]; ok {
			if prev != a.Chunk {
				return nil, &errors.AssemblyInvariantViolation{Module: a.Module, First: prev, Second: a.Chunk}
			}
			continue
		}

		origin := OriginEntry
		if a.Matched() {
			origin = OriginCacheGroup
		}
		c := ensure(a.Chunk, origin)
		if a.Matched() && c.Rule == "" {
			c.Rule = a.Rule
		}
		c.Members = append(c.Members, m)
		owner[a.Module] = a.Chunk
	}

	for _, m := range g.Modules() {
		if _, ok := owner[m.ID]; !ok {
			return nil, &errors.AssemblyInvariantViolation{Module: m.ID}
		}
	}

	cg := &Graph{index: make(map[string]*Chunk, len(all)), owner: owner}
	for _, c := range all {
		if len(c.Members) == 0 {
			continue
		}
		cg.chunks = append(cg.chunks, c)
		cg.index[c.Name] = c
	}
	return cg, nil
}

// Verify checks that every module of g appears in exactly one chunk of cg.
func Verify(g *modgraph.Graph, cg *Graph) error {
	seen := make(map[string]string, g.Len())
	for _, c := range cg.chunks {
		for _, m := range c.Members {
			if prev, ok := seen[m.ID]; ok {
				return &errors.AssemblyInvariantViolation{Module: m.ID, First: prev, Second: c.Name}
			}
			seen[m.ID] = c.Name
		}
	}
	for _, m := range g.Modules() {
		if _, ok := seen[m.ID]; !ok {
			return &errors.AssemblyInvariantViolation{Module: m.ID}
		}
	}
	if len(seen) != g.Len() {
		return errors.New(errors.ErrCodeInternal, "chunk graph holds %d modules, module graph %d", len(seen), g.Len())
	}
	return nil
}
