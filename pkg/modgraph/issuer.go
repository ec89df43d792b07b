package modgraph

import "sync"

// Resolver finds the entry that owns each module. Results are memoized for
// the lifetime of the resolver, which should match one build run. It is safe
// for concurrent use.
type Resolver struct {
	g *Graph

	mu   sync.Mutex
	memo map[string]resolution
}

type resolution struct {
	entry string
	ok    bool
}

// NewResolver creates a resolver over g.
func NewResolver(g *Graph) *Resolver {
	return &Resolver{g: g, memo: make(map[string]resolution)}
}

// Resolve returns the name of the entry that ultimately pulled module id into
// the graph. It reports false for unknown modules and for modules without
// any issuer chain reaching an entry.
func (r *Resolver) Resolve(id string) (string, bool) {
	r.mu.Lock()
	if res, ok := r.memo[id]; ok {
		r.mu.Unlock()
		return res.entry, res.ok
	}
	r.mu.Unlock()

	path, entry, ok := r.walk(id, true)

	// Every module on the walked path resolves to the same entry.
	r.mu.Lock()
	for _, p := range path {
		r.memo[p] = resolution{entry: entry, ok: ok}
	}
	r.mu.Unlock()
	return entry, ok
}

// Chain returns the full issuer path of id, starting with id itself and
// ending with the module that the owning entry imports, followed by the entry
// name. It always walks the graph, so earlier Resolve calls do not shorten it.
func (r *Resolver) Chain(id string) (modules []string, entry string, ok bool) {
	return r.walk(id, false)
}

// walk follows first-recorded issuers upward until an entry edge is found.
// With useMemo set it stops at the first module that is already resolved.
func (r *Resolver) walk(id string, useMemo bool) ([]string, string, bool) {
	var path []string
	seen := make(map[string]bool)
	for cur := id; ; {
		m, exists := r.g.modules[cur]
		if !exists || seen[cur] {
			return path, "", false
		}
		seen[cur] = true
		path = append(path, cur)

		if entry, ok := m.EntryIssuer(); ok {
			return path, entry, true
		}

		if useMemo {
			r.mu.Lock()
			res, cached := r.memo[cur]
			r.mu.Unlock()
			if cached {
				return path, res.entry, res.ok
			}
		}

		next, ok := m.FirstModuleIssuer()
		if !ok {
			return path, "", false
		}
		cur = next
	}
}
