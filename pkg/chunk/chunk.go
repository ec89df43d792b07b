// Package chunk assembles classified modules into chunks and gives every
// chunk a deterministic, content-addressed output file name.
//
// [Assemble] turns the per-module assignments of the classifier into a
// [Graph] in which every module belongs to exactly one chunk. A [Namer] then
// fingerprints each chunk from its ordered members and renders the output
// file name template:
//
//	cg, err := chunk.Assemble(g, assignments)
//	if err != nil {
//	    return err // *errors.AssemblyInvariantViolation
//	}
//	n, _ := chunk.NewNamer(chunk.NamerOptions{})
//	if err := n.Name(cg, nil); err != nil {
//	    return err // *errors.NamingConflictError
//	}
package chunk

import "github.com/matzehuels/chunksplit/pkg/modgraph"

// Origin records why a chunk exists.
type Origin string

const (
	// OriginEntry chunks are named after an entry.
	OriginEntry Origin = "entry"
	// OriginCacheGroup chunks were created by a cache-group rule.
	OriginCacheGroup Origin = "cache-group"
)

// Chunk is a named group of modules emitted as one output file.
type Chunk struct {
	Name   string
	Origin Origin
	// Rule is the first cache-group rule that placed a module here, if any.
	Rule string
	// Members are kept in first-assignment order.
	Members []*modgraph.Module

	// Set by the Namer.
	Fingerprint string
	Filename    string
}

// MemberIDs returns the member module ids in order.
func (c *Chunk) MemberIDs() []string {
	out := make([]string, len(c.Members))
	for i, m := range c.Members {
		out[i] = m.ID
	}
	return out
}

// Ext returns "css" when every member is a style module, else "js".
func (c *Chunk) Ext() string {
	if len(c.Members) == 0 {
		return "js"
	}
	for _, m := range c.Members {
		if m.Kind != modgraph.KindStyle {
			return "js"
		}
	}
	return "css"
}

// Graph is the assembled set of non-empty chunks.
type Graph struct {
	chunks []*Chunk
	index  map[string]*Chunk
	owner  map[string]string
}

// Chunks returns the chunks in creation order: entry chunks in declaration
// order first, then cache-group chunks in first-assignment order.
func (g *Graph) Chunks() []*Chunk {
	return append([]*Chunk(nil), g.chunks...)
}

// Chunk returns the chunk with the given name.
func (g *Graph) Chunk(name string) (*Chunk, bool) {
	c, ok := g.index[name]
	return c, ok
}

// ChunkOf returns the name of the chunk holding module id.
func (g *Graph) ChunkOf(id string) (string, bool) {
	name, ok := g.owner[id]
	return name, ok
}

// Len returns the number of chunks.
func (g *Graph) Len() int { return len(g.chunks) }

// ModuleCount returns the number of assigned modules.
func (g *Graph) ModuleCount() int { return len(g.owner) }
