package modgraph

import (
	"fmt"

	"github.com/matzehuels/chunksplit/pkg/errors"
)

// Kind is the asset kind of a compiled module.
type Kind string

const (
	KindScript Kind = "script"
	KindStyle  Kind = "style"
)

// ParseKind converts a configuration string into a Kind.
// The empty string defaults to KindScript.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindScript, "":
		return KindScript, nil
	case KindStyle:
		return KindStyle, nil
	}
	return "", errors.New(errors.ErrCodeInvalidConfig, "unknown module kind %q (want script or style)", s)
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool { return k == KindScript || k == KindStyle }

// Entry is a named root of the module graph.
type Entry struct {
	Name  string   `json:"name" toml:"name" yaml:"name"`
	Roots []string `json:"roots" toml:"roots" yaml:"roots"`
}

// Issuer identifies what caused a module to be included: either an entry
// listing it as a root, or another module importing it. Exactly one of the
// two fields is set.
type Issuer struct {
	Entry  string `json:"entry,omitempty"`
	Module string `json:"module,omitempty"`
}

// IsEntry reports whether the issuer is an entry rather than a module.
func (i Issuer) IsEntry() bool { return i.Entry != "" }

func (i Issuer) String() string {
	if i.IsEntry() {
		return "entry:" + i.Entry
	}
	return i.Module
}

// TableEntry is one row of the externally produced module table.
type TableEntry struct {
	Kind    Kind
	Path    string // origin location; defaults to the module id
	Imports []string
	Content []byte
}

// Table maps module ids to their compiled description.
type Table map[string]TableEntry

// Module is a node of the module graph. Modules are immutable once the
// graph has been built.
type Module struct {
	ID      string
	Kind    Kind
	Path    string
	Content []byte
	Imports []string

	// Issuers holds incoming issuer edges in first-recorded order.
	Issuers []Issuer

	// Order is the module's 0-based position in discovery order.
	Order int
}

// EntryIssuer returns the first entry that lists the module as a root.
func (m *Module) EntryIssuer() (string, bool) {
	for _, is := range m.Issuers {
		if is.IsEntry() {
			return is.Entry, true
		}
	}
	return "", false
}

// FirstModuleIssuer returns the first-recorded importing module.
func (m *Module) FirstModuleIssuer() (string, bool) {
	for _, is := range m.Issuers {
		if !is.IsEntry() {
			return is.Module, true
		}
	}
	return "", false
}

func (m *Module) hasIssuer(is Issuer) bool {
	for _, existing := range m.Issuers {
		if existing == is {
			return true
		}
	}
	return false
}

// Graph is the shared module graph of one build. It is built once by
// [Build] and is read-only afterwards, so it is safe for concurrent reads.
type Graph struct {
	entries     []Entry
	entryIndex  map[string]int
	modules     map[string]*Module
	order       []*Module
	unreachable []string
}

func newGraph(entries []Entry) *Graph {
	g := &Graph{
		entries:    make([]Entry, len(entries)),
		entryIndex: make(map[string]int, len(entries)),
		modules:    make(map[string]*Module),
	}
	for i, e := range entries {
		g.entries[i] = Entry{Name: e.Name, Roots: append([]string(nil), e.Roots...)}
		g.entryIndex[e.Name] = i
	}
	return g
}

// insert records one visit. It is only ever called from the serial merge,
// which makes it the single owner of the discovery counter.
func (g *Graph) insert(is Issuer, id string, te TableEntry) error {
	if m, ok := g.modules[id]; ok {
		if !m.hasIssuer(is) {
			m.Issuers = append(m.Issuers, is)
		}
		return nil
	}
	if !te.Kind.Valid() {
		return errors.New(errors.ErrCodeInvalidConfig, "module %q has unknown kind %q", id, te.Kind)
	}
	path := te.Path
	if path == "" {
		path = id
	}
	m := &Module{
		ID:      id,
		Kind:    te.Kind,
		Path:    path,
		Content: te.Content,
		Imports: append([]string(nil), te.Imports...),
		Issuers: []Issuer{is},
		Order:   len(g.order),
	}
	g.modules[id] = m
	g.order = append(g.order, m)
	return nil
}

// Module returns the module with the given id.
func (g *Graph) Module(id string) (*Module, bool) {
	m, ok := g.modules[id]
	return m, ok
}

// Modules returns all modules in discovery order.
func (g *Graph) Modules() []*Module {
	return append([]*Module(nil), g.order...)
}

// Entries returns the entry definitions in declaration order.
func (g *Graph) Entries() []Entry {
	return append([]Entry(nil), g.entries...)
}

// Entry returns the entry with the given name.
func (g *Graph) Entry(name string) (Entry, bool) {
	i, ok := g.entryIndex[name]
	if !ok {
		return Entry{}, false
	}
	return g.entries[i], true
}

// Len returns the number of modules.
func (g *Graph) Len() int { return len(g.order) }

// EdgeCount returns the number of import edges between graph modules.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, m := range g.order {
		n += len(m.Imports)
	}
	return n
}

// Importers returns the ids of the modules importing id, in first-recorded order.
func (g *Graph) Importers(id string) []string {
	m, ok := g.modules[id]
	if !ok {
		return nil
	}
	var out []string
	for _, is := range m.Issuers {
		if !is.IsEntry() {
			out = append(out, is.Module)
		}
	}
	return out
}

// Unreachable returns the sorted ids of table modules that no entry reaches.
func (g *Graph) Unreachable() []string {
	return append([]string(nil), g.unreachable...)
}

func (g *Graph) String() string {
	return fmt.Sprintf("modgraph(%d entries, %d modules, %d edges)", len(g.entries), g.Len(), g.EdgeCount())
}
