package modgraph

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/chunksplit/pkg/errors"
)

func script(imports ...string) TableEntry {
	return TableEntry{Kind: KindScript, Imports: imports}
}

func style(imports ...string) TableEntry {
	return TableEntry{Kind: KindStyle, Imports: imports}
}

func ids(mods []*Module) []string {
	out := make([]string, len(mods))
	for i, m := range mods {
		out[i] = m.ID
	}
	return out
}

// sharedFixture is A -> [x, y], B -> [y, z], with x and y both importing w.
func sharedFixture() ([]Entry, Table) {
	entries := []Entry{
		{Name: "A", Roots: []string{"x", "y"}},
		{Name: "B", Roots: []string{"y", "z"}},
	}
	table := Table{
		"x": script("w"),
		"y": script("w"),
		"z": script(),
		"w": script(),
	}
	return entries, table
}

func TestBuildSharedModule(t *testing.T) {
	entries, table := sharedFixture()
	g, err := Build(context.Background(), entries, table, BuildOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if diff := cmp.Diff([]string{"x", "w", "y", "z"}, ids(g.Modules())); diff != "" {
		t.Errorf("discovery order mismatch (-want +got):\n%s", diff)
	}

	w, _ := g.Module("w")
	wantIssuers := []Issuer{{Module: "x"}, {Module: "y"}}
	if diff := cmp.Diff(wantIssuers, w.Issuers); diff != "" {
		t.Errorf("w issuers mismatch (-want +got):\n%s", diff)
	}

	y, _ := g.Module("y")
	wantIssuers = []Issuer{{Entry: "A"}, {Entry: "B"}}
	if diff := cmp.Diff(wantIssuers, y.Issuers); diff != "" {
		t.Errorf("y issuers mismatch (-want +got):\n%s", diff)
	}

	if g.Len() != 4 {
		t.Errorf("Len() = %d, want 4", g.Len())
	}
	if g.EdgeCount() != 2 {
		t.Errorf("EdgeCount() = %d, want 2", g.EdgeCount())
	}
	if diff := cmp.Diff([]string{"x", "y"}, g.Importers("w")); diff != "" {
		t.Errorf("Importers(w) mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildDeterministicAcrossWorkers(t *testing.T) {
	entries := make([]Entry, 0, 16)
	table := Table{"shared": script("leaf"), "leaf": script()}
	for i := range 16 {
		root := fmt.Sprintf("root%d", i)
		entries = append(entries, Entry{Name: fmt.Sprintf("e%d", i), Roots: []string{root}})
		table[root] = script("shared", fmt.Sprintf("own%d", i))
		table[fmt.Sprintf("own%d", i)] = script("leaf")
	}

	want, err := Build(context.Background(), entries, table, BuildOptions{Workers: 1})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	for run := range 20 {
		got, err := Build(context.Background(), entries, table, BuildOptions{Workers: 8})
		if err != nil {
			t.Fatalf("run %d: Build: %v", run, err)
		}
		if diff := cmp.Diff(ids(want.Modules()), ids(got.Modules())); diff != "" {
			t.Fatalf("run %d: order mismatch (-want +got):\n%s", run, diff)
		}
		for _, m := range want.Modules() {
			gm, _ := got.Module(m.ID)
			if diff := cmp.Diff(m.Issuers, gm.Issuers); diff != "" {
				t.Fatalf("run %d: %s issuers mismatch (-want +got):\n%s", run, m.ID, diff)
			}
		}
	}
}

func TestWalkVisitsEachImportOnce(t *testing.T) {
	_, shared := sharedFixture()
	tests := []struct {
		name  string
		entry Entry
		table Table
		want  []string
	}{
		{
			name:  "shared leaf",
			entry: Entry{Name: "A", Roots: []string{"x", "y"}},
			table: shared,
			want:  []string{"x", "w", "y", "w"},
		},
		{
			name:  "diamond with back edge",
			entry: Entry{Name: "main", Roots: []string{"a"}},
			table: Table{"a": script("b", "c"), "b": script("d"), "c": script("d"), "d": script("a")},
			want:  []string{"a", "b", "d", "a", "c", "d"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			visits, err := walk(context.Background(), tt.entry, tt.table)
			if err != nil {
				t.Fatalf("walk: %v", err)
			}
			got := make([]string, len(visits))
			for i, v := range visits {
				got[i] = v.id
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("visits mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuildCycle(t *testing.T) {
	entries := []Entry{{Name: "app", Roots: []string{"a"}}}
	table := Table{
		"a": script("b"),
		"b": script("c"),
		"c": script("a", "b"),
	}

	g, err := Build(context.Background(), entries, table, BuildOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if g.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", g.Len())
	}

	a, _ := g.Module("a")
	if diff := cmp.Diff([]Issuer{{Entry: "app"}, {Module: "c"}}, a.Issuers); diff != "" {
		t.Errorf("a issuers mismatch (-want +got):\n%s", diff)
	}
	b, _ := g.Module("b")
	if diff := cmp.Diff([]Issuer{{Module: "a"}, {Module: "c"}}, b.Issuers); diff != "" {
		t.Errorf("b issuers mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildUnresolved(t *testing.T) {
	tests := []struct {
		name    string
		entries []Entry
		table   Table
		want    errors.UnresolvedModuleError
	}{
		{
			name:    "missing import",
			entries: []Entry{{Name: "app", Roots: []string{"index"}}},
			table:   Table{"index": script("button.scss")},
			want:    errors.UnresolvedModuleError{Module: "index", Import: "button.scss"},
		},
		{
			name:    "missing root",
			entries: []Entry{{Name: "app", Roots: []string{"index"}}},
			table:   Table{},
			want:    errors.UnresolvedModuleError{Module: "app", Import: "index"},
		},
		{
			name: "first entry wins",
			entries: []Entry{
				{Name: "a", Roots: []string{"a1"}},
				{Name: "b", Roots: []string{"b1"}},
			},
			table: Table{"a1": script("gone-a"), "b1": script("gone-b")},
			want:  errors.UnresolvedModuleError{Module: "a1", Import: "gone-a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for range 10 {
				_, err := Build(context.Background(), tt.entries, tt.table, BuildOptions{})
				var got *errors.UnresolvedModuleError
				if !stderrors.As(err, &got) {
					t.Fatalf("Build error = %v, want UnresolvedModuleError", err)
				}
				if *got != tt.want {
					t.Fatalf("Build error = %+v, want %+v", *got, tt.want)
				}
			}
		})
	}
}

func TestBuildValidation(t *testing.T) {
	tests := []struct {
		name    string
		entries []Entry
		table   Table
	}{
		{"no entries", nil, Table{}},
		{"empty name", []Entry{{Roots: []string{"a"}}}, Table{"a": script()}},
		{"duplicate", []Entry{{Name: "e", Roots: []string{"a"}}, {Name: "e", Roots: []string{"a"}}}, Table{"a": script()}},
		{"no roots", []Entry{{Name: "e"}}, Table{}},
		{"bad kind", []Entry{{Name: "e", Roots: []string{"a"}}}, Table{"a": {Kind: "image"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(context.Background(), tt.entries, tt.table, BuildOptions{})
			if !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("Build error = %v, want %s", err, errors.ErrCodeInvalidConfig)
			}
		})
	}
}

func TestBuildUnreachableAndPath(t *testing.T) {
	entries := []Entry{{Name: "app", Roots: []string{"index"}}}
	table := Table{
		"index":  script(),
		"zeta":   script(),
		"alpha":  style(),
		"vendor": {Kind: KindScript, Path: "node_modules/lib/index.js"},
	}

	g, err := Build(context.Background(), entries, table, BuildOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if diff := cmp.Diff([]string{"alpha", "vendor", "zeta"}, g.Unreachable()); diff != "" {
		t.Errorf("Unreachable mismatch (-want +got):\n%s", diff)
	}
	m, _ := g.Module("index")
	if m.Path != "index" {
		t.Errorf("Path = %q, want default to id", m.Path)
	}
}

func TestBuildCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	entries, table := sharedFixture()
	if _, err := Build(ctx, entries, table, BuildOptions{}); !stderrors.Is(err, context.Canceled) {
		t.Errorf("Build error = %v, want context.Canceled", err)
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"script", KindScript, false},
		{"style", KindStyle, false},
		{"", KindScript, false},
		{"css", "", true},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseKind(%q) = %q, %v; want %q, wantErr %v", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}
