package dot

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/matzehuels/chunksplit/pkg/cachegroup"
	"github.com/matzehuels/chunksplit/pkg/chunk"
	"github.com/matzehuels/chunksplit/pkg/modgraph"
)

func build(t *testing.T) (*modgraph.Graph, *chunk.Graph) {
	t.Helper()
	ctx := context.Background()
	entries := []modgraph.Entry{{Name: "app", Roots: []string{"index.js"}}}
	table := modgraph.Table{
		"index.js":                    {Kind: modgraph.KindScript, Imports: []string{"node_modules/react/index.js", "app.css"}},
		"node_modules/react/index.js": {Kind: modgraph.KindScript},
		"app.css":                     {Kind: modgraph.KindStyle},
	}
	g, err := modgraph.Build(ctx, entries, table, modgraph.BuildOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	c, _ := cachegroup.New([]cachegroup.Rule{{Name: "vendor", Test: cachegroup.Predicate{Kind: cachegroup.PathPrefix, Value: "node_modules"}}})
	as, _ := c.Classify(ctx, g, modgraph.NewResolver(g), cachegroup.Options{})
	cg, err := chunk.Assemble(g, as)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	n, _ := chunk.NewNamer(chunk.NamerOptions{Filename: "{chunkName}.{ext}"})
	if err := n.Name(cg, nil); err != nil {
		t.Fatalf("Name: %v", err)
	}
	return g, cg
}

func TestToDOT(t *testing.T) {
	g, cg := build(t)
	out := ToDOT(g, cg, Options{Clustered: true})

	for _, want := range []string{
		"digraph G {",
		`subgraph "cluster_0"`,
		`label="app\napp.js";`,
		`label="vendor\nvendor.js";`,
		`"index.js" -> "node_modules/react/index.js";`,
		`"index.js" -> "app.css";`,
		`fillcolor=lightyellow`,
		`penwidth=2`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("DOT missing %q:\n%s", want, out)
		}
	}
	if strings.Count(out, `"app.css" [`) != 1 {
		t.Errorf("app.css declared more than once:\n%s", out)
	}
	if out != ToDOT(g, cg, Options{Clustered: true}) {
		t.Error("ToDOT is not deterministic")
	}
}

func TestToDOTFlat(t *testing.T) {
	g, cg := build(t)
	out := ToDOT(g, cg, Options{Detailed: true})
	if strings.Contains(out, "subgraph") {
		t.Errorf("unclustered DOT has subgraphs:\n%s", out)
	}
	if !strings.Contains(out, `issuers: entry:app`) {
		t.Errorf("detailed label missing issuers:\n%s", out)
	}
	if ToDOT(g, nil, Options{Clustered: true}) == "" {
		t.Error("ToDOT with nil chunks returned nothing")
	}
}

func TestRenderSVG(t *testing.T) {
	g, cg := build(t)
	svg, err := RenderSVG(context.Background(), ToDOT(g, cg, Options{Clustered: true}))
	if err != nil {
		t.Fatalf("RenderSVG: %v", err)
	}
	if !bytes.Contains(svg, []byte(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 `)) {
		t.Errorf("unexpected SVG header: %.200s", svg)
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="10pt" viewBox="0.00 0.00 120.50 80.00"><g/></svg>`)
	got := string(normalizeViewBox(in))
	want := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 120.50 80.00" width="120" height="80"><g/></svg>`
	if got != want {
		t.Errorf("normalizeViewBox() = %s, want %s", got, want)
	}
	if string(normalizeViewBox([]byte("<svg>"))) != "<svg>" {
		t.Error("svg without viewBox changed")
	}
}
