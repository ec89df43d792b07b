// Package dot renders a chunked module graph as Graphviz DOT and SVG.
//
// Modules are drawn as nodes and imports as edges. With clustering enabled
// every chunk becomes a labelled cluster, which makes the effect of the
// cache-group rules visible at a glance:
//
//	src := dot.ToDOT(res.Graph, res.Chunks, dot.Options{Clustered: true})
//	svg, err := dot.RenderSVG(ctx, src)
package dot

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/chunksplit/pkg/chunk"
	"github.com/matzehuels/chunksplit/pkg/modgraph"
)

// Options configures DOT output.
type Options struct {
	// Clustered groups modules by chunk.
	Clustered bool
	// Detailed adds the discovery order and issuer entry to node labels.
	Detailed bool
}

// ToDOT converts a module graph and its chunks to DOT. cg may be nil, in
// which case no clusters are drawn. Output order follows chunk order and
// module discovery order, so equal inputs give equal text.
func ToDOT(g *modgraph.Graph, cg *chunk.Graph, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=12, margin=\"0.15,0.05\"];\n")
	buf.WriteString("  ranksep=0.6;\n")
	buf.WriteString("  nodesep=0.25;\n")
	buf.WriteString("\n")

	roots := make(map[string]bool)
	for _, e := range g.Entries() {
		for _, r := range e.Roots {
			roots[r] = true
		}
	}

	drawn := make(map[string]bool, g.Len())
	if opts.Clustered && cg != nil {
		for i, c := range cg.Chunks() {
			fmt.Fprintf(&buf, "  subgraph \"cluster_%d\" {\n", i)
			fmt.Fprintf(&buf, "    label=%q;\n", clusterLabel(c))
			buf.WriteString("    style=\"rounded,dashed\";\n")
			buf.WriteString("    color=grey40;\n")
			for _, m := range c.Members {
				fmt.Fprintf(&buf, "    %q [%s];\n", m.ID, strings.Join(fmtAttrs(m, roots[m.ID], opts.Detailed), ", "))
				drawn[m.ID] = true
			}
			buf.WriteString("  }\n")
		}
	}
	for _, m := range g.Modules() {
		if drawn[m.ID] {
			continue
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", m.ID, strings.Join(fmtAttrs(m, roots[m.ID], opts.Detailed), ", "))
	}

	buf.WriteString("\n")
	for _, m := range g.Modules() {
		for _, imp := range m.Imports {
			fmt.Fprintf(&buf, "  %q -> %q;\n", m.ID, imp)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func clusterLabel(c *chunk.Chunk) string {
	if c.Filename != "" {
		return c.Name + "\n" + c.Filename
	}
	return c.Name
}

func fmtLabel(m *modgraph.Module, detailed bool) string {
	if !detailed {
		return m.ID
	}
	issuers := make([]string, len(m.Issuers))
	for i, is := range m.Issuers {
		issuers[i] = is.String()
	}
	return fmt.Sprintf("%s\norder: %d\nissuers: %s", m.ID, m.Order, strings.Join(issuers, ", "))
}

func fmtAttrs(m *modgraph.Module, root, detailed bool) []string {
	attrs := []string{fmt.Sprintf("label=%q", fmtLabel(m, detailed))}
	if m.Kind == modgraph.KindStyle {
		attrs = append(attrs, "fillcolor=lightyellow")
	}
	if root {
		attrs = append(attrs, "penwidth=2")
	}
	return attrs
}

// RenderSVG renders DOT source to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the root element so the SVG scales from a
// zero-origin viewBox.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
