package chunk_test

import (
	"context"
	"fmt"

	"github.com/matzehuels/chunksplit/pkg/cachegroup"
	"github.com/matzehuels/chunksplit/pkg/chunk"
	"github.com/matzehuels/chunksplit/pkg/modgraph"
)

func ExampleAssemble() {
	entries := []modgraph.Entry{{Name: "app", Roots: []string{"index.js"}}}
	table := modgraph.Table{
		"index.js":                    {Kind: modgraph.KindScript, Imports: []string{"node_modules/react/index.js"}},
		"node_modules/react/index.js": {Kind: modgraph.KindScript},
	}
	g, _ := modgraph.Build(context.Background(), entries, table, modgraph.BuildOptions{})

	c, _ := cachegroup.New([]cachegroup.Rule{
		{Name: "vendor", Test: cachegroup.Predicate{Kind: cachegroup.PathPrefix, Value: "node_modules"}},
	})
	as, _ := c.Classify(context.Background(), g, modgraph.NewResolver(g), cachegroup.Options{})

	cg, _ := chunk.Assemble(g, as)
	n, _ := chunk.NewNamer(chunk.NamerOptions{Filename: "{chunkName}.{ext}"})
	_ = n.Name(cg, nil)
	for _, ch := range cg.Chunks() {
		fmt.Println(ch.Name, ch.Origin, ch.MemberIDs(), ch.Filename)
	}
	// Output:
	// app entry [index.js] app.js
	// vendor cache-group [node_modules/react/index.js] vendor.js
}
