package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/chunksplit/pkg/errors"
	"github.com/matzehuels/chunksplit/pkg/modgraph"
	"github.com/matzehuels/chunksplit/pkg/pipeline"
)

// Explanation describes how one module ended up in its chunk.
type Explanation struct {
	Module  string           `json:"module"`
	Kind    modgraph.Kind    `json:"kind"`
	Path    string           `json:"path"`
	Issuers []modgraph.Issuer `json:"issuers"`
	// Chain lists the modules walked to reach the owning entry, starting
	// with the module itself.
	Chain []string `json:"chain"`
	Entry string   `json:"entry,omitempty"`
	Rule  string   `json:"rule,omitempty"`
	Chunk string   `json:"chunk"`
	File  string   `json:"file"`
}

// explainCommand creates the explain command.
func (c *CLI) explainCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "explain <config> <module>",
		Short: "Show why a module was placed in its chunk",
		Long: `Explain builds the config without the cache and traces one module through
the pipeline: its issuers, the issuer chain up to the owning entry, the first
cache group that matched and the resulting chunk and file.`,
		Example: `  chunksplit explain chunksplit.toml node_modules/bootstrap/dist/css/bootstrap.css`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig(args[0])
			if err != nil {
				return err
			}
			req, err := cfg.Request()
			if err != nil {
				return err
			}
			runner := pipeline.NewRunner(nil, nil, nil, c.Logger)
			res, err := runner.Compile(cmd.Context(), req)
			if err != nil {
				return describeBuildError(err)
			}
			ex, err := explain(res, args[1])
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(ex)
			}
			printExplanation(os.Stdout, ex)
			return nil
		},
	}

	cmd.ValidArgsFunction = completeConfigFile

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the explanation as JSON")
	return cmd
}

// explain extracts the trace of id from a compiled result.
func explain(res *pipeline.Result, id string) (*Explanation, error) {
	m, ok := res.Graph.Module(id)
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "module %q is not reachable from any entry", id)
	}
	chain, entry, _ := res.Resolver.Chain(id)
	ex := &Explanation{
		Module:  m.ID,
		Kind:    m.Kind,
		Path:    m.Path,
		Issuers: m.Issuers,
		Chain:   chain,
		Entry:   entry,
	}
	for _, a := range res.Assignments {
		if a.Module == id {
			ex.Rule = a.Rule
			break
		}
	}
	ex.Chunk, _ = res.Chunks.ChunkOf(id)
	if ch, ok := res.Chunks.Chunk(ex.Chunk); ok {
		ex.File = ch.Filename
	}
	return ex, nil
}

func printExplanation(w io.Writer, ex *Explanation) {
	fmt.Fprintln(w, StyleTitle.Render(ex.Module))
	fprintKeyValue(w, "kind", string(ex.Kind))
	if ex.Path != ex.Module {
		fprintKeyValue(w, "path", ex.Path)
	}
	issuers := make([]string, len(ex.Issuers))
	for i, is := range ex.Issuers {
		issuers[i] = is.String()
	}
	fprintKeyValue(w, "issuers", strings.Join(issuers, ", "))

	chain := strings.Join(ex.Chain, " "+iconArrow+" ")
	if ex.Entry != "" {
		chain += " " + iconArrow + " " + StyleHighlight.Render("entry "+ex.Entry)
	} else {
		chain += " " + StyleWarning.Render("(no issuer entry)")
	}
	fprintKeyValue(w, "chain", chain)

	rule := StyleDim.Render("none, stays with its entry")
	if ex.Rule != "" {
		rule = ex.Rule
	}
	fprintKeyValue(w, "cache group", rule)
	fprintKeyValue(w, "chunk", ex.Chunk)
	fprintKeyValue(w, "file", ex.File)
}
