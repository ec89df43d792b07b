package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/chunksplit/pkg/cache"
	"github.com/matzehuels/chunksplit/pkg/errors"
	"github.com/matzehuels/chunksplit/pkg/observability"
	"github.com/matzehuels/chunksplit/pkg/pipeline"
	"github.com/matzehuels/chunksplit/pkg/render/dot"
)

// Graph output formats.
const (
	formatDOT = "dot"
	formatSVG = "svg"
)

// graphOptions holds the flags of the graph command.
type graphOptions struct {
	format    string
	output    string
	clustered bool
	detailed  bool
	noCache   bool
}

// graphCommand creates the graph command.
func (c *CLI) graphCommand() *cobra.Command {
	var opts graphOptions

	cmd := &cobra.Command{
		Use:   "graph <config>",
		Short: "Draw the module graph with chunks as clusters",
		Long: `Graph builds the config and draws its module graph. Each chunk becomes a
cluster labelled with its output file. Style modules are highlighted and entry
roots drawn with a heavy border.

SVG output is rendered with Graphviz and cached.`,
		Example: `  chunksplit graph chunksplit.toml -f svg -o chunks.svg
  chunksplit graph chunksplit.toml | dot -Tpng > chunks.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runGraph(cmd.Context(), args[0], opts)
		},
	}

	cmd.ValidArgsFunction = completeConfigFile

	cmd.Flags().StringVarP(&opts.format, "format", "f", formatDOT, "output format: dot or svg")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().BoolVar(&opts.clustered, "clustered", true, "group modules by chunk")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show discovery order and issuer entry on nodes")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the render cache")

	return cmd
}

func (c *CLI) runGraph(ctx context.Context, path string, opts graphOptions) error {
	if opts.format != formatDOT && opts.format != formatSVG {
		return errors.New(errors.ErrCodeInvalidInput, "unknown format %q (want dot or svg)", opts.format)
	}

	cfg, err := c.loadConfig(path)
	if err != nil {
		return err
	}
	req, err := cfg.Request()
	if err != nil {
		return err
	}
	runner, err := c.newRunner(runnerOptions{noCache: opts.noCache})
	if err != nil {
		return err
	}
	defer runner.Close()

	data, cached, err := renderGraph(ctx, runner, req, opts)
	if err != nil {
		return err
	}

	if opts.output == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(opts.output, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", opts.output, err)
	}
	status := iconFresh
	if cached {
		status = iconCached
	}
	printSuccess("Rendered %s (%s)", opts.format, status)
	printFile(opts.output)
	return nil
}

// renderGraph produces DOT or SVG for req. SVG is looked up in, and stored
// to, the runner's cache under the request hash and render options.
func renderGraph(ctx context.Context, runner *pipeline.Runner, req pipeline.Request, opts graphOptions) ([]byte, bool, error) {
	var key string
	if opts.format == formatSVG {
		hash, err := req.Hash()
		if err != nil {
			return nil, false, err
		}
		key = runner.Keyer.RenderKey(hash, cache.RenderKeyOpts{
			Format:    opts.format,
			Clustered: opts.clustered,
			Detailed:  opts.detailed,
		})
		if data, hit, err := runner.Cache.Get(ctx, key); err == nil && hit {
			observability.Cache().OnCacheHit(ctx, "render")
			return data, true, nil
		}
		observability.Cache().OnCacheMiss(ctx, "render")
	}

	res, err := runner.Compile(ctx, req)
	if err != nil {
		return nil, false, describeBuildError(err)
	}
	src := dot.ToDOT(res.Graph, res.Chunks, dot.Options{Clustered: opts.clustered, Detailed: opts.detailed})
	if opts.format == formatDOT {
		return []byte(src), false, nil
	}

	svg, err := dot.RenderSVG(ctx, src)
	if err != nil {
		return nil, false, err
	}
	if err := runner.Cache.Set(ctx, key, svg, cache.TTLRender); err != nil {
		runner.Logger.Warn("cache write failed", "err", err)
	} else {
		observability.Cache().OnCacheSet(ctx, "render", len(svg))
	}
	return svg, false, nil
}
