package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/chunksplit/pkg/errors"
	"github.com/matzehuels/chunksplit/pkg/manifest"
	"github.com/matzehuels/chunksplit/pkg/modgraph"
	"github.com/matzehuels/chunksplit/pkg/pipeline"
)

// defaultManifest is written next to the config when -o is not given.
const defaultManifest = "chunk-manifest.json"

// buildOptions holds the flags of the build command.
type buildOptions struct {
	output    string
	workers   int
	refresh   bool
	noCache   bool
	noHistory bool
	watch     bool
	debounce  time.Duration
	quiet     bool
}

// buildCommand creates the build command.
func (c *CLI) buildCommand() *cobra.Command {
	var opts buildOptions

	cmd := &cobra.Command{
		Use:   "build <config>",
		Short: "Split modules into chunks and write the manifest",
		Long: `Build reads a chunksplit config (TOML, YAML or JSON), walks the module graph
from every entry, assigns each module to a chunk and writes the manifest.

Identical configurations are served from the cache unless --refresh is set.
With --watch the config and every content_file it references are watched and
the manifest is rebuilt on change.`,
		Example: `  chunksplit build chunksplit.toml
  chunksplit build chunksplit.yaml -o dist/manifest.json
  chunksplit build chunksplit.toml -o - | jq keys
  chunksplit build chunksplit.toml --watch`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBuild(cmd.Context(), args[0], opts)
		},
	}

	cmd.ValidArgsFunction = completeConfigFile

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "manifest path, - for stdout (default: "+defaultManifest+" next to the config)")
	cmd.Flags().IntVarP(&opts.workers, "workers", "j", 0, fmt.Sprintf("parallel workers (default: %d)", modgraph.DefaultWorkers))
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "rebuild even if the manifest is cached")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the manifest cache")
	cmd.Flags().BoolVar(&opts.noHistory, "no-history", false, "do not record the build in the local history")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "rebuild when the config or content files change")
	cmd.Flags().DurationVar(&opts.debounce, "debounce", 200*time.Millisecond, "quiet period before a watch rebuild")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "omit the chunk table")

	return cmd
}

func (c *CLI) runBuild(ctx context.Context, path string, opts buildOptions) error {
	runner, err := c.newRunner(runnerOptions{noCache: opts.noCache, record: !opts.noHistory})
	if err != nil {
		return err
	}
	defer runner.Close()

	files, err := c.buildOnce(ctx, runner, path, opts)
	if !opts.watch {
		return err
	}
	if err != nil {
		printError("%s", err)
	}

	printInfo("Watching %d files for changes (ctrl+c to stop)", len(files))
	return watch(ctx, c.Logger, opts.debounce, files, func(ctx context.Context) []string {
		p := newProgress(c.Logger)
		next, err := c.buildOnce(ctx, runner, path, opts)
		if err != nil {
			printError("%s", err)
			return next
		}
		p.done("Rebuilt")
		return next
	})
}

// buildOnce runs one build and returns the files it depends on. The config
// path is always returned so a broken config is still watched.
func (c *CLI) buildOnce(ctx context.Context, runner *pipeline.Runner, path string, opts buildOptions) ([]string, error) {
	files := []string{path}

	cfg, err := c.loadConfig(path)
	if err != nil {
		return files, err
	}
	files = append(files, cfg.Files()...)

	req, err := cfg.Request()
	if err != nil {
		return files, err
	}
	req.Workers = opts.workers
	req.Refresh = opts.refresh

	var spinner *Spinner
	if !opts.quiet && opts.output != "-" {
		spinner = newSpinnerWithContext(ctx, "Splitting chunks...")
		spinner.Start()
	}
	res, err := runner.Execute(ctx, req)
	if spinner != nil {
		spinner.Stop()
	}
	if err != nil {
		return files, describeBuildError(err)
	}

	out := opts.output
	if out == "" {
		out = filepath.Join(cfg.BaseDir, defaultManifest)
	}
	if out == "-" {
		return files, manifest.Write(res.Manifest, os.Stdout)
	}
	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return files, fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := manifest.WriteFile(out, res.Manifest); err != nil {
		return files, err
	}

	printSuccess("Split %d modules into %d chunks", res.Stats.Modules, res.Stats.Chunks)
	printStats(res.Stats.Modules, res.Stats.Edges, res.CacheHit)
	if !opts.quiet {
		printManifestTable(res.Manifest)
	}
	printFile(out)
	if !opts.watch && !opts.quiet {
		printNextStep("Browse it", "chunksplit inspect "+out)
	}
	return files, nil
}

// describeBuildError adds a hint to fatal build errors.
func describeBuildError(err error) error {
	switch errors.GetCode(err) {
	case errors.ErrCodeUnresolvedModule:
		return fmt.Errorf("%w (add the missing module to the config or fix the import)", err)
	case errors.ErrCodeNamingConflict:
		return fmt.Errorf("%w (include {chunkName} or {fingerprint} in the filename template)", err)
	}
	return err
}
