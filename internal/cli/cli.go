// Package cli implements the chunksplit command-line interface.
package cli

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/chunksplit/pkg/buildinfo"
	"github.com/matzehuels/chunksplit/pkg/cache"
	"github.com/matzehuels/chunksplit/pkg/config"
	"github.com/matzehuels/chunksplit/pkg/pipeline"
	"github.com/matzehuels/chunksplit/pkg/store"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "chunksplit"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Chunksplit assigns bundler modules to output chunks",
		Long: `Chunksplit walks the module graph of a set of entry points, classifies every
module against ordered cache-group rules and writes a manifest mapping each
chunk to its member modules and fingerprinted output file.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.buildCommand())
	root.AddCommand(c.explainCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.historyCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// runnerOptions selects the backends of a CLI runner.
type runnerOptions struct {
	noCache bool
	record  bool // keep build records in the local history
}

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(opts runnerOptions) (*pipeline.Runner, error) {
	cc, err := newCache(opts.noCache)
	if err != nil {
		return nil, err
	}
	var st store.Store
	if opts.record {
		st, err = newHistory()
		if err != nil {
			c.Logger.Warn("build history disabled", "err", err)
			st = nil
		}
	}
	return pipeline.NewRunner(cc, nil, st, c.Logger), nil
}

func newCache(noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

func newHistory() (*store.FileStore, error) {
	dir, err := store.DefaultDir()
	if err != nil {
		return nil, err
	}
	return store.NewFileStore(dir)
}

// loadConfig reads a configuration file and logs what it declares.
func (c *CLI) loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("loaded config",
		"path", path,
		"entries", len(cfg.Entries),
		"modules", len(cfg.Modules),
		"cache_groups", len(cfg.CacheGroups))
	return cfg, nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/chunksplit/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
