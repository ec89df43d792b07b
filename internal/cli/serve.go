package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/chunksplit/pkg/cache"
	"github.com/matzehuels/chunksplit/pkg/pipeline"
	"github.com/matzehuels/chunksplit/pkg/server"
	"github.com/matzehuels/chunksplit/pkg/store"
)

// serveOptions holds the flags of the serve command.
type serveOptions struct {
	addr      string
	redis     cache.RedisConfig
	mongo     store.MongoConfig
	scope     string
	noCache   bool
	maxBody   int64
	dialLimit time.Duration
}

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the build API over HTTP",
		Long: `Serve exposes builds over HTTP:

  POST /v1/builds        build a JSON config (?refresh=true skips the cache)
  GET  /v1/builds        list recent builds
  GET  /v1/builds/{id}   fetch one build record
  GET  /healthz          liveness probe

Manifests are cached in Redis when --redis is set, otherwise in the local
cache directory. Build records go to MongoDB when --mongo is set, otherwise
they are kept in memory.`,
		Example: `  chunksplit serve --addr :8080
  chunksplit serve --redis localhost:6379 --mongo mongodb://localhost:27017`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&opts.redis.Addr, "redis", "", "Redis address for the manifest cache")
	cmd.Flags().StringVar(&opts.redis.Password, "redis-password", "", "Redis password")
	cmd.Flags().IntVar(&opts.redis.DB, "redis-db", 0, "Redis database number")
	cmd.Flags().StringVar(&opts.mongo.URI, "mongo", "", "MongoDB URI for build records")
	cmd.Flags().StringVar(&opts.mongo.Database, "mongo-db", "chunksplit", "MongoDB database")
	cmd.Flags().StringVar(&opts.scope, "scope", "", "namespace for cache keys shared with other deployments")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the manifest cache")
	cmd.Flags().Int64Var(&opts.maxBody, "max-body", server.DefaultMaxBody, "largest accepted request body in bytes")
	cmd.Flags().DurationVar(&opts.dialLimit, "connect-timeout", 30*time.Second, "time allowed to reach Redis and MongoDB")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts serveOptions) error {
	runner, err := c.serverRunner(ctx, opts)
	if err != nil {
		return err
	}
	defer runner.Close()

	srv := server.New(runner, c.Logger)
	srv.SetMaxBody(opts.maxBody)
	return srv.ListenAndServe(ctx, opts.addr)
}

// serverRunner wires the cache and store backends selected by opts.
func (c *CLI) serverRunner(ctx context.Context, opts serveOptions) (*pipeline.Runner, error) {
	dialCtx, cancel := context.WithTimeout(ctx, opts.dialLimit)
	defer cancel()

	var cc cache.Cache
	switch {
	case opts.noCache:
		cc = cache.NewNullCache()
	case opts.redis.Addr != "":
		opts.redis.Prefix = "chunksplit:"
		rc, err := cache.NewRedisCache(dialCtx, opts.redis)
		if err != nil {
			return nil, err
		}
		c.Logger.Info("manifest cache", "backend", "redis", "addr", opts.redis.Addr)
		cc = rc
	default:
		fc, err := newCache(false)
		if err != nil {
			return nil, err
		}
		cc = fc
	}

	var st store.Store
	if opts.mongo.URI != "" {
		ms, err := store.NewMongoStore(dialCtx, opts.mongo)
		if err != nil {
			cc.Close()
			return nil, err
		}
		c.Logger.Info("build records", "backend", "mongo", "database", opts.mongo.Database)
		st = ms
	}

	var keyer cache.Keyer
	if opts.scope != "" {
		keyer = cache.NewScopedKeyer(cache.NewDefaultKeyer(), opts.scope)
	}
	return pipeline.NewRunner(cc, keyer, st, c.Logger), nil
}
