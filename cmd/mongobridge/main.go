package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/mongobridge/internal/pipeline"
	"github.com/ajitpratap0/mongobridge/pkg/config"
	"github.com/ajitpratap0/mongobridge/pkg/errors"
	"github.com/ajitpratap0/mongobridge/pkg/logger"
	"github.com/ajitpratap0/mongobridge/pkg/mongodb"
	"github.com/ajitpratap0/mongobridge/pkg/observability"
	"github.com/ajitpratap0/mongobridge/pkg/sink"
)

var version = "0.1.0"

// app carries what every command needs once the configuration is resolved.
type app struct {
	v          *viper.Viper
	configFile string
	cfg        *config.Config
	log        *zap.Logger
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	a := &app{v: newViper()}
	root := &cobra.Command{
		Use:   "mongobridge",
		Short: "mongobridge - move MongoDB collections to and from tabular files",
		Long: `mongobridge infers a tabular schema from a MongoDB collection, extracts its
documents into CSV, JSON Lines or Parquet files, and loads tabular files back
into collections as nested documents.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&a.configFile, "config", "c", "", "Path to YAML configuration file")
	root.PersistentFlags().String("uri", "", "MongoDB connection string (overrides connection.uri)")
	root.PersistentFlags().String("database", "", "Database name (overrides connection.database)")
	root.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	annotate(root.PersistentFlags(), map[string]string{
		"uri":          "connection.uri",
		"database":     "connection.database",
		"log-level":    "logging.level",
		"metrics-addr": "observability.metrics_addr",
	})

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("mongobridge v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "formats",
		Short: "List output formats",
		Run: func(cmd *cobra.Command, args []string) {
			for _, f := range sink.Formats() {
				fmt.Println(f)
			}
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "collections",
		Short: "List the user collections of the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, (*config.Config).Validate, func(ctx context.Context, p *pipeline.Pipeline) error {
				names, err := p.Collections(ctx)
				if err != nil {
					return err
				}
				for _, n := range names {
					fmt.Println(n)
				}
				return nil
			})
		},
	})

	root.AddCommand(a.discoverCmd(), a.extractCmd(), a.loadCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (a *app) discoverCmd() *cobra.Command {
	var pin, asJSON bool
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Infer the tabular schema of a collection",
		Long: `Sample the source collection and print the inferred columns. With a schema
file configured, drift from the pinned schema is reported and --pin stores the
result as a new pinned version.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, validateDiscover, func(ctx context.Context, p *pipeline.Pipeline) error {
				res, err := p.Discover(ctx, pin)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(os.Stdout, res)
				}
				printDiscover(os.Stdout, res)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&pin, "pin", false, "Store the inferred schema in source.schema_file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	addSourceFlags(cmd)
	return cmd
}

func (a *app) extractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract a collection into a file",
		Example: `  mongobridge extract -c job.yaml
  mongobridge extract --collection orders --output out/orders.csv.gz --compression gzip \
    --field created_at --from -7 --to now`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, (*config.Config).ValidateExtract, func(ctx context.Context, p *pipeline.Pipeline) error {
				res, err := p.Extract(ctx)
				if res != nil {
					printExtract(os.Stdout, res)
				}
				return err
			})
		},
	}
	addSourceFlags(cmd)
	cmd.Flags().StringP("output", "o", "", "Output file (overrides output.path)")
	cmd.Flags().String("error-output", "", "File for redirected rows (overrides output.error_path)")
	cmd.Flags().String("format", "", "Output format (overrides output.format)")
	cmd.Flags().String("compression", "", "Output compression (overrides output.compression)")
	annotate(cmd.Flags(), map[string]string{
		"output":       "output.path",
		"error-output": "output.error_path",
		"format":       "output.format",
		"compression":  "output.compression",
	})
	return cmd
}

func (a *app) loadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load a CSV file into a collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, (*config.Config).ValidateLoad, func(ctx context.Context, p *pipeline.Pipeline) error {
				res, err := p.Load(ctx)
				if res != nil {
					fmt.Printf("inserted %d documents into %s\n", res.Inserted, res.Collection)
				}
				return err
			})
		},
	}
	cmd.Flags().String("collection", "", "Target collection (overrides destination.collection)")
	cmd.Flags().StringP("input", "i", "", "Input CSV file (overrides destination.input)")
	cmd.Flags().Int("batch-size", 0, "Documents per insert (overrides destination.batch_size)")
	annotate(cmd.Flags(), map[string]string{
		"collection": "destination.collection",
		"input":      "destination.input",
		"batch-size": "destination.batch_size",
	})
	return cmd
}

func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().String("collection", "", "Source collection (overrides source.collection)")
	cmd.Flags().String("query", "", "Raw filter document in extended JSON")
	cmd.Flags().String("field", "", "Condition field for the date range")
	cmd.Flags().String("from", "", "Lower bound: a date, now, today or -N days")
	cmd.Flags().String("to", "", "Upper bound: a date, now, today or -N days")
	cmd.Flags().Int("sample-size", 0, "Documents sampled for inference")
	cmd.Flags().String("schema-file", "", "Pinned schema registry file")
	annotate(cmd.Flags(), map[string]string{
		"collection":  "source.collection",
		"query":       "source.query",
		"field":       "source.condition_field",
		"from":        "source.condition_from",
		"to":          "source.condition_to",
		"sample-size": "source.sample_size",
		"schema-file": "source.schema_file",
	})
}

func validateDiscover(c *config.Config) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Source.Collection == "" {
		return errors.New(errors.ErrorTypeConfig, "source.collection is required")
	}
	return nil
}

// run resolves the configuration, sets up logging, tracing and metrics,
// connects, and hands a pipeline to job.
func (a *app) run(cmd *cobra.Command, validate func(*config.Config) error, job func(context.Context, *pipeline.Pipeline) error) error {
	ctx := cmd.Context()
	if err := bindCommand(a.v, cmd); err != nil {
		return err
	}
	if err := a.setup(); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	if err := validate(a.cfg); err != nil {
		return err
	}

	shutdown, err := observability.InitTracing(ctx, a.cfg.Observability.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			a.log.Warn("failed to flush traces", zap.Error(err))
		}
	}()

	if addr := a.cfg.Observability.MetricsAddr; addr != "" {
		srv := serveMetrics(addr, a.log)
		defer func() { _ = srv.Close() }()
	}

	client, err := mongodb.Connect(ctx, a.cfg.Connection, &a.cfg.Retry, a.log)
	if err != nil {
		return err
	}
	defer func() {
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Close(cctx); err != nil {
			a.log.Warn("failed to disconnect", zap.Error(err))
		}
	}()

	return job(ctx, pipeline.New(a.cfg, pipeline.FromClient(client), a.log.Named("pipeline")))
}

func (a *app) setup() error {
	cfg := config.Default()
	if a.configFile != "" {
		var err error
		if cfg, err = config.Load(a.configFile); err != nil {
			return err
		}
	}
	applyOverrides(a.v, cfg)
	if cfg.Observability.Tracing.ServiceVersion == "" {
		cfg.Observability.Tracing.ServiceVersion = version
	}

	if err := logger.Init(cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.cfg = cfg
	a.log = logger.Get().With(zap.String("component", "mongobridge-cli"))
	if a.configFile != "" {
		a.log.Debug("configuration loaded", zap.String("path", a.configFile))
	}
	return nil
}

func serveMetrics(addr string, l *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error("metrics server failed", zap.String("addr", addr), zap.Error(err))
		}
	}()
	l.Info("serving metrics", zap.String("addr", addr))
	return srv
}
