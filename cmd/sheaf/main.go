package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	sheaf "github.com/ogersten/sheaf"
	"github.com/ogersten/sheaf/ingest"
	"github.com/ogersten/sheaf/internal/config"
	"github.com/ogersten/sheaf/observer"
	"github.com/ogersten/sheaf/provider/openaicompat"
	"github.com/ogersten/sheaf/store/postgres"
	"github.com/ogersten/sheaf/store/sqlite"
)

// Exit codes: 0 all documents created/replaced/skipped, 1 some documents
// failed, 2 the batch aborted before processing, 3 setup error.
const (
	exitOK         = 0
	exitPartial    = 1
	exitBatchFatal = 2
	exitSetup      = 3
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath = flag.String("config", os.Getenv("SHEAF_CONFIG"), "path to TOML config file")
		root       = flag.String("root", "", "root folder to ingest (overrides config)")
		force      = flag.Bool("force", false, "replace documents that already exist in the store")
		target     = flag.Int("target", 0, "target chunk size in characters (overrides config)")
		overlap    = flag.Int("overlap", -1, "chunk overlap in characters (default 15% of target)")
		verbose    = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	cfg := config.Load(*configPath)
	if *root != "" {
		cfg.Ingest.Root = *root
	}
	if *force {
		cfg.Ingest.ForceUpdate = true
	}
	if *target > 0 {
		cfg.Chunking.TargetSize = *target
	}
	if *overlap >= 0 {
		cfg.Chunking.Overlap = *overlap
	}
	if cfg.Ingest.Root == "" {
		fmt.Fprintln(os.Stderr, "sheaf: no root folder (use -root, SHEAF_ROOT, or the config file)")
		return exitSetup
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx := context.Background()

	var inst *observer.Instruments
	if cfg.Observer.Enabled {
		var shutdown func(context.Context) error
		var err error
		inst, shutdown, err = observer.Init(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "sheaf: observer init: %v\n", err)
			return exitSetup
		}
		defer shutdown(ctx) //nolint:errcheck
	}

	embedding := sheaf.EmbeddingProvider(openaicompat.NewProvider(
		cfg.Embedding.APIKey,
		cfg.Embedding.Model,
		cfg.Embedding.BaseURL,
		openaicompat.WithDimensions(cfg.Embedding.Dimensions),
	))
	if inst != nil {
		embedding = observer.WrapEmbedding(embedding, cfg.Embedding.Model, inst)
	}

	store, err := openStore(ctx, cfg, embedding, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sheaf: %v\n", err)
		return exitSetup
	}
	defer store.Close()

	if inst != nil {
		store = observer.WrapStore(store, cfg.Store.Backend, inst)
	}
	if err := store.Init(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "sheaf: store init: %v\n", err)
		return exitSetup
	}

	pipe := ingest.NewPipeline(store,
		ingest.WithTargetSize(cfg.Chunking.TargetSize),
		ingest.WithOverlap(cfg.Chunking.Overlap),
		ingest.WithForceUpdate(cfg.Ingest.ForceUpdate),
		ingest.WithSlowThreshold(time.Duration(cfg.Ingest.SlowThreshold)*time.Second),
		ingest.WithLogger(logger),
	)

	report, err := pipe.Run(ctx, cfg.Ingest.Root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sheaf: %v\n", err)
		return exitBatchFatal
	}
	if inst != nil {
		observer.RecordBatch(ctx, inst, report)
	}

	fmt.Println(report.Summary())

	if report.Failed() > 0 {
		return exitPartial
	}
	return exitOK
}

// openStore builds the configured store backend with the embedding provider
// attached.
func openStore(ctx context.Context, cfg config.Config, embedding sheaf.EmbeddingProvider, logger *slog.Logger) (sheaf.Store, error) {
	switch cfg.Store.Backend {
	case "sqlite", "":
		return sqlite.New(cfg.Store.SQLitePath,
			sqlite.WithEmbedding(embedding),
			sqlite.WithLogger(logger),
		), nil

	case "postgres":
		if cfg.Store.PostgresURL == "" {
			return nil, fmt.Errorf("postgres backend requires postgres_url (or SHEAF_POSTGRES_URL)")
		}
		pool, err := pgxpool.New(ctx, cfg.Store.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		return postgres.New(pool,
			postgres.WithEmbedding(embedding),
			postgres.WithEmbeddingDimension(cfg.Embedding.Dimensions),
		), nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
