package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/BartekS5/moviesync/internal/checkpoint"
	"github.com/BartekS5/moviesync/internal/config"
	"github.com/BartekS5/moviesync/internal/etl"
	"github.com/BartekS5/moviesync/pkg/database"
	"github.com/BartekS5/moviesync/pkg/logger"
	"github.com/BartekS5/moviesync/pkg/metrics"
)

func setup(opts *Options) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return nil, err
	}
	if err := logger.InitLogger(cfg.LogFile, cfg.LogLevel); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runSync(ctx context.Context, opts *Options, once, dryRun bool) error {
	cfg, err := setup(opts)
	if err != nil {
		return err
	}
	defer logger.Close()

	// Unknown stream names fail before anything is connected.
	streams, err := etl.ResolveStreams(cfg.Streams)
	if err != nil {
		return err
	}
	dialect, err := database.DialectFor(cfg.SourceDriver)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sqlDB, err := database.ConnectSQL(ctx, cfg.SourceDriver, cfg.SourceDSN)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	store, err := checkpoint.Open(ctx, cfg.CheckpointBackend, cfg.CheckpointFile, sqlDB, dialect)
	if err != nil {
		return err
	}
	defer store.Close()

	var sink etl.Sink
	if dryRun {
		logger.Info("Dry run: documents are transformed but not written, checkpoints stay untouched.")
	} else {
		index, closeIndex, err := openIndex(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeIndex()

		sinkRetry := etl.DefaultSinkRetry()
		sinkRetry.MaxAttempts = cfg.SinkMaxAttempts
		sink = etl.NewSinkWriter(index, sinkRetry, cfg.SinkRateLimit)
	}

	pipeline := etl.NewPipeline(
		streams,
		etl.NewSQLExtractor(sqlDB, dialect, cfg.BatchSize),
		sink,
		store,
		cfg.PollInterval,
	)
	pipeline.DryRun = dryRun

	g, gctx := errgroup.WithContext(ctx)
	if cfg.MetricsAddr != "" {
		srv := metrics.NewServer(cfg.MetricsAddr)
		g.Go(func() error {
			logger.Infof("Serving metrics on %s", cfg.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if once {
		g.Go(func() error {
			defer stop()
			return pipeline.Sweep(gctx)
		})
	} else {
		g.Go(func() error {
			defer stop()
			return pipeline.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("moviesync stopped.")
	return nil
}

// openIndex connects the configured sink and returns a func releasing it.
func openIndex(ctx context.Context, cfg *config.Config) (etl.Index, func(), error) {
	switch cfg.Sink {
	case config.SinkMongo:
		client, err := database.ConnectMongo(ctx, cfg.MongoConnString)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Disconnect(disconnectCtx); err != nil {
				logger.Warnf("MongoDB disconnect: %v", err)
			}
		}
		return etl.NewMongoIndex(client, cfg.MongoDatabase), closeFn, nil
	default:
		client, err := database.ConnectElastic(ctx, cfg.ElasticURL)
		if err != nil {
			return nil, nil, err
		}
		return etl.NewElasticIndex(client), func() {}, nil
	}
}

func listCheckpoints(ctx context.Context, opts *Options, out io.Writer) error {
	cfg, err := setup(opts)
	if err != nil {
		return err
	}
	defer logger.Close()

	var sqlDB *sql.DB
	var dialect database.Dialect
	if cfg.CheckpointBackend == checkpoint.BackendSQL {
		if dialect, err = database.DialectFor(cfg.SourceDriver); err != nil {
			return err
		}
		if sqlDB, err = database.ConnectSQL(ctx, cfg.SourceDriver, cfg.SourceDSN); err != nil {
			return err
		}
		defer sqlDB.Close()
	}

	store, err := checkpoint.Open(ctx, cfg.CheckpointBackend, cfg.CheckpointFile, sqlDB, dialect)
	if err != nil {
		return err
	}
	defer store.Close()

	return printCheckpoints(ctx, store, cfg.Streams, out)
}

// printCheckpoints writes one line per configured stream, then any stored
// stream that is no longer configured.
func printCheckpoints(ctx context.Context, store checkpoint.Store, streams []string, out io.Writer) error {
	all, err := store.All(ctx)
	if err != nil {
		return err
	}

	seen := make(map[string]bool, len(streams))
	for _, name := range streams {
		seen[name] = true
		fmt.Fprintf(out, "%-10s %s\n", name, all[name].String())
	}
	for _, name := range etl.KnownStreams() {
		if w, ok := all[name]; ok && !seen[name] {
			fmt.Fprintf(out, "%-10s %s (not configured)\n", name, w.String())
		}
	}
	return nil
}
