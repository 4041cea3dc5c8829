package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/uhyunpark/matchcore/params"
	"github.com/uhyunpark/matchcore/pkg/api"
	"github.com/uhyunpark/matchcore/pkg/app/exchange"
	"github.com/uhyunpark/matchcore/pkg/feed"
	"github.com/uhyunpark/matchcore/pkg/storage"
	"github.com/uhyunpark/matchcore/pkg/util"
)

func main() {
	// Load config from .env file and environment variables
	cfg := params.LoadFromEnv("")

	logger, err := util.NewLoggerWithFile(cfg.Logging.File, cfg.Logging.Verbose)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", cfg.Logging.File, "verbose", cfg.Logging.Verbose)

	if err := run(cfg, sugar); err != nil {
		sugar.Fatalw("matchd_failed", "err", err)
	}
}

func run(cfg params.Config, sugar *zap.SugaredLogger) error {
	// ---- Storage ----
	var journal storage.Journal
	if cfg.Storage.DataDir != "" {
		pj, err := storage.NewPebbleJournal(cfg.Storage.DataDir)
		if err != nil {
			return err
		}
		journal = pj
		sugar.Infow("journal_opened", "backend", "pebble", "dir", cfg.Storage.DataDir)
	} else {
		journal = storage.NewMemoryJournal()
		sugar.Warnw("journal_opened", "backend", "memory", "note", "state is lost on restart")
	}

	var wal storage.WAL = storage.NewNopWAL()
	if cfg.Storage.AuditLog != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.AuditLog), 0o755); err != nil {
			return err
		}
		fw, err := storage.NewFileWAL(cfg.Storage.AuditLog)
		if err != nil {
			return err
		}
		wal = fw
	}

	// ---- Trade feed ----
	var publishers []exchange.TradePublisher
	if len(cfg.Feed.KafkaBrokers) > 0 {
		publishers = append(publishers, feed.NewKafkaPublisher(cfg.Feed.KafkaBrokers, cfg.Feed.KafkaTopic))
		sugar.Infow("kafka_feed_enabled", "brokers", cfg.Feed.KafkaBrokers, "topic", cfg.Feed.KafkaTopic)
	}

	app := exchange.NewApp(exchange.Options{
		Journal:    journal,
		WAL:        wal,
		Publishers: publishers,
		Clock:      util.RealClock{},
		Logger:     sugar.Named("exchange"),
	})
	defer func() {
		if err := app.Close(); err != nil {
			sugar.Errorw("app_close_failed", "err", err)
		}
	}()

	start := time.Now()
	n, err := app.Replay()
	if err != nil {
		return err
	}
	sugar.Infow("book_restored", "commands", n, "took", time.Since(start))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- API Server ----
	apiServer := api.NewServer(app, api.Config{
		Addr:        cfg.API.Addr,
		CORSOrigins: cfg.API.CORSOrigins,
		MaxTrades:   cfg.TradeHistory,
	}, sugar.Named("api"))

	// Hook app to API server: stream trades and book changes
	app.OnTrade = apiServer.BroadcastTrades
	app.OnBookChange = apiServer.BroadcastOrderbook

	errCh := make(chan error, 1)
	go func() {
		errCh <- apiServer.Start(ctx)
	}()

	// ---- Load generator (optional) ----
	// Enable with: ENABLE_LOADGEN=true LOADGEN_MODE=default|high
	if cfg.LoadGen.Enabled {
		lg := exchange.DefaultLoadGenConfig()
		if cfg.LoadGen.Mode == "high" {
			lg = exchange.HighLoadConfig()
		}
		stopGen := exchange.StartLoadGen(ctx, app, lg)
		defer stopGen()
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	sugar.Infow("shutting_down", "timeout", cfg.API.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		sugar.Warnw("api_shutdown_failed", "err", err)
	}

	st := app.Status()
	sugar.Infow("matchd_stopped",
		"last_seq", st.LastSeq,
		"resting_orders", st.RestingOrders,
		"state_hash", st.StateHash.Hex())
	return nil
}
