// Command server runs the natural-language query resolver HTTP API.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	_ "github.com/mattn/go-sqlite3"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/DanielChung520/AI-Box-sub013/internal/api"
	"github.com/DanielChung520/AI-Box-sub013/internal/config"
	"github.com/DanielChung520/AI-Box-sub013/internal/dict"
	"github.com/DanielChung520/AI-Box-sub013/internal/events"
	"github.com/DanielChung520/AI-Box-sub013/internal/history"
	"github.com/DanielChung520/AI-Box-sub013/internal/resolver"
	"github.com/DanielChung520/AI-Box-sub013/internal/schema"
	"github.com/DanielChung520/AI-Box-sub013/internal/session"
	"github.com/DanielChung520/AI-Box-sub013/internal/sqlgen"
)

const (
	eventBufferLimit  = 256
	emitterIdleMaxAge = 30 * time.Minute
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	for _, warning := range cfg.Warnings {
		logger.Warn(warning)
	}

	registry, err := schema.Load(cfg.SchemasDir)
	if err != nil {
		return err
	}
	logger.Info("schema registry loaded", "systems", registry.SystemIDs())

	// Binding completeness is advisory at startup: a gap fails the
	// affected query later, not the whole server now.
	for _, id := range registry.SystemIDs() {
		gaps, err := registry.ValidateSystem(id, cfg.DefaultDialect)
		if err != nil {
			return err
		}
		for _, gap := range gaps {
			logger.Warn("binding gap", "system", id, "detail", gap.String())
		}
	}

	dictionary := dict.New()
	if cfg.DictPath != "" {
		dictionary = dict.Load(cfg.DictPath)
	}

	var sessionStore session.Store
	var memStore *session.MemoryStore
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer client.Close() //nolint:errcheck
		sessionStore = session.NewRedisStore(client, cfg.SessionTTL)
		logger.Info("session store: redis", "addr", cfg.RedisAddr)
	} else {
		memStore = session.NewMemoryStore(cfg.SessionTTL)
		sessionStore = memStore
		logger.Info("session store: in-memory")
	}
	sessions := session.NewManager(sessionStore, logger)

	writeDB, readDB, err := history.OpenSQLitePair(cfg.HistoryDBPath, 4)
	if err != nil {
		return err
	}
	defer writeDB.Close() //nolint:errcheck
	defer readDB.Close()  //nolint:errcheck
	if err := history.RunMigrations(writeDB); err != nil {
		return err
	}
	historyStore := history.NewStore(writeDB, readDB)

	duckDB, err := sql.Open("duckdb", cfg.DuckDBPath)
	if err != nil {
		return err
	}
	defer duckDB.Close() //nolint:errcheck

	provider, duck, err := buildAdapters(cfg, duckDB)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.HasS3Config() {
		if err := duck.ProbeS3(ctx); err != nil {
			logger.Warn("s3 probe failed", "error", err)
		}
	}

	emitter := events.NewEmitter(logger, eventBufferLimit)
	res := resolver.New(registry, dictionary, sessions, emitter, provider, logger,
		resolver.WithRecorder(historyStore))

	handler := api.NewHandler(res, registry, sessions, emitter, historyStore, logger)
	router := api.NewRouter(handler, api.RouterConfig{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitRPS:       cfg.RateLimitRPS,
		RateLimitBurst:     cfg.RateLimitBurst,
	})

	sweeper := cron.New()
	_, err = sweeper.AddFunc("@every 5m", func() {
		if memStore != nil {
			if n := memStore.Sweep(); n > 0 {
				logger.Debug("swept expired sessions", "count", n)
			}
		}
		if n := emitter.SweepIdle(emitterIdleMaxAge); n > 0 {
			logger.Debug("swept idle event tasks", "count", n)
		}
	})
	if err != nil {
		return err
	}
	sweeper.Start()
	defer sweeper.Stop()

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http api listening", "addr", cfg.ListenAddr, "tls", cfg.TLSCertFile != "")
		var serveErr error
		if cfg.TLSCertFile != "" {
			serveErr = server.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			serveErr = server.ListenAndServe()
		}
		if errors.Is(serveErr, http.ErrServerClosed) {
			return nil
		}
		return serveErr
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("shutting down")
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// buildAdapters creates one adapter per registered dialect. DuckDB gets the
// live connection; Oracle and MySQL run in SQL-emit mode until a connection
// is wired in, so resolve requests against them return the generated SQL
// with an execution error rather than failing generation.
func buildAdapters(cfg *config.Config, duckDB *sql.DB) (resolver.AdapterProvider, *sqlgen.DuckDBAdapter, error) {
	s3 := sqlgen.S3Config{}
	if cfg.HasS3Config() {
		s3 = sqlgen.S3Config{
			KeyID:    *cfg.S3KeyID,
			Secret:   *cfg.S3Secret,
			Endpoint: *cfg.S3Endpoint,
			Region:   *cfg.S3Region,
		}
		if cfg.S3Bucket != nil {
			s3.Bucket = *cfg.S3Bucket
		}
	}

	duck := sqlgen.NewDuckDBAdapter(sqlgen.Config{
		DB:           duckDB,
		S3:           s3,
		QueryTimeout: cfg.QueryTimeout,
	})

	factory := sqlgen.NewFactory()
	adapters := map[string]sqlgen.SQLAdapter{"duckdb": duck}
	for _, dialect := range []string{"oracle", "mysql"} {
		adapter, err := factory.Create(dialect, sqlgen.Config{QueryTimeout: cfg.QueryTimeout})
		if err != nil {
			return nil, nil, err
		}
		adapters[dialect] = adapter
	}

	provider := func(dialect string) (sqlgen.SQLAdapter, error) {
		if a, ok := adapters[strings.ToLower(dialect)]; ok {
			return a, nil
		}
		return factory.Create(dialect, sqlgen.Config{})
	}
	return provider, duck, nil
}
