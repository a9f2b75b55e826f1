// Command server runs the comment hub: the websocket subscription gateway,
// the comment mutation API and the asynchronous export pipeline behind a
// single HTTP listener.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/commenthub/internal/auth"
	"github.com/dmitrymomot/commenthub/internal/comment"
	"github.com/dmitrymomot/commenthub/internal/config"
	"github.com/dmitrymomot/commenthub/internal/database"
	"github.com/dmitrymomot/commenthub/internal/export"
	"github.com/dmitrymomot/commenthub/internal/filestore"
	"github.com/dmitrymomot/commenthub/internal/httpapi"
	"github.com/dmitrymomot/commenthub/internal/logger"
	"github.com/dmitrymomot/commenthub/internal/realtime"
)

type appConfig struct {
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"15s"`
	JWTSigningKey   string        `env:"JWT_SIGNING_KEY,required"`
	ExportDir       string        `env:"EXPORT_DIR" envDefault:"exports"`

	Log      logger.Config
	Postgres database.PostgresConfig
	Redis    database.RedisConfig
	S3       filestore.S3Config
}

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", logger.Error(err))
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return err
	}

	log := logger.New(cfg.Log)
	slog.SetDefault(log)

	pool, err := database.ConnectPostgres(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, cfg.Postgres.MigrationsPath); err != nil {
		return err
	}

	store, err := comment.NewPostgresStore(pool)
	if err != nil {
		return err
	}
	jobStorage, err := export.NewPostgresStorage(pool)
	if err != nil {
		return err
	}

	tokens, err := auth.NewTokenService([]byte(cfg.JWTSigningKey))
	if err != nil {
		return err
	}
	authn := auth.NewTokenAuthenticator(tokens)

	registry := realtime.NewRegistry()
	broadcaster, err := realtime.NewBroadcaster(registry,
		realtime.WithBroadcasterLogger(log))
	if err != nil {
		return err
	}

	handlerOpts := []httpapi.HandlerOption{
		httpapi.WithLogger(log),
		httpapi.WithHealthCheck("postgres", database.PostgresHealthcheck(pool)),
	}

	// The relay is optional: without Redis the broadcaster covers a single
	// instance, which is all local development needs.
	var publisher comment.Publisher = broadcaster
	var relay *realtime.RedisRelay
	if cfg.Redis.Enabled() {
		redisClient, err := database.ConnectRedis(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer redisClient.Close() //nolint:errcheck

		relay, err = realtime.NewRedisRelay(broadcaster, redisClient,
			realtime.WithRelayLogger(log))
		if err != nil {
			return err
		}
		publisher = relay
		handlerOpts = append(handlerOpts,
			httpapi.WithHealthCheck("redis", database.RedisHealthcheck(redisClient)))
	}

	gateway, err := realtime.NewGateway(registry, authn, store,
		realtime.WithGatewayLogger(log))
	if err != nil {
		return err
	}

	comments, err := comment.NewService(store, publisher,
		comment.WithServiceLogger(log))
	if err != nil {
		return err
	}

	files, err := newFileStore(ctx, cfg)
	if err != nil {
		return err
	}

	provider, err := comment.NewHistoryProvider(store)
	if err != nil {
		return err
	}
	worker, err := export.NewWorker(jobStorage, provider, files,
		export.WithWorkerLogger(log))
	if err != nil {
		return err
	}
	exports, err := export.NewService(jobStorage, store,
		export.WithServiceLogger(log))
	if err != nil {
		return err
	}
	handlerOpts = append(handlerOpts,
		httpapi.WithHealthCheck("worker", worker.Healthcheck))

	handler, err := httpapi.NewHandler(exports, comments, files, gateway, authn, handlerOpts...)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(worker.Run(gctx))
	if relay != nil {
		g.Go(relay.Run(gctx))
	}
	g.Go(func() error {
		log.InfoContext(gctx, "http server listening", logger.ID("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("server stopped")
	return nil
}

// newFileStore picks the export document backend: S3 when a bucket is
// configured, local disk otherwise.
func newFileStore(ctx context.Context, cfg appConfig) (filestore.FileStore, error) {
	if cfg.S3.Bucket != "" {
		return filestore.NewS3Store(ctx, cfg.S3)
	}
	return filestore.NewLocalStore(cfg.ExportDir)
}
