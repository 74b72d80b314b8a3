package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nkiryanov/linesync/internal/broker/kafka"
	"github.com/nkiryanov/linesync/internal/cache/rediscache"
	"github.com/nkiryanov/linesync/internal/db"
	"github.com/nkiryanov/linesync/internal/handlers"
	"github.com/nkiryanov/linesync/internal/logger"
	"github.com/nkiryanov/linesync/internal/repository/postgres"
	"github.com/nkiryanov/linesync/internal/service/assembly"
	"github.com/nkiryanov/linesync/internal/service/segment"
	"github.com/nkiryanov/linesync/internal/service/syncprocessor"
)

type App struct {
	ListenAddr string
	Handler    http.Handler

	processor *syncprocessor.Processor
	logger    logger.Logger

	// Called in reverse order after server and processor stopped
	closers []func() error
}

func NewApp(ctx context.Context, c *Config) (_ *App, err error) {
	// Initialize logger
	l, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	app := &App{ListenAddr: c.ListenAddr, logger: l}
	defer func() {
		if err != nil {
			_ = app.close()
		}
	}()

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}
	app.closers = append(app.closers, func() error { pool.Close(); return nil })

	// Initialize repositories
	storage := postgres.NewStorage(pool)

	// Initialize services
	transport, err := assembly.NewHTTPTransport(c.SequencerAddr, l)
	if err != nil {
		return nil, fmt.Errorf("error while creating sequencer transport. Err: %w", err)
	}
	client := assembly.New(
		assembly.Config{UseTokenExpiry: true},
		transport,
		l.With("component", "assembly"),
		assembly.WithRefresh(assembly.ReauthenticateWithCredentials(c.SequencerUsername, c.SequencerPassword)),
	)
	builder := segment.NewBuilder(storage.Plan(), l)

	var opts []syncprocessor.Option
	if len(c.KafkaBrokers) > 0 {
		producer := kafka.NewProducer(c.KafkaBrokers)
		app.closers = append(app.closers, producer.Close)
		opts = append(opts, syncprocessor.WithPublisher(producer))
	}

	var cache *rediscache.RedisCache
	if c.RedisAddr != "" {
		cache = rediscache.New(c.RedisAddr)
		app.closers = append(app.closers, cache.Close)
		if err := cache.Ping(ctx); err != nil {
			return nil, fmt.Errorf("error while connecting to redis. Err: %w", err)
		}
		opts = append(opts, syncprocessor.WithCache(cache))
	}

	app.processor = syncprocessor.New(
		syncprocessor.Config{
			Line:     c.ProductionLine,
			Username: c.SequencerUsername,
			Password: c.SequencerPassword,
			Interval: c.SyncInterval,
			Topic:    c.KafkaTopic,
		},
		client,
		storage.Vehicle(),
		builder,
		storage.SyncRun(),
		l,
		opts...,
	)

	// Initialize handlers
	var snapshots interface {
		Get(ctx context.Context, key string) ([]byte, bool, error)
	}
	if cache != nil {
		snapshots = cache
	}

	app.Handler = handlers.NewRouter(
		handlers.NewSync(app.processor, storage.SyncRun(), l),
		handlers.NewOrder(client, snapshots, l),
		handlers.NewPlan(storage, builder, l),
		c.APIKey,
		l,
	)

	return app, nil
}

// Run starts http server and sync processor; both are stopped gracefully on context cancellation
func (a *App) Run(ctx context.Context) error {
	defer func() {
		if err := a.close(); err != nil {
			a.logger.Error("Failed to release resources", "error", err.Error())
		}
	}()

	httpServer := &http.Server{
		Addr:    a.ListenAddr,
		Handler: a.Handler,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	// First cycle runs right after start, next ones on processor interval
	processorStopped := a.processor.Process(srvCtx)
	a.processor.Trigger()

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); errors.Is(err, context.DeadlineExceeded) {
			a.logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		a.logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	a.logger.Info("Starting server", "address", a.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed
	<-processorStopped

	return err
}

func (a *App) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
