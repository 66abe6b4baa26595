package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kopano7/Lejone-wings-cafe/internal/config"
	"github.com/kopano7/Lejone-wings-cafe/internal/events"
	"github.com/kopano7/Lejone-wings-cafe/internal/httpapi"
	"github.com/kopano7/Lejone-wings-cafe/internal/logger"
	"github.com/kopano7/Lejone-wings-cafe/internal/scheduler"
	"github.com/kopano7/Lejone-wings-cafe/internal/service"
	"github.com/kopano7/Lejone-wings-cafe/internal/store"
	"github.com/kopano7/Lejone-wings-cafe/internal/store/file"
	"github.com/kopano7/Lejone-wings-cafe/internal/store/memory"
	pgstore "github.com/kopano7/Lejone-wings-cafe/internal/store/postgres"
	redisstore "github.com/kopano7/Lejone-wings-cafe/internal/store/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.Must(logger.New(cfg.LogLevel))
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server failed", zap.Error(err))
	}
	log.Info("server stopped")
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	closers := make([]func() error, 0, 2)
	defer func() {
		for _, closeFn := range closers {
			if err := closeFn(); err != nil {
				log.Warn("close error", zap.Error(err))
			}
		}
	}()

	backend, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	closers = append(closers, backend.Close)
	if err := backend.Ensure(ctx, store.AllCollections...); err != nil {
		return fmt.Errorf("initialize collections: %w", err)
	}
	log.Info("repository ready", zap.String("driver", cfg.Driver()))

	publisher := events.Publisher(events.NoopPublisher{})
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		kafkaPublisher, err := events.NewKafkaPublisher(brokers, cfg.KafkaTopic, logger.Named(log, "events"))
		if err != nil {
			return err
		}
		publisher = kafkaPublisher
		closers = append(closers, kafkaPublisher.Close)
		log.Info("events: kafka", zap.Strings("brokers", brokers), zap.String("topic", cfg.KafkaTopic))
	} else {
		log.Info("events: noop")
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	svc := service.New(store.NewRepository(backend), publisher, loc, logger.Named(log, "svc"))
	api := httpapi.New(svc, httpapi.Options{
		AllowedOrigin:  cfg.AllowedOrigin,
		UploadsDir:     cfg.UploadsDir,
		MaxUploadBytes: cfg.MaxUploadBytes(),
	}, logger.Named(log, "http"))

	sched := scheduler.New(cfg.LowStockCron, svc, logger.Named(log, "scheduler"))
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("POS backend listening", zap.String("addr", cfg.Address()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown error", zap.Error(err))
	}
	return nil
}

// openBackend refuses to fall back to another medium when a configured
// database or redis is unreachable.
func openBackend(ctx context.Context, cfg config.Config) (store.Backend, error) {
	switch cfg.Driver() {
	case config.DriverMemory:
		return memory.New(), nil
	case config.DriverFile:
		return file.New(cfg.DataDir)
	case config.DriverPostgres:
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("postgres unavailable and DATABASE_URL is set: %w", err)
		}
		return pg, nil
	case config.DriverRedis:
		rs := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisKeyPrefix)
		if err := rs.Ping(ctx); err != nil {
			_ = rs.Close()
			return nil, fmt.Errorf("redis unavailable at %s: %w", cfg.RedisAddr, err)
		}
		return rs, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver())
	}
}
