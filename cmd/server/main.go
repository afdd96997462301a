package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"icarus/internal/cache"
	"icarus/internal/config"
	"icarus/internal/db"
	"icarus/internal/entries"
	"icarus/internal/logging"
	"icarus/internal/server"
	"icarus/internal/services"
	"icarus/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("invalid configuration", zap.Error(err))
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		zap.NewExample().Fatal("failed to build logger", zap.Error(err))
	}
	defer logger.Sync()

	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal("invalid TIMEZONE", zap.String("timezone", cfg.Timezone), zap.Error(err))
	}

	conn, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to open db", zap.Error(err))
	}
	defer conn.Close()
	if err := db.RunMigrations(conn); err != nil {
		logger.Fatal("failed migrations", zap.Error(err))
	}

	enc, err := services.NewEncryptionService(cfg.EncryptionKey)
	if err != nil {
		logger.Fatal("invalid ENCRYPTION_KEY", zap.Error(err))
	}
	if enc == nil {
		logger.Info("meal names are stored unencrypted; set ENCRYPTION_KEY to enable")
	}
	st := store.New(conn, enc)

	var opts []entries.Option
	if cfg.Redis.Addr != "" {
		rdb, err := cache.New(context.Background(), cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Warn("redis unavailable; running without sum cache", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		} else {
			defer rdb.Close()
			ttl := time.Duration(cfg.Redis.TTLSeconds) * time.Second
			opts = append(opts, entries.WithCache(cache.NewSumCache(rdb, ttl)))
			logger.Info("sum cache enabled", zap.String("addr", cfg.Redis.Addr))
		}
	}
	svc := entries.NewService(st, loc, logger, opts...)

	handler := server.NewRouter(server.Deps{Config: cfg, Logger: logger, Store: st, Entries: svc})
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr), zap.String("timezone", loc.String()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutdown initiated")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	logger.Info("server stopped")
}
