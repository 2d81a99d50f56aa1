package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hotelsync/internal/httpapi"
	"hotelsync/internal/notify"
	"hotelsync/internal/pgstore"
	"hotelsync/internal/redislock"
	"hotelsync/internal/statussync"
	"hotelsync/pkg/config"
	"hotelsync/pkg/db"
	"hotelsync/pkg/logger"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []statussync.Option{statussync.WithLogger(log)}

	var store statussync.Store
	switch cfg.Store {
	case "memory":
		log.Warn("using in-memory store; data is lost on restart")
		store = statussync.NewMemStore()
	default:
		conn, err := db.Open(ctx, cfg)
		if err != nil {
			log.Error("db open", "err", err)
			os.Exit(1)
		}
		defer conn.Close()

		if cfg.MigrationsPath != "" {
			if err := db.Migrate(cfg); err != nil {
				log.Error("migrate", "err", err)
				os.Exit(1)
			}
		}
		store = pgstore.New(conn)
	}

	if cfg.Redis.Addr != "" {
		rdb, err := redislock.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Warn("redis unavailable; using in-process booking lock", "addr", cfg.Redis.Addr, "err", err)
		} else {
			defer func() { _ = rdb.Close() }()
			opts = append(opts, statussync.WithLocker(redislock.New(rdb, cfg.Redis.LockTTL, log)))
		}
	}

	if cfg.RabbitMQ.URL != "" {
		pub, err := notify.Dial(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			log.Warn("rabbitmq unavailable; status notifications disabled", "err", err)
		} else {
			defer func() { _ = pub.Close() }()
			opts = append(opts, statussync.WithNotifier(pub))
		}
	}

	engine := statussync.NewEngine(store, opts...)

	router := httpapi.NewRouter(httpapi.Dependencies{
		Cfg:    cfg,
		Engine: engine,
		Log:    log,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr, "store", cfg.Store)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http serve", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(shutdownCtx)
}
