package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"

	"slotwise/backend/internal/authorize"
	"slotwise/backend/internal/config"
	"slotwise/backend/internal/logging"
	"slotwise/backend/internal/notify"
	"slotwise/backend/internal/service/organization"
	"slotwise/backend/internal/service/scheduling"
	"slotwise/backend/internal/store"
	"slotwise/backend/internal/store/postgres"
	"slotwise/backend/internal/store/rediscache"
	grpcTransport "slotwise/backend/internal/transport/grpc"
	"slotwise/backend/internal/transport/httpapi"
)

const readinessInterval = 10 * time.Second

func main() {
	log := logging.Bootstrap()
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	log, logCloser := logging.New(logging.Options{
		Level:          cfg.LogLevel,
		Format:         cfg.LogFormat,
		FilePath:       cfg.LogFilePath,
		FileMaxSizeMB:  cfg.LogFileMaxSizeMB,
		FileMaxBackups: cfg.LogFileMaxBackups,
		FileMaxAgeDays: cfg.LogFileMaxAgeDays,
		FileCompress:   cfg.LogFileCompress,
	})
	defer func() { _ = logCloser.Close() }()
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped with error", slog.Any("err", err))
		_ = logCloser.Close()
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting",
		slog.String("http_addr", cfg.HTTPAddr),
		slog.String("grpc_addr", cfg.GRPCAddr),
		slog.String("log_level", cfg.LogLevel),
		slog.String("timezone", cfg.Timezone.String()),
	)

	log.Info("connecting to database", databaseLogArgs(cfg.DatabaseURL)...)
	openCtx, cancelOpen := context.WithTimeout(ctx, 30*time.Second)
	db, err := postgres.Open(openCtx, cfg.DatabaseURL, postgres.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
		SlowQuery:       cfg.DBSlowQuery,
	}, log)
	cancelOpen()
	if err != nil {
		args := append([]any{slog.Any("err", err)}, databaseLogArgs(cfg.DatabaseURL)...)
		log.Error("database connection failed", args...)
		return err
	}
	defer func() {
		if err := postgres.Close(db); err != nil {
			log.Warn("database close failed", slog.Any("err", err))
		}
	}()

	var settings store.SettingsStore = postgres.NewSettingsRepo(db)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer func() { _ = rdb.Close() }()
		if err := rdb.Ping(ctx).Err(); err != nil {
			// The cache falls through on errors, so an unreachable redis only costs latency.
			log.Warn("redis unreachable; settings reads go to the database", slog.Any("err", err), slog.String("redis_addr", cfg.RedisAddr))
		}
		settings = rediscache.NewSettingsCache(settings, rdb, cfg.RedisSettingsTTL, log)
		log.Info("settings cache enabled", slog.String("redis_addr", cfg.RedisAddr), slog.Duration("ttl", cfg.RedisSettingsTTL))
	}

	hub := notify.NewHub(log)
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go hub.Run(hubCtx)

	fanout := notify.NewFanout(log, 5*time.Second)
	fanout.Add("websocket", hub)
	if cfg.AMQPURL != "" {
		pub, err := notify.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			log.Error("rabbitmq connection failed", slog.Any("err", err))
			return err
		}
		defer func() { _ = pub.Close() }()
		fanout.Add("amqp", pub)
		log.Info("change events published to rabbitmq", slog.String("exchange", cfg.AMQPExchange))
	}

	policy, err := authorize.NewPolicy()
	if err != nil {
		return err
	}

	schedules := scheduling.NewService(postgres.NewScheduleRepo(db), settings,
		scheduling.WithNotifier(fanout),
		scheduling.WithLogger(log.With(slog.String("component", "scheduling"))),
		scheduling.WithMaxOccurrences(cfg.MaxOccurrences),
		scheduling.WithLocation(cfg.Timezone),
	)
	orgSvc := organization.NewService(settings, postgres.NewBreakRepo(db), postgres.NewDirectoryRepo(db), fanout, log)

	ready := func(ctx context.Context) error { return db.PingContext(ctx) }

	httpServer := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpapi.NewRouter(httpapi.Deps{
			Schedules:      schedules,
			Organization:   orgSvc,
			Access:         authorize.NewHeaderResolver(policy),
			Subscriber:     hub,
			Ready:          ready,
			Log:            log,
			RequestTimeout: cfg.HTTPRequestTimeout,
		}),
		ReadHeaderTimeout: cfg.HTTPReadHeaderTimeout,
		ErrorLog:          slog.NewLogLogger(log.Handler(), slog.LevelWarn),
	}

	grpcServer := grpcTransport.NewServer(log, cfg.GRPCRequestTimeout)
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Error("grpc listen failed", slog.Any("err", err), slog.String("grpc_addr", cfg.GRPCAddr))
		return err
	}

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	go grpcServer.WatchReadiness(watchCtx, readinessInterval, ready)

	errCh := make(chan error, 2)
	go func() {
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errCh <- err
		}
	}()
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	log.Info("servers started", slog.String("http_addr", cfg.HTTPAddr), slog.String("grpc_addr", cfg.GRPCAddr))

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case runErr = <-errCh:
		log.Error("server failed", slog.Any("err", runErr))
	}

	stopWatch()
	shutdown(log, httpServer, grpcServer, cfg.ShutdownTimeout)
	stopHub()
	return runErr
}

func shutdown(log *slog.Logger, httpServer *http.Server, grpcServer *grpcTransport.Server, timeout time.Duration) {
	// Health goes NOT_SERVING first so balancers drain before connections close.
	grpcServer.SetServing(false)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	log.Info("shutting down http server", slog.Duration("timeout", timeout))
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Warn("http graceful shutdown failed; closing", slog.Any("err", err))
		_ = httpServer.Close()
	}

	grpcServer.Shutdown(timeout)
}

func databaseLogArgs(databaseURL string) []any {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return []any{slog.String("db_url", "invalid")}
	}
	name := strings.TrimPrefix(u.Path, "/")
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "default"
	}
	if host == "" {
		host = "unknown"
	}
	if name == "" {
		name = "unknown"
	}
	return []any{
		slog.String("db_host", host),
		slog.String("db_port", port),
		slog.String("db_name", name),
	}
}
