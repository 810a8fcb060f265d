package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/iliyamo/kinder-market/internal/config"
	"github.com/iliyamo/kinder-market/internal/database"
	"github.com/iliyamo/kinder-market/internal/handler"
	"github.com/iliyamo/kinder-market/internal/logging"
	"github.com/iliyamo/kinder-market/internal/mailer"
	"github.com/iliyamo/kinder-market/internal/queue"
	"github.com/iliyamo/kinder-market/internal/repository"
	"github.com/iliyamo/kinder-market/internal/router"
	"github.com/iliyamo/kinder-market/internal/service"
	"github.com/iliyamo/kinder-market/internal/storage"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("load .env: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.New(cfg.Log, cfg.Dev())
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(database.Options{
		User:         cfg.DB.User,
		Password:     cfg.DB.Pass,
		Host:         cfg.DB.Host,
		Port:         cfg.DB.Port,
		Name:         cfg.DB.Name,
		MaxOpenConns: cfg.DB.MaxOpenConns,
	})
	if err != nil {
		return err
	}
	defer db.Close()
	if cfg.DB.Migrate {
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
		logger.Info("schema migrated")
	}
	store := repository.NewStore(db)

	rdb, err := config.NewRedisClient(cfg.Redis)
	if err != nil {
		logger.Warn("redis unavailable, rate limiting and caching disabled", zap.Error(err))
		rdb = nil
	} else {
		defer rdb.Close()
	}

	images, err := storage.NewLocal(cfg.Media.Root, cfg.Media.MaxBytes)
	if err != nil {
		return err
	}
	opts := []service.Option{
		service.WithLogger(logger.Named("service")),
		service.WithNotifier(mailer.New(cfg.Mail, logger.Named("mailer"))),
		service.WithImageStore(images),
	}
	if cfg.RabbitURL != "" {
		pub := queue.NewPublisher(cfg.RabbitURL, logger.Named("events"))
		defer pub.Close()
		opts = append(opts, service.WithEvents(pub))
	} else {
		logger.Info("RABBITMQ_URL not set, lifecycle events disabled")
	}
	svc := service.New(store, opts...)

	sched := cron.New()
	if _, err := sched.AddFunc("@daily", func() {
		n, err := store.Tokens.PurgeExpired(context.Background(), time.Now().UTC())
		if err != nil {
			logger.Error("purge refresh tokens", zap.Error(err))
			return
		}
		logger.Info("purged refresh tokens", zap.Int64("rows", n))
	}); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogURI:      true,
		LogMethod:   true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
			}
			if v.Error != nil {
				logger.Warn("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			logger.Info("request", fields...)
			return nil
		},
	}))
	e.Use(echomw.BodyLimit("24M"))

	deps := router.Deps{Cfg: cfg, Redis: rdb, Log: logger.Named("http")}
	router.RegisterRoutes(e, db)
	router.ServeMedia(e, cfg.Media)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, store.Users, store.Organizations, store.Tokens, svc, deps.Log), deps)
	router.RegisterMarket(e, handler.NewMarketHandler(svc, store, deps.Log), deps)

	errc := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
