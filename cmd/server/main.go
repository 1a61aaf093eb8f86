// Command server runs the counseling booking API.  "server migrate"
// applies pending database migrations and exits.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/counseling-booking/internal/config"
	"github.com/iliyamo/counseling-booking/internal/database"
	"github.com/iliyamo/counseling-booking/internal/handler"
	"github.com/iliyamo/counseling-booking/internal/logger"
	"github.com/iliyamo/counseling-booking/internal/middleware"
	"github.com/iliyamo/counseling-booking/internal/queue"
	"github.com/iliyamo/counseling-booking/internal/repository"
	"github.com/iliyamo/counseling-booking/internal/router"
	"github.com/iliyamo/counseling-booking/internal/service"
	"github.com/iliyamo/counseling-booking/internal/storage"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()

	zl, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		zl.Fatal("open database", zap.Error(err))
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := database.Migrate(ctx, db, cfg.MigrationsDir, zl); err != nil {
			zl.Fatal("migrate", zap.Error(err))
		}
		return
	}
	if cfg.MigrateOnStart {
		if err := database.Migrate(ctx, db, cfg.MigrationsDir, zl); err != nil {
			zl.Fatal("migrate on start", zap.Error(err))
		}
	}

	e := newServer(ctx, cfg, db, zl)

	if cfg.EventsEnabled && cfg.EventsConsumerEnabled {
		go func() {
			if err := queue.NewConsumer(cfg.RabbitURL, "", zl).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				zl.Error("booking consumer stopped", zap.Error(err))
			}
		}()
	}

	addr := ":" + cfg.Port
	go func() {
		zl.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(sctx); err != nil {
		zl.Error("shutdown", zap.Error(err))
	}
}

// newServer builds repositories, services and handlers and mounts them
// on a fresh echo instance.
func newServer(ctx context.Context, cfg config.Config, db *sql.DB, zl *zap.Logger) *echo.Echo {
	xdb := sqlx.NewDb(db, "mysql")

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	counselors := repository.NewCounselorRepo(xdb)
	schedules := repository.NewScheduleRepo(db)
	bookings := repository.NewBookingRepo(db)
	stats := repository.NewStatsRepo(xdb)

	rules := service.SlotRules{
		MinMinutes: cfg.SlotMinMinutes,
		MaxMinutes: cfg.SlotMaxMinutes,
		Location:   cfg.Timezone,
		Now:        time.Now,
	}

	var events service.EventPublisher = service.NopPublisher{}
	if cfg.EventsEnabled {
		events = queue.NewPublisher(cfg.RabbitURL)
	}

	var presigner service.AvatarPresigner
	fp, err := storage.NewFilePresigner(ctx, cfg.S3)
	switch {
	case err != nil:
		zl.Warn("avatar uploads disabled", zap.Error(err))
	case fp != nil:
		presigner = fp
	}

	authSvc := service.NewAuthService(users, tokens, cfg.JWTSecret, cfg.AccessTTLMin, cfg.RefreshTTLDays, cfg.BcryptCost, zl)
	userSvc := service.NewUserService(db, users, counselors, schedules, bookings, cfg.BcryptCost, zl)
	scheduleSvc := service.NewScheduleService(db, counselors, schedules, bookings, rules, zl)
	bookingSvc := service.NewBookingService(db, counselors, schedules, bookings, events, zl)
	counselorSvc := service.NewCounselorService(counselors, schedules, presigner, rules)
	dashboardSvc := service.NewDashboardService(counselors, stats, rules)

	rdb := config.NewRedisClient()
	if rdb == nil {
		zl.Warn("redis unavailable, rate limiting and caching disabled")
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger(zl))
	e.Use(middleware.Metrics())
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, zl))

	bookingHandler := handler.NewBookingHandler(bookingSvc, zl)
	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, handler.NewAuthHandler(authSvc, userSvc, cfg.CookieSecure, zl), cfg.JWTSecret,
		middleware.NewTokenBucket(config.LoadAuthRateLimitConfig(), rdb, zl))
	router.RegisterAdmin(e, handler.NewUserHandler(userSvc, zl), cfg.JWTSecret)
	router.RegisterCounselor(e, router.CounselorHandlers{
		Directory: handler.NewCounselorHandler(counselorSvc, zl),
		Schedules: handler.NewScheduleHandler(scheduleSvc, zl),
		Bookings:  bookingHandler,
		Dashboard: handler.NewDashboardHandler(dashboardSvc, zl),
	}, cfg.JWTSecret, middleware.NewRedisCache(config.LoadCacheConfig(), rdb, zl))
	router.RegisterStudent(e, bookingHandler, cfg.JWTSecret)
	return e
}
