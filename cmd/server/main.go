package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/language-academy/internal/auth"
	"github.com/iliyamo/language-academy/internal/billing"
	"github.com/iliyamo/language-academy/internal/config"
	"github.com/iliyamo/language-academy/internal/database"
	"github.com/iliyamo/language-academy/internal/handler"
	"github.com/iliyamo/language-academy/internal/logger"
	"github.com/iliyamo/language-academy/internal/metrics"
	"github.com/iliyamo/language-academy/internal/middleware"
	"github.com/iliyamo/language-academy/internal/policy"
	"github.com/iliyamo/language-academy/internal/queue"
	"github.com/iliyamo/language-academy/internal/repository"
	"github.com/iliyamo/language-academy/internal/router"
	"github.com/iliyamo/language-academy/internal/service"
	"github.com/iliyamo/language-academy/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		charmlog.Fatal("config", "err", err)
	}
	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DB)
	if err != nil {
		log.Fatal("database", "err", err)
	}
	defer db.Close()

	// admin sessions live only in Redis, so it is required
	rdb, err := config.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("redis", "addr", cfg.Redis.Addr, "err", err)
	}
	defer rdb.Close()

	m := metrics.New(prometheus.DefaultRegisterer)
	hasher := utils.NewBcryptHasher(cfg.BcryptCost)

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	admins := repository.NewAdminRepo(db)
	courses := repository.NewCourseRepo(db)
	modules := repository.NewModuleRepo(db)
	lessons := repository.NewLessonRepo(db)
	content := repository.NewContentRepo(db)
	enrollments := repository.NewEnrollmentRepo(db)
	subscriptions := repository.NewSubscriptionRepo(db)
	payments := repository.NewPaymentRepo(db)
	progress := repository.NewProgressRepo(db)

	authz := policy.NewAuthorizer(enrollments, subscriptions, lessons, m, log)
	publisher := queue.NewPublisher(cfg.RabbitMQURL, log)
	enrollSvc := service.NewEnrollments(courses, users, enrollments, authz, publisher, m, log)
	checkout := service.NewCheckout(courses, billing.NewStripe(cfg.Stripe), payments, subscriptions, enrollSvc, m, log)
	adminSessions := auth.NewRedisAdminSessions(rdb, cfg.AdminSessionTTL)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = handler.ErrorHandler(log)
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(echomw.Recover())
	e.Use(echomw.BodyLimit("1M"))
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			log.Info("request",
				"id", v.RequestID,
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency)
			return nil
		},
	}))

	session := middleware.SessionPrincipal(auth.NewResolver(cfg.JWTSecret, cfg.SessionCookie))
	limit := middleware.RateLimit(cfg.RateLimit, rdb, log)
	cache := middleware.ResponseCache(cfg.Cache, rdb, log)
	guard := middleware.RequireAdminSession(adminSessions, admins, m, log)

	router.RegisterRoutes(e, db, promhttp.Handler())
	router.RegisterAuth(e, handler.NewAuthHandler(handler.AuthConfig{
		JWTSecret:      cfg.JWTSecret,
		AccessTTLMin:   cfg.AccessTTLMin,
		RefreshTTLDays: cfg.RefreshTTLDays,
		CookieName:     cfg.SessionCookie,
		SecureCookie:   cfg.Env == "prod",
	}, users, tokens, hasher, log), session, limit)
	router.RegisterCatalog(e,
		handler.NewCatalogHandler(courses, modules, lessons, authz),
		handler.NewLessonHandler(courses, content, progress, authz),
		handler.NewEnrollmentHandler(enrollSvc, checkout, enrollments),
		session, cache)
	router.RegisterAdmin(e,
		handler.NewAdminAuthHandler(admins, adminSessions, hasher, log),
		handler.NewAdminContentHandler(courses, modules, lessons, content, authz, log),
		handler.NewAdminUserHandler(users, tokens, payments, enrollSvc, hasher, authz, log),
		guard, limit)

	consumer := queue.NewConsumer(cfg.RabbitMQURL, cfg.EventLogDir, log)
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("enrollment consumer stopped", "err", err)
		}
	}()

	addr := ":" + cfg.Port
	go func() {
		log.Info("listening", "addr", addr, "env", cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "err", err)
	}
	<-consumerDone
	log.Info("server stopped")
}
