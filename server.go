package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/refinehaus/clinic_backend/booking"
	"github.com/refinehaus/clinic_backend/config"
	"github.com/refinehaus/clinic_backend/middlewares"
	"github.com/refinehaus/clinic_backend/models"
	"github.com/refinehaus/clinic_backend/utils"
	"github.com/refinehaus/clinic_backend/workflow"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8080"

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

// readinessGate returns 503 for app endpoints until the database is connected.
// Redis is optional: sequences and idempotency degrade without it.
func readinessGate() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.URL.Path {
		case "/healthz", "/metrics":
			c.Next()
			return
		}
		if config.GetDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	}
}

func corsConfig() cors.Config {
	corsConfig := cors.DefaultConfig()
	// Production-safe CORS:
	// - In production, require explicit allowlist via CORS_ALLOWED_ORIGINS (comma-separated).
	// - In non-production, allow all (developer convenience).
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization", "Idempotency-Key", middlewares.CorrelationHeader)
	corsConfig.AddExposeHeaders("Content-Length", middlewares.CorrelationHeader)
	corsConfig.AllowCredentials = true
	return corsConfig
}

// newRouter wires every route. bookings is the booking service; tests pass a fake.
func newRouter(logger *logrus.Logger, bookings bookingCreator) *gin.Engine {
	r := gin.New()
	r.Use(middlewares.CorrelationMiddleware())
	r.Use(readinessGate())

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Use(cors.New(corsConfig()))

	// Optional rate limiting.
	// Env:
	// - RATE_LIMIT_ENABLED=true
	// - RATE_LIMIT_WINDOW_SECONDS=60
	// - RATE_LIMIT_MAX_REQUESTS=600
	if strings.EqualFold(strings.TrimSpace(os.Getenv("RATE_LIMIT_ENABLED")), "true") {
		limit := int64(600)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_MAX_REQUESTS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				limit = n
			}
		}
		windowSec := int64(60)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_WINDOW_SECONDS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				windowSec = n
			}
		}
		rateLimiter := middlewares.NewRateLimiter(config.GetRedisDB, limit, time.Duration(windowSec)*time.Second)
		r.Use(rateLimiter.RateLimitMiddleware)
	}

	r.Use(middlewares.AuthMiddleware())
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	r.POST("/booking", bookingHandler(logger, bookings))
	// Ops tooling (admin only): replay outbox messages that were marked DEAD/FAILED.
	ops := r.Group("/internal/ops", middlewares.RequireRole(utils.StaffRoleAdmin))
	ops.POST("/outbox/replay", outboxReplayHandler())
	ops.GET("/outbox/status", outboxStatusHandler())
	r.NoRoute(customNotFoundHandler)
	return r
}

// startup brings up process dependencies once the port is open. Tests replace the funcs.
type startup struct {
	logger        *logrus.Logger
	connectDB     func(ctx context.Context) error
	connectRedis  func(ctx context.Context) error
	migrate       func()
	runDispatcher func(ctx context.Context)
}

func defaultStartup(logger *logrus.Logger) startup {
	s := startup{
		logger:       logger,
		connectDB:    func(ctx context.Context) error { return config.ConnectDatabaseWithRetry(ctx, 0) },
		connectRedis: func(ctx context.Context) error { return config.ConnectRedisWithRetry(ctx, 0) },
	}
	// AutoMigrate can run DDL that blocks tables; run it as a separate job when SKIP_MIGRATIONS=true.
	if !config.SkipMigrations() {
		s.migrate = models.MigrateTable
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}
	if config.OutboxDispatcherEnabled() {
		s.runDispatcher = func(ctx context.Context) {
			workflow.NewOutboxDispatcher(config.GetDB(), logger).Run(ctx)
		}
	}
	return s
}

// run connects redis in the background and the database in the foreground. Migrations and the
// dispatcher wait only for the database. It returns when the database is ready or ctx ends.
func (s startup) run(ctx context.Context) error {
	if s.connectRedis != nil {
		go func() {
			if err := s.connectRedis(ctx); err != nil {
				s.logger.WithFields(logrus.Fields{"field": "redis"}).Warn("redis not connected: " + err.Error())
			}
		}()
	}
	if err := s.connectDB(ctx); err != nil {
		return err
	}
	if s.migrate != nil {
		s.migrate()
	}
	if s.runDispatcher != nil {
		go s.runDispatcher(ctx)
	}
	return nil
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()
	gin.SetMode(gin.ReleaseMode)

	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// The store resolves the shared connection per transaction, so routes can be built before it is up.
	service := booking.NewService(booking.NewGormStore(nil), logger)
	r := newRouter(logger, service)

	// Start listening immediately; app endpoints answer 503 until the DB is ready.
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	defer config.CloseDatabase()
	defer config.CloseRedis()
	defer config.ClosePubSub()

	// runCtx bounds the connect loops and the dispatcher.
	runCtx, cancelRun := context.WithCancel(sigCtx)
	defer cancelRun()
	if err := defaultStartup(logger).run(runCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "startup"}).Error("startup aborted: " + err.Error())
	} else {
		logger.WithFields(logrus.Fields{
			"info": "Connection Established",
		}).Info("listening on :", port)
		log.Println("Server started successfully")
	}

	// Block until shutdown or server error.
	select {
	case <-sigCtx.Done():
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Stop background workers first so they don't start new work while we're draining.
	cancelRun()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}
}

// customErrorLogger is a custom Gin middleware that logs only errors
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
