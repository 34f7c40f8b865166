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

	"issuetrack/api/routes"
	"issuetrack/internal/activity"
	"issuetrack/internal/shared/config"
	"issuetrack/internal/shared/database"
	"issuetrack/internal/shared/token"
	"issuetrack/pkg/logger"
	"issuetrack/pkg/ratelimit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if err := run(); err != nil {
		logger.GetDefault().Error("Server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	appLogger := logger.GetDefault()

	if err := godotenv.Load(); err != nil {
		if os.Getenv("GIN_MODE") == "release" || os.Getenv("DOCKER_CONTAINER") == "true" {
			appLogger.Info("Production environment: using container environment variables")
		} else {
			appLogger.Info("No .env file found, using system environment variables")
		}
	} else {
		appLogger.Info("Development environment: loaded .env file")
	}

	cfg := config.Load()

	// Set Gin mode before building the logger so the handler format follows it
	gin.SetMode(cfg.GinMode)
	appLogger = logger.NewWithWriter(os.Stdout, cfg.LogLevel)
	logger.SetDefault(appLogger)

	// Missing or shared signing secrets are fatal
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	tokens, err := token.NewCodec(cfg.JWT)
	if err != nil {
		return fmt.Errorf("failed to initialize token codec: %w", err)
	}

	db, err := database.InitDB(cfg)
	if db == nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	if err != nil {
		appLogger.Warn("Continuing without Redis: caching and rate limiting disabled", slog.Any("error", err))
	}
	defer db.Close()

	// Activity stream; requests only enqueue, a background goroutine talks to Kafka
	var publisher activity.Publisher = activity.NoopPublisher{}
	if cfg.Kafka.Enabled {
		kp, err := activity.NewKafkaPublisher(activity.DefaultProducerConfig(cfg.Kafka.Brokers, cfg.Kafka.ActivityTopic))
		if err != nil {
			appLogger.Error("Failed to initialize Kafka publisher", slog.Any("error", err))
			appLogger.Info("Continuing without activity stream")
		} else {
			publisher = activity.NewAsyncPublisher(kp, cfg.Kafka.PublishQueue, cfg.Kafka.PublishTimeout, appLogger)
			appLogger.Info("Kafka activity publisher initialized",
				slog.Any("brokers", cfg.Kafka.Brokers),
				slog.String("topic", cfg.Kafka.ActivityTopic),
				slog.Int("queue", cfg.Kafka.PublishQueue),
			)
		}
	}
	defer publisher.Close()

	consumerCtx, consumerCancel := context.WithCancel(context.Background())
	defer consumerCancel()

	if cfg.Kafka.Enabled && cfg.Kafka.ConsumerEnabled {
		consumer, err := activity.NewConsumer(&activity.ConsumerConfig{
			Brokers: cfg.Kafka.Brokers,
			GroupID: cfg.Kafka.ConsumerGroup,
			Topic:   cfg.Kafka.ActivityTopic,
		}, appLogger)
		if err != nil {
			appLogger.Error("Failed to initialize activity consumer", slog.Any("error", err))
		} else {
			go func() {
				if err := consumer.Run(consumerCtx); err != nil {
					appLogger.Error("Activity consumer stopped", slog.Any("error", err))
				}
			}()
			defer func() {
				appLogger.Info("Stopping activity consumer...")
				if err := consumer.Close(); err != nil {
					appLogger.Error("Error stopping activity consumer", slog.Any("error", err))
				}
			}()
		}
	}

	// Rate limiter
	var rateLimiter *ratelimit.RateLimiter
	if cfg.RateLimit.Enabled && db.GetRedis() != nil {
		rateLimiter = ratelimit.NewRateLimiter(db.GetRedis(), &ratelimit.Config{
			Enabled:         cfg.RateLimit.Enabled,
			WindowDuration:  cfg.RateLimit.WindowDuration,
			DefaultRequests: cfg.RateLimit.DefaultRequests,
			AuthRequests:    cfg.RateLimit.AuthRequests,
			IssueRequests:   cfg.RateLimit.IssueRequests,
			AdminRequests:   cfg.RateLimit.AdminRequests,
			HealthRequests:  cfg.RateLimit.HealthRequests,
			WhitelistedIPs:  cfg.RateLimit.WhitelistedIPs,
		})
		appLogger.Info("Rate limiter initialized",
			slog.Duration("window", cfg.RateLimit.WindowDuration),
			slog.Int("default_requests", cfg.RateLimit.DefaultRequests),
			slog.Int("auth_requests", cfg.RateLimit.AuthRequests),
			slog.Any("trusted_proxies", cfg.TrustedProxies),
		)
	} else {
		appLogger.Info("Rate limiting disabled")
	}

	router, err := setupRouter(cfg, db, tokens, publisher, rateLimiter)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        router,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}

	appLogger.Info("Server running",
		slog.String("address", cfg.GetServerAddress()),
		slog.String("health_check", fmt.Sprintf("http://localhost:%s/health", cfg.Port)),
		slog.String("swagger", fmt.Sprintf("http://localhost:%s/swagger/index.html", cfg.Port)),
		slog.String("version", Version),
		slog.String("commit", GitCommit),
		slog.String("build_time", BuildTime),
		slog.Bool("redis_cache", db.GetRedis() != nil),
		slog.Bool("rate_limiting", rateLimiter != nil),
		slog.Bool("activity_stream", cfg.Kafka.Enabled),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	return serve(srv, quit, appLogger)
}

// serve runs srv until a signal arrives on quit or the listener fails.
// A listener failure is returned; a signal triggers a graceful shutdown.
func serve(srv *http.Server, quit <-chan os.Signal, log *logger.Logger) error {
	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-quit:
		log.Info("Shutting down server...", slog.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}

	log.Info("Server exited gracefully")
	return nil
}

func setupRouter(cfg *config.Config, db *database.DB, tokens *token.Codec, publisher activity.Publisher, rateLimiter *ratelimit.RateLimiter) (*gin.Engine, error) {
	engine := gin.New()
	appLogger := logger.GetDefault()

	// forwarding headers are only honoured from these peers; none by default
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid TRUSTED_PROXIES: %w", err)
	}

	engine.Use(RequestLoggerMiddleware(appLogger), gin.Recovery())

	engine.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if rateLimiter != nil {
		engine.Use(ratelimit.Middleware(rateLimiter, appLogger))
	}

	routes.NewRouter(cfg, db, tokens, publisher).SetupRoutes(engine)

	return engine, nil
}

func RequestLoggerMiddleware(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		l.LogHTTPRequest(c, time.Since(start))
	}
}
