// api/routes/router.go
package routes

import (
	"context"
	"net/http"
	"time"

	"issuetrack/internal/activity"
	"issuetrack/internal/auth"
	"issuetrack/internal/issues"
	"issuetrack/internal/shared/config"
	"issuetrack/internal/shared/database"
	"issuetrack/internal/shared/token"
	"issuetrack/pkg/cache"
	"issuetrack/pkg/logger"

	_ "issuetrack/docs"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Router holds all route dependencies
type Router struct {
	config    *config.Config
	db        *database.DB
	tokens    *token.Codec
	publisher activity.Publisher
	cache     cache.Service
	logger    *logger.Logger
}

// NewRouter creates a new router instance. publisher may be nil.
func NewRouter(cfg *config.Config, db *database.DB, tokens *token.Codec, publisher activity.Publisher) *Router {
	r := &Router{
		config:    cfg,
		db:        db,
		tokens:    tokens,
		publisher: publisher,
		logger:    logger.GetDefault(),
	}
	if rdb := db.GetRedis(); rdb != nil {
		r.cache = cache.NewService(rdb)
	}
	return r
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	r.setupHealthRoutes(engine)

	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := engine.Group(r.config.GetAPIBasePath())
	{
		r.setupAuthRoutes(api)
		r.setupIssueRoutes(api)
	}
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   "issuetrack-backend",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "issuetrack-backend",
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})

	engine.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "operational",
			"api_version": r.config.APIVersion,
			"redis_cache": r.cacheReachable(c.Request.Context()),
			"timestamp":   time.Now(),
		})
	})
}

// cacheReachable reports whether the issue cache answers a ping right now.
func (r *Router) cacheReachable(ctx context.Context) bool {
	if r.cache == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	return r.cache.Ping(ctx) == nil
}

// setupAuthRoutes configures authentication and user admin routes
func (r *Router) setupAuthRoutes(rg *gin.RouterGroup) {
	authRepo := auth.NewRepository(r.db.GetPostgreSQL())
	authService := auth.NewService(authRepo, r.tokens, r.publisher, r.logger)
	authController := auth.NewController(authService)

	auth.NewRouter(authController, r.tokens).SetupRoutes(rg)
}

// setupIssueRoutes configures issue CRUD routes
func (r *Router) setupIssueRoutes(rg *gin.RouterGroup) {
	issueRepo := issues.NewRepository(r.db.GetPostgreSQL())
	issueService := issues.NewService(issueRepo, r.publisher, r.logger)

	// reads go through Redis when it is up
	if r.cache != nil {
		issueService.SetCacheService(r.cache)
	}

	issues.SetupIssueRoutes(rg, issues.NewController(issueService), r.tokens)
}
