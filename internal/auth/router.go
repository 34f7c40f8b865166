package auth

import (
	"issuetrack/internal/shared/middleware"
	"issuetrack/internal/users"

	"github.com/gin-gonic/gin"
)

// Router handles auth-related routes
type Router struct {
	controller *Controller
	verifier   middleware.Verifier
}

func NewRouter(controller *Controller, verifier middleware.Verifier) *Router {
	return &Router{
		controller: controller,
		verifier:   verifier,
	}
}

// SetupRoutes registers all auth routes
func (authRouter *Router) SetupRoutes(rg *gin.RouterGroup) {
	auth := rg.Group("/auth")
	{
		auth.POST("/register", authRouter.controller.Register)
		auth.POST("/login", authRouter.controller.Login)
		auth.POST("/refresh", authRouter.controller.RefreshToken)
		auth.POST("/logout", authRouter.controller.Logout)

		protected := auth.Group("")
		protected.Use(middleware.RequireAuth(authRouter.verifier))
		{
			protected.PUT("/change-password", authRouter.controller.ChangePassword)
			protected.GET("/me", authRouter.controller.GetMe)
		}
	}

	admin := rg.Group("/admin")
	admin.Use(middleware.RequireAuth(authRouter.verifier, users.RoleAdmin, users.RoleSuperAdmin))
	{
		admin.GET("/users", authRouter.controller.ListUsers)
	}
}
