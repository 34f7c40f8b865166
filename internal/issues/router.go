package issues

import (
	"issuetrack/internal/shared/middleware"
	"issuetrack/internal/users"

	"github.com/gin-gonic/gin"
)

func SetupIssueRoutes(router *gin.RouterGroup, controller Controller, verifier middleware.Verifier) {
	issues := router.Group("/issues")
	issues.Use(middleware.RequireAuth(verifier)) // any authenticated role
	{
		issues.GET("", controller.ListIssues)   // GET /api/v1/issues?status=&priority=&role=
		issues.GET("/:id", controller.GetIssue) // GET /api/v1/issues/:id
		issues.POST("", controller.CreateIssue) // POST /api/v1/issues
	}

	// ownership is checked by the service on top of the role gate
	mutate := router.Group("/issues")
	mutate.Use(middleware.RequireAuth(verifier, users.RoleUser, users.RoleAdmin, users.RoleSuperAdmin))
	{
		mutate.PUT("/:id", controller.UpdateIssue)    // PUT /api/v1/issues/:id
		mutate.DELETE("/:id", controller.DeleteIssue) // DELETE /api/v1/issues/:id
	}
}
