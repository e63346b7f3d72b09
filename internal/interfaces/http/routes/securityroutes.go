package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/helpdeck/helpdeck/internal/interfaces/http/handlers"
	"github.com/helpdeck/helpdeck/internal/shared/validation"
)

type SecurityRouteConfig struct {
	HealthHandler   *handlers.HealthHandler
	SessionHandler  *handlers.SessionHandler
	AuditLogHandler *handlers.AuditLogHandler
}

func SetupSecurityRoutes(engine *gin.Engine, config *SecurityRouteConfig) {
	api := engine.Group("/api")
	{
		api.GET("/health", config.HealthHandler.Check)

		sessions := api.Group("/sessions")
		{
			sessions.GET("", config.SessionHandler.ListSessions)
			sessions.DELETE("", config.SessionHandler.RevokeAll)
			sessions.PATCH("/current", config.SessionHandler.UpdateCurrentSession)
			sessions.DELETE("/current", config.SessionHandler.Logout)
		}

		admin := api.Group("/admin")
		{
			admin.GET("/audit-logs", config.AuditLogHandler.Search)
		}
	}
}

// RegisterSchemas binds a validation schema to every body-carrying route.
// Kept next to the route declarations so the two lists stay in sync.
func RegisterSchemas(registry *validation.Registry) {
	registry.Register("PATCH", "/api/sessions/current", &validation.Schema{
		Name: "session metadata",
		Fields: map[string]validation.Field{
			"device_name": {Type: validation.TypeString, Rules: "max=100"},
			"theme":       {Type: validation.TypeString, Rules: "max=50"},
			"locale":      {Type: validation.TypeString, Rules: "max=20"},
		},
	})
}

// DeclaredBodyRoutes lists every route that accepts a JSON body. Startup
// fails if any of them lacks a registered schema.
func DeclaredBodyRoutes() []validation.DeclaredRoute {
	return []validation.DeclaredRoute{
		{Method: "PATCH", Path: "/api/sessions/current"},
	}
}
