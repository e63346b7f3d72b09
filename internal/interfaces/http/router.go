package http

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/helpdeck/helpdeck/internal/application/security"
	"github.com/helpdeck/helpdeck/internal/domain/session"
	"github.com/helpdeck/helpdeck/internal/infrastructure/cache"
	"github.com/helpdeck/helpdeck/internal/infrastructure/config"
	"github.com/helpdeck/helpdeck/internal/infrastructure/repository"
	"github.com/helpdeck/helpdeck/internal/interfaces/http/handlers"
	"github.com/helpdeck/helpdeck/internal/interfaces/http/middleware"
	"github.com/helpdeck/helpdeck/internal/interfaces/http/routes"
	"github.com/helpdeck/helpdeck/internal/shared/logger"
	"github.com/helpdeck/helpdeck/internal/shared/validation"
)

// Router wires the request security pipeline and the HTTP surface behind it.
type Router struct {
	engine         *gin.Engine
	cfg            *config.Config
	logger         logger.Interface
	sessionManager *security.SessionManager
	auditLogger    *security.AuditLogger
	registry       *validation.Registry
	policy         *middleware.RoutePolicy

	healthHandler   *handlers.HealthHandler
	sessionHandler  *handlers.SessionHandler
	auditLogHandler *handlers.AuditLogHandler
}

// NewRouter creates a new HTTP router with all dependencies. It fails when a
// body-carrying route lacks a validation schema, so a misconfigured pipeline
// never starts serving.
func NewRouter(db *gorm.DB, redisClient *redis.Client, cfg *config.Config, log logger.Interface) (*Router, error) {
	engine := gin.New()

	var sessionRepo session.Repository = repository.NewSessionRepository(db)
	if cfg.Redis.Enabled && redisClient != nil {
		sessionRepo = cache.NewSessionCache(sessionRepo, redisClient)
	}
	auditRepo := repository.NewAuditLogRepository(db)

	sessionManager := security.NewSessionManager(sessionRepo, security.SessionManagerConfig{
		SessionDuration:  cfg.Security.SessionDuration(),
		RotationInterval: cfg.Security.TokenRotationInterval(),
		StoreTimeout:     cfg.Security.StoreTimeout(),
	}, log)
	auditLogger := security.NewAuditLogger(auditRepo, cfg.Security.StoreTimeout(), log)

	registry := validation.NewRegistry()
	routes.RegisterSchemas(registry)
	if err := registry.EnsureRegistered(routes.DeclaredBodyRoutes()); err != nil {
		return nil, err
	}

	policy := middleware.NewRoutePolicy(cfg.Security.PublicRoutes, cfg.Security.SensitiveRoutes)

	return &Router{
		engine:          engine,
		cfg:             cfg,
		logger:          log,
		sessionManager:  sessionManager,
		auditLogger:     auditLogger,
		registry:        registry,
		policy:          policy,
		healthHandler:   handlers.NewHealthHandler(),
		sessionHandler:  handlers.NewSessionHandler(sessionManager, log),
		auditLogHandler: handlers.NewAuditLogHandler(auditLogger, log),
	}, nil
}

// SetupRoutes configures the middleware chain and all HTTP routes. Order
// matters: recovery outermost, then logging, CORS, the response header
// policy, and the security gate in front of every handler.
func (r *Router) SetupRoutes() {
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.Logger(r.logger))
	r.engine.Use(middleware.CORS(r.cfg.Server.AllowedOrigins))
	r.engine.Use(middleware.SecurityHeaders(&r.cfg.Security))
	r.engine.Use(middleware.SecurityGate(r.sessionManager, r.auditLogger, r.registry, r.policy, r.logger))

	routes.SetupSecurityRoutes(r.engine, &routes.SecurityRouteConfig{
		HealthHandler:   r.healthHandler,
		SessionHandler:  r.sessionHandler,
		AuditLogHandler: r.auditLogHandler,
	})
}

// SessionManager exposes the session manager for background maintenance.
func (r *Router) SessionManager() *security.SessionManager {
	return r.sessionManager
}

// GetEngine returns the Gin engine
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}

// Run starts the HTTP server
func (r *Router) Run(addr string) error {
	return r.engine.Run(addr)
}
