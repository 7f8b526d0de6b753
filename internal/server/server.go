package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"recruitment-platform/config"
	"recruitment-platform/internal/ai/llm"
	"recruitment-platform/internal/ai/tools"
	"recruitment-platform/internal/ai/usage"
	"recruitment-platform/internal/ai/workflow"
	"recruitment-platform/internal/database"
	"recruitment-platform/internal/email"
	"recruitment-platform/internal/handlers"
	"recruitment-platform/internal/middleware"
	"recruitment-platform/internal/models"
	"recruitment-platform/internal/services"
	"recruitment-platform/pkg/auth"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	Version     = "1.0.0"
	ServiceName = "recruitment-platform-api"
)

// Server represents the HTTP server
type Server struct {
	Router     *gin.Engine
	config     *config.Config
	logger     *zap.Logger
	jwtService *auth.JWTService
	db         *gorm.DB
	redis      *redis.Client

	Services *Services

	// Handlers
	authHandler        *handlers.AuthHandler
	userHandler        *handlers.UserHandler
	tenantHandler      *handlers.TenantHandler
	aiConfigHandler    *handlers.AIConfigHandler
	vacancyHandler     *handlers.VacancyHandler
	applicationHandler *handlers.ApplicationHandler
	sourcingHandler    *handlers.SourcingHandler
	usageHandler       *handlers.UsageHandler
}

// Services is the application layer shared by the HTTP API and the CLI
type Services struct {
	Activities   *services.ActivityService
	Users        *services.UserService
	Tenants      *services.TenantService
	Memberships  *services.MembershipService
	Auth         *services.AuthService
	AIConfigs    *services.AIConfigService
	Vacancies    *services.VacancyService
	Applications *services.ApplicationService
	Usage        *usage.Service
	Workflow     *workflow.Service
	Email        *email.EmailService
}

type options struct {
	models    workflow.ModelProvider
	blacklist auth.TokenBlacklist
}

type Option func(*options)

// WithModelProvider replaces the LLM factory that serves tenant models
func WithModelProvider(p workflow.ModelProvider) Option {
	return func(o *options) { o.models = p }
}

// WithBlacklist replaces the token blacklist chosen from the Redis settings
func WithBlacklist(b auth.TokenBlacklist) Option {
	return func(o *options) { o.blacklist = b }
}

// NewServices builds the application services on db
func NewServices(cfg *config.Config, logger *zap.Logger, db *gorm.DB, jwtService *auth.JWTService, modelProvider workflow.ModelProvider) (*Services, error) {
	pricing := usage.DefaultPricing()
	if cfg.AI.PricingFile != "" {
		loaded, err := usage.LoadPricing(cfg.AI.PricingFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load pricing: %w", err)
		}
		pricing = loaded
	}

	s := &Services{Activities: services.NewActivityService(db, logger)}
	s.Users = services.NewUserService(db, logger, s.Activities)
	s.Tenants = services.NewTenantService(db, logger, s.Activities)
	s.Memberships = services.NewMembershipService(db, logger, s.Activities)
	s.Auth = services.NewAuthService(db, jwtService, s.Tenants, s.Activities, logger)
	s.AIConfigs = services.NewAIConfigService(db, logger)
	s.Vacancies = services.NewVacancyService(db, logger, s.Activities)
	s.Applications = services.NewApplicationService(db, logger, s.Activities, cfg.AI.ScreeningWorkers)
	s.Usage = usage.NewService(db, logger, pricing, usage.ParseQuota(cfg.AI.MonthlyQuotaUSD))
	s.Email = email.NewEmailService(cfg, logger)

	if modelProvider == nil {
		modelProvider = llm.NewFactory(cfg.AI, logger)
	}
	s.Workflow = workflow.NewService(workflow.Deps{
		Quota:      s.Usage,
		Configs:    s.AIConfigs,
		Vacancies:  s.Vacancies,
		Models:     modelProvider,
		Registry:   tools.NewDefaultRegistry(s.Email),
		Recorder:   s.Usage,
		Activities: s.Activities,
		Debug:      cfg.AI.DebugMonitoring,
	}, logger)

	return s, nil
}

// New creates a new server instance on an open database
func New(cfg *config.Config, logger *zap.Logger, db *gorm.DB, opts ...Option) (*Server, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	server := &Server{
		Router: gin.New(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	blacklist := o.blacklist
	if blacklist == nil {
		if cfg.Redis.Enabled {
			server.redis = redis.NewClient(&redis.Options{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			blacklist = auth.NewRedisBlacklist(server.redis)
			logger.Info("Using Redis token blacklist", zap.String("addr", cfg.Redis.Addr))
		} else {
			blacklist = auth.NewMemoryBlacklist()
		}
	}
	server.jwtService = auth.NewJWTService(cfg, blacklist)

	svc, err := NewServices(cfg, logger, db, server.jwtService, o.models)
	if err != nil {
		return nil, err
	}
	server.Services = svc

	server.authHandler = handlers.NewAuthHandler(svc.Auth, svc.Users, svc.Tenants, logger)
	server.userHandler = handlers.NewUserHandler(svc.Users, svc.Tenants, logger)
	server.tenantHandler = handlers.NewTenantHandler(svc.Tenants, svc.Memberships, svc.Users, svc.Email, logger)
	server.aiConfigHandler = handlers.NewAIConfigHandler(svc.AIConfigs, logger)
	server.vacancyHandler = handlers.NewVacancyHandler(svc.Vacancies, svc.Activities, logger)
	server.applicationHandler = handlers.NewApplicationHandler(svc.Applications, svc.Vacancies, svc.Tenants, logger)
	server.sourcingHandler = handlers.NewSourcingHandler(svc.Workflow, svc.Vacancies, logger)
	server.usageHandler = handlers.NewUsageHandler(svc.Usage, logger)

	server.setupMiddleware()
	server.setupRoutes()

	return server, nil
}

// JWT returns the token service used by the API
func (s *Server) JWT() *auth.JWTService { return s.jwtService }

// Close releases the Redis connection
func (s *Server) Close() error {
	if s.redis != nil {
		return s.redis.Close()
	}
	return nil
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware() {
	s.Router.Use(middleware.RequestIDMiddleware())
	s.Router.Use(middleware.RecoveryMiddleware(s.logger))
	s.Router.Use(middleware.SecurityHeadersMiddleware())

	s.Router.Use(middleware.CORSMiddleware(
		s.config.CORS.Origins,
		s.config.CORS.Credentials,
	))

	rateLimiter := middleware.NewRateLimit(
		s.config.RateLimit.Requests,
		time.Duration(s.config.RateLimit.Window)*time.Second,
	)
	s.Router.Use(middleware.RateLimitMiddleware(rateLimiter, s.logger))

	s.Router.Use(middleware.LoggingMiddleware(s.logger))
}

// setupRoutes configures API routes
func (s *Server) setupRoutes() {
	s.Router.GET("/health", s.healthCheck)
	s.Router.HEAD("/health", s.healthCheck)
	s.Router.GET("/ready", s.readinessCheck)
	s.Router.HEAD("/ready", s.readinessCheck)

	if s.config.IsDevelopment() {
		s.Router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	memberships := s.Services.Memberships
	member := middleware.RequireTenantMember(memberships)
	admin := middleware.RequireTenantAdmin(memberships)
	owner := middleware.RequireTenantOwner(memberships)
	permission := func(code string) gin.HandlerFunc {
		return middleware.RequireTenantPermission(memberships, code)
	}

	v1 := s.Router.Group("/api/v1")
	{
		// Public routes (no authentication required)
		authPublic := v1.Group("/auth")
		{
			authPublic.POST("/register", s.authHandler.RegisterTenant)
			authPublic.POST("/signup", s.authHandler.Signup)
			authPublic.POST("/login", s.authHandler.Login)
			authPublic.POST("/refresh", s.authHandler.RefreshToken)
		}

		public := v1.Group("/public")
		{
			public.GET("/tenants/:slug/vacancies", s.applicationHandler.PublicVacancies)
			public.GET("/vacancies/:id", s.applicationHandler.PublicVacancy)
			public.POST("/vacancies/:id/apply", s.applicationHandler.Apply)
		}

		// Protected routes (authentication required)
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(s.jwtService))
		{
			authProtected := protected.Group("/auth")
			{
				authProtected.POST("/logout", s.authHandler.Logout)
				authProtected.GET("/me", s.authHandler.GetMe)
			}

			users := protected.Group("/users/me")
			{
				users.GET("", s.userHandler.GetProfile)
				users.PUT("", s.userHandler.UpdateProfile)
				users.POST("/password", s.userHandler.ChangePassword)
				users.PUT("/email", s.userHandler.UpdateEmail)
				users.GET("/tenants", s.userHandler.ListTenants)
			}

			protected.GET("/permissions", handlers.ListPermissions)
			protected.POST("/tenants", s.tenantHandler.CreateTenant)

			// Tenant administration, addressed by path
			tenant := protected.Group("/tenants/:id")
			tenant.Use(middleware.TenantFromParam("id"))
			{
				tenant.GET("", member, s.tenantHandler.GetTenant)
				tenant.PUT("", admin, s.tenantHandler.UpdateTenant)
				tenant.PUT("/plan", owner, s.tenantHandler.UpdatePlan)
				tenant.POST("/activate", owner, s.tenantHandler.Activate)
				tenant.POST("/deactivate", owner, s.tenantHandler.Deactivate)

				tenant.GET("/members", member, s.tenantHandler.ListMembers)
				tenant.GET("/members/me", member, s.tenantHandler.MyMembership)
				tenant.POST("/members/invite", permission(models.PermInviteMembers), s.tenantHandler.InviteMember)
				tenant.PUT("/members/:userId/role", permission(models.PermManageRoles), s.tenantHandler.UpdateMemberRole)
				tenant.PUT("/members/:userId/permissions", permission(models.PermManageRoles), s.tenantHandler.UpdateMemberPermissions)
				tenant.DELETE("/members/:userId", admin, s.tenantHandler.RemoveMember)

				aiConfig := tenant.Group("/ai-config", admin)
				{
					aiConfig.GET("", s.aiConfigHandler.Get)
					aiConfig.POST("", s.aiConfigHandler.Configure)
					aiConfig.PATCH("", s.aiConfigHandler.UpdateSettings)
					aiConfig.PUT("/api-key", s.aiConfigHandler.UpdateAPIKey)
					aiConfig.PUT("/provider", s.aiConfigHandler.ChangeProvider)
					aiConfig.POST("/activate", s.aiConfigHandler.Activate)
					aiConfig.POST("/deactivate", s.aiConfigHandler.Deactivate)
				}

				usageRoutes := tenant.Group("/usage", admin)
				{
					usageRoutes.GET("", s.usageHandler.GetUsage)
					usageRoutes.GET("/logs", s.usageHandler.ListLogs)
					usageRoutes.GET("/export", s.usageHandler.ExportLogs)
				}
			}

			// Recruitment routes, scoped by the token's tenant or X-Tenant-ID
			scoped := protected.Group("")
			scoped.Use(middleware.TenantContext(), middleware.TenantRequired(middleware.TenantExemptPrefixes...), member)
			{
				scoped.GET("/activities", s.vacancyHandler.ListTenantActivities)

				vacancies := scoped.Group("/vacancies")
				{
					manage := permission(models.PermManageVacancies)
					vacancies.GET("", s.vacancyHandler.ListVacancies)
					vacancies.POST("", manage, s.vacancyHandler.CreateVacancy)
					vacancies.GET("/:id", s.vacancyHandler.GetVacancy)
					vacancies.PUT("/:id", manage, s.vacancyHandler.UpdateVacancy)
					vacancies.DELETE("/:id", manage, s.vacancyHandler.DeleteVacancy)
					vacancies.POST("/:id/publish", manage, s.vacancyHandler.PublishVacancy)
					vacancies.POST("/:id/close", manage, s.vacancyHandler.CloseVacancy)
					vacancies.POST("/:id/archive", manage, s.vacancyHandler.ArchiveVacancy)
					vacancies.POST("/:id/social-previews", manage, s.vacancyHandler.GenerateSocialPreviews)
					vacancies.GET("/:id/social-previews", s.vacancyHandler.ListSocialPosts)
					vacancies.GET("/:id/activities", s.vacancyHandler.ListActivities)

					view := permission(models.PermViewCandidates)
					vacancies.GET("/:id/applications", view, s.applicationHandler.ListApplications)
					vacancies.GET("/:id/applications/export", view, s.applicationHandler.ExportApplications)
					vacancies.POST("/:id/screen", permission(models.PermManageCandidates), s.applicationHandler.ScreenApplications)

					vacancies.POST("/:id/sourcing", permission(models.PermManageCandidates), s.sourcingHandler.StartSourcing)
					vacancies.GET("/:id/sourcing/events", view, s.sourcingHandler.StreamEvents)
				}

				applications := scoped.Group("/applications")
				{
					applications.GET("/:id", permission(models.PermViewCandidates), s.applicationHandler.GetApplication)
					applications.PATCH("/:id/status", permission(models.PermManageCandidates), s.applicationHandler.UpdateApplicationStatus)
				}

				candidates := scoped.Group("/candidates", permission(models.PermViewCandidates))
				{
					candidates.GET("", s.applicationHandler.ListCandidates)
					candidates.GET("/:id", s.applicationHandler.GetCandidate)
				}
			}
		}
	}
}

// healthCheck handles health check requests
// @Summary Health check
// @Description Check if the service is running
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   Version,
		"service":   ServiceName,
	})
}

// readinessCheck handles readiness check requests
// @Summary Readiness check
// @Description Check if the service is ready to serve requests
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /ready [get]
func (s *Server) readinessCheck(c *gin.Context) {
	checks := gin.H{"database": "healthy"}

	if err := database.IsHealthy(s.db); err != nil {
		s.logger.Error("Database health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":    "not ready",
			"timestamp": time.Now().UTC(),
			"error":     "Database connection failed",
		})
		return
	}

	if s.redis != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.redis.Ping(ctx).Err(); err != nil {
			s.logger.Error("Redis health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "not ready",
				"timestamp": time.Now().UTC(),
				"error":     "Redis connection failed",
			})
			return
		}
		checks["redis"] = "healthy"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"timestamp": time.Now().UTC(),
		"version":   Version,
		"service":   ServiceName,
		"checks":    checks,
		"database":  database.GetStats(s.db),
	})
}
