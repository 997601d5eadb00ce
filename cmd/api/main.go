package main

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/erickcastrillo/diquis/internal/config"
	"github.com/erickcastrillo/diquis/internal/database"
	"github.com/erickcastrillo/diquis/internal/directory"
	"github.com/erickcastrillo/diquis/internal/handler"
	"github.com/erickcastrillo/diquis/internal/identity"
	"github.com/erickcastrillo/diquis/internal/jwtutil"
	"github.com/erickcastrillo/diquis/internal/logger"
	"github.com/erickcastrillo/diquis/internal/metrics"
	mid "github.com/erickcastrillo/diquis/internal/middleware"
	"github.com/erickcastrillo/diquis/internal/provisioning"
	"github.com/erickcastrillo/diquis/internal/queue"
)

func main() {
	// Load configuration
	appConfig, err := config.Load("diquis-api")
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	if err := logger.InitLogger(&logger.LogConfig{
		Level:       appConfig.Log.Level,
		Environment: appConfig.Server.Env,
		ServiceName: appConfig.ServiceName,
	}); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	defer log.Sync()

	log.Info("Starting diquis-api", appConfig.LogConfig()...)

	// Initialize Prometheus metrics
	metrics.InitMetrics()

	// Database manager and base schema
	manager := database.NewManager(&appConfig.DB, database.PostgresDialector)
	defer manager.Close()

	baseDB, err := manager.Pool(appConfig.DB.DSN())
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := database.MigrateBase(baseDB); err != nil {
		log.Fatal("Failed to migrate database", zap.Error(err))
	}
	if err := directory.EnsureRootTenant(baseDB); err != nil {
		log.Fatal("Failed to seed root tenant", zap.Error(err))
	}
	log.Info("Database ready")

	// Wire services
	dir := directory.New(manager)
	ids := identity.NewService(manager)
	jwtUtil := jwtutil.NewJWTUtil(&appConfig.JWT)
	dispatcher := queue.NewClient(appConfig.Redis)
	defer dispatcher.Close()
	provisioningSvc := provisioning.NewService(manager, dir, dispatcher, &appConfig.DB)

	tenantHandler := handler.NewTenantHandler(provisioningSvc, dir)
	authHandler := handler.NewAuthHandler(ids, jwtUtil)
	productHandler := handler.NewProductHandler(manager)
	playerHandler := handler.NewPlayerHandler(manager)
	categoryHandler := handler.NewCategoryHandler(manager)

	// Initialize Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(echomw.Recover())
	e.Use(mid.RequestIDMiddleware())
	e.Use(logger.Middleware())
	e.Use(metrics.Middleware())

	// Routes
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	e.GET("/health", handler.Health)

	// Auth routes resolve the tenant from the X-Tenant header (or fall back
	// to root) without requiring a token.
	authAPI := e.Group("/api/auth", mid.TenantScopeMiddleware(dir))
	authAPI.POST("/register", authHandler.Register)
	authAPI.POST("/login", authHandler.Login)

	// Tenant administration requires authentication only; the scope falls
	// back to root for directory-level operations.
	tenantAPI := e.Group("/api/tenants", mid.JWTAuthMiddleware(jwtUtil))
	tenantAPI.GET("", tenantHandler.List)
	tenantAPI.GET("/:id", tenantHandler.Get)
	tenantAPI.POST("", tenantHandler.Create)
	tenantAPI.PUT("/:id", tenantHandler.Update)

	// Domain routes run inside the caller's tenant scope.
	scoped := func(prefix string) *echo.Group {
		return e.Group(prefix, mid.JWTAuthMiddleware(jwtUtil), mid.TenantScopeMiddleware(dir))
	}

	productAPI := scoped("/api/products")
	productAPI.GET("", productHandler.List)
	productAPI.GET("/:id", productHandler.Get)
	productAPI.POST("", productHandler.Create)
	productAPI.PUT("/:id", productHandler.Update)
	productAPI.DELETE("/:id", productHandler.Delete)

	playerAPI := scoped("/api/players")
	playerAPI.GET("", playerHandler.List)
	playerAPI.GET("/:id", playerHandler.Get)
	playerAPI.POST("", playerHandler.Create)
	playerAPI.PUT("/:id", playerHandler.Update)
	playerAPI.DELETE("/:id", playerHandler.Delete)

	categoryAPI := scoped("/api/categories")
	categoryAPI.GET("", categoryHandler.List)
	categoryAPI.GET("/:id", categoryHandler.Get)
	categoryAPI.POST("", categoryHandler.Create)
	categoryAPI.PUT("/:id", categoryHandler.Update)
	categoryAPI.DELETE("/:id", categoryHandler.Delete)

	// Start server
	port := appConfig.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Server error", zap.Error(err))
	}
}
