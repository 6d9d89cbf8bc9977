package app

import (
	"context"
	"net/http"
	"time"

	"github.com/ak/millboard/internal/app/middleware"
	"github.com/ak/millboard/internal/infrastructure/config"
	"github.com/ak/millboard/internal/infrastructure/database"
	"github.com/ak/millboard/internal/infrastructure/repositories"
	"github.com/ak/millboard/internal/infrastructure/storage"
	"github.com/ak/millboard/internal/pkg/logger"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Application holds all application dependencies and services
type Application struct {
	config      *config.Config
	logger      *logger.Logger
	services    *Services
	ready       func(ctx context.Context) error
	router      *gin.Engine
	jwtConfig   middleware.JWTConfig
	cookie      middleware.CookieConfig
	webHandlers *WebHandlers
}

// New creates a new Application instance backed by MongoDB
func New(ctx context.Context, cfg *config.Config, log *logger.Logger, mongodb *database.MongoDB) (*Application, error) {
	repos := repositories.NewProvider(mongodb)

	// Uploads are optional; without a bucket the image endpoints answer 503
	var images storage.ImageStore
	if cfg.Storage.Bucket != "" {
		store, err := storage.NewS3Store(ctx, cfg.Storage)
		if err != nil {
			return nil, err
		}
		images = store
	} else {
		log.Warn("Storage bucket not configured, item image uploads disabled")
	}

	return NewWithServices(cfg, log, NewServices(repos, images, cfg, log), mongodb.Health)
}

// NewWithServices builds the HTTP application over ready-made services.
// ready backs the /ready check.
func NewWithServices(cfg *config.Config, log *logger.Logger, svc *Services, ready func(ctx context.Context) error) (*Application, error) {
	app := &Application{
		config:   cfg,
		logger:   log,
		services: svc,
		ready:    ready,
		jwtConfig: middleware.JWTConfig{
			Secret:         cfg.JWT.Secret,
			Issuer:         cfg.JWT.Issuer,
			AccessTokenTTL: cfg.JWT.AccessTokenTTL,
			CookieName:     cfg.JWT.CookieName,
		},
		cookie: middleware.CookieConfig{
			Name:     cfg.JWT.CookieName,
			Secure:   cfg.IsProduction(),
			HTTPOnly: false, // app.js reads it to mirror the token into localStorage
		},
	}

	webHandlers, err := NewWebHandlers(app)
	if err != nil {
		return nil, err
	}
	app.webHandlers = webHandlers

	// Set Gin mode based on environment
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	useJSONFieldNames()
	app.router = gin.New()
	app.router.Use(middleware.RequestID())
	app.router.Use(middleware.RecoveryMiddleware(log.Logger))
	app.router.Use(middleware.LoggerMiddleware(log.Logger, "/health", "/ready"))
	app.router.Use(app.corsMiddleware())

	app.setupRoutes()
	app.webHandlers.RegisterRoutes(app.router)

	return app, nil
}

// Router returns the HTTP handler
func (a *Application) Router() http.Handler {
	return a.router
}

// setupRoutes configures all API routes
func (a *Application) setupRoutes() {
	a.router.GET("/health", a.healthCheck)
	a.router.GET("/ready", a.readinessCheck)

	api := a.router.Group("/api")

	auth := api.Group("/auth")
	auth.Use(middleware.Timeout(a.config.Server.AuthTimeout))
	{
		auth.POST("/login", a.login)
		auth.POST("/logout", a.logout)

		session := auth.Group("")
		session.Use(middleware.JWTMiddleware(a.jwtConfig))
		session.POST("/refresh", a.refreshToken)
		session.GET("/me", a.me)
	}

	authed := api.Group("")
	authed.Use(middleware.JWTMiddleware(a.jwtConfig))

	reports := authed.Group("")
	reports.Use(middleware.Timeout(a.config.Server.ReportTimeout))
	{
		reports.GET("/dashboard", a.getDashboard)
		reports.GET("/mill-outputs/report", a.millOutputReport)
		reports.GET("/mill-outputs/export", a.exportMillOutputs)
	}

	crud := authed.Group("")
	crud.Use(middleware.Timeout(a.config.Server.RequestTimeout))

	users := crud.Group("/users")
	users.Use(middleware.RequireRole("admin"))
	{
		users.GET("", a.listUsers)
		users.POST("", a.createUser)
		users.GET("/:id", a.getUser)
		users.PUT("/:id", a.updateUser)
		users.DELETE("/:id", a.deleteUser)
	}

	audit := crud.Group("/audit-logs")
	audit.Use(middleware.RequireRole("admin"))
	audit.GET("", a.listAuditLogs)

	parties := crud.Group("/parties")
	{
		parties.GET("", a.listParties)
		parties.POST("", a.createParty)
		parties.GET("/:id", a.getParty)
		parties.PUT("/:id", a.updateParty)
		parties.DELETE("/:id", a.deleteParty)
	}

	mills := crud.Group("/mills")
	{
		mills.GET("", a.listMills)
		mills.POST("", a.createMill)
		mills.GET("/:id", a.getMill)
		mills.PUT("/:id", a.updateMill)
		mills.DELETE("/:id", a.deleteMill)
	}

	qualities := crud.Group("/qualities")
	{
		qualities.GET("", a.listQualities)
		qualities.POST("", a.createQuality)
		qualities.GET("/:id", a.getQuality)
		qualities.PUT("/:id", a.updateQuality)
		qualities.DELETE("/:id", a.deleteQuality)
	}

	fabrics := crud.Group("/fabrics")
	{
		fabrics.GET("", a.listFabrics)
		fabrics.POST("", a.createFabric)
		fabrics.GET("/:id", a.getFabric)
		fabrics.PUT("/:id", a.updateFabric)
		fabrics.DELETE("/:id", a.deleteFabric)
	}

	orders := crud.Group("/orders")
	{
		orders.GET("", a.listOrders)
		orders.POST("", a.createOrder)
		orders.GET("/:id", a.getOrder)
		orders.PUT("/:id", a.updateOrder)
		orders.DELETE("/:id", a.deleteOrder)
		orders.POST("/:id/items/:itemId/images", a.uploadItemImage)
		orders.DELETE("/:id/items/:itemId/images", a.deleteItemImage)
		orders.GET("/:id/labs/form", a.getLabForm)
		orders.POST("/:id/labs/batch", a.submitLabBatch)
	}

	labs := crud.Group("/labs")
	{
		labs.GET("", a.listLabs)
		labs.POST("", a.createLab)
		labs.GET("/:id", a.getLab)
		labs.PUT("/:id", a.updateLab)
		labs.DELETE("/:id", a.deleteLab)
	}

	outputs := crud.Group("/mill-outputs")
	{
		outputs.GET("", a.listMillOutputs)
		outputs.POST("", a.createMillOutput)
		outputs.GET("/:id", a.getMillOutput)
		outputs.PUT("/:id", a.updateMillOutput)
		outputs.DELETE("/:id", a.deleteMillOutput)
	}
}

func (a *Application) corsMiddleware() gin.HandlerFunc {
	corsConfig := cors.Config{
		AllowMethods:     a.config.CORS.AllowedMethods,
		AllowHeaders:     a.config.CORS.AllowedHeaders,
		ExposeHeaders:    []string{middleware.RequestIDHeader, "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	origins := a.config.CORS.AllowedOrigins
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		// Credentials rule out a literal "*", so echo the caller's origin instead
		corsConfig.AllowOriginFunc = func(string) bool { return true }
	} else {
		corsConfig.AllowOrigins = origins
	}

	if len(corsConfig.AllowMethods) == 0 {
		corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	if len(corsConfig.AllowHeaders) == 0 {
		corsConfig.AllowHeaders = []string{"Authorization", "Content-Type", middleware.RequestIDHeader}
	}

	return cors.New(corsConfig)
}

func (a *Application) logError(c *gin.Context, msg string, err error) {
	a.logger.WithRequest(middleware.GetRequestID(c)).Error(msg,
		zap.String("path", c.Request.URL.Path),
		zap.Error(err))
}
