package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/flowsmith/flowsmith-backend/internal/domain"
	"github.com/flowsmith/flowsmith-backend/internal/handlers"
	"github.com/flowsmith/flowsmith-backend/internal/middleware"
)

type RouterConfig struct {
	AllowOrigins       []string
	OtelEnabled        bool
	AuthHandler        *handlers.AuthHandler
	AuthMiddleware     *middleware.AuthMiddleware
	RecipeHandler      *handlers.RecipeHandler
	StepHandler        *handlers.StepHandler
	BlockHandler       *handlers.BlockHandler
	IntegrationHandler *handlers.IntegrationHandler
	RunHandler         *handlers.RunHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	if cfg.OtelEnabled {
		router.Use(otelgin.Middleware("flowsmith"))
	}
	router.Use(middleware.RequestTrace())

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/uap/v2")

	// Public
	api.POST("/register", cfg.AuthHandler.Register)
	api.POST("/login", cfg.AuthHandler.Login)
	api.POST("/refresh", cfg.AuthHandler.Refresh)

	// Event intake: anonymous recipes fire without credentials.
	api.POST("/events", cfg.AuthMiddleware.OptionalAuth(), cfg.RunHandler.Event)

	// Protected
	protected := api.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	protected.POST("/logout", cfg.AuthHandler.Logout)

	protected.GET("/integrations", cfg.IntegrationHandler.List)
	protected.GET("/integrations/:code", cfg.IntegrationHandler.Get)
	protected.GET("/accounts", cfg.IntegrationHandler.Accounts)
	protected.GET("/runs/stream", cfg.RunHandler.Stream)

	manage := protected.Group("/")
	manage.Use(cfg.AuthMiddleware.RequireCapability(domain.CapManageRecipes))

	manage.POST("/integrations/:code/connect", cfg.IntegrationHandler.Connect)
	manage.DELETE("/integrations/:code/connect", cfg.IntegrationHandler.Disconnect)

	manage.POST("/recipes", cfg.RecipeHandler.Create)
	manage.GET("/recipes", cfg.RecipeHandler.List)
	manage.GET("/recipes/:id", cfg.RecipeHandler.Get)
	manage.PUT("/recipes/:id", cfg.RecipeHandler.Update)
	manage.PATCH("/recipes/:id/status", cfg.RecipeHandler.SetStatus)
	manage.DELETE("/recipes/:id", cfg.RecipeHandler.Delete)
	manage.GET("/recipes/:id/export", cfg.RecipeHandler.Export)
	manage.POST("/recipes/import", cfg.RecipeHandler.Import)

	manage.POST("/recipes/:id/steps", cfg.StepHandler.Add)
	manage.PUT("/steps/:stepId", cfg.StepHandler.Update)
	manage.DELETE("/steps/:stepId", cfg.StepHandler.Delete)

	manage.POST("/recipes/:id/blocks", cfg.BlockHandler.Add)
	manage.PUT("/blocks/:blockId", cfg.BlockHandler.Update)
	manage.DELETE("/blocks/:blockId", cfg.BlockHandler.Delete)

	manage.GET("/recipes/:id/runs", cfg.RunHandler.ListByRecipe)
	manage.GET("/runs/:runId", cfg.RunHandler.Get)

	return router
}
