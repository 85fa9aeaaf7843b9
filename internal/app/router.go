package app

import (
	"github.com/gin-gonic/gin"

	"github.com/flowsmith/flowsmith-backend/internal/platform/envutil"
	"github.com/flowsmith/flowsmith-backend/internal/server"
)

func wireRouter(cfg Config, h Handlers, m Middleware) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		AllowOrigins:       cfg.AllowOrigins,
		OtelEnabled:        envutil.Bool("OTEL_ENABLED", false),
		AuthHandler:        h.Auth,
		AuthMiddleware:     m.Auth,
		RecipeHandler:      h.Recipe,
		StepHandler:        h.Step,
		BlockHandler:       h.Block,
		IntegrationHandler: h.Integration,
		RunHandler:         h.Run,
	})
}
