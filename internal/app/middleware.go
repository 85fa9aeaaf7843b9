package app

import (
	"github.com/flowsmith/flowsmith-backend/internal/middleware"
	"github.com/flowsmith/flowsmith-backend/internal/platform/logger"
)

type Middleware struct {
	Auth *middleware.AuthMiddleware
}

func wireMiddleware(log *logger.Logger, s Services) Middleware {
	return Middleware{
		Auth: middleware.NewAuthMiddleware(log, s.Auth),
	}
}
