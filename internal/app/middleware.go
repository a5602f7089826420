package app

import (
	"github.com/gatherhub/gatherhub-backend/internal/middleware"
	"github.com/gatherhub/gatherhub-backend/internal/platform/logger"
)

type Middleware struct {
	Auth *middleware.AuthMiddleware
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: middleware.NewAuthMiddleware(log, services.Guard),
	}
}
