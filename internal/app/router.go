package app

import (
	"github.com/gin-gonic/gin"

	"github.com/gatherhub/gatherhub-backend/internal/server"
)

func wireRouter(cfg Config, handlers Handlers, middleware Middleware) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		GatheringHandler:   handlers.Gathering,
		UserHandler:        handlers.User,
		NotifyHandler:      handlers.Notify,
		FeedHandler:        handlers.Feed,
		HealthcheckHandler: handlers.Healthcheck,
		AuthMiddleware:     middleware.Auth,
		AllowOrigins:       cfg.AllowOrigins,
	})
}
