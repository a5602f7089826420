package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/gatherhub/gatherhub-backend/internal/handlers"
	"github.com/gatherhub/gatherhub-backend/internal/middleware"
)

type RouterConfig struct {
	GatheringHandler   *handlers.GatheringHandler
	UserHandler        *handlers.UserHandler
	NotifyHandler      *handlers.NotifyHandler
	FeedHandler        *handlers.FeedHandler
	HealthcheckHandler *handlers.HealthcheckHandler
	AuthMiddleware     *middleware.AuthMiddleware
	AllowOrigins       []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware("gatherhub-backend"))

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", middleware.IdentityHeader},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", cfg.HealthcheckHandler.Healthcheck)
	router.POST("/users/register", cfg.UserHandler.Register)
	router.POST("/users/login", cfg.UserHandler.Login)

	// ===============
	// || Protected ||
	// ===============
	protected := router.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	// Gatherings
	protected.POST("/gatherings", cfg.GatheringHandler.Create)
	protected.GET("/gatherings", cfg.GatheringHandler.List)
	protected.GET("/gatherings/:id", cfg.GatheringHandler.GetByID)
	protected.POST("/gatherings/:id/confirm", cfg.GatheringHandler.Confirm)
	protected.POST("/gatherings/:id/decline", cfg.GatheringHandler.Decline)
	protected.DELETE("/gatherings/:id", cfg.GatheringHandler.Cancel)
	// Invites
	protected.GET("/users/:userId/invites", cfg.GatheringHandler.PendingInvites)
	// Notifications
	protected.POST("/notify", cfg.NotifyHandler.Notify)
	protected.GET("/notify/stream", cfg.FeedHandler.Stream)

	return router
}
