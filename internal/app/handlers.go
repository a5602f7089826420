package app

import (
	"github.com/gatherhub/gatherhub-backend/internal/handlers"
	"github.com/gatherhub/gatherhub-backend/internal/platform/logger"
	"github.com/gatherhub/gatherhub-backend/internal/realtime"
)

type Handlers struct {
	Gathering   *handlers.GatheringHandler
	User        *handlers.UserHandler
	Notify      *handlers.NotifyHandler
	Feed        *handlers.FeedHandler
	Healthcheck *handlers.HealthcheckHandler
}

func wireHandlers(log *logger.Logger, services Services, feedHub *realtime.FeedHub) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Gathering:   handlers.NewGatheringHandler(services.Gatherings, services.Guard),
		User:        handlers.NewUserHandler(services.Directory, services.Guard),
		Notify:      handlers.NewNotifyHandler(services.Dispatcher),
		Feed:        handlers.NewFeedHandler(feedHub),
		Healthcheck: handlers.NewHealthcheckHandler(),
	}
}
