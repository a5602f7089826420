package app

import (
	"github.com/gatherhub/gatherhub-backend/internal/clients/push"
	"github.com/gatherhub/gatherhub-backend/internal/platform/logger"
	"github.com/gatherhub/gatherhub-backend/internal/realtime"
	"github.com/gatherhub/gatherhub-backend/internal/realtime/bus"
	"github.com/gatherhub/gatherhub-backend/internal/services"
)

type Services struct {
	Directory  services.DirectoryService
	Guard      services.AccessGuard
	Dispatcher services.NotificationDispatcher
	Gatherings services.GatheringService
}

func wireServices(log *logger.Logger, cfg Config, reposet Repos, pushc push.Client, feedHub *realtime.FeedHub, feedBus bus.Bus) (Services, error) {
	log.Info("Wiring services...")

	directory := services.NewDirectoryService(reposet.Users, log)

	guard, err := services.NewAccessGuard(log, directory, cfg.AuthMode, cfg.JWTSecretKey, cfg.TokenTTL)
	if err != nil {
		return Services{}, err
	}

	dispatcher := services.NewNotificationDispatcher(log, pushc, directory, feedHub, feedBus, cfg.DispatchTimeout)
	gatherings := services.NewGatheringService(reposet.Gatherings, dispatcher, log, cfg.NotifyCreationMode)

	return Services{
		Directory:  directory,
		Guard:      guard,
		Dispatcher: dispatcher,
		Gatherings: gatherings,
	}, nil
}
