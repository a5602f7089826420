package app

import (
	"gorm.io/gorm"

	"github.com/gatherhub/gatherhub-backend/internal/platform/logger"
	"github.com/gatherhub/gatherhub-backend/internal/repos"
)

type Repos struct {
	Gatherings repos.GatheringStore
	Users      repos.UserStore
}

func wireRepos(db *gorm.DB, log *logger.Logger, backend string) Repos {
	log.Info("Wiring stores...", "backend", backend)
	if backend == "memory" {
		return Repos{
			Gatherings: repos.NewMemoryGatheringStore(),
			Users:      repos.NewMemoryUserStore(),
		}
	}
	return Repos{
		Gatherings: repos.NewGatheringStore(db, log),
		Users:      repos.NewUserStore(db, log),
	}
}
