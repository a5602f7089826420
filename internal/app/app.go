package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/gatherhub/gatherhub-backend/internal/clients/push"
	"github.com/gatherhub/gatherhub-backend/internal/db"
	"github.com/gatherhub/gatherhub-backend/internal/observability"
	"github.com/gatherhub/gatherhub-backend/internal/platform/logger"
	"github.com/gatherhub/gatherhub-backend/internal/realtime"
	"github.com/gatherhub/gatherhub-backend/internal/realtime/bus"
)

const closeTimeout = 5 * time.Second

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Repos    Repos
	Services Services
	FeedHub  *realtime.FeedHub

	feedBus      bus.Bus
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading configuration...")
	cfg, err := LoadConfig(log)
	if err != nil {
		log.Sync()
		return nil, err
	}

	var theDB *gorm.DB
	if cfg.StoreBackend == "db" {
		dbSvc, err := db.New(log)
		if err != nil {
			log.Sync()
			return nil, fmt.Errorf("init database: %w", err)
		}
		if err := dbSvc.AutoMigrateAll(); err != nil {
			log.Sync()
			return nil, fmt.Errorf("database automigrate: %w", err)
		}
		theDB = dbSvc.DB()
	}

	feedHub := realtime.NewFeedHub(log)

	var feedBus bus.Bus
	if cfg.RedisFeedEnabled {
		feedBus, err = bus.NewRedisBus(log)
		if err != nil {
			log.Sync()
			return nil, fmt.Errorf("init redis feed bus: %w", err)
		}
	}

	pushc, err := push.NewFromEnv(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init push client: %w", err)
	}

	reposet := wireRepos(theDB, log, cfg.StoreBackend)

	serviceset, err := wireServices(log, cfg, reposet, pushc, feedHub, feedBus)
	if err != nil {
		log.Sync()
		return nil, err
	}

	handlerset := wireHandlers(log, serviceset, feedHub)
	middlewareset := wireMiddleware(log, serviceset)
	router := wireRouter(cfg, handlerset, middlewareset)

	return &App{
		Log:      log,
		DB:       theDB,
		Router:   router,
		Cfg:      cfg,
		Repos:    reposet,
		Services: serviceset,
		FeedHub:  feedHub,
		feedBus:  feedBus,
	}, nil
}

// Start launches background pieces: the otel tracer provider and, when a
// redis bus is configured, the forwarder that relays cross-instance feed
// messages into the local hub.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	a.otelShutdown = observability.InitOTel(ctx, a.Log, observability.OtelConfig{
		ServiceName: "gatherhub-backend",
		Environment: a.Cfg.Environment,
	})

	if a.feedBus != nil {
		if err := a.feedBus.StartForwarder(ctx, a.FeedHub.Broadcast); err != nil {
			a.Log.Warn("Feed bus forwarder failed to start", "error", err)
		}
	}
}

func (a *App) Run() error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Router.Run(a.Cfg.Addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.feedBus != nil {
		if err := a.feedBus.Close(); err != nil {
			a.Log.Warn("Feed bus close failed", "error", err)
		}
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("Otel shutdown failed", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
