package app

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gatherhub/gatherhub-backend/internal/platform/envutil"
	"github.com/gatherhub/gatherhub-backend/internal/platform/logger"
	"github.com/gatherhub/gatherhub-backend/internal/services"
)

type Config struct {
	Addr         string   `yaml:"addr"`
	Environment  string   `yaml:"environment"`
	AllowOrigins []string `yaml:"allowOrigins"`

	StoreBackend string `yaml:"storeBackend"` // "db" or "memory"

	AuthMode     string        `yaml:"authMode"` // "plain" or "token"
	JWTSecretKey string        `yaml:"-"`
	TokenTTL     time.Duration `yaml:"tokenTTL"`

	NotifyCreationMode string        `yaml:"notifyCreationMode"` // "topic" or "users"
	DispatchTimeout    time.Duration `yaml:"dispatchTimeout"`

	RedisFeedEnabled bool `yaml:"redisFeedEnabled"`
}

// LoadConfig reads the optional yaml file named by CONFIG_PATH, then lets
// environment variables override each field. Secrets only come from env.
func LoadConfig(log *logger.Logger) (Config, error) {
	cfg := Config{
		Addr:               ":8080",
		Environment:        "development",
		StoreBackend:       "db",
		AuthMode:           services.AuthModePlain,
		TokenTTL:           time.Hour,
		NotifyCreationMode: services.NotifyModeTopic,
		DispatchTimeout:    5 * time.Second,
	}

	if path := envutil.Str("CONFIG_PATH", ""); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
		log.Info("Loaded config file", "path", path)
	}

	cfg.Addr = envutil.Str("ADDR", cfg.Addr)
	cfg.Environment = envutil.Str("ENVIRONMENT", cfg.Environment)
	cfg.StoreBackend = envutil.Str("STORE_BACKEND", cfg.StoreBackend)
	cfg.AuthMode = envutil.Str("AUTH_MODE", cfg.AuthMode)
	cfg.JWTSecretKey = envutil.Str("JWT_SECRET_KEY", "")
	cfg.TokenTTL = envutil.Duration("TOKEN_TTL", cfg.TokenTTL)
	cfg.NotifyCreationMode = envutil.Str("NOTIFY_CREATION_MODE", cfg.NotifyCreationMode)
	cfg.DispatchTimeout = envutil.Duration("DISPATCH_TIMEOUT", cfg.DispatchTimeout)
	cfg.RedisFeedEnabled = envutil.Bool("REDIS_FEED_ENABLED", cfg.RedisFeedEnabled)

	switch cfg.StoreBackend {
	case "db", "memory":
	default:
		return Config{}, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
	switch cfg.NotifyCreationMode {
	case services.NotifyModeTopic, services.NotifyModeUsers:
	default:
		return Config{}, fmt.Errorf("unknown creation notify mode %q", cfg.NotifyCreationMode)
	}

	return cfg, nil
}
