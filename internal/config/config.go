// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store backends.
const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config is the server configuration.
type Config struct {
	Addr            string        `env:"TASKVERSE_ADDR"             envDefault:":3001"`
	Store           string        `env:"TASKVERSE_STORE"            envDefault:"mongo"`
	MongoURI        string        `env:"TASKVERSE_MONGO_URI"        envDefault:"mongodb://localhost:27017"`
	MongoDatabase   string        `env:"TASKVERSE_MONGO_DATABASE"   envDefault:"taskverse"`
	DatabaseURL     string        `env:"DATABASE_URL"`
	CORSOrigin      string        `env:"TASKVERSE_CORS_ORIGIN"      envDefault:"*"`
	LogLevel        string        `env:"TASKVERSE_LOG_LEVEL"        envDefault:"info"`
	LogFormat       string        `env:"TASKVERSE_LOG_FORMAT"       envDefault:"text"`
	ShutdownTimeout time.Duration `env:"TASKVERSE_SHUTDOWN_TIMEOUT" envDefault:"15s"`
}

// ClientConfig configures API clients such as taskctl.
type ClientConfig struct {
	APIURL string `env:"TASKVERSE_API_URL" envDefault:"http://localhost:3001"`
}

// Load parses Config from the environment and validates it.
func Load() (Config, error) {
	return load(env.Options{})
}

func load(opts env.Options) (Config, error) {
	var cfg Config
	if err := parseEnv(&cfg, opts); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadClient parses ClientConfig from the environment.
func LoadClient() (ClientConfig, error) {
	return loadClient(env.Options{})
}

func loadClient(opts env.Options) (ClientConfig, error) {
	var cfg ClientConfig
	if err := parseEnv(&cfg, opts); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}

func parseEnv(target any, opts env.Options) error {
	if err := env.ParseWithOptions(target, opts); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate rejects unknown store kinds and missing connection settings.
func (c Config) Validate() error {
	switch c.Store {
	case StoreMongo:
		if c.MongoURI == "" || c.MongoDatabase == "" {
			return fmt.Errorf("store %q needs TASKVERSE_MONGO_URI and TASKVERSE_MONGO_DATABASE", c.Store)
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("store %q needs DATABASE_URL", c.Store)
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown store %q (want %s, %s or %s)", c.Store, StoreMongo, StorePostgres, StoreMemory)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive, got %s", c.ShutdownTimeout)
	}
	return nil
}
