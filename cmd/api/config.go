package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/fastprodman/topup/internal/config"
	"github.com/fastprodman/topup/pkg/envconf"
)

type apiConfig struct {
	Port            uint16        `env:"API_PORT" envDefault:"8080"`
	LogLevel        slog.Level    `env:"APP_LOG_LEVEL" envDefault:"INFO"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`

	// AsyncSettlement publishes ?async=true settlements to AMQP.
	AsyncSettlement bool `env:"ASYNC_SETTLEMENT" envDefault:"false"`

	OperatorUsername string `env:"OPERATOR_USERNAME" envDefault:""`
	OperatorPassword string `env:"OPERATOR_PASSWORD" envDefault:""`

	Storage   config.StorageConfig
	Auth      config.AuthConfig
	RateLimit config.RateLimitConfig
	AMQP      config.AMQPConfig
	CORS      config.CORSConfig
}

func readConfig() (*apiConfig, error) {
	err := envconf.LoadDotenv()
	if err != nil {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := new(apiConfig)

	err = envconf.Load(cfg)
	if err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	return cfg, nil
}
