package main

import (
	"log/slog"
	"time"

	"github.com/fastprodman/topup/internal/config"
)

type settlerConfig struct {
	LogLevel        slog.Level    `env:"APP_LOG_LEVEL" envDefault:"INFO"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
	ConsumerTag     string        `env:"SETTLER_CONSUMER_TAG" envDefault:"settler"`

	Storage config.StorageConfig
	AMQP    config.AMQPConfig
}
