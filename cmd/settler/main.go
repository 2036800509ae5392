// Command settler consumes settlement requests from RabbitMQ and applies them
// through the deposit lifecycle engine.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fastprodman/topup/internal/infra/logging"
	"github.com/fastprodman/topup/internal/queue"
	"github.com/fastprodman/topup/internal/services/lifecycle"
	"github.com/fastprodman/topup/internal/storage"
	"github.com/fastprodman/topup/pkg/envconf"
	"github.com/fastprodman/topup/pkg/shutdownqueue"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error running settler: %v", err)
		//nolint:gocritic
		os.Exit(1)
	}
}

func run(ctx context.Context) (retErr error) {
	err := envconf.LoadDotenv()
	if err != nil {
		return fmt.Errorf("load .env: %w", err)
	}

	cfg := new(settlerConfig)

	err = envconf.Load(cfg)
	if err != nil {
		return fmt.Errorf("init config: %w", err)
	}

	logging.SetupJSON(cfg.LogLevel)

	sq := shutdownqueue.New()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		serr := sq.Shutdown(shutdownCtx)
		if serr != nil {
			retErr = errors.Join(retErr, serr)
		}
	}()

	if strings.EqualFold(cfg.Storage.Driver, storage.DriverMemory) {
		return errors.New("settler needs a shared store; memory driver is process-local")
	}

	stores, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}

	sq.Add("close storage", stores.Close)

	mq, err := queue.NewRabbitMQ(cfg.AMQP)
	if err != nil {
		return fmt.Errorf("connect rabbitmq: %w", err)
	}

	sq.Add("close rabbitmq", func(context.Context) error { return mq.Close() })

	deliveries, err := mq.Deliveries(cfg.ConsumerTag)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	worker := queue.NewWorker(lifecycle.New(stores.Accounts, stores.Deposits))

	slog.Info("Settler started", slog.String("queue", cfg.AMQP.Queue))

	errCh := make(chan error, 1)

	go func() {
		errCh <- worker.Run(ctx, deliveries)
	}()

	select {
	case <-ctx.Done():
		<-errCh
		return nil
	case amqpErr := <-mq.NotifyClose():
		return fmt.Errorf("rabbitmq connection closed: %v", amqpErr)
	case werr := <-errCh:
		if werr != nil {
			return fmt.Errorf("worker: %w", werr)
		}

		return nil
	}
}
