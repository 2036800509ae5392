package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fastprodman/topup/internal/api"
	"github.com/fastprodman/topup/internal/auth"
	"github.com/fastprodman/topup/internal/infra/logging"
	"github.com/fastprodman/topup/internal/queue"
	"github.com/fastprodman/topup/internal/services/lifecycle"
	"github.com/fastprodman/topup/internal/services/status"
	"github.com/fastprodman/topup/internal/storage"
	"github.com/fastprodman/topup/pkg/shutdownqueue"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error running api: %v", err)
		//nolint:gocritic
		os.Exit(1)
	}
}

func run(ctx context.Context) (retErr error) {
	cfg, err := readConfig()
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

	// --- Infra ---
	stores, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}

	sq.Add("close storage", stores.Close)

	var publisher api.SettlementPublisher

	if cfg.AsyncSettlement {
		mq, err := queue.NewRabbitMQ(cfg.AMQP)
		if err != nil {
			return fmt.Errorf("connect rabbitmq: %w", err)
		}

		sq.Add("close rabbitmq", func(context.Context) error { return mq.Close() })

		publisher = mq
	}

	// --- Services ---
	authenticator, err := auth.New(stores.Accounts, cfg.Auth)
	if err != nil {
		return fmt.Errorf("init auth: %w", err)
	}

	if cfg.OperatorUsername != "" {
		err = authenticator.EnsureOperator(ctx, cfg.OperatorUsername, cfg.OperatorPassword)
		if err != nil {
			return fmt.Errorf("bootstrap operator: %w", err)
		}

		slog.Info("operator account ready", slog.String("account_id", cfg.OperatorUsername))
	}

	engine := lifecycle.New(stores.Accounts, stores.Deposits)
	statusSrv := status.New(stores.Deposits)

	submitLimiter, err := api.NewSubmitLimiter(cfg.RateLimit)
	if err != nil {
		return fmt.Errorf("init rate limiter: %w", err)
	}

	// --- HTTP server ---
	handlers := api.NewHandler(engine, statusSrv, authenticator, publisher)
	srv := api.NewServer(cfg.Port, api.NewRouter(handlers, submitLimiter, cfg.CORS.Origins()))

	sq.Add("shutdown http server", func(c context.Context) error {
		slog.Info("Shut down server")

		return srv.Shutdown(c)
	})

	errCh := make(chan error, 1)

	go func() {
		serr := srv.ListenAndServe()
		// http.ErrServerClosed is the normal path during Shutdown
		if serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			errCh <- serr
			return
		}

		errCh <- nil
	}()

	slog.Info("API started",
		slog.Uint64("port", uint64(cfg.Port)),
		slog.String("storage", cfg.Storage.Driver),
		slog.Bool("async_settlement", publisher != nil),
	)

	select {
	case <-ctx.Done():
		return nil
	case serr := <-errCh:
		if serr != nil {
			return fmt.Errorf("server error: %w", serr)
		}

		return nil
	}
}
