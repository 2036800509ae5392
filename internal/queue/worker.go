package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/fastprodman/topup/internal/apperrors"
	"github.com/fastprodman/topup/internal/infra/logging"
	"github.com/fastprodman/topup/internal/repos/deposits"
	"github.com/fastprodman/topup/internal/services/lifecycle"
	"github.com/google/uuid"
	"github.com/streadway/amqp"
)

// Settler is the part of the lifecycle engine the worker drives.
type Settler interface {
	Settle(ctx context.Context, depositID string, decision lifecycle.Decision) (deposits.Deposit, error)
}

// Outcome is what the worker does with a delivery after handling it.
type Outcome int

const (
	OutcomeAck Outcome = iota
	OutcomeReject
	OutcomeRequeue
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAck:
		return "ack"
	case OutcomeReject:
		return "reject"
	case OutcomeRequeue:
		return "requeue"
	default:
		return "unknown"
	}
}

type Worker struct {
	settler Settler
}

func NewWorker(s Settler) *Worker {
	return &Worker{settler: s}
}

// Run handles deliveries until ctx is done or the channel closes.
func (w *Worker) Run(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}

			w.Handle(ctx, d)
		}
	}
}

// Handle settles one delivery and acknowledges it according to the outcome.
func (w *Worker) Handle(ctx context.Context, d amqp.Delivery) Outcome {
	log := logging.FromContext(ctx).With(
		slog.String("message_id", messageID(d)),
		slog.Uint64("delivery_tag", d.DeliveryTag),
	)
	ctx = logging.WithLogger(ctx, log)

	outcome := w.process(ctx, d.Body)

	var err error

	switch outcome {
	case OutcomeAck:
		err = d.Ack(false)
	case OutcomeReject:
		err = d.Reject(false)
	case OutcomeRequeue:
		err = d.Nack(false, true)
	}
	if err != nil {
		log.Error("acknowledge delivery", slog.String("outcome", outcome.String()), slog.Any("error", err))
	}

	return outcome
}

func (w *Worker) process(ctx context.Context, body []byte) Outcome {
	log := logging.FromContext(ctx)

	var msg SettlementMessage

	err := json.Unmarshal(body, &msg)
	if err != nil {
		log.Warn("discard malformed settlement message", slog.Any("error", err))
		return OutcomeReject
	}

	log = log.With(slog.String("deposit_id", msg.DepositID))

	decision, err := lifecycle.ParseDecision(msg.Decision)
	if err != nil || msg.DepositID == "" {
		log.Warn("discard invalid settlement message", slog.String("decision", msg.Decision))
		return OutcomeReject
	}

	_, err = w.settler.Settle(ctx, msg.DepositID, decision)

	switch {
	case err == nil:
		return OutcomeAck
	case errors.Is(err, apperrors.ErrAlreadySettled):
		log.Info("deposit already settled")
		return OutcomeAck
	case errors.Is(err, apperrors.ErrPartialFailure):
		// the deposit is terminal, so redelivery could never credit it
		log.Error("settlement needs reconciliation", slog.Bool("reconcile", true), slog.Any("error", err))
		return OutcomeAck
	case errors.Is(err, apperrors.ErrNotFound), errors.Is(err, apperrors.ErrValidation):
		log.Warn("discard settlement", slog.Any("error", err))
		return OutcomeReject
	default:
		log.Error("settlement failed, requeueing", slog.Any("error", err))
		return OutcomeRequeue
	}
}

func messageID(d amqp.Delivery) string {
	if d.MessageId != "" {
		return d.MessageId
	}

	return uuid.NewString()
}
