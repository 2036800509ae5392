package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/fastprodman/topup/internal/config"
	"github.com/streadway/amqp"
)

// SettlementQueue is the default durable queue carrying settlement requests.
const SettlementQueue = "deposit.settlements"

// SettlementMessage asks the settler to apply decision to a pending deposit.
type SettlementMessage struct {
	DepositID string `json:"depositId"`
	Decision  string `json:"decision"`
}

// RabbitMQ owns one connection and one channel bound to the settlement queue.
type RabbitMQ struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   amqp.Queue

	pubMu sync.Mutex
}

func NewRabbitMQ(cfg config.AMQPConfig) (*RabbitMQ, error) {
	name := cfg.Queue
	if name == "" {
		name = SettlementQueue
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	q, err := ch.QueueDeclare(
		name,  // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", name, err)
	}

	if cfg.Prefetch > 0 {
		err = ch.Qos(cfg.Prefetch, 0, false)
		if err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, fmt.Errorf("set qos: %w", err)
		}
	}

	return &RabbitMQ{
		conn:    conn,
		channel: ch,
		queue:   q,
	}, nil
}

func (r *RabbitMQ) Close() error {
	return errors.Join(r.channel.Close(), r.conn.Close())
}

// PublishSettlement enqueues a persistent settlement request.
func (r *RabbitMQ) PublishSettlement(_ context.Context, msg SettlementMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal settlement: %w", err)
	}

	r.pubMu.Lock()
	defer r.pubMu.Unlock()

	err = r.channel.Publish(
		"",           // exchange
		r.queue.Name, // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		})
	if err != nil {
		return fmt.Errorf("publish settlement: %w", err)
	}

	return nil
}

// Deliveries starts a manual-ack consumer on the settlement queue.
func (r *RabbitMQ) Deliveries(consumer string) (<-chan amqp.Delivery, error) {
	msgs, err := r.channel.Consume(
		r.queue.Name, // queue
		consumer,     // consumer
		false,        // auto-ack
		false,        // exclusive
		false,        // no-local
		false,        // no-wait
		nil,          // args
	)
	if err != nil {
		return nil, fmt.Errorf("register consumer: %w", err)
	}

	return msgs, nil
}

// NotifyClose reports broker-side connection loss.
func (r *RabbitMQ) NotifyClose() <-chan *amqp.Error {
	return r.conn.NotifyClose(make(chan *amqp.Error, 1))
}
