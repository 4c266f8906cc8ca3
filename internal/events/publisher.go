package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPPublisher publishes events to RabbitMQ.  It opens a new
// connection for every publish.
type AMQPPublisher struct {
	URL string
	Log *slog.Logger
}

func NewAMQPPublisher(url string, log *slog.Logger) *AMQPPublisher {
	if log == nil {
		log = slog.Default()
	}
	return &AMQPPublisher{URL: url, Log: log.With("component", "events")}
}

// PublishStatusChanged publishes ev as a persistent JSON message.  Errors
// are logged and returned so the caller can choose to ignore them.
func (p *AMQPPublisher) PublishStatusChanged(ctx context.Context, ev StatusChangedEvent) error {
	conn, err := amqp.Dial(p.URL)
	if err != nil {
		p.Log.Warn("rabbitmq dial failed", "err", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.Log.Warn("rabbitmq channel open failed", "err", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		StatusChangedQueue, // name
		true,               // durable
		false,              // autoDelete
		false,              // exclusive
		false,              // noWait
		nil,                // args
	); err != nil {
		p.Log.Warn("rabbitmq queue declare failed", "err", err)
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", StatusChangedQueue, false, false, pub); err != nil {
		p.Log.Warn("rabbitmq publish failed", "err", err)
		return err
	}
	return nil
}
