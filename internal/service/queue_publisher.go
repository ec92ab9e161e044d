// Package service holds the application services that sit between the
// HTTP handlers and the stores: media asset management and activity event
// publishing.
package service

import (
    "context"
    "encoding/json"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/sirupsen/logrus"

    q "github.com/iliyamo/mindful-backend/internal/queue"
)

// EventPublisher delivers activity events.  Failures are reported to the
// caller, which is free to ignore them.
type EventPublisher interface {
    Publish(ctx context.Context, ev q.ActivityEvent) error
}

// NopPublisher drops every event.  It is used when events are disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, q.ActivityEvent) error { return nil }

// AMQPPublisher publishes events to the activity queue on RabbitMQ.  Each
// Publish dials its own connection so a broker outage never wedges the
// request path.
type AMQPPublisher struct {
    URL string
}

func NewAMQPPublisher(url string) *AMQPPublisher { return &AMQPPublisher{URL: url} }

// Publish sends ev as a persistent JSON message through the default
// exchange.  Errors are logged and returned.
func (p *AMQPPublisher) Publish(ctx context.Context, ev q.ActivityEvent) error {
    log := logrus.WithField("event", ev.Type)

    conn, err := amqp.Dial(p.URL)
    if err != nil {
        log.WithError(err).Warn("rabbitmq: dial failed")
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        log.WithError(err).Warn("rabbitmq: channel open failed")
        return err
    }
    defer func() { _ = ch.Close() }()

    // idempotent; durable so messages survive broker restarts
    if _, err := ch.QueueDeclare(
        q.ActivityQueue, // name
        true,            // durable
        false,           // autoDelete
        false,           // exclusive
        false,           // noWait
        nil,             // args
    ); err != nil {
        log.WithError(err).Warn("rabbitmq: queue declare failed")
        return err
    }

    body, err := json.Marshal(ev)
    if err != nil {
        log.WithError(err).Warn("rabbitmq: marshal event failed")
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent, // store on disk
        Timestamp:    time.Now().UTC(),
        Type:         ev.Type,
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx,
        "",              // default exchange
        q.ActivityQueue, // routing key = queue name
        false,           // mandatory
        false,           // immediate
        pub,
    ); err != nil {
        log.WithError(err).Warn("rabbitmq: publish failed")
        return err
    }
    return nil
}

// PublishAsync hands ev to p on a background goroutine with its own
// timeout so the caller's response is never delayed by the broker.
func PublishAsync(p EventPublisher, ev q.ActivityEvent) {
    if p == nil {
        return
    }
    go func() {
        ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
        defer cancel()
        _ = p.Publish(ctx, ev)
    }()
}
