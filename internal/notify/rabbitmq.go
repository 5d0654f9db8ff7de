package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQ publishes mail jobs to a durable queue on the default exchange.
type RabbitMQ struct {
	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
}

func NewRabbitMQ(url, queue string) (*RabbitMQ, error) {
	if url == "" {
		return nil, errors.New("rabbitmq url is empty")
	}
	if queue == "" {
		queue = "mail_jobs"
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	_, err = ch.QueueDeclare(
		queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	return &RabbitMQ{conn: conn, channel: ch, queue: queue}, nil
}

func (r *RabbitMQ) Send(ctx context.Context, job MailJob) error {
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	body, err := json.Marshal(job)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// amqp channels are not safe for concurrent publishing
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.channel.PublishWithContext(ctx,
		"",      // exchange
		r.queue, // routing key
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    job.CreatedAt,
			Type:         job.Template,
			Body:         body,
		},
	)
}

func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.channel != nil {
		_ = r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
