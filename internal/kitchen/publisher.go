package kitchen

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ticketExchange = "kitchen_topic"
	ticketQueue    = "kitchen_tickets"
	publishTimeout = 5 * time.Second
)

// RabbitMQPublisher forwards kitchen tickets to a topic exchange so that
// station displays outside this process can consume them. Routing key is
// kitchen.<station>, lowercased.
type RabbitMQPublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// ConnectRabbitMQ dials the broker and declares the ticket exchange,
// queue, and binding. Safe to call against an already-provisioned broker;
// declarations are idempotent.
func ConnectRabbitMQ(url string) (*RabbitMQPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		ticketExchange, // name
		"topic",        // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	_, err = channel.QueueDeclare(
		ticketQueue, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	err = channel.QueueBind(
		ticketQueue,    // queue name
		"kitchen.*",    // routing key
		ticketExchange, // exchange
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("bind queue: %w", err)
	}

	return &RabbitMQPublisher{conn: conn, channel: channel}, nil
}

func (p *RabbitMQPublisher) Close() {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}

// PublishTicket sends one ticket as a persistent JSON message.
func (p *RabbitMQPublisher) PublishTicket(ctx context.Context, msg TicketMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal ticket: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	routingKey := "kitchen." + strings.ToLower(string(msg.Station))
	return p.channel.PublishWithContext(ctx,
		ticketExchange, // exchange
		routingKey,     // routing key
		false,          // mandatory
		false,          // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			Priority:     uint8(msg.Priority), //nolint:gosec
			ContentType:  "application/json",
			Body:         body,
		})
}
