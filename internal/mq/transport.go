package mq

import (
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/attendance-bridge/internal/domain"
)

// heartbeatInterval — интервал heartbeat соединения с брокером.
const heartbeatInterval = 30 * time.Second

// Delivery — одно доставленное сообщение.
type Delivery struct {
	// Body — сырое тело сообщения.
	Body []byte

	// Headers — заголовки сообщения (в т.ч. "operation" и "model").
	Headers map[string]any

	// RoutingKey — ключ маршрутизации доставки; для очередей default
	// exchange совпадает с именем очереди.
	RoutingKey string

	// Tag — delivery tag брокера, используется для ack.
	Tag uint64
}

// MessageFunc — callback обработки сообщения. Вызывается до ack.
type MessageFunc func(d Delivery)

// Transport абстрагирует сетевой слой AMQP, чтобы state machine
// супервизора тестировалась без реального сокета.
type Transport interface {
	Dial(url string) (Conn, error)
}

// Conn — одно соединение с брокером.
type Conn interface {
	Channel() (Channel, error)
	Close() error
}

// Channel — один AMQP канал.
//
// Consume возвращает канал доставок; при обрыве соединения или
// закрытии канала брокером он закрывается.
type Channel interface {
	DeclareQueue(name string) error
	BindQueue(queue, exchange string, kind domain.ExchangeType) error
	Consume(queue string) (<-chan Delivery, error)
	Ack(tag uint64) error
}

// NewAMQPTransport создаёт production-транспорт поверх amqp091-go.
func NewAMQPTransport() Transport {
	return &amqpTransport{}
}

type amqpTransport struct{}

func (t *amqpTransport) Dial(url string) (Conn, error) {
	conn, err := amqp.DialConfig(url, amqp.Config{
		Heartbeat: heartbeatInterval,
		Locale:    "en_US",
	})
	if err != nil {
		return nil, err
	}
	return &amqpConn{conn: conn}, nil
}

type amqpConn struct {
	conn *amqp.Connection
}

func (c *amqpConn) Channel() (Channel, error) {
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, err
	}
	return &amqpChannel{ch: ch}, nil
}

func (c *amqpConn) Close() error {
	if c.conn.IsClosed() {
		return nil
	}
	return c.conn.Close()
}

type amqpChannel struct {
	ch *amqp.Channel
}

func (c *amqpChannel) DeclareQueue(name string) error {
	_, err := c.ch.QueueDeclare(
		name,  // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", name, err)
	}
	return nil
}

func (c *amqpChannel) BindQueue(queue, exchange string, kind domain.ExchangeType) error {
	err := c.ch.ExchangeDeclare(
		exchange,     // name
		string(kind), // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // args
	)
	if err != nil {
		return fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	if err := c.ch.QueueBind(queue, queue, exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s to %s: %w", queue, exchange, err)
	}
	return nil
}

func (c *amqpChannel) Consume(queue string) (<-chan Delivery, error) {
	deliveries, err := c.ch.Consume(
		queue, // queue
		"",    // consumer tag (auto-generated)
		false, // auto-ack (ack вручную, после callback'а)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return nil, fmt.Errorf("consume %s: %w", queue, err)
	}

	out := make(chan Delivery)
	go func() {
		defer close(out)
		for raw := range deliveries {
			out <- Delivery{
				Body:       raw.Body,
				Headers:    raw.Headers,
				RoutingKey: raw.RoutingKey,
				Tag:        raw.DeliveryTag,
			}
		}
	}()
	return out, nil
}

func (c *amqpChannel) Ack(tag uint64) error {
	return c.ch.Ack(tag, false)
}
