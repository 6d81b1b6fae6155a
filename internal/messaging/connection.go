package messaging

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// ExchangeOrderEvents is the fanout exchange order events are published to.
const ExchangeOrderEvents = "roomservice_orders_fanout"

// Connection wraps a RabbitMQ connection and channel with reconnect.
type Connection struct {
	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel
	url     string
}

// Dial connects to url, retrying a few times with a growing pause.
func Dial(url string) (*Connection, error) {
	c := &Connection{url: url}
	if err := c.connect(); err != nil {
		return nil, fmt.Errorf("establish initial connection: %w", err)
	}
	return c, nil
}

func (c *Connection) connect() error {
	const maxRetries = 5
	var err error

	for i := 0; i < maxRetries; i++ {
		c.conn, err = amqp091.Dial(c.url)
		if err == nil {
			c.channel, err = c.conn.Channel()
			if err == nil {
				if err = c.setupTopology(); err == nil {
					return nil
				}
				log.Printf("ERROR: rabbitmq topology: %v", err)
			}
			c.close()
		}

		if i < maxRetries-1 {
			wait := time.Duration(i+1) * 2 * time.Second
			log.Printf("WARN: rabbitmq connect failed, retrying in %v: %v", wait, err)
			time.Sleep(wait)
		}
	}
	return fmt.Errorf("connect to rabbitmq after %d attempts: %w", maxRetries, err)
}

func (c *Connection) setupTopology() error {
	err := c.channel.ExchangeDeclare(
		ExchangeOrderEvents,
		"fanout",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare %s exchange: %w", ExchangeOrderEvents, err)
	}
	return nil
}

// Channel returns a live channel, reconnecting when the connection dropped.
func (c *Connection) Channel() (*amqp091.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || c.conn.IsClosed() {
		c.close()
		if err := c.connect(); err != nil {
			return nil, err
		}
	}
	return c.channel, nil
}

func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.close()
}

func (c *Connection) close() error {
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}
