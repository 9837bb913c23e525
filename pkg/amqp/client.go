package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/wecr8/damp-backend/pkg/config"
	"github.com/wecr8/damp-backend/pkg/logger"
	"go.uber.org/multierr"
)

const publishTimeout = 3 * time.Second

var errNotInitialized = errors.New("amqp client not initialized")

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Client publishes to a durable topic exchange.
type Client struct {
	conn     *amqp.Connection
	ch       channel
	exchange string
}

// NewClient dials the broker, opens a channel and declares the exchange.
func NewClient(ctx context.Context, cfg config.AMQPConfig, logg *logger.Logger) (*Client, error) {
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		return nil, errors.New("amqp url is required")
	}
	exchange := strings.TrimSpace(cfg.Exchange)
	if exchange == "" {
		return nil, errors.New("amqp exchange is required")
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, multierr.Append(fmt.Errorf("declare exchange %s: %w", exchange, err), multierr.Combine(ch.Close(), conn.Close()))
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "amqp_exchange", exchange), "amqp publisher ready")
	}
	return &Client{conn: conn, ch: ch, exchange: exchange}, nil
}

// NewWithChannel wraps an already-open channel.
func NewWithChannel(ch channel, exchange string) *Client {
	return &Client{ch: ch, exchange: exchange}
}

func (c *Client) Exchange() string {
	if c == nil {
		return ""
	}
	return c.exchange
}

// Publish sends a persistent JSON message routed by key.
func (c *Client) Publish(ctx context.Context, key, messageID string, body []byte, headers map[string]string) error {
	if c == nil || c.ch == nil {
		return errNotInitialized
	}

	table := amqp.Table{}
	for k, v := range headers {
		table[k] = v
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return c.ch.PublishWithContext(pubCtx, c.exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    messageID,
		Timestamp:    time.Now().UTC(),
		Headers:      table,
		Body:         body,
	})
}

func (c *Client) Ping(context.Context) error {
	if c == nil || c.ch == nil {
		return errNotInitialized
	}
	if c.conn != nil && c.conn.IsClosed() {
		return errors.New("amqp connection closed")
	}
	return nil
}

func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	var err error
	if c.ch != nil {
		err = multierr.Append(err, c.ch.Close())
	}
	if c.conn != nil {
		err = multierr.Append(err, c.conn.Close())
	}
	return err
}
