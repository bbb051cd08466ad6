package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/jalvirtual/acars-dispatch/environments"
	"github.com/jalvirtual/acars-dispatch/internal/domain"
	"github.com/jalvirtual/acars-dispatch/internal/repository"
	"github.com/jalvirtual/acars-dispatch/pkg/logger"
)

const keyPrefix = "acars:"

// Client stores the message log as a single JSON document in Valkey/Redis.
type Client struct {
	client valkey.Client
	key    string
}

func NewRedisClient(cfg environments.RedisConfig, namespace string) (*Client, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)},
		Password:    cfg.Password,
		SelectDB:    cfg.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Valkey client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Infof("Connected to Redis (via Valkey client)")

	return NewWithClient(client, namespace), nil
}

// NewWithClient wraps an existing connection.
func NewWithClient(client valkey.Client, namespace string) *Client {
	if namespace == "" {
		namespace = repository.Namespace
	}
	return &Client{client: client, key: keyPrefix + namespace}
}

func (c *Client) LoadMessages(ctx context.Context) ([]domain.ACARSMessage, error) {
	result := c.client.Do(ctx, c.client.B().Get().Key(c.key).Build())
	if err := result.Error(); err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}

	data, err := result.AsBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to read stored messages: %w", err)
	}

	messages, dropped, err := repository.DecodeMessages(data)
	if err != nil {
		return nil, err
	}
	if dropped > 0 {
		logger.Warnf("Discarded %d unreadable records from %s", dropped, c.key)
	}

	return messages, nil
}

// SaveMessages overwrites the stored document. No TTL is set; the log is
// durable until cleared.
func (c *Client) SaveMessages(ctx context.Context, messages []domain.ACARSMessage) error {
	payload, err := repository.EncodeMessages(messages)
	if err != nil {
		return err
	}

	err = c.client.Do(ctx, c.client.B().Set().Key(c.key).Value(valkey.BinaryString(payload)).Build()).Error()
	if err != nil {
		return fmt.Errorf("failed to save messages: %w", err)
	}

	logger.Debugf("Saved %d messages to %s", len(messages), c.key)

	return nil
}

func (c *Client) Key() string {
	return c.key
}

func (c *Client) Close() error {
	c.client.Close()
	return nil
}

func (c *Client) PingContext(ctx context.Context) error {
	return c.client.Do(ctx, c.client.B().Ping().Build()).Error()
}
