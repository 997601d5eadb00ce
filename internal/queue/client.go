package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/erickcastrillo/diquis/internal/config"
)

// Dispatcher enqueues tenant workflow jobs: fire-and-forget, at-least-once,
// retried by the queue's own backoff policy when the handler errors.
type Dispatcher interface {
	EnqueueTenantProvision(ctx context.Context, payload TenantProvisionPayload) (string, error)
	EnqueueTenantUpdate(ctx context.Context, payload TenantUpdatePayload) (string, error)
}

// Client is the asynq-backed Dispatcher.
type Client struct {
	client *asynq.Client
}

// NewClient connects a Dispatcher to Redis.
func NewClient(cfg config.RedisConfig) *Client {
	return &Client{
		client: asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
	}
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueTenantProvision queues a tenant creation run.
func (c *Client) EnqueueTenantProvision(ctx context.Context, payload TenantProvisionPayload) (string, error) {
	return c.enqueue(ctx, TypeTenantProvision, payload,
		asynq.Queue(QueueProvisioning), asynq.MaxRetry(3), asynq.Timeout(10*time.Minute))
}

// EnqueueTenantUpdate queues a tenant update run.
func (c *Client) EnqueueTenantUpdate(ctx context.Context, payload TenantUpdatePayload) (string, error) {
	return c.enqueue(ctx, TypeTenantUpdate, payload,
		asynq.Queue(QueueProvisioning), asynq.MaxRetry(3), asynq.Timeout(5*time.Minute))
}

func (c *Client) enqueue(ctx context.Context, taskType string, payload interface{}, opts ...asynq.Option) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	info, err := c.client.EnqueueContext(ctx, asynq.NewTask(taskType, data), opts...)
	if err != nil {
		return "", fmt.Errorf("enqueue %s: %w", taskType, err)
	}
	return info.ID, nil
}
