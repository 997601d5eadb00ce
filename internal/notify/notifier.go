// Package notify delivers out-of-band provisioning outcomes to the user who
// initiated them. Delivery is fire-and-forget: a failed notification never
// rolls back a provisioning outcome that has already been committed.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/erickcastrillo/diquis/internal/config"
	"github.com/erickcastrillo/diquis/internal/logger"
)

// Event kinds published on the notification channel.
const (
	EventTenantCreated      = "tenant.created"
	EventTenantCreateFailed = "tenant.create_failed"
	EventTenantUpdated      = "tenant.updated"
	EventTenantUpdateFailed = "tenant.update_failed"
)

// Notifier pushes tenant lifecycle outcomes to the initiating user.
type Notifier interface {
	NotifyTenantCreated(ctx context.Context, userID, tenantID uint, tenantName string)
	NotifyTenantCreationFailed(ctx context.Context, userID uint, message string)
	NotifyTenantUpdated(ctx context.Context, userID, tenantID uint, tenantName string)
	NotifyTenantUpdateFailed(ctx context.Context, userID uint, message string)
}

// Event is the JSON body published per notification.
type Event struct {
	Kind       string    `json:"kind"`
	UserID     uint      `json:"user_id"`
	TenantID   uint      `json:"tenant_id,omitempty"`
	TenantName string    `json:"tenant_name,omitempty"`
	Message    string    `json:"message,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// RedisNotifier publishes events on a per-user Redis channel; the push
// gateway subscribes and relays them to connected clients.
type RedisNotifier struct {
	client *redis.Client
}

// NewRedisNotifier connects a notifier to Redis.
func NewRedisNotifier(cfg config.RedisConfig) *RedisNotifier {
	return &RedisNotifier{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
	}
}

// Close releases the underlying connection.
func (n *RedisNotifier) Close() error {
	return n.client.Close()
}

// Channel returns the per-user notification channel name.
func Channel(userID uint) string {
	return fmt.Sprintf("notifications:%d", userID)
}

func (n *RedisNotifier) publish(ctx context.Context, event Event) {
	event.OccurredAt = time.Now().UTC()

	data, err := json.Marshal(event)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to marshal notification", zap.Error(err))
		return
	}
	if err := n.client.Publish(ctx, Channel(event.UserID), data).Err(); err != nil {
		// Fire-and-forget: log and move on.
		logger.FromContext(ctx).Warn("Failed to publish notification",
			zap.String("kind", event.Kind),
			zap.Uint("user_id", event.UserID),
			zap.Error(err))
	}
}

func (n *RedisNotifier) NotifyTenantCreated(ctx context.Context, userID, tenantID uint, tenantName string) {
	n.publish(ctx, Event{Kind: EventTenantCreated, UserID: userID, TenantID: tenantID, TenantName: tenantName})
}

func (n *RedisNotifier) NotifyTenantCreationFailed(ctx context.Context, userID uint, message string) {
	n.publish(ctx, Event{Kind: EventTenantCreateFailed, UserID: userID, Message: message})
}

func (n *RedisNotifier) NotifyTenantUpdated(ctx context.Context, userID, tenantID uint, tenantName string) {
	n.publish(ctx, Event{Kind: EventTenantUpdated, UserID: userID, TenantID: tenantID, TenantName: tenantName})
}

func (n *RedisNotifier) NotifyTenantUpdateFailed(ctx context.Context, userID uint, message string) {
	n.publish(ctx, Event{Kind: EventTenantUpdateFailed, UserID: userID, Message: message})
}

// LogNotifier writes notifications to the log only. Used in development and
// tests where no push backend is running.
type LogNotifier struct{}

func (LogNotifier) NotifyTenantCreated(ctx context.Context, userID, tenantID uint, tenantName string) {
	logger.FromContext(ctx).Info("Tenant created notification",
		zap.Uint("user_id", userID), zap.Uint("tenant_id", tenantID), zap.String("tenant_name", tenantName))
}

func (LogNotifier) NotifyTenantCreationFailed(ctx context.Context, userID uint, message string) {
	logger.FromContext(ctx).Info("Tenant creation failed notification",
		zap.Uint("user_id", userID), zap.String("message", message))
}

func (LogNotifier) NotifyTenantUpdated(ctx context.Context, userID, tenantID uint, tenantName string) {
	logger.FromContext(ctx).Info("Tenant updated notification",
		zap.Uint("user_id", userID), zap.Uint("tenant_id", tenantID), zap.String("tenant_name", tenantName))
}

func (LogNotifier) NotifyTenantUpdateFailed(ctx context.Context, userID uint, message string) {
	logger.FromContext(ctx).Info("Tenant update failed notification",
		zap.Uint("user_id", userID), zap.String("message", message))
}
