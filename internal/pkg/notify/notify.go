package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/BillFoxHQ/BillFox/internal/pkg/cache"
)

const (
	// Redis keys
	TransitionChannel  = "billfox:transitions"
	TransitionQueueKey = "transition_queue"
)

// Notification describes one effective subscription transition produced by a
// committed repair. Delivery is best-effort; consumers must tolerate loss.
type Notification struct {
	BundleUUID       string    `json:"bundle_uuid"`
	SubscriptionUUID string    `json:"subscription_uuid"`
	EventUUID        string    `json:"event_uuid"`
	TransitionType   string    `json:"transition_type"`
	EffectiveDate    time.Time `json:"effective_date"`
	ActiveVersion    int64     `json:"active_version"`
	EmittedAt        time.Time `json:"emitted_at"`
}

// Publisher emits effective-transition notifications.
type Publisher interface {
	PublishTransition(ctx context.Context, n Notification) error
}

// RedisPublisher fans a notification out over Redis: pushed onto a queue for
// durable asynchronous consumers and published on a channel for live ones.
type RedisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher creates a publisher on the shared cache client.
func NewRedisPublisher() *RedisPublisher {
	return &RedisPublisher{client: cache.GetClient()}
}

func (p *RedisPublisher) PublishTransition(ctx context.Context, n Notification) error {
	if n.EmittedAt.IsZero() {
		n.EmittedAt = time.Now()
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}

	pipe := p.client.TxPipeline()
	pipe.RPush(ctx, TransitionQueueKey, payload)
	pipe.Publish(ctx, TransitionChannel, payload)
	_, err = pipe.Exec(ctx)
	return err
}
