package notify

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/BillFoxHQ/BillFox/internal/pkg/cache"
)

const popTimeout = 5 * time.Second

// Handler consumes one notification popped off the transition queue.
type Handler func(ctx context.Context, n Notification) error

// Dispatcher drains the transition queue in the background and hands each
// notification to the configured handler. Handler failures are logged and the
// notification is dropped; delivery is best-effort by contract.
type Dispatcher struct {
	client  *redis.Client
	handler Handler
	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewDispatcher creates a dispatcher on the shared cache client.
func NewDispatcher(handler Handler) *Dispatcher {
	return &Dispatcher{
		client:  cache.GetClient(),
		handler: handler,
		stopCh:  make(chan struct{}),
	}
}

// Start starts the background consumer.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return
	}
	d.running = true
	log.Info("[Notify] Starting transition dispatcher")

	d.wg.Add(1)
	go d.loop()
}

// Stop stops the consumer and waits for it to drain.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return
	}
	log.Info("[Notify] Stopping transition dispatcher...")
	close(d.stopCh)
	d.running = false
	d.wg.Wait()
	log.Info("[Notify] Transition dispatcher stopped")
}

func (d *Dispatcher) loop() {
	defer d.wg.Done()
	ctx := context.Background()

	for {
		select {
		case <-d.stopCh:
			return
		default:
		}

		res, err := d.client.BLPop(ctx, popTimeout, TransitionQueueKey).Result()
		if err != nil {
			if err != redis.Nil {
				log.Errorf("[Notify] BLPop error: %v", err)
				time.Sleep(time.Second)
			}
			continue
		}
		if len(res) < 2 {
			continue
		}

		var n Notification
		if err := json.Unmarshal([]byte(res[1]), &n); err != nil {
			log.Errorf("[Notify] Dropping malformed notification: %v", err)
			continue
		}
		if err := d.handler(ctx, n); err != nil {
			log.Errorf("[Notify] Handler failed for event %s: %v", n.EventUUID, err)
		}
	}
}

// LogHandler is the default handler: it just records the transition.
func LogHandler(_ context.Context, n Notification) error {
	log.Infof("[Notify] Effective transition %s for subscription %s (bundle %s, v%d)",
		n.TransitionType, n.SubscriptionUUID, n.BundleUUID, n.ActiveVersion)
	return nil
}
