package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultCloseTimeout = 5 * time.Second

// RecipeCacheAction says what happened to a cached recipe
type RecipeCacheAction string

const (
	RecipeCacheActionEvicted       RecipeCacheAction = "evicted"
	RecipeCacheActionInvalidateAll RecipeCacheAction = "invalidate_all"
)

// RecipeCacheMessage is broadcast so every instance drops its local copy
type RecipeCacheMessage struct {
	Action    RecipeCacheAction `json:"action"`
	ProductID string            `json:"product_id,omitempty"`
	Source    string            `json:"source"`
	Timestamp int64             `json:"timestamp"`
}

// RecipeCacheInvalidator broadcasts recipe evictions over redis Pub/Sub
type RecipeCacheInvalidator struct {
	client    redis.UniversalClient
	channel   string
	source    string
	logger    *zap.Logger
	cancelFn  context.CancelFunc
	doneCh    chan struct{}
	doneOnce  sync.Once
	mu        sync.Mutex
	isRunning bool
}

// NewRecipeCacheInvalidator creates an invalidator on an existing client.
// The caller retains ownership of the client.
func NewRecipeCacheInvalidator(client redis.UniversalClient, channel string, logger *zap.Logger) *RecipeCacheInvalidator {
	if channel == "" {
		channel = DefaultRecipeCacheConfig().Channel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecipeCacheInvalidator{
		client:  client,
		channel: channel,
		source:  uuid.NewString(),
		logger:  logger,
		doneCh:  make(chan struct{}),
	}
}

// Source identifies this instance in published messages
func (i *RecipeCacheInvalidator) Source() string {
	return i.source
}

// Publish sends a message to every subscriber
func (i *RecipeCacheInvalidator) Publish(ctx context.Context, msg RecipeCacheMessage) error {
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixNano()
	}
	msg.Source = i.source

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if err := i.client.Publish(ctx, i.channel, data).Err(); err != nil {
		i.logger.Error("Failed to publish recipe cache message",
			zap.String("channel", i.channel),
			zap.Error(err))
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// PublishEvicted announces that a product's recipe changed
func (i *RecipeCacheInvalidator) PublishEvicted(ctx context.Context, productID uuid.UUID) error {
	return i.Publish(ctx, RecipeCacheMessage{
		Action:    RecipeCacheActionEvicted,
		ProductID: productID.String(),
	})
}

// PublishInvalidateAll announces that every recipe must be reloaded
func (i *RecipeCacheInvalidator) PublishInvalidateAll(ctx context.Context) error {
	return i.Publish(ctx, RecipeCacheMessage{Action: RecipeCacheActionInvalidateAll})
}

// Subscribe blocks delivering messages to callback until ctx is cancelled
// or Close is called
func (i *RecipeCacheInvalidator) Subscribe(ctx context.Context, callback func(RecipeCacheMessage)) error {
	i.mu.Lock()
	if i.isRunning {
		i.mu.Unlock()
		return fmt.Errorf("subscription already running")
	}
	i.isRunning = true
	subCtx, cancel := context.WithCancel(ctx)
	i.cancelFn = cancel
	i.mu.Unlock()

	defer func() {
		i.mu.Lock()
		i.isRunning = false
		i.mu.Unlock()
		i.markDone()
	}()

	pubsub := i.client.Subscribe(subCtx, i.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(subCtx); err != nil {
		return fmt.Errorf("failed to subscribe to channel: %w", err)
	}
	i.logger.Info("Subscribed to recipe cache channel", zap.String("channel", i.channel))

	ch := pubsub.Channel()
	for {
		select {
		case <-subCtx.Done():
			i.logger.Info("Recipe cache subscription stopped")
			return subCtx.Err()
		case msg, ok := <-ch:
			if !ok {
				i.logger.Warn("Recipe cache channel closed")
				return nil
			}

			var m RecipeCacheMessage
			if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
				i.logger.Error("Failed to unmarshal recipe cache message",
					zap.String("payload", msg.Payload),
					zap.Error(err))
				continue
			}
			i.dispatch(callback, m)
		}
	}
}

func (i *RecipeCacheInvalidator) dispatch(callback func(RecipeCacheMessage), m RecipeCacheMessage) {
	defer func() {
		if r := recover(); r != nil {
			i.logger.Error("Panic in recipe cache callback", zap.Any("panic", r))
		}
	}()
	callback(m)
}

func (i *RecipeCacheInvalidator) markDone() {
	i.doneOnce.Do(func() {
		close(i.doneCh)
	})
}

// Close stops a running subscription and waits for it to exit
func (i *RecipeCacheInvalidator) Close() error {
	i.mu.Lock()
	cancelFn := i.cancelFn
	i.mu.Unlock()

	if cancelFn != nil {
		cancelFn()
		select {
		case <-i.doneCh:
		case <-time.After(defaultCloseTimeout):
			i.logger.Warn("Timeout waiting for recipe cache subscription to stop")
		}
	}
	return nil
}
