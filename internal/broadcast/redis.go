// Package broadcast republishes engine events on a Redis pub/sub channel
// so that processes other than the server can follow the engine.
package broadcast

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/gravitas-games/hexworld/pkg/engine"
)

const (
	busID      = "broadcast:redis"
	queueSize  = 1024
	publishTTL = 2 * time.Second
)

// Publisher is the part of a Redis client the publisher needs.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisBroadcaster forwards every event on a bus to a Redis channel. The bus
// handler only enqueues; publishing runs on its own goroutine and events are
// dropped when Redis cannot keep up.
type RedisBroadcaster struct {
	client  Publisher
	channel string
	logger  *log.Logger

	queue  chan []byte
	wg     sync.WaitGroup
	once   sync.Once
	mu     sync.Mutex
	closed bool

	dropped uint64
}

// New creates a broadcaster publishing to channel.
func New(client Publisher, channel string, logger *log.Logger) *RedisBroadcaster {
	if logger == nil {
		logger = log.New(os.Stderr, "[broadcast] ", log.LstdFlags)
	}
	return &RedisBroadcaster{
		client:  client,
		channel: channel,
		logger:  logger,
		queue:   make(chan []byte, queueSize),
	}
}

// Attach subscribes to bus and starts the publishing goroutine.
func (b *RedisBroadcaster) Attach(bus engine.EventBus) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.loop()
	}()
	bus.Subscribe(busID, b.Enqueue)
}

// Encode renders an event the way it is published.
func Encode(ev engine.Event) ([]byte, error) {
	return json.Marshal(ev)
}

// Enqueue queues one event for publishing without blocking.
func (b *RedisBroadcaster) Enqueue(ev engine.Event) {
	data, err := Encode(ev)
	if err != nil {
		b.logger.Printf("encode %s: %v", ev.Type, err)
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	select {
	case b.queue <- data:
	default:
		b.dropped++
		if b.dropped == 1 || b.dropped%1000 == 0 {
			b.logger.Printf("publish queue full, %d events dropped", b.dropped)
		}
	}
}

// Dropped reports how many events were discarded because the queue was full.
func (b *RedisBroadcaster) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

func (b *RedisBroadcaster) loop() {
	for data := range b.queue {
		ctx, cancel := context.WithTimeout(context.Background(), publishTTL)
		if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
			b.logger.Printf("publish to %s: %v", b.channel, err)
		}
		cancel()
	}
}

// Close detaches from bus and waits for queued events to be published.
func (b *RedisBroadcaster) Close(bus engine.EventBus) {
	b.once.Do(func() {
		if bus != nil {
			bus.Unsubscribe(busID)
		}
		b.mu.Lock()
		b.closed = true
		close(b.queue)
		b.mu.Unlock()
		b.wg.Wait()
	})
}
