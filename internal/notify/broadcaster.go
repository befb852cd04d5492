// ABOUTME: In-memory fan-out broadcaster for data-changed and backup events
// ABOUTME: Presentation layers subscribe to refresh after successful mutations

package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// subscriberBufferSize is the channel buffer for each subscriber.
const subscriberBufferSize = 64

// EventType identifies what happened.
type EventType string

const (
	// EventDataChanged fires after every successful mutating operation.
	EventDataChanged EventType = "data_changed"
	// EventBackupCreated carries the path of a newly written backup file.
	EventBackupCreated EventType = "backup_created"
	// EventBackupRestored reports the outcome of a restore attempt.
	EventBackupRestored EventType = "backup_restored"
)

// Event is one notification delivered to subscribers.
type Event struct {
	Type EventType
	Path string // backup file path for backup events
	OK   bool   // restore outcome for EventBackupRestored
	At   time.Time
}

// Broadcaster provides in-memory pub/sub for core events. Subscribers
// receive every published event; there is no per-topic routing.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]chan Event
	logger      *slog.Logger
}

// NewBroadcaster creates a broadcaster. Pass nil logger for default.
func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		subscribers: make(map[string]chan Event),
		logger:      logger.With("component", "notify"),
	}
}

// Subscribe registers a subscriber and returns its channel and subscription
// ID. The subscription is automatically cleaned up when ctx is cancelled.
func (b *Broadcaster) Subscribe(ctx context.Context) (<-chan Event, string) {
	subID := uuid.New().String()
	ch := make(chan Event, subscriberBufferSize)

	b.mu.Lock()
	b.subscribers[subID] = ch
	b.mu.Unlock()

	b.logger.Debug("subscriber added", "sub_id", subID)

	go func() {
		<-ctx.Done()
		b.Unsubscribe(subID)
	}()

	return ch, subID
}

// Publish sends an event to all subscribers. Non-blocking: events are
// dropped for subscribers whose channels are full.
func (b *Broadcaster) Publish(event Event) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	b.mu.RLock()
	targets := make([]chan Event, 0, len(b.subscribers))
	for _, ch := range b.subscribers {
		targets = append(targets, ch)
	}
	b.mu.RUnlock()

	for _, ch := range targets {
		select {
		case ch <- event:
		default:
			b.logger.Debug("dropped event for slow subscriber", "type", event.Type)
		}
	}
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broadcaster) Unsubscribe(subID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, ok := b.subscribers[subID]
	if !ok {
		return
	}
	delete(b.subscribers, subID)
	close(ch)

	b.logger.Debug("subscriber removed", "sub_id", subID)
}

// Close shuts down the broadcaster and closes all subscriber channels.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for subID, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, subID)
	}
	b.logger.Debug("broadcaster closed")
}
