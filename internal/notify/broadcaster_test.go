// ABOUTME: Tests for the event broadcaster
// ABOUTME: Covers fan-out, slow-subscriber drops and context-based cleanup

package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	b := NewBroadcaster(nil)
	defer b.Close()

	ctx := context.Background()
	ch1, _ := b.Subscribe(ctx)
	ch2, _ := b.Subscribe(ctx)

	b.Publish(Event{Type: EventDataChanged})

	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case ev := <-ch:
			assert.Equal(t, EventDataChanged, ev.Type)
			assert.False(t, ev.At.IsZero())
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroadcaster(nil)
	defer b.Close()

	ch, subID := b.Subscribe(context.Background())
	b.Unsubscribe(subID)

	_, open := <-ch
	assert.False(t, open)

	// Double unsubscribe is a no-op
	b.Unsubscribe(subID)
}

func TestContextCancelUnsubscribes(t *testing.T) {
	b := NewBroadcaster(nil)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, _ := b.Subscribe(ctx)
	cancel()

	select {
	case _, open := <-ch:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("channel not closed after context cancel")
	}
}

func TestSlowSubscriberDropsEvents(t *testing.T) {
	b := NewBroadcaster(nil)
	defer b.Close()

	ch, _ := b.Subscribe(context.Background())

	// Fill the buffer and one more; the overflow event must be dropped
	// without blocking the publisher.
	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBufferSize+1; i++ {
			b.Publish(Event{Type: EventBackupCreated, Path: "p"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	received := 0
	for {
		select {
		case <-ch:
			received++
			continue
		default:
		}
		break
	}
	require.Equal(t, subscriberBufferSize, received)
}

func TestCloseShutsDownAllSubscribers(t *testing.T) {
	b := NewBroadcaster(nil)

	ch1, _ := b.Subscribe(context.Background())
	ch2, _ := b.Subscribe(context.Background())
	b.Close()

	_, open := <-ch1
	assert.False(t, open)
	_, open = <-ch2
	assert.False(t, open)
}
