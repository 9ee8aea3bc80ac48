package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/entregave/dispatch-backend/pkg/enums"
	"github.com/entregave/dispatch-backend/pkg/logger"
)

func newTestHub(buffer int) *Hub {
	return NewHub(logger.New(logger.Options{ServiceName: "test"}), buffer)
}

func TestBroadcastReachesAllSubscribers(t *testing.T) {
	hub := newTestHub(4)
	a := hub.Subscribe()
	b := hub.Subscribe()
	defer hub.Unsubscribe(a)
	defer hub.Unsubscribe(b)

	hub.Broadcast(context.Background(), Event{
		Type: enums.EventTypeNewOrder,
		Data: map[string]any{"order_id": 42},
	})

	for _, ch := range []chan []byte{a, b} {
		select {
		case payload := <-ch:
			var event struct {
				Type string         `json:"type"`
				Data map[string]any `json:"data"`
			}
			if err := json.Unmarshal(payload, &event); err != nil {
				t.Fatalf("unmarshal payload: %v", err)
			}
			if event.Type != "NEW_ORDER" {
				t.Fatalf("unexpected event type %q", event.Type)
			}
			if event.Data["order_id"] != float64(42) {
				t.Fatalf("unexpected data %+v", event.Data)
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestSaturatedSubscriberDoesNotBlockOthers(t *testing.T) {
	hub := newTestHub(1)
	slow := hub.Subscribe()
	fast := hub.Subscribe()
	defer hub.Unsubscribe(slow)
	defer hub.Unsubscribe(fast)

	ctx := context.Background()
	// Fill the slow subscriber's buffer, then keep broadcasting.
	hub.Broadcast(ctx, Event{Type: enums.EventTypeNewOrder})
	hub.Broadcast(ctx, Event{Type: enums.EventTypeOrderStatusUpdate})
	hub.Broadcast(ctx, Event{Type: enums.EventTypeOrderAssigned})

	// The fast subscriber drains as it goes; it must still get the first event
	// and at least one of the later ones was offered without deadlock.
	received := 0
	for {
		select {
		case <-fast:
			received++
		default:
			if received == 0 {
				t.Fatal("fast subscriber received nothing")
			}
			return
		}
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	hub := newTestHub(1)
	ch := hub.Subscribe()
	if hub.SubscriberCount() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", hub.SubscriberCount())
	}

	hub.Unsubscribe(ch)
	if hub.SubscriberCount() != 0 {
		t.Fatalf("expected 0 subscribers, got %d", hub.SubscriberCount())
	}
	if _, open := <-ch; open {
		t.Fatal("channel should be closed after unsubscribe")
	}

	// Double unsubscribe is a no-op.
	hub.Unsubscribe(ch)
}
