package push

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/entregave/dispatch-backend/pkg/config"
	"github.com/entregave/dispatch-backend/pkg/logger"
)

func TestNewSender_WithoutKeyIsNoop(t *testing.T) {
	sender := NewSender(config.PushConfig{}, nil)
	if _, ok := sender.(nopSender); !ok {
		t.Fatalf("expected no-op sender, got %T", sender)
	}
	// Must not panic without a configured endpoint.
	sender.Notify(context.Background(), "token", "title", "body", nil)
}

func TestHTTPSender_DeliversPayload(t *testing.T) {
	var received map[string]any
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &received)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := NewSender(config.PushConfig{ServerKey: "srv-key", Endpoint: server.URL},
		logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	sender.Notify(context.Background(), "device-1", "Nuevo pedido", "Pedido #9",
		map[string]string{"order_id": "9"})

	if auth != "key=srv-key" {
		t.Fatalf("unexpected auth header %q", auth)
	}
	if received["to"] != "device-1" {
		t.Fatalf("expected token device-1, got %v", received["to"])
	}
	notification, _ := received["notification"].(map[string]any)
	if notification["title"] != "Nuevo pedido" {
		t.Fatalf("unexpected notification %v", notification)
	}
}

func TestHTTPSender_SwallowsFailures(t *testing.T) {
	sender := NewSender(config.PushConfig{ServerKey: "srv-key", Endpoint: "http://127.0.0.1:1"},
		logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	// Connection refused must not surface to the caller.
	sender.Notify(context.Background(), "device-1", "t", "b", nil)
}
