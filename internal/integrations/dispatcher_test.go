package integrations

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/entregave/dispatch-backend/pkg/db/models"
	"github.com/entregave/dispatch-backend/pkg/enums"
	"github.com/entregave/dispatch-backend/pkg/logger"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newDispatcherDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.Order{}, &models.Merchant{}, &models.IntegrationConfig{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func seedOrder(t *testing.T, db *gorm.DB, merchantID string, status enums.OrderStatus, driverID *string) *models.Order {
	t.Helper()
	external := "ext-001"
	order := &models.Order{
		Description:     "docs envelope",
		DeliveryAddress: "Av. Principal 1",
		PickupLat:       10.49,
		PickupLng:       -66.90,
		DropoffLat:      10.50,
		DropoffLng:      -66.91,
		VehicleType:     enums.VehicleTypeMoto,
		MerchantID:      merchantID,
		Status:          status,
		DriverID:        driverID,
		CreatedBy:       "ops",
		ExternalID:      &external,
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order
}

func seedIntegration(t *testing.T, db *gorm.DB, prefix string, hooks map[string]webhookEntry) {
	t.Helper()
	encoded, err := json.Marshal(hooks)
	if err != nil {
		t.Fatalf("marshal hooks: %v", err)
	}
	cfg := &models.IntegrationConfig{
		Name:             "partner",
		Active:           true,
		ExternalIDPrefix: prefix,
		Webhooks:         encoded,
	}
	if err := db.Create(cfg).Error; err != nil {
		t.Fatalf("seed integration: %v", err)
	}
}

func newTestDispatcher(t *testing.T, db *gorm.DB, client *http.Client) *Dispatcher {
	t.Helper()
	dispatcher, err := NewDispatcher(DispatcherParams{
		Logger:     testLogger(),
		DB:         db,
		Repo:       NewRepository(db),
		HTTPClient: client,
		Now:        func() time.Time { return time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}
	return dispatcher
}

func TestProcess_DeliversRenderedTemplate(t *testing.T) {
	db := newDispatcherDB(t)
	driver := "drv-9"
	order := seedOrder(t, db, "mrc-77", enums.OrderStatusAccepted, &driver)

	var mu sync.Mutex
	var received []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		received = body
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	template := `{"order":"{{pedido_id}}","state":"{{estado}}","courier":"{{repartidor_id}}","battery":"{{bateria_porcentaje}}","at":"{{timestamp}}"}`
	seedIntegration(t, db, "mrc-", map[string]webhookEntry{
		enums.EventTypeOrderStatusUpdate.String(): {URL: server.URL, Template: template},
	})

	dispatcher := newTestDispatcher(t, db, server.Client())
	dispatcher.process(context.Background(), OutboundEvent{
		Type:    enums.EventTypeOrderStatusUpdate,
		OrderID: &order.ID,
	})

	mu.Lock()
	defer mu.Unlock()
	if received == nil {
		t.Fatal("expected a webhook delivery")
	}
	var payload map[string]any
	if err := json.Unmarshal(received, &payload); err != nil {
		t.Fatalf("delivered body is not valid JSON: %v\n%s", err, received)
	}
	if payload["order"] != float64(order.ID) {
		t.Fatalf("expected order id %d, got %v", order.ID, payload["order"])
	}
	if payload["state"] != "aceptado" {
		t.Fatalf("expected state aceptado, got %v", payload["state"])
	}
	if payload["courier"] != "drv-9" {
		t.Fatalf("expected courier drv-9, got %v", payload["courier"])
	}
	if payload["battery"] != nil {
		t.Fatalf("expected null battery, got %v", payload["battery"])
	}
	if payload["at"] != "2026-09-01T12:00:00Z" {
		t.Fatalf("unexpected timestamp %v", payload["at"])
	}
}

func TestProcess_NoMatchingIntegrationIsSilent(t *testing.T) {
	db := newDispatcherDB(t)
	order := seedOrder(t, db, "mrc-77", enums.OrderStatusPending, nil)
	seedIntegration(t, db, "other-", map[string]webhookEntry{
		enums.EventTypeNewOrder.String(): {URL: "http://127.0.0.1:1", Template: "{}"},
	})

	dispatcher := newTestDispatcher(t, db, &http.Client{Timeout: time.Second})
	dispatcher.process(context.Background(), OutboundEvent{
		Type:    enums.EventTypeNewOrder,
		OrderID: &order.ID,
	})
}

func TestProcess_DriverEventResolvesActiveOrder(t *testing.T) {
	db := newDispatcherDB(t)
	driver := "drv-3"
	seedOrder(t, db, "mrc-1", enums.OrderStatusDelivered, &driver)
	active := seedOrder(t, db, "mrc-1", enums.OrderStatusDelivering, &driver)

	var mu sync.Mutex
	var received []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		received = body
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	seedIntegration(t, db, "mrc-", map[string]webhookEntry{
		enums.EventTypeDriverLocationUpdate.String(): {
			URL:      server.URL,
			Template: `{"order":"{{pedido_id}}","lat":"{{latitud}}","lng":"{{longitud}}"}`,
		},
	})

	lat, lng := 10.5, -66.9
	dispatcher := newTestDispatcher(t, db, server.Client())
	dispatcher.process(context.Background(), OutboundEvent{
		Type:     enums.EventTypeDriverLocationUpdate,
		DriverID: &driver,
		Lat:      &lat,
		Lng:      &lng,
	})

	mu.Lock()
	defer mu.Unlock()
	if received == nil {
		t.Fatal("expected a webhook delivery")
	}
	var payload map[string]any
	if err := json.Unmarshal(received, &payload); err != nil {
		t.Fatalf("delivered body is not valid JSON: %v", err)
	}
	if payload["order"] != float64(active.ID) {
		t.Fatalf("expected active order %d, got %v", active.ID, payload["order"])
	}
	if payload["lat"] != 10.5 {
		t.Fatalf("expected lat 10.5, got %v", payload["lat"])
	}
}

func TestDispatch_FullQueueDropsEvent(t *testing.T) {
	db := newDispatcherDB(t)
	dispatcher, err := NewDispatcher(DispatcherParams{
		Logger:    testLogger(),
		DB:        db,
		Repo:      NewRepository(db),
		QueueSize: 1,
	})
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}

	ctx := context.Background()
	dispatcher.Dispatch(ctx, OutboundEvent{Type: enums.EventTypeNewOrder})
	dispatcher.Dispatch(ctx, OutboundEvent{Type: enums.EventTypeNewOrder})
	if len(dispatcher.queue) != 1 {
		t.Fatalf("expected queue length 1, got %d", len(dispatcher.queue))
	}
}

func TestRenderTemplate_EncodesNullAndNumbers(t *testing.T) {
	out := renderTemplate(`{"a":"{{pedido_id}}","b":"{{id_externo}}"}`, map[string]any{
		"pedido_id":  int64(12),
		"id_externo": (*string)(nil),
	})
	var payload map[string]any
	if err := json.Unmarshal(out, &payload); err != nil {
		t.Fatalf("rendered output is not valid JSON: %v\n%s", err, out)
	}
	if payload["a"] != float64(12) {
		t.Fatalf("expected 12, got %v", payload["a"])
	}
	if payload["b"] != nil {
		t.Fatalf("expected null, got %v", payload["b"])
	}
}
