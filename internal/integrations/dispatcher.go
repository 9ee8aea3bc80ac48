package integrations

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/entregave/dispatch-backend/internal/syslog"
	"github.com/entregave/dispatch-backend/pkg/db/models"
	"github.com/entregave/dispatch-backend/pkg/enums"
	pkgerrors "github.com/entregave/dispatch-backend/pkg/errors"
	"github.com/entregave/dispatch-backend/pkg/logger"
	"github.com/entregave/dispatch-backend/pkg/metrics"
	"gorm.io/gorm"
)

const defaultDeliveryTimeout = 10 * time.Second

// OutboundEvent is one partner notification awaiting delivery. Events carry
// ids rather than snapshots; the consumer re-reads current row state.
type OutboundEvent struct {
	Type       enums.EventType
	OrderID    *int64
	DriverID   *string
	Lat        *float64
	Lng        *float64
	BatteryPct *float64
}

// Notifier is the enqueue-only surface handed to other services.
type Notifier interface {
	Dispatch(ctx context.Context, event OutboundEvent)
}

// webhookEntry is one endpoint definition inside an integration's
// webhooks document, keyed by event type name.
type webhookEntry struct {
	URL      string `json:"url"`
	Template string `json:"template"`
}

// DispatcherParams wire the webhook dispatcher dependencies. DB is the
// dispatcher's own handle; it never shares the request transaction.
type DispatcherParams struct {
	Logger     *logger.Logger
	DB         *gorm.DB
	Repo       Repository
	Recorder   syslog.Recorder
	Metrics    *metrics.WebhookMetrics
	HTTPClient *http.Client
	QueueSize  int
	Timeout    time.Duration
	Now        func() time.Time
}

// Dispatcher delivers order events to partner webhooks through a buffered
// in-process queue. Enqueueing never blocks the caller; deliveries are
// fire-and-forget with no retry.
type Dispatcher struct {
	logg     *logger.Logger
	db       *gorm.DB
	repo     Repository
	recorder syslog.Recorder
	metrics  *metrics.WebhookMetrics
	client   *http.Client
	queue    chan OutboundEvent
	now      func() time.Time
}

// NewDispatcher validates params and builds the dispatcher.
func NewDispatcher(params DispatcherParams) (*Dispatcher, error) {
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "webhook dispatcher requires a logger")
	}
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "webhook dispatcher requires a database handle")
	}
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "webhook dispatcher requires a repository")
	}
	queueSize := params.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = defaultDeliveryTimeout
	}
	client := params.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Dispatcher{
		logg:     params.Logger,
		db:       params.DB,
		repo:     params.Repo,
		recorder: params.Recorder,
		metrics:  params.Metrics,
		client:   client,
		queue:    make(chan OutboundEvent, queueSize),
		now:      now,
	}, nil
}

// Dispatch enqueues an event for background delivery. A full queue drops
// the event rather than blocking the request path.
func (d *Dispatcher) Dispatch(ctx context.Context, event OutboundEvent) {
	select {
	case d.queue <- event:
	default:
		d.metrics.IncSkipped(event.Type.String())
		d.logg.Warn(ctx, fmt.Sprintf("webhook queue full, dropping %s event", event.Type))
	}
}

// Run consumes the queue until ctx is canceled. Intended to be started once
// as a goroutine from the process entrypoint.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-d.queue:
			d.process(ctx, event)
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, event OutboundEvent) {
	order, err := d.resolveOrder(ctx, event)
	if err != nil {
		d.metrics.IncFailed(event.Type.String())
		d.logg.Error(ctx, "resolve order for webhook event", err)
		return
	}
	if order == nil {
		d.metrics.IncSkipped(event.Type.String())
		return
	}

	entry, err := d.matchWebhook(ctx, order.MerchantID, event.Type)
	if err != nil {
		d.metrics.IncFailed(event.Type.String())
		d.logg.Error(ctx, "match integration for webhook event", err)
		return
	}
	if entry == nil {
		d.metrics.IncSkipped(event.Type.String())
		return
	}

	body := renderTemplate(entry.Template, d.tokenValues(order, event))
	d.deliver(ctx, event.Type, entry.URL, body, order.ID)
}

// resolveOrder loads the order an event refers to. Driver location events
// carry no order id; they attach to the driver's latest non-terminal order,
// returning nil when the driver has none.
func (d *Dispatcher) resolveOrder(ctx context.Context, event OutboundEvent) (*models.Order, error) {
	if event.OrderID != nil {
		var order models.Order
		if err := d.db.WithContext(ctx).Where("id = ?", *event.OrderID).First(&order).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, nil
			}
			return nil, err
		}
		return &order, nil
	}
	if event.DriverID == nil {
		return nil, nil
	}
	var order models.Order
	err := d.db.WithContext(ctx).
		Where("driver_id = ? AND status NOT IN ?", *event.DriverID,
			[]enums.OrderStatus{enums.OrderStatusDelivered, enums.OrderStatusCanceled}).
		Order("created_at DESC").
		First(&order).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// matchWebhook finds the first active integration whose id prefix matches
// the merchant and returns its endpoint for the event type, if configured.
func (d *Dispatcher) matchWebhook(ctx context.Context, merchantID string, eventType enums.EventType) (*webhookEntry, error) {
	configs, err := d.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	for _, cfg := range configs {
		if cfg.ExternalIDPrefix == "" || !strings.HasPrefix(merchantID, cfg.ExternalIDPrefix) {
			continue
		}
		var hooks map[string]webhookEntry
		if err := json.Unmarshal(cfg.Webhooks, &hooks); err != nil {
			d.logg.Error(ctx, fmt.Sprintf("invalid webhooks document for integration %q", cfg.Name), err)
			continue
		}
		entry, ok := hooks[eventType.String()]
		if !ok || entry.URL == "" {
			return nil, nil
		}
		return &entry, nil
	}
	return nil, nil
}

// tokenValues builds the template substitution table. Every value is
// JSON-encoded so nulls and numbers render without quoting artifacts.
func (d *Dispatcher) tokenValues(order *models.Order, event OutboundEvent) map[string]any {
	driverID := order.DriverID
	if event.DriverID != nil {
		driverID = event.DriverID
	}
	var estado any = order.Status.String()
	return map[string]any{
		"id_externo":         order.ExternalID,
		"pedido_id":          order.ID,
		"id_comercio":        order.MerchantID,
		"estado":             estado,
		"timestamp":          d.now().UTC().Format(time.RFC3339),
		"repartidor_id":      driverID,
		"latitud":            event.Lat,
		"longitud":           event.Lng,
		"bateria_porcentaje": event.BatteryPct,
	}
}

// renderTemplate replaces quoted "{{token}}" placeholders with JSON-encoded
// values, so numeric and null substitutions produce valid JSON.
func renderTemplate(template string, values map[string]any) []byte {
	rendered := template
	for token, value := range values {
		placeholder := fmt.Sprintf("%q", "{{"+token+"}}")
		encoded, err := json.Marshal(value)
		if err != nil {
			encoded = []byte("null")
		}
		rendered = strings.ReplaceAll(rendered, placeholder, string(encoded))
	}
	return []byte(rendered)
}

func (d *Dispatcher) deliver(ctx context.Context, eventType enums.EventType, url string, body []byte, orderID int64) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		d.metrics.IncFailed(eventType.String())
		d.logg.Error(ctx, "build webhook request", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	started := d.now()
	resp, err := d.client.Do(req)
	d.metrics.ObserveDelivery(eventType.String(), time.Since(started))
	if err != nil {
		d.metrics.IncFailed(eventType.String())
		d.recordDelivery(ctx, enums.LogLevelError, "webhook_failed", eventType, url, orderID, err.Error())
		return
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		d.metrics.IncFailed(eventType.String())
		d.recordDelivery(ctx, enums.LogLevelError, "webhook_failed", eventType, url, orderID,
			fmt.Sprintf("received status %d", resp.StatusCode))
		return
	}
	d.metrics.IncDelivered(eventType.String())
	d.recordDelivery(ctx, enums.LogLevelInfo, "webhook_delivered", eventType, url, orderID, "")
}

func (d *Dispatcher) recordDelivery(ctx context.Context, level enums.LogLevel, action string, eventType enums.EventType, url string, orderID int64, reason string) {
	if d.recorder == nil {
		return
	}
	details := map[string]any{
		"event_type": eventType.String(),
		"url":        url,
		"order_id":   orderID,
	}
	if reason != "" {
		details["reason"] = reason
	}
	d.recorder.Record(ctx, syslog.Entry{
		Level:   level,
		Action:  action,
		Details: details,
	})
}
