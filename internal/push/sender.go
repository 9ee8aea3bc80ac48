// Package push sends best-effort notifications to courier devices.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/entregave/dispatch-backend/pkg/config"
	"github.com/entregave/dispatch-backend/pkg/logger"
)

// Sender delivers a notification to a device token. Implementations never
// return errors; delivery is best-effort by contract.
type Sender interface {
	Notify(ctx context.Context, token, title, body string, data map[string]string)
}

// NewSender returns an HTTP sender when a server key is configured and a
// silent no-op otherwise.
func NewSender(cfg config.PushConfig, logg *logger.Logger) Sender {
	if cfg.ServerKey == "" {
		return nopSender{}
	}
	return &httpSender{
		endpoint:  cfg.Endpoint,
		serverKey: cfg.ServerKey,
		client:    &http.Client{Timeout: 5 * time.Second},
		logg:      logg,
	}
}

type nopSender struct{}

func (nopSender) Notify(ctx context.Context, token, title, body string, data map[string]string) {}

type httpSender struct {
	endpoint  string
	serverKey string
	client    *http.Client
	logg      *logger.Logger
}

func (s *httpSender) Notify(ctx context.Context, token, title, body string, data map[string]string) {
	if token == "" {
		return
	}
	payload, err := json.Marshal(map[string]any{
		"to": token,
		"notification": map[string]string{
			"title": title,
			"body":  body,
		},
		"data": data,
	})
	if err != nil {
		s.logg.Warn(ctx, fmt.Sprintf("encode push payload: %v", err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		s.logg.Warn(ctx, fmt.Sprintf("build push request: %v", err))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+s.serverKey)

	resp, err := s.client.Do(req)
	if err != nil {
		s.logg.Warn(ctx, fmt.Sprintf("deliver push notification: %v", err))
		return
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.logg.Warn(ctx, fmt.Sprintf("push endpoint returned status %d", resp.StatusCode))
	}
}
