package controllers

import (
	"fmt"
	"net/http"

	"github.com/entregave/dispatch-backend/api/responses"
	"github.com/entregave/dispatch-backend/internal/realtime"
	pkgerrors "github.com/entregave/dispatch-backend/pkg/errors"
	"github.com/entregave/dispatch-backend/pkg/logger"
)

// StreamEvents serves the live event feed over server-sent events. The
// connection stays open until the client disconnects; a saturated client
// misses events rather than slowing the hub.
func StreamEvents(hub *realtime.Hub, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "streaming unsupported"))
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		ch := hub.Subscribe()
		defer hub.Unsubscribe(ch)

		if logg != nil {
			logg.Info(r.Context(), "event stream connected")
		}

		for {
			select {
			case <-r.Context().Done():
				if logg != nil {
					logg.Info(r.Context(), "event stream disconnected")
				}
				return
			case payload, open := <-ch:
				if !open {
					return
				}
				fmt.Fprintf(w, "data: %s\n\n", payload)
				flusher.Flush()
			}
		}
	}
}
