package controllers

import (
	"net/http"

	"github.com/entregave/dispatch-backend/api/responses"
	"github.com/entregave/dispatch-backend/internal/drivers"
	"github.com/entregave/dispatch-backend/internal/orders"
	"github.com/entregave/dispatch-backend/internal/realtime"
	"github.com/entregave/dispatch-backend/internal/tickets"
	"github.com/entregave/dispatch-backend/pkg/logger"
)

// DashboardSummary aggregates the live operational picture shown on the
// panel landing page.
func DashboardSummary(ordersSvc orders.Service, ticketsSvc tickets.Service, driversSvc drivers.Service, hub *realtime.Hub, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := ordersSvc.List(r.Context(), orders.ListFilter{Limit: 500})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		byStatus := map[string]int{}
		for _, order := range list {
			byStatus[order.Status.String()]++
		}

		activeTickets, err := ticketsSvc.ListActive(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		activeDrivers, err := driversSvc.ActiveDrivers(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary := map[string]any{
			"orders_by_status": byStatus,
			"active_tickets":   len(activeTickets),
			"active_drivers":   len(activeDrivers),
		}
		if hub != nil {
			summary["event_listeners"] = hub.SubscriberCount()
		}
		responses.WriteSuccess(w, summary)
	}
}
