package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/entregave/dispatch-backend/api/controllers"
	"github.com/entregave/dispatch-backend/api/middleware"
	"github.com/entregave/dispatch-backend/internal/apikeys"
	"github.com/entregave/dispatch-backend/internal/configstore"
	"github.com/entregave/dispatch-backend/internal/drivers"
	"github.com/entregave/dispatch-backend/internal/integrations"
	"github.com/entregave/dispatch-backend/internal/merchants"
	"github.com/entregave/dispatch-backend/internal/orders"
	"github.com/entregave/dispatch-backend/internal/realtime"
	"github.com/entregave/dispatch-backend/internal/scheduled"
	"github.com/entregave/dispatch-backend/internal/syslog"
	"github.com/entregave/dispatch-backend/internal/tickets"
	"github.com/entregave/dispatch-backend/internal/zones"
	"github.com/entregave/dispatch-backend/pkg/config"
	"github.com/entregave/dispatch-backend/pkg/db"
	"github.com/entregave/dispatch-backend/pkg/logger"
	"github.com/entregave/dispatch-backend/pkg/redis"
)

// RouterParams carries everything the HTTP surface needs.
type RouterParams struct {
	Config *config.Config
	Logger *logger.Logger

	DBPinger    db.Pinger
	RedisPinger redis.Pinger

	Hub *realtime.Hub

	Orders       orders.Service
	Scheduled    scheduled.Service
	Tickets      tickets.Service
	Zones        zones.Service
	Drivers      drivers.Service
	Merchants    merchants.Service
	Integrations integrations.Service
	APIKeys      apikeys.Service
	Configs      configstore.Service
	Syslog       syslog.Service
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DBPinger, p.RedisPinger))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, p.APIKeys, logg))

		// Partner API keys and operators both reach the order surface.
		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.CreateOrder(p.Orders, logg))
			r.Get("/", controllers.ListOrders(p.Orders, logg))
			r.Get("/{id}", controllers.GetOrder(p.Orders, logg))
			r.Get("/{id}/history", controllers.OrderHistory(p.Orders, logg))
			r.Put("/{id}/status", controllers.UpdateOrderStatus(p.Orders, logg))

			r.With(middleware.RequireOperator(logg)).Patch("/{id}", controllers.UpdateOrder(p.Orders, logg))
			r.With(middleware.RequireOperator(logg)).Post("/{id}/assign", controllers.AssignOrder(p.Orders, logg))
		})

		r.Route("/drivers", func(r chi.Router) {
			r.Post("/{id}/location", controllers.ReportDriverLocation(p.Drivers, logg))

			r.With(middleware.RequireOperator(logg)).Get("/", controllers.ListDrivers(p.Drivers, logg))
			r.With(middleware.RequireOperator(logg)).Get("/active", controllers.ListActiveDrivers(p.Drivers, logg))
			r.With(middleware.RequireOperator(logg)).Get("/{id}", controllers.GetDriver(p.Drivers, logg))
			r.With(middleware.RequireAdmin(logg)).Put("/", controllers.UpsertDriver(p.Drivers, logg))
			r.With(middleware.RequireAdmin(logg)).Put("/{id}/commission", controllers.SetDriverCommission(p.Drivers, logg))
		})

		r.Route("/tickets", func(r chi.Router) {
			r.Post("/", controllers.OpenTicket(p.Tickets, logg))
			r.Get("/{id}/messages", controllers.ListTicketMessages(p.Tickets, logg))
			r.Post("/{id}/messages", controllers.AddTicketMessage(p.Tickets, logg))

			r.With(middleware.RequireOperator(logg)).Get("/active", controllers.ListActiveTickets(p.Tickets, logg))
			r.With(middleware.RequireOperator(logg)).Get("/{id}", controllers.GetTicket(p.Tickets, logg))
			r.With(middleware.RequireOperator(logg)).Put("/{id}/status", controllers.UpdateTicketStatus(p.Tickets, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireOperator(logg))

			r.Get("/events", controllers.StreamEvents(p.Hub, logg))
			r.Get("/dashboard/summary", controllers.DashboardSummary(p.Orders, p.Tickets, p.Drivers, p.Hub, logg))

			r.Route("/scheduled-orders", func(r chi.Router) {
				r.Post("/", controllers.CreateScheduledOrder(p.Scheduled, logg))
				r.Get("/", controllers.ListScheduledOrders(p.Scheduled, logg))
				r.Get("/{id}", controllers.GetScheduledOrder(p.Scheduled, logg))
				r.Delete("/{id}", controllers.CancelScheduledOrder(p.Scheduled, logg))
			})

			r.Route("/zones", func(r chi.Router) {
				r.Get("/", controllers.ListZones(p.Zones, logg))
				r.Get("/{id}", controllers.GetZone(p.Zones, logg))

				r.With(middleware.RequireAdmin(logg)).Post("/", controllers.CreateZone(p.Zones, logg))
				r.With(middleware.RequireAdmin(logg)).Put("/{id}", controllers.UpdateZone(p.Zones, logg))
				r.With(middleware.RequireAdmin(logg)).Delete("/{id}", controllers.DeleteZone(p.Zones, logg))
			})

			r.Route("/merchants", func(r chi.Router) {
				r.Get("/", controllers.ListMerchants(p.Merchants, logg))
				r.Get("/{id}", controllers.GetMerchant(p.Merchants, logg))
				r.Put("/", controllers.UpsertMerchant(p.Merchants, logg))

				r.With(middleware.RequireAdmin(logg)).Delete("/{id}", controllers.DeleteMerchant(p.Merchants, logg))
			})

			r.Get("/system-logs", controllers.ListSystemLogs(p.Syslog, logg))
			r.Get("/config/{key}", controllers.GetAppConfig(p.Configs, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin(logg))

				r.Put("/config/{key}", controllers.PutAppConfig(p.Configs, logg))

				r.Route("/integrations", func(r chi.Router) {
					r.Post("/", controllers.CreateIntegration(p.Integrations, logg))
					r.Get("/", controllers.ListIntegrations(p.Integrations, logg))
					r.Get("/{id}", controllers.GetIntegration(p.Integrations, logg))
					r.Put("/{id}", controllers.UpdateIntegration(p.Integrations, logg))
					r.Delete("/{id}", controllers.DeleteIntegration(p.Integrations, logg))
				})

				r.Route("/api-keys", func(r chi.Router) {
					r.Post("/", controllers.GenerateAPIKey(p.APIKeys, logg))
					r.Get("/", controllers.ListAPIKeys(p.APIKeys, logg))
					r.Post("/revoke", controllers.RevokeAPIKey(p.APIKeys, logg))
				})
			})
		})
	})

	return r
}
