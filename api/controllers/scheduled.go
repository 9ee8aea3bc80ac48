package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/entregave/dispatch-backend/api/middleware"
	"github.com/entregave/dispatch-backend/api/responses"
	"github.com/entregave/dispatch-backend/api/validators"
	"github.com/entregave/dispatch-backend/internal/scheduled"
	"github.com/entregave/dispatch-backend/pkg/enums"
	pkgerrors "github.com/entregave/dispatch-backend/pkg/errors"
	"github.com/entregave/dispatch-backend/pkg/logger"
)

type CreateScheduledOrderBody struct {
	Payload   scheduled.OrderPayload `json:"payload" validate:"required"`
	ReleaseAt time.Time              `json:"release_at" validate:"required"`
}

func CreateScheduledOrder(svc scheduled.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body CreateScheduledOrderBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		principal, _ := middleware.PrincipalFromContext(r.Context())
		row, err := svc.Create(r.Context(), body.Payload, body.ReleaseAt, principal.Actor())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toScheduledOrderDTO(row))
	}
}

func ListScheduledOrders(svc scheduled.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := scheduled.ListFilter{}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseScheduledStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown status"))
				return
			}
			filter.Status = &status
		}
		limit, err := validators.ParseQueryInt(r, "limit", 100, 1, 500)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter.Limit = limit

		list, err := svc.List(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toScheduledOrderDTOs(list))
	}
}

func GetScheduledOrder(svc scheduled.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathInt64(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		row, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toScheduledOrderDTO(row))
	}
}

func CancelScheduledOrder(svc scheduled.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathInt64(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Cancel(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"id": id, "canceled": true})
	}
}
