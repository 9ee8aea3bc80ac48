package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/entregave/dispatch-backend/api/middleware"
	"github.com/entregave/dispatch-backend/api/responses"
	"github.com/entregave/dispatch-backend/api/validators"
	"github.com/entregave/dispatch-backend/internal/tickets"
	"github.com/entregave/dispatch-backend/pkg/enums"
	pkgerrors "github.com/entregave/dispatch-backend/pkg/errors"
	"github.com/entregave/dispatch-backend/pkg/logger"
)

type OpenTicketBody struct {
	OrderID  int64  `json:"order_id" validate:"required,min=1"`
	DriverID string `json:"driver_id" validate:"required"`
	Reason   string `json:"reason" validate:"required,min=1,max=500"`
}

func OpenTicket(svc tickets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body OpenTicketBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ticket, err := svc.Open(r.Context(), body.OrderID, body.DriverID, body.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toTicketDTO(ticket))
	}
}

func ListActiveTickets(svc tickets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListActive(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toTicketDTOs(list))
	}
}

func GetTicket(svc tickets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathInt64(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ticket, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toTicketDTO(ticket))
	}
}

type UpdateTicketStatusBody struct {
	Status string `json:"status" validate:"required"`
}

func UpdateTicketStatus(svc tickets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathInt64(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body UpdateTicketStatusBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseTicketStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown status"))
			return
		}

		principal, _ := middleware.PrincipalFromContext(r.Context())
		ticket, err := svc.SetStatus(r.Context(), id, status, principal.Actor())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toTicketDTO(ticket))
	}
}

func ListTicketMessages(svc tickets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathInt64(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		messages, err := svc.ListMessages(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toTicketMessageDTOs(messages))
	}
}

type AddTicketMessageBody struct {
	Sender        string  `json:"sender" validate:"required"`
	Body          *string `json:"body,omitempty" validate:"omitempty,min=1,max=2000"`
	AttachmentRef *string `json:"attachment_ref,omitempty"`
}

func AddTicketMessage(svc tickets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathInt64(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body AddTicketMessageBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sender, err := enums.ParseMessageSender(body.Sender)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown sender"))
			return
		}

		message, err := svc.AddMessage(r.Context(), tickets.MessageInput{
			TicketID:      id,
			Sender:        sender,
			Body:          body.Body,
			AttachmentRef: body.AttachmentRef,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toTicketMessageDTO(message))
	}
}
