package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/entregave/dispatch-backend/api/middleware"
	"github.com/entregave/dispatch-backend/api/responses"
	"github.com/entregave/dispatch-backend/api/validators"
	"github.com/entregave/dispatch-backend/internal/orders"
	"github.com/entregave/dispatch-backend/pkg/enums"
	pkgerrors "github.com/entregave/dispatch-backend/pkg/errors"
	"github.com/entregave/dispatch-backend/pkg/logger"
)

type CreateOrderBody struct {
	Description     string  `json:"description" validate:"required,min=1,max=500"`
	DeliveryAddress string  `json:"delivery_address" validate:"required,min=1,max=500"`
	PickupLat       float64 `json:"pickup_lat" validate:"latitude"`
	PickupLng       float64 `json:"pickup_lng" validate:"longitude"`
	DropoffLat      float64 `json:"dropoff_lat" validate:"latitude"`
	DropoffLng      float64 `json:"dropoff_lng" validate:"longitude"`
	VehicleType     string  `json:"vehicle_type" validate:"required"`
	Details         *string `json:"details,omitempty"`
	PickupPhone     *string `json:"pickup_phone,omitempty"`
	DropoffPhone    *string `json:"dropoff_phone,omitempty"`
	MapsLink        *string `json:"maps_link,omitempty"`
	MerchantID      string  `json:"merchant_id" validate:"required"`
	MerchantName    string  `json:"merchant_name" validate:"required"`
	MerchantPhone   *string `json:"merchant_phone,omitempty"`
	MerchantAddress *string `json:"merchant_address,omitempty"`
	ExternalID      *string `json:"external_id,omitempty"`
}

func CreateOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body CreateOrderBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		vehicleType, err := enums.ParseVehicleType(body.VehicleType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown vehicle type"))
			return
		}

		principal, _ := middleware.PrincipalFromContext(r.Context())
		order, err := svc.Create(r.Context(), orders.CreateInput{
			Description:     body.Description,
			DeliveryAddress: body.DeliveryAddress,
			PickupLat:       body.PickupLat,
			PickupLng:       body.PickupLng,
			DropoffLat:      body.DropoffLat,
			DropoffLng:      body.DropoffLng,
			VehicleType:     vehicleType,
			Details:         body.Details,
			PickupPhone:     body.PickupPhone,
			DropoffPhone:    body.DropoffPhone,
			MapsLink:        body.MapsLink,
			MerchantID:      body.MerchantID,
			MerchantName:    body.MerchantName,
			MerchantPhone:   body.MerchantPhone,
			MerchantAddress: body.MerchantAddress,
			CreatedBy:       principal.Actor(),
			ExternalID:      body.ExternalID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, toOrderDTO(order))
	}
}

func ListOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := orders.ListFilter{}

		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown status"))
				return
			}
			filter.Status = &status
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("driver_id")); raw != "" {
			filter.DriverID = &raw
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("merchant_id")); raw != "" {
			filter.MerchantID = &raw
		}
		from, err := validators.ParseQueryTime(r, "from")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter.From = from
		to, err := validators.ParseQueryTime(r, "to")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter.To = to
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
		responses.WriteSuccess(w, toOrderDTOs(list))
	}
}

func GetOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathInt64(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toOrderDTO(order))
	}
}

type UpdateOrderBody struct {
	Description     *string `json:"description,omitempty" validate:"omitempty,min=1,max=500"`
	DeliveryAddress *string `json:"delivery_address,omitempty" validate:"omitempty,min=1,max=500"`
	Details         *string `json:"details,omitempty"`
	PickupPhone     *string `json:"pickup_phone,omitempty"`
	DropoffPhone    *string `json:"dropoff_phone,omitempty"`
	MapsLink        *string `json:"maps_link,omitempty"`
}

func UpdateOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathInt64(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body UpdateOrderBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Update(r.Context(), id, orders.UpdateInput{
			Description:     body.Description,
			DeliveryAddress: body.DeliveryAddress,
			Details:         body.Details,
			PickupPhone:     body.PickupPhone,
			DropoffPhone:    body.DropoffPhone,
			MapsLink:        body.MapsLink,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toOrderDTO(order))
	}
}

type UpdateOrderStatusBody struct {
	Status   string  `json:"status" validate:"required"`
	DriverID *string `json:"driver_id,omitempty"`
}

func UpdateOrderStatus(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathInt64(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body UpdateOrderStatusBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseOrderStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown status"))
			return
		}

		principal, _ := middleware.PrincipalFromContext(r.Context())
		order, err := svc.UpdateStatus(r.Context(), id, status, body.DriverID, principal.Actor())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toOrderDTO(order))
	}
}

type AssignOrderBody struct {
	DriverID string `json:"driver_id" validate:"required"`
}

func AssignOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathInt64(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body AssignOrderBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		principal, _ := middleware.PrincipalFromContext(r.Context())
		order, err := svc.Assign(r.Context(), id, body.DriverID, principal.Actor())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toOrderDTO(order))
	}
}

func OrderHistory(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathInt64(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		logs, err := svc.History(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toStatusLogDTOs(logs))
	}
}
