package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/entregave/dispatch-backend/api/responses"
	"github.com/entregave/dispatch-backend/api/validators"
	"github.com/entregave/dispatch-backend/internal/drivers"
	"github.com/entregave/dispatch-backend/pkg/logger"
)

type ReportLocationBody struct {
	Lat        float64  `json:"lat" validate:"latitude"`
	Lng        float64  `json:"lng" validate:"longitude"`
	BatteryPct *float64 `json:"battery_pct,omitempty" validate:"omitempty,min=0,max=100"`
}

func ReportDriverLocation(svc drivers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		driverID := chi.URLParam(r, "id")
		var body ReportLocationBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.ReportLocation(r.Context(), drivers.LocationReport{
			DriverID:   driverID,
			Lat:        body.Lat,
			Lng:        body.Lng,
			BatteryPct: body.BatteryPct,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]any{"driver_id": driverID, "reported": true})
	}
}

type UpsertDriverBody struct {
	ID            string   `json:"id" validate:"required,min=1,max=120"`
	Name          string   `json:"name" validate:"required,min=1,max=200"`
	Status        *string  `json:"status,omitempty"`
	CommissionPct *float64 `json:"commission_pct,omitempty" validate:"omitempty,min=0,max=100"`
	FCMToken      *string  `json:"fcm_token,omitempty"`
}

func UpsertDriver(svc drivers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body UpsertDriverBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		driver, err := svc.UpsertProfile(r.Context(), drivers.ProfileInput{
			ID:            body.ID,
			Name:          body.Name,
			Status:        body.Status,
			CommissionPct: body.CommissionPct,
			FCMToken:      body.FCMToken,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toDriverDTO(driver))
	}
}

type SetCommissionBody struct {
	CommissionPct float64 `json:"commission_pct" validate:"min=0,max=100"`
}

func SetDriverCommission(svc drivers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		driverID := chi.URLParam(r, "id")
		var body SetCommissionBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		driver, err := svc.SetCommission(r.Context(), driverID, body.CommissionPct)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toDriverDTO(driver))
	}
}

func ListDrivers(svc drivers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toDriverDTOs(list))
	}
}

func GetDriver(svc drivers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		driver, err := svc.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toDriverDTO(driver))
	}
}

func ListActiveDrivers(svc drivers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ActiveDrivers(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toActiveDriverDTOs(list))
	}
}
