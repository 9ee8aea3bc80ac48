package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/entregave/dispatch-backend/api/responses"
	"github.com/entregave/dispatch-backend/api/validators"
	"github.com/entregave/dispatch-backend/internal/zones"
	"github.com/entregave/dispatch-backend/pkg/logger"
)

type CreateZoneBody struct {
	Name           string      `json:"name" validate:"required,min=1,max=120"`
	Active         *bool       `json:"active,omitempty"`
	Polygon        [][]float64 `json:"polygon" validate:"required,min=3"`
	RestrictedFrom *string     `json:"restricted_from,omitempty"`
	RestrictedTo   *string     `json:"restricted_to,omitempty"`
}

func CreateZone(svc zones.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body CreateZoneBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		zone, err := svc.Create(r.Context(), zones.CreateInput{
			Name:           body.Name,
			Active:         body.Active,
			Polygon:        body.Polygon,
			RestrictedFrom: body.RestrictedFrom,
			RestrictedTo:   body.RestrictedTo,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toZoneDTO(zone))
	}
}

func ListZones(svc zones.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toZoneDTOs(list))
	}
}

func GetZone(svc zones.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathInt64(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		zone, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toZoneDTO(zone))
	}
}

type UpdateZoneBody struct {
	Name           *string     `json:"name,omitempty" validate:"omitempty,min=1,max=120"`
	Active         *bool       `json:"active,omitempty"`
	Polygon        [][]float64 `json:"polygon,omitempty" validate:"omitempty,min=3"`
	RestrictedFrom *string     `json:"restricted_from,omitempty"`
	RestrictedTo   *string     `json:"restricted_to,omitempty"`
	ClearWindow    bool        `json:"clear_window,omitempty"`
}

func UpdateZone(svc zones.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathInt64(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body UpdateZoneBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		zone, err := svc.Update(r.Context(), id, zones.UpdateInput{
			Name:           body.Name,
			Active:         body.Active,
			Polygon:        body.Polygon,
			RestrictedFrom: body.RestrictedFrom,
			RestrictedTo:   body.RestrictedTo,
			ClearWindow:    body.ClearWindow,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toZoneDTO(zone))
	}
}

func DeleteZone(svc zones.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathInt64(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"id": id, "deleted": true})
	}
}
