package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/entregave/dispatch-backend/api/responses"
	"github.com/entregave/dispatch-backend/api/validators"
	"github.com/entregave/dispatch-backend/internal/merchants"
	"github.com/entregave/dispatch-backend/pkg/logger"
)

type UpsertMerchantBody struct {
	ID      string   `json:"id" validate:"required,min=1,max=120"`
	Name    string   `json:"name" validate:"required,min=1,max=200"`
	Address *string  `json:"address,omitempty"`
	Lat     *float64 `json:"lat,omitempty" validate:"omitempty,latitude"`
	Lng     *float64 `json:"lng,omitempty" validate:"omitempty,longitude"`
	Phone   *string  `json:"phone,omitempty"`
}

func UpsertMerchant(svc merchants.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body UpsertMerchantBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		merchant, err := svc.Upsert(r.Context(), merchants.UpsertInput{
			ID:      body.ID,
			Name:    body.Name,
			Address: body.Address,
			Lat:     body.Lat,
			Lng:     body.Lng,
			Phone:   body.Phone,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toMerchantDTO(merchant))
	}
}

func ListMerchants(svc merchants.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toMerchantDTOs(list))
	}
}

func GetMerchant(svc merchants.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		merchant, err := svc.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toMerchantDTO(merchant))
	}
}

func DeleteMerchant(svc merchants.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"id": id, "deleted": true})
	}
}
