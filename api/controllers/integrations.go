package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/entregave/dispatch-backend/api/responses"
	"github.com/entregave/dispatch-backend/api/validators"
	"github.com/entregave/dispatch-backend/internal/integrations"
	"github.com/entregave/dispatch-backend/pkg/logger"
)

type IntegrationBody struct {
	Name             string          `json:"name" validate:"required,min=1,max=120"`
	Active           *bool           `json:"active,omitempty"`
	ExternalIDPrefix string          `json:"external_id_prefix" validate:"required,min=1,max=64"`
	Webhooks         json.RawMessage `json:"webhooks" validate:"required"`
}

func (b IntegrationBody) toInput() integrations.ConfigInput {
	return integrations.ConfigInput{
		Name:             b.Name,
		Active:           b.Active,
		ExternalIDPrefix: b.ExternalIDPrefix,
		Webhooks:         b.Webhooks,
	}
}

func CreateIntegration(svc integrations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body IntegrationBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cfg, err := svc.Create(r.Context(), body.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toIntegrationDTO(cfg))
	}
}

func ListIntegrations(svc integrations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toIntegrationDTOs(list))
	}
}

func GetIntegration(svc integrations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathInt64(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cfg, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toIntegrationDTO(cfg))
	}
}

func UpdateIntegration(svc integrations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathInt64(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body IntegrationBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cfg, err := svc.Update(r.Context(), id, body.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toIntegrationDTO(cfg))
	}
}

func DeleteIntegration(svc integrations.Service, logg *logger.Logger) http.HandlerFunc {
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
