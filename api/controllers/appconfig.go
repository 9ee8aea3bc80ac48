package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/entregave/dispatch-backend/api/middleware"
	"github.com/entregave/dispatch-backend/api/responses"
	"github.com/entregave/dispatch-backend/api/validators"
	"github.com/entregave/dispatch-backend/internal/configstore"
	"github.com/entregave/dispatch-backend/pkg/logger"
)

func GetAppConfig(svc configstore.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		row, err := svc.Get(r.Context(), chi.URLParam(r, "key"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toAppConfigDTO(row))
	}
}

type PutAppConfigBody struct {
	Value json.RawMessage `json:"value" validate:"required"`
}

func PutAppConfig(svc configstore.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "key")
		var body PutAppConfigBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		principal, _ := middleware.PrincipalFromContext(r.Context())
		actor := principal.Actor()
		row, err := svc.Put(r.Context(), key, body.Value, &actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toAppConfigDTO(row))
	}
}
